// Package http assembles the service's HTTP surface. Feature handlers mount
// themselves; this package only owns the root router and the operational
// endpoints.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loomworks/internal/transport/http/shared"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// NewRouter builds the root router: Prometheus metrics, health probe, and
// every feature handler. Static routes are registered before the handlers so
// the workflow's /{domain} wildcard never shadows them.
func NewRouter(checks map[string]HealthCheck, registrars ...Registrar) chi.Router {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(checks))

	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				statuses[name] = err.Error()
				healthy = false
			} else {
				statuses[name] = "ok"
			}
		}
		if !healthy {
			shared.WriteJSON(w, http.StatusServiceUnavailable, statuses)
			return
		}
		shared.WriteJSON(w, http.StatusOK, statuses)
	}
}
