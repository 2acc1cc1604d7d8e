// Package handler exposes the admin dashboard endpoints. Everything here is
// read-only aggregation; mutations live with the workflow handler.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"loomworks/internal/activity"
	"loomworks/internal/platform/metrics"
	"loomworks/internal/platform/middleware"
	"loomworks/internal/reporting"
	"loomworks/internal/transport/http/shared"
	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/requestcontext"
)

// Service defines the aggregation operations the handler needs.
type Service interface {
	Stats(ctx context.Context) (reporting.StatsPayload, error)
	Feed(ctx context.Context) ([]reporting.FeedItem, error)
	Audit(ctx context.Context, limit int) ([]activity.Entry, error)
	Analyze(title string, points []reporting.ChartPoint) string
}

// Handler handles /admin/stats, /admin/feed, /admin/audit and
// /admin/analysis.
type Handler struct {
	logger    *slog.Logger
	reports   Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(reports Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		reports:   reports,
		metrics:   m,
		validator: validator,
	}
}

// Register mounts the dashboard routes. All of them are admin-only.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.validator, h.logger))
	router.Use(middleware.RequireAdmin(h.logger))

	router.Get("/stats", h.handleStats)
	router.Get("/feed", h.handleFeed)
	router.Get("/audit", h.handleAudit)
	router.Post("/analysis", h.handleAnalysis)

	r.Mount("/admin", router)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	payload, err := h.reports.Stats(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "stats failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.Feed(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "feed failed", err)
		return
	}
	if items == nil {
		items = []reporting.FeedItem{}
	}
	shared.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.reports.Audit(r.Context(), limit)
	if err != nil {
		h.fail(r.Context(), w, "audit failed", err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

type analysisRequest struct {
	Title  string                 `json:"title"`
	Points []reporting.ChartPoint `json:"points"`
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Title == "" {
		req.Title = "The chart"
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"analysis": h.reports.Analyze(req.Title, req.Points),
	})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}
