package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow engine.
type Metrics struct {
	// Submissions entering the review queue, by entity type.
	Submissions *prometheus.CounterVec

	// Admin decisions, by action.
	Decisions *prometheus.CounterVec

	// Edits refused because the record was pending or approved.
	LockedEdits prometheus.Counter

	// Decisions whose ledger writes landed but entity propagation failed.
	ReconciliationFailures prometheus.Counter

	// Full decide latency including ledger and entity writes.
	DecideLatency prometheus.Histogram
}

// New creates a Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loomworks_workflow_submissions_total",
			Help: "Total records submitted for review by entity type",
		}, []string{"entity_type"}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loomworks_workflow_decisions_total",
			Help: "Total admin decisions by action",
		}, []string{"action"}),

		LockedEdits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loomworks_workflow_locked_edits_total",
			Help: "Total manager edits refused due to pending or approved state",
		}),

		ReconciliationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loomworks_workflow_reconciliation_failures_total",
			Help: "Total decisions left ledger-ahead of the entity store",
		}),

		DecideLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loomworks_workflow_decide_duration_seconds",
			Help:    "Duration of full decision processing",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncSubmissions records a submission entering the queue.
func (m *Metrics) IncSubmissions(entityType string) {
	if m != nil {
		m.Submissions.WithLabelValues(entityType).Inc()
	}
}

// IncDecisions records an admin decision.
func (m *Metrics) IncDecisions(action string) {
	if m != nil {
		m.Decisions.WithLabelValues(action).Inc()
	}
}

// IncLockedEdits records a refused edit.
func (m *Metrics) IncLockedEdits() {
	if m != nil {
		m.LockedEdits.Inc()
	}
}

// IncReconciliationFailures records a ledger-ahead decision.
func (m *Metrics) IncReconciliationFailures() {
	if m != nil {
		m.ReconciliationFailures.Inc()
	}
}

// ObserveDecideLatency records the duration of a decision.
func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}
