// Package reporting computes the admin dashboard figures by reading the
// entity, ledger and activity stores. It never mutates state.
package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"loomworks/internal/domain"
)

// KPIs are the headline dashboard numbers.
type KPIs struct {
	ApprovedEmployees  int             `json:"approvedEmployees"`
	ActiveProjects     int             `json:"activeProjects"`
	PendingSubmissions int             `json:"pendingSubmissions"`
	ExportValue        decimal.Decimal `json:"exportValue"`

	// AccuracyRate is a configured display constant, not a derived metric.
	AccuracyRate string `json:"accuracyRate"`
}

// ChartPoint is one labelled value in a distribution chart.
type ChartPoint struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// SeriesPoint is one calendar-month bucket (YYYY-MM) in a time series.
type SeriesPoint struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// FinancialPoint is one month of the reconstructed financial trend. Revenue
// and profit are range midpoints; expenses is derived, not stored.
type FinancialPoint struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
	Expenses decimal.Decimal `json:"expenses"`
}

// BuyerShare is a buyer's contribution figure. The percentages are synthetic
// placeholders derived from a stable hash of the buyer id; no real financial
// linkage exists yet, so every share is tagged accordingly.
type BuyerShare struct {
	Buyer     string          `json:"buyer"`
	Share     decimal.Decimal `json:"share"`
	Synthetic bool            `json:"synthetic"`
}

// StatsPayload is the full aggregation response for the admin dashboard.
type StatsPayload struct {
	KPIs                  KPIs             `json:"kpis"`
	SubmissionsByStatus   []ChartPoint     `json:"submissionsByStatus"`
	EmployeesByDepartment []ChartPoint     `json:"employeesByDepartment"`
	ExportsByDestination  []ChartPoint     `json:"exportsByDestination"`
	ExportValueMonthly    []SeriesPoint    `json:"exportValueMonthly"`
	FinancialTrend        []FinancialPoint `json:"financialTrend"`
	BuyerContributions    []BuyerShare     `json:"buyerContributions"`
	GeneratedAt           time.Time        `json:"generatedAt"`
}

// FeedItem is one row of the governance feed. Pending submissions are mapped
// into this shape with a synthetic "Submitted" action so the admin sees open
// work first.
type FeedItem struct {
	Action     string            `json:"action"`
	EntityType domain.EntityType `json:"entityType,omitempty"`
	EntityID   uuid.UUID         `json:"entityId,omitempty"`
	UserID     uuid.UUID         `json:"userId"`
	Details    string            `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
