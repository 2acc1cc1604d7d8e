package reporting

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"loomworks/internal/activity"
	"loomworks/internal/domain"
	"loomworks/internal/workflow"
	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/requestcontext"
)

const (
	resolvedFeedWindow = 20
	feedActivityLimit  = 50
	auditDefaultLimit  = 100
)

// EntityReader reads all records of one domain. The workflow entity stores
// satisfy this.
type EntityReader interface {
	List(ctx context.Context, entityType domain.EntityType) ([]domain.Record, error)
}

// SubmissionReader reads the submission ledger.
type SubmissionReader interface {
	ListByStatus(ctx context.Context, status workflow.SubmissionStatus) ([]workflow.Submission, error)
	ListResolved(ctx context.Context, limit int) ([]workflow.Submission, error)
	CountByStatus(ctx context.Context) (map[workflow.SubmissionStatus]int, error)
}

// ActivityReader reads the activity stream.
type ActivityReader interface {
	ListRecent(ctx context.Context, limit int) ([]activity.Entry, error)
}

// Service computes dashboard aggregations. Strictly read-only: it fans out
// over the stores, derives figures, and caches the snapshot.
type Service struct {
	entities    EntityReader
	submissions SubmissionReader
	activities  ActivityReader
	cache       *Cache
	accuracy    string
	logger      *slog.Logger
}

func NewService(
	entities EntityReader,
	submissions SubmissionReader,
	activities ActivityReader,
	cache *Cache,
	accuracyRate string,
	logger *slog.Logger,
) *Service {
	return &Service{
		entities:    entities,
		submissions: submissions,
		activities:  activities,
		cache:       cache,
		accuracy:    accuracyRate,
		logger:      logger,
	}
}

// Stats builds the full dashboard payload, serving the cached snapshot when
// one is fresh.
func (s *Service) Stats(ctx context.Context) (StatsPayload, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	var (
		employees  []domain.Record
		projects   []domain.Record
		exports    []domain.Record
		financials []domain.Record
		buyers     []domain.Record
		subCounts  map[workflow.SubmissionStatus]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.entities.List(gctx, domain.TypeEmployee)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.entities.List(gctx, domain.TypeProject)
		return err
	})
	g.Go(func() (err error) {
		exports, err = s.entities.List(gctx, domain.TypeExport)
		return err
	})
	g.Go(func() (err error) {
		financials, err = s.entities.List(gctx, domain.TypeFinancial)
		return err
	})
	g.Go(func() (err error) {
		buyers, err = s.entities.List(gctx, domain.TypeBuyer)
		return err
	})
	g.Go(func() (err error) {
		subCounts, err = s.submissions.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return StatsPayload{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load dashboard data")
	}

	approvedExports := approvedOnly(exports)
	payload := StatsPayload{
		KPIs: KPIs{
			ApprovedEmployees:  len(approvedOnly(employees)),
			ActiveProjects:     countActiveProjects(projects),
			PendingSubmissions: subCounts[workflow.SubmissionPending],
			ExportValue:        sumExportValue(approvedExports),
			AccuracyRate:       s.accuracy,
		},
		SubmissionsByStatus:   submissionStatusChart(subCounts),
		EmployeesByDepartment: countChart(approvedOnly(employees), func(r domain.Record) string {
			return r.(*domain.Employee).Department
		}),
		ExportsByDestination: valueChart(approvedExports, func(r domain.Record) (string, decimal.Decimal) {
			e := r.(*domain.Export)
			return e.Destination, e.Value
		}),
		ExportValueMonthly: monthlyExportSeries(approvedExports),
		FinancialTrend:     s.financialTrend(ctx, financials),
		BuyerContributions: BuyerContributions(buyers),
		GeneratedAt:        requestcontext.Now(ctx),
	}

	s.cache.Set(ctx, payload)
	return payload, nil
}

// Feed is the admin governance view: every pending submission first, then a
// bounded window of recent decisions, then the raw activity stream. The lists
// are concatenated without deduplication; a decided submission legitimately
// appears both as a ledger row and as its activity entry.
func (s *Service) Feed(ctx context.Context) ([]FeedItem, error) {
	pending, err := s.submissions.ListByStatus(ctx, workflow.SubmissionPending)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list pending submissions")
	}
	resolved, err := s.submissions.ListResolved(ctx, resolvedFeedWindow)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list resolved submissions")
	}
	entries, err := s.activities.ListRecent(ctx, feedActivityLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list activity")
	}

	items := make([]FeedItem, 0, len(pending)+len(resolved)+len(entries))
	for _, sub := range pending {
		items = append(items, FeedItem{
			Action:     activity.ActionSubmitted,
			EntityType: sub.EntityType,
			EntityID:   sub.EntityID,
			UserID:     sub.ManagerID,
			Details:    "awaiting decision",
			OccurredAt: sub.SubmittedAt,
		})
	}
	for _, sub := range resolved {
		items = append(items, FeedItem{
			Action:     string(sub.Status),
			EntityType: sub.EntityType,
			EntityID:   sub.EntityID,
			UserID:     sub.ManagerID,
			OccurredAt: sub.SubmittedAt,
		})
	}
	for _, e := range entries {
		items = append(items, FeedItem{
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			UserID:     e.UserID,
			Details:    e.Details,
			OccurredAt: e.CreatedAt,
		})
	}
	return items, nil
}

// Audit returns the raw activity stream, newest first. Unlike Feed it adds
// nothing and filters nothing.
func (s *Service) Audit(ctx context.Context, limit int) ([]activity.Entry, error) {
	if limit <= 0 {
		limit = auditDefaultLimit
	}
	entries, err := s.activities.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list activity")
	}
	return entries, nil
}

// Analyze generates the narrative text for one chart.
func (s *Service) Analyze(title string, points []ChartPoint) string {
	return Analyze(title, points)
}

func (s *Service) financialTrend(ctx context.Context, financials []domain.Record) []FinancialPoint {
	var out []FinancialPoint
	for _, r := range approvedOnly(financials) {
		f := r.(*domain.Financial)
		point, err := DeriveFinancials(f.Period, f.RevenueRange, f.ProfitRange)
		if err != nil {
			// A malformed range was stored before validation tightened; skip
			// the month rather than blanking the whole dashboard.
			s.logger.WarnContext(ctx, "skipping unparseable financial record",
				"record_id", f.ID.String(),
				"error", err.Error(),
			)
			continue
		}
		out = append(out, point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func approvedOnly(records []domain.Record) []domain.Record {
	return lo.Filter(records, func(r domain.Record, _ int) bool {
		return r.Workflow().Status == domain.StatusApproved
	})
}

func countActiveProjects(projects []domain.Record) int {
	return lo.CountBy(projects, func(r domain.Record) bool {
		p := r.(*domain.Project)
		return p.Status == domain.StatusApproved && p.Phase != "Completed"
	})
}

func sumExportValue(exports []domain.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range exports {
		total = total.Add(r.(*domain.Export).Value)
	}
	return total
}

func submissionStatusChart(counts map[workflow.SubmissionStatus]int) []ChartPoint {
	points := make([]ChartPoint, 0, len(counts))
	for status, n := range counts {
		points = append(points, ChartPoint{
			Label: string(status),
			Value: decimal.NewFromInt(int64(n)),
		})
	}
	sortPoints(points)
	return points
}

func countChart(records []domain.Record, label func(domain.Record) string) []ChartPoint {
	counts := lo.CountValuesBy(records, label)
	points := make([]ChartPoint, 0, len(counts))
	for l, n := range counts {
		points = append(points, ChartPoint{Label: l, Value: decimal.NewFromInt(int64(n))})
	}
	sortPoints(points)
	return points
}

func valueChart(records []domain.Record, labelValue func(domain.Record) (string, decimal.Decimal)) []ChartPoint {
	sums := map[string]decimal.Decimal{}
	for _, r := range records {
		l, v := labelValue(r)
		sums[l] = sums[l].Add(v)
	}
	points := make([]ChartPoint, 0, len(sums))
	for l, v := range sums {
		points = append(points, ChartPoint{Label: l, Value: v})
	}
	sortPoints(points)
	return points
}

func monthlyExportSeries(exports []domain.Record) []SeriesPoint {
	sums := map[string]decimal.Decimal{}
	for _, r := range exports {
		e := r.(*domain.Export)
		month := e.CreatedAt.Format("2006-01")
		sums[month] = sums[month].Add(e.Value)
	}
	points := make([]SeriesPoint, 0, len(sums))
	for month, v := range sums {
		points = append(points, SeriesPoint{Month: month, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points
}

// sortPoints orders chart points by label so the payload is stable across
// requests; map iteration order would otherwise leak into the JSON.
func sortPoints(points []ChartPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
}
