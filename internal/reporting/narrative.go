package reporting

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"loomworks/internal/domain"
)

// Analyze produces the "graph analysis" text for a chart. It is a pure
// function of the points: the same input always yields the same sentences, so
// the dashboard can regenerate it on every request without flicker.
func Analyze(title string, points []ChartPoint) string {
	if len(points) == 0 {
		return fmt.Sprintf("No data is available for %s yet.", title)
	}

	total := decimal.Zero
	max := points[0]
	min := points[0]
	for _, p := range points {
		total = total.Add(p.Value)
		if p.Value.GreaterThan(max.Value) {
			max = p
		}
		if p.Value.LessThan(min.Value) {
			min = p
		}
	}
	avg := total.Div(decimal.NewFromInt(int64(len(points))))

	var b strings.Builder
	fmt.Fprintf(&b, "%s covers %d categories with a combined value of %s.",
		title, len(points), total.String())
	fmt.Fprintf(&b, " %s leads at %s", max.Label, max.Value.String())
	if !total.IsZero() {
		share := max.Value.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
		fmt.Fprintf(&b, " (%s%% of the total)", share.String())
	}
	b.WriteString(".")
	if min.Label != max.Label {
		fmt.Fprintf(&b, " %s trails at %s.", min.Label, min.Value.String())
	}
	fmt.Fprintf(&b, " The average across categories is %s.", avg.Round(2).String())

	if len(points) > 1 {
		first, last := points[0].Value, points[len(points)-1].Value
		switch {
		case last.GreaterThan(first):
			b.WriteString(" The series trends upward from first to last point.")
		case last.LessThan(first):
			b.WriteString(" The series trends downward from first to last point.")
		default:
			b.WriteString(" The series is flat from first to last point.")
		}
	}
	return b.String()
}

// buyerShare derives a stable placeholder percentage from the buyer id. The
// figure stands in for a real financial linkage that does not exist yet, so
// callers must surface it as synthetic. Same id, same share.
func buyerShare(id uuid.UUID) decimal.Decimal {
	h := fnv.New32a()
	h.Write(id[:])
	// 5.0 to 24.9 percent in tenths.
	tenths := int64(h.Sum32()%200) + 50
	return decimal.New(tenths, -1)
}

// BuyerContributions maps approved buyers to their synthetic share figures.
func BuyerContributions(buyers []domain.Record) []BuyerShare {
	var out []BuyerShare
	for _, r := range buyers {
		b, ok := r.(*domain.Buyer)
		if !ok || b.Status != domain.StatusApproved {
			continue
		}
		out = append(out, BuyerShare{
			Buyer:     b.Name,
			Share:     buyerShare(b.ID),
			Synthetic: true,
		})
	}
	return out
}
