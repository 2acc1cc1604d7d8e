package reporting

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "loomworks/pkg/errors"
)

// ParseRange parses a stored financial range string. The contract is fixed:
// split on "-", parse both sides as integers. "50000-60000" yields (50000,
// 60000); anything else is a validation error.
func ParseRange(s string) (int64, int64, error) {
	lowStr, highStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "range %q is not of the form low-high", s)
	}
	low, err := strconv.ParseInt(strings.TrimSpace(lowStr), 10, 64)
	if err != nil {
		return 0, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "range %q has a non-integer lower bound", s)
	}
	high, err := strconv.ParseInt(strings.TrimSpace(highStr), 10, 64)
	if err != nil {
		return 0, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "range %q has a non-integer upper bound", s)
	}
	return low, high, nil
}

// Midpoint returns the average of the two bounds of a range string.
func Midpoint(s string) (decimal.Decimal, error) {
	low, high, err := ParseRange(s)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(low + high).Div(decimal.NewFromInt(2)), nil
}

// DeriveFinancials reconstructs one month's figures from the stored ranges.
// Expenses is revenue midpoint minus profit midpoint; it is a derived metric,
// never a stored fact.
func DeriveFinancials(period, revenueRange, profitRange string) (FinancialPoint, error) {
	revenue, err := Midpoint(revenueRange)
	if err != nil {
		return FinancialPoint{}, pkgerrors.Wrap(err, pkgerrors.CodeValidation, "revenue range")
	}
	profit, err := Midpoint(profitRange)
	if err != nil {
		return FinancialPoint{}, pkgerrors.Wrap(err, pkgerrors.CodeValidation, "profit range")
	}
	return FinancialPoint{
		Month:    period,
		Revenue:  revenue,
		Profit:   profit,
		Expenses: revenue.Sub(profit),
	}, nil
}
