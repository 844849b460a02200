package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
)

// ValidationError describes a single problem in an import file.
type ValidationError struct {
	Rule        string
	Group       string
	Line        int // CSV line, 0 for group-level problems
	Description string
}

func (e ValidationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s [group %s]: %s", e.Rule, e.Group, e.Description)
	}
	return fmt.Sprintf("%s [group %s, line %d]: %s", e.Rule, e.Group, e.Line, e.Description)
}

// AccountChecker tests whether an account code exists in the chart of accounts.
type AccountChecker interface {
	Exists(code string) bool
}

// ValidateRows checks an import file before anything is written. Group
// balance is checked in base currency; rows without a rate count at 1.
func ValidateRows(rows []Row, accounts AccountChecker) []ValidationError {
	var errs []ValidationError

	groups, order := groupRows(rows)

	for i, row := range rows {
		line := i + 2

		if row.Group == "" {
			errs = append(errs, ValidationError{Rule: "group", Line: line, Description: "group is required"})
		}

		// Exactly one of debit/credit per row.
		hasDebit := !row.Debit.IsZero()
		hasCredit := !row.Credit.IsZero()
		if hasDebit == hasCredit {
			errs = append(errs, ValidationError{
				Rule: "one_side", Group: row.Group, Line: line,
				Description: "row must have exactly one of debit or credit",
			})
		}
		if row.Debit.IsNegative() || row.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Rule: "amount", Group: row.Group, Line: line,
				Description: "amounts must be positive",
			})
		}

		if !accounts.Exists(row.AccountCode) {
			errs = append(errs, ValidationError{
				Rule: "account", Group: row.Group, Line: line,
				Description: fmt.Sprintf("unknown account %q", row.AccountCode),
			})
		}

		// No more than 2 decimal places.
		for _, amt := range []decimal.Decimal{row.Debit, row.Credit} {
			if !money.HasAtMostTwoPlaces(amt) {
				errs = append(errs, ValidationError{
					Rule: "precision", Group: row.Group, Line: line,
					Description: fmt.Sprintf("amount %s has more than 2 decimal places", amt),
				})
			}
		}
	}

	one := decimal.NewFromInt(1)
	for _, g := range order {
		if g == "" {
			continue
		}
		var debit, credit decimal.Decimal
		date := groups[g][0].row.Date
		for _, gr := range groups[g] {
			rate := gr.row.ExchangeRate
			if rate.IsZero() {
				rate = one
			}
			debit = debit.Add(money.Round2(gr.row.Debit.Mul(rate)))
			credit = credit.Add(money.Round2(gr.row.Credit.Mul(rate)))
			if !gr.row.Date.Equal(date) {
				errs = append(errs, ValidationError{
					Rule: "date", Group: g, Line: gr.line,
					Description: "all rows of a group must share one date",
				})
			}
		}
		if !money.WithinEpsilon(debit, credit) {
			errs = append(errs, ValidationError{
				Rule: "balanced", Group: g,
				Description: fmt.Sprintf("debits (%s) != credits (%s)", debit.StringFixed(2), credit.StringFixed(2)),
			})
		}
	}

	return errs
}

type groupedRow struct {
	row  Row
	line int
}

// groupRows buckets rows by group, keeping first-seen group order.
func groupRows(rows []Row) (map[string][]groupedRow, []string) {
	groups := make(map[string][]groupedRow)
	var order []string
	for i, row := range rows {
		if _, seen := groups[row.Group]; !seen {
			order = append(order, row.Group)
		}
		groups[row.Group] = append(groups[row.Group], groupedRow{row: row, line: i + 2})
	}
	return groups, order
}
