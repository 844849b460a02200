// Package tax computes net, tax and total amounts for document lines.
//
// Every function is pure. The dependent field is always derived from the other
// two after rounding, so Net + Tax == Total holds exactly.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
)

// Mode says whether an entered amount excludes or includes tax.
type Mode string

const (
	Exclusive Mode = "EXCLUSIVE"
	Inclusive Mode = "INCLUSIVE"
)

// ParseMode converts user input to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Exclusive, Inclusive:
		return Mode(s), nil
	}
	return "", errs.Validation("tax_mode", "unknown tax mode %q", s)
}

// Result is the rounded outcome for one amount.
type Result struct {
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
	Total decimal.Decimal `json:"total"`
	Rate  decimal.Decimal `json:"rate"`
	Mode  Mode            `json:"mode"`
}

// Calculate splits amount into net, tax and total at rate under mode.
func Calculate(amount, rate decimal.Decimal, mode Mode) (Result, error) {
	if amount.IsNegative() {
		return Result{}, errs.Validation("tax_amount", "amount %s must not be negative", amount)
	}
	if rate.IsNegative() {
		return Result{}, errs.Validation("tax_rate", "rate %s must not be negative", rate)
	}

	switch mode {
	case Exclusive:
		net := money.Round2(amount)
		tax := money.Round2(net.Mul(rate))
		return Result{Net: net, Tax: tax, Total: net.Add(tax), Rate: rate, Mode: mode}, nil
	case Inclusive:
		return fromTotal(money.Round2(amount), rate, mode), nil
	}
	return Result{}, errs.Validation("tax_mode", "unknown tax mode %q", mode)
}

// fromTotal derives net from a fixed total and takes tax as the remainder.
func fromTotal(total, rate decimal.Decimal, mode Mode) Result {
	net := money.Round2(total.Div(decimal.NewFromInt(1).Add(rate)))
	return Result{Net: net, Tax: total.Sub(net), Total: total, Rate: rate, Mode: mode}
}

// RecalculateOnToggle switches prev to mode while holding its total constant.
func RecalculateOnToggle(prev Result, mode Mode) (Result, error) {
	if mode != Exclusive && mode != Inclusive {
		return Result{}, errs.Validation("tax_mode", "unknown tax mode %q", mode)
	}
	return fromTotal(money.Round2(prev.Total), prev.Rate, mode), nil
}

// Summary aggregates a set of line results.
type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TotalTax decimal.Decimal `json:"total_tax"`
	Total    decimal.Decimal `json:"total"`
	// DeemedTax is tax computed on deemed lines; it is reported, not charged.
	DeemedTax decimal.Decimal `json:"deemed_tax"`
}

// Aggregate sums the already-rounded fields of each result independently and
// re-rounds each sum. Documents therefore total the sum of rounded lines, which
// can differ by up to 0.01 per line from rounding the summed raw amounts.
func Aggregate(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Subtotal = s.Subtotal.Add(r.Net)
		s.TotalTax = s.TotalTax.Add(r.Tax)
		s.Total = s.Total.Add(r.Total)
	}
	s.Subtotal = money.Round2(s.Subtotal)
	s.TotalTax = money.Round2(s.TotalTax)
	s.Total = money.Round2(s.Total)
	return s
}

func (r Result) String() string {
	return fmt.Sprintf("net=%s tax=%s total=%s", r.Net.StringFixed(2), r.Tax.StringFixed(2), r.Total.StringFixed(2))
}
