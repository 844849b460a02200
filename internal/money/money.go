// Package money holds the financial rounding rules shared by the ledger and tax code.
package money

import "github.com/shopspring/decimal"

// Places is the number of decimal places amounts are rounded to.
const Places = 2

// Epsilon is the largest base-currency difference treated as equal.
var Epsilon = decimal.New(1, -Places)

// MaxAmount is the largest amount a single entry may carry. Balances are
// int64 minor units, so this leaves room for many maximal postings per account.
var MaxAmount = decimal.New(1, 14)

var hundred = decimal.NewFromInt(100)

// Round2 applies financial rounding (half-up) to 2 decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// WithinEpsilon reports whether |a - b| <= Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// InRange reports whether |d| <= MaxAmount.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}

// ToMinor converts an amount to integer minor units after rounding. Callers
// keep amounts within MaxAmount so the result fits an int64.
func ToMinor(d decimal.Decimal) int64 {
	return Round2(d).Mul(hundred).IntPart()
}

// FromMinor converts integer minor units back to an amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -Places)
}

// HasAtMostTwoPlaces reports whether d needs no rounding to be stored.
func HasAtMostTwoPlaces(d decimal.Decimal) bool {
	return d.Equal(Round2(d))
}
