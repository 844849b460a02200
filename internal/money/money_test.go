package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"2.675", "2.68"},
		{"8474576.2711", "8474576.27"},
		{"0.125", "0.13"},
		{"10", "10.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(dec(tt.in)).StringFixed(2), "Round2(%s)", tt.in)
	}
}

func TestWithinEpsilon(t *testing.T) {
	assert.True(t, WithinEpsilon(dec("100.00"), dec("100.01")))
	assert.True(t, WithinEpsilon(dec("100.01"), dec("100.00")))
	assert.False(t, WithinEpsilon(dec("100.00"), dec("100.02")))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(100000000), ToMinor(dec("1000000")))
	assert.Equal(t, int64(-1234), ToMinor(dec("-12.34")))
	assert.Equal(t, int64(1), ToMinor(dec("0.005")))
	assert.Equal(t, "12.34", FromMinor(1234).StringFixed(2))
	assert.True(t, FromMinor(ToMinor(dec("999.99"))).Equal(dec("999.99")))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(MaxAmount))
	assert.True(t, InRange(MaxAmount.Neg()))
	assert.False(t, InRange(MaxAmount.Add(dec("0.01"))))
	assert.Equal(t, int64(10_000_000_000_000_000), ToMinor(MaxAmount))
}

func TestHasAtMostTwoPlaces(t *testing.T) {
	assert.True(t, HasAtMostTwoPlaces(dec("10.12")))
	assert.False(t, HasAtMostTwoPlaces(dec("10.123")))
}
