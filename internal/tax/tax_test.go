package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate_Exclusive(t *testing.T) {
	r, err := Calculate(dec("10000000"), dec("0.18"), Exclusive)
	require.NoError(t, err)
	assert.Equal(t, "10000000.00", r.Net.StringFixed(2))
	assert.Equal(t, "1800000.00", r.Tax.StringFixed(2))
	assert.Equal(t, "11800000.00", r.Total.StringFixed(2))
}

func TestCalculate_Inclusive(t *testing.T) {
	r, err := Calculate(dec("10000000"), dec("0.18"), Inclusive)
	require.NoError(t, err)
	assert.Equal(t, "8474576.27", r.Net.StringFixed(2))
	assert.Equal(t, "1525423.73", r.Tax.StringFixed(2))
	assert.Equal(t, "10000000.00", r.Total.StringFixed(2))
}

func TestCalculate_NetPlusTaxEqualsTotal(t *testing.T) {
	amounts := []string{"0.01", "0.99", "1.005", "33.33", "99.99", "1234.567", "1000000.01"}
	rates := []string{"0", "0.05", "0.075", "0.18", "0.2", "0.333"}
	for _, a := range amounts {
		for _, rt := range rates {
			for _, mode := range []Mode{Exclusive, Inclusive} {
				r, err := Calculate(dec(a), dec(rt), mode)
				require.NoError(t, err)
				assert.True(t, r.Net.Add(r.Tax).Equal(r.Total), "%s @%s %s: %s", a, rt, mode, r)
				assert.True(t, money.HasAtMostTwoPlaces(r.Net))
				assert.True(t, money.HasAtMostTwoPlaces(r.Tax))
			}
		}
	}
}

func TestCalculate_RoundTrip(t *testing.T) {
	amounts := []string{"1", "19.99", "250.50", "777.77", "10000000", "0.07", "123456.78"}
	rates := []string{"0", "0.05", "0.18", "0.25", "0.5", "0.99"}
	for _, a := range amounts {
		for _, rt := range rates {
			excl, err := Calculate(dec(a), dec(rt), Exclusive)
			require.NoError(t, err)
			incl, err := Calculate(excl.Total, dec(rt), Inclusive)
			require.NoError(t, err)

			assert.True(t, money.WithinEpsilon(excl.Net, incl.Net), "net %s vs %s (%s @%s)", excl.Net, incl.Net, a, rt)
			assert.True(t, money.WithinEpsilon(excl.Tax, incl.Tax), "tax %s vs %s (%s @%s)", excl.Tax, incl.Tax, a, rt)
			assert.True(t, excl.Total.Equal(incl.Total))
		}
	}
}

func TestCalculate_Rejects(t *testing.T) {
	_, err := Calculate(dec("-1"), dec("0.18"), Exclusive)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	_, err = Calculate(dec("1"), dec("-0.18"), Exclusive)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	_, err = Calculate(dec("1"), dec("0.18"), Mode("GROSS"))
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestRecalculateOnToggle(t *testing.T) {
	excl, err := Calculate(dec("100"), dec("0.18"), Exclusive)
	require.NoError(t, err)

	incl, err := RecalculateOnToggle(excl, Inclusive)
	require.NoError(t, err)
	assert.True(t, incl.Total.Equal(excl.Total))
	assert.Equal(t, Inclusive, incl.Mode)
	assert.Equal(t, "100.00", incl.Net.StringFixed(2))
	assert.Equal(t, "18.00", incl.Tax.StringFixed(2))

	back, err := RecalculateOnToggle(incl, Exclusive)
	require.NoError(t, err)
	assert.True(t, back.Total.Equal(excl.Total))
	assert.True(t, back.Net.Add(back.Tax).Equal(back.Total))

	_, err = RecalculateOnToggle(excl, Mode("x"))
	assert.Error(t, err)
}

func TestAggregate_SumOfRoundedLines(t *testing.T) {
	// Three lines of 0.10 at 5%: each line tax 0.005 -> 0.01, so the
	// aggregate is 0.03 where rounding the summed raw tax would give 0.02.
	var results []Result
	for i := 0; i < 3; i++ {
		r, err := Calculate(dec("0.10"), dec("0.05"), Exclusive)
		require.NoError(t, err)
		results = append(results, r)
	}
	s := Aggregate(results)
	assert.Equal(t, "0.30", s.Subtotal.StringFixed(2))
	assert.Equal(t, "0.03", s.TotalTax.StringFixed(2))
	assert.Equal(t, "0.33", s.Total.StringFixed(2))
	assert.True(t, s.Subtotal.Add(s.TotalTax).Equal(s.Total))
	assert.True(t, s.DeemedTax.IsZero(), "only category summaries report deemed tax")
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil)
	assert.True(t, s.Total.IsZero())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("INCLUSIVE")
	require.NoError(t, err)
	assert.Equal(t, Inclusive, m)

	_, err = ParseMode("inclusive")
	assert.Error(t, err)
}
