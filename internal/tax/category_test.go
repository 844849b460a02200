package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRate(t *testing.T) {
	r, err := CategoryStandard.Rate()
	require.NoError(t, err)
	assert.Equal(t, "0.18", r.String())

	r, err = CategoryExempt.Rate()
	require.NoError(t, err)
	assert.True(t, r.IsZero())

	_, err = Category("99").Rate()
	assert.Error(t, err)
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "A", CategoryStandard.Label())
	assert.Equal(t, "B", CategoryZero.Label())
	assert.Equal(t, "C", CategoryExempt.Label())
	assert.Equal(t, "D", CategoryDeemed.Label())
	assert.Empty(t, Category("x").Label())
}

func TestSummarizeByCategory(t *testing.T) {
	lines := []Line{
		{Amount: dec("1000"), Category: CategoryStandard, Mode: Exclusive},
		{Amount: dec("500"), Category: CategoryZero, Mode: Exclusive},
		{Amount: dec("118"), Category: CategoryStandard, Mode: Inclusive},
		{Amount: dec("200"), Category: CategoryExempt, Mode: Exclusive},
		{Amount: dec("100"), Category: CategoryDeemed, Mode: Exclusive},
	}

	totals, summary, err := SummarizeByCategory(lines)
	require.NoError(t, err)
	require.Len(t, totals, 4)

	assert.Equal(t, CategoryStandard, totals[0].Category)
	assert.Equal(t, "1100.00", totals[0].Net.StringFixed(2))
	assert.Equal(t, "198.00", totals[0].Tax.StringFixed(2))
	assert.Equal(t, "1298.00", totals[0].Gross.StringFixed(2))

	assert.Equal(t, CategoryZero, totals[1].Category)
	assert.True(t, totals[1].Tax.IsZero())

	assert.Equal(t, CategoryDeemed, totals[3].Category)
	assert.Equal(t, "18.00", totals[3].Tax.StringFixed(2))

	// Deemed tax is reported but not charged.
	assert.Equal(t, "1900.00", summary.Subtotal.StringFixed(2))
	assert.Equal(t, "198.00", summary.TotalTax.StringFixed(2))
	assert.Equal(t, "2098.00", summary.Total.StringFixed(2))
	assert.Equal(t, "18.00", summary.DeemedTax.StringFixed(2))
}

func TestSummarizeByCategory_UnknownCategory(t *testing.T) {
	_, _, err := SummarizeByCategory([]Line{{Amount: dec("1"), Category: "42", Mode: Exclusive}})
	assert.Error(t, err)
}
