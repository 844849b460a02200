package tax

import (
	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
)

// Category is a VAT treatment using the revenue authority's category codes.
type Category string

const (
	CategoryStandard Category = "01" // A: Standard (18%)
	CategoryZero     Category = "02" // B: Zero (0%)
	CategoryExempt   Category = "03" // C: Exempt (-)
	CategoryDeemed   Category = "04" // D: Deemed (18%)
)

// StandardRate is the standard VAT rate.
var StandardRate = decimal.RequireFromString("0.18")

// Label returns the letter printed on receipts for c.
func (c Category) Label() string {
	switch c {
	case CategoryStandard:
		return "A"
	case CategoryZero:
		return "B"
	case CategoryExempt:
		return "C"
	case CategoryDeemed:
		return "D"
	}
	return ""
}

// Rate returns the rate applied to lines in category c.
func (c Category) Rate() (decimal.Decimal, error) {
	switch c {
	case CategoryStandard, CategoryDeemed:
		return StandardRate, nil
	case CategoryZero, CategoryExempt:
		return decimal.Zero, nil
	}
	return decimal.Zero, errs.Validation("tax_category", "unknown tax category %q", c)
}

// Line is one document line to be taxed.
type Line struct {
	Amount   decimal.Decimal
	Category Category
	Mode     Mode
}

// CategoryTotal is the per-category breakdown of a document.
type CategoryTotal struct {
	Category Category        `json:"category"`
	Label    string          `json:"label"`
	Rate     decimal.Decimal `json:"rate"`
	Net      decimal.Decimal `json:"net"`
	Tax      decimal.Decimal `json:"tax"`
	Gross    decimal.Decimal `json:"gross"`
}

// CalculateLines computes each line using its category's rate.
func CalculateLines(lines []Line) ([]Result, error) {
	results := make([]Result, len(lines))
	for i, l := range lines {
		rate, err := l.Category.Rate()
		if err != nil {
			return nil, err
		}
		r, err := Calculate(l.Amount, rate, l.Mode)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

// SummarizeByCategory returns per-category totals in category-code order and
// the document summary. Deemed tax is computed but kept out of the charged
// totals.
func SummarizeByCategory(lines []Line) ([]CategoryTotal, Summary, error) {
	results, err := CalculateLines(lines)
	if err != nil {
		return nil, Summary{}, err
	}

	byCat := make(map[Category]*CategoryTotal)
	charged := make([]Result, 0, len(results))
	deemed := decimal.Zero
	for i, r := range results {
		cat := lines[i].Category
		ct, ok := byCat[cat]
		if !ok {
			ct = &CategoryTotal{Category: cat, Label: cat.Label(), Rate: r.Rate}
			byCat[cat] = ct
		}
		ct.Net = ct.Net.Add(r.Net)
		ct.Tax = ct.Tax.Add(r.Tax)
		ct.Gross = ct.Gross.Add(r.Total)

		if cat == CategoryDeemed {
			deemed = deemed.Add(r.Tax)
			r = Result{Net: r.Net, Tax: decimal.Zero, Total: r.Net, Rate: r.Rate, Mode: r.Mode}
		}
		charged = append(charged, r)
	}

	var totals []CategoryTotal
	for _, cat := range []Category{CategoryStandard, CategoryZero, CategoryExempt, CategoryDeemed} {
		if ct, ok := byCat[cat]; ok {
			totals = append(totals, *ct)
		}
	}

	summary := Aggregate(charged)
	summary.DeemedTax = money.Round2(deemed)
	return totals, summary, nil
}
