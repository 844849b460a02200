package reconcile

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
)

// Score weights. A perfect match can exceed MaxScore before capping.
const (
	MaxScore = 100

	amountExact    = 60
	amountWithin1  = 30
	amountWithin5  = 10
	tokenMax       = 15
	referenceExact = 20
)

var (
	onePercent   = decimal.RequireFromString("0.01")
	fivePercent  = decimal.RequireFromString("0.05")
	dateBrackets = []struct {
		days  int
		score int
	}{
		{0, 20},
		{3, 17},
		{7, 10},
		{14, 5},
		{30, 2},
	}
)

// Breakdown shows how a candidate's score was reached.
type Breakdown struct {
	Amount    int `json:"amount"`
	Date      int `json:"date"`
	Tokens    int `json:"tokens"`
	Reference int `json:"reference"`
}

// Candidate is an open document that may settle a bank transaction.
type Candidate struct {
	DocumentID   string             `json:"document_id"`
	Kind         model.DocumentKind `json:"kind"`
	Number       string             `json:"number"`
	Counterparty string             `json:"counterparty"`
	Amount       decimal.Decimal    `json:"amount"`
	Date         time.Time          `json:"date"`
	Score        int                `json:"score"`
	Breakdown    Breakdown          `json:"breakdown"`
	daysApart    int
}

// Score rates how well doc explains bt on a 0-100 scale.
func Score(bt model.BankTransaction, doc model.Document) Candidate {
	days := daysBetween(bt.Date, doc.Date)
	b := Breakdown{
		Amount:    amountScore(bt.Amount.Abs(), doc.Amount),
		Date:      dateScore(days),
		Tokens:    tokenScore(bt.Payee+" "+bt.Description, doc.Counterparty),
		Reference: referenceScore(bt, doc.Number),
	}
	total := b.Amount + b.Date + b.Tokens + b.Reference
	if total > MaxScore {
		total = MaxScore
	}
	return Candidate{
		DocumentID:   doc.ID,
		Kind:         doc.Kind,
		Number:       doc.Number,
		Counterparty: doc.Counterparty,
		Amount:       doc.Amount,
		Date:         doc.Date,
		Score:        total,
		Breakdown:    b,
		daysApart:    days,
	}
}

func amountScore(paid, outstanding decimal.Decimal) int {
	if money.WithinEpsilon(paid, outstanding) {
		return amountExact
	}
	if !outstanding.IsPositive() {
		return 0
	}
	ratio := paid.Sub(outstanding).Abs().Div(outstanding)
	switch {
	case ratio.LessThanOrEqual(onePercent):
		return amountWithin1
	case ratio.LessThanOrEqual(fivePercent):
		return amountWithin5
	}
	return 0
}

func dateScore(days int) int {
	for _, br := range dateBrackets {
		if days <= br.days {
			return br.score
		}
	}
	return 0
}

// tokenScore is the share of the counterparty's tokens found in the bank
// narration, scaled to tokenMax.
func tokenScore(narration, counterparty string) int {
	want := Tokens(counterparty)
	if len(want) == 0 {
		return 0
	}
	have := make(map[string]bool)
	for _, t := range Tokens(narration) {
		have[t] = true
	}
	hits := 0
	for _, t := range want {
		if have[t] {
			hits++
		}
	}
	return int(math.Round(float64(tokenMax*hits) / float64(len(want))))
}

func referenceScore(bt model.BankTransaction, number string) int {
	ref := compactRef(number)
	if ref == "" {
		return 0
	}
	if compactRef(bt.ReferenceNo) == ref {
		return referenceExact
	}
	return 0
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	d := int(da.Sub(db).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}

// Rank scores every document against bt and orders the result by score,
// then date distance, then document number.
func Rank(bt model.BankTransaction, docs []model.Document) []Candidate {
	out := make([]Candidate, 0, len(docs))
	for _, d := range docs {
		c := Score(bt, d)
		if c.Score == 0 {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].daysApart != out[j].daysApart {
			return out[i].daysApart < out[j].daysApart
		}
		return out[i].Number < out[j].Number
	})
	return out
}
