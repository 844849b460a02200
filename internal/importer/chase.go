package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

// ChaseParser parses Chase bank checking CSV exports.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColCheck   = 6
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns statement lines.
func (p *ChaseParser) Parse(r io.Reader) ([]model.StatementLine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var lines []model.StatementLine
	ids := make(externalIDs)
	for i, rec := range records[1:] {
		line, err := parseChaseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		line.ExternalID = ids.unique(makeChaseRef(line.Date, line.Description))
		lines = append(lines, line)
	}
	return lines, nil
}

func parseChaseRow(rec []string) (model.StatementLine, error) {
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return model.StatementLine{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return model.StatementLine{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	desc := strings.TrimSpace(rec[chaseColDesc])
	return model.StatementLine{
		Date:        date,
		Amount:      amount,
		Description: desc,
		Payee:       payeeOf(desc),
		ReferenceNo: strings.TrimSpace(rec[chaseColCheck]),
	}, nil
}

// payeeOf takes the merchant part of a card or ACH description:
// "GITHUB *PRO SUBSCRIPTION" -> "GITHUB".
func payeeOf(desc string) string {
	if before, _, ok := strings.Cut(desc, "*"); ok {
		return strings.TrimSpace(before)
	}
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// makeChaseRef creates a reference like chase_20250103_GITHUB.
func makeChaseRef(date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), prefix)
}

// externalIDs disambiguates repeated ids within one file by suffixing the
// second and later occurrences: x, x_2, x_3.
type externalIDs map[string]int

func (e externalIDs) unique(base string) string {
	e[base]++
	if n := e[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n)
	}
	return base
}
