package importer

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

// DefaultDateFormat is the date layout GenericParser uses when none is set.
const DefaultDateFormat = "2006-01-02"

// GenericParser reads any CSV whose header names its columns. Recognized
// columns are date, amount (or debit and credit), description, payee,
// reference and external_id; other columns are ignored.
type GenericParser struct {
	DateFormat string
}

// Format returns the parser name.
func (p *GenericParser) Format() string { return "csv" }

var columnAliases = map[string]string{
	"date":           "date",
	"posting_date":   "date",
	"value_date":     "date",
	"amount":         "amount",
	"debit":          "debit",
	"withdrawal":     "debit",
	"credit":         "credit",
	"deposit":        "credit",
	"description":    "description",
	"details":        "description",
	"narration":      "description",
	"payee":          "payee",
	"counterparty":   "payee",
	"reference":      "reference",
	"reference_no":   "reference",
	"ref":            "reference",
	"external_id":    "external_id",
	"transaction_id": "external_id",
}

// Parse reads the CSV and returns statement lines. Lines without an
// external_id column get a content hash so re-importing the same file is
// idempotent.
func (p *GenericParser) Parse(r io.Reader) ([]model.StatementLine, error) {
	layout := p.DateFormat
	if layout == "" {
		layout = DefaultDateFormat
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		if canon, ok := columnAliases[key]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	if _, ok := cols["date"]; !ok {
		return nil, fmt.Errorf("header has no date column")
	}
	_, hasAmount := cols["amount"]
	_, hasDebit := cols["debit"]
	_, hasCredit := cols["credit"]
	if !hasAmount && !(hasDebit || hasCredit) {
		return nil, fmt.Errorf("header needs an amount column or debit/credit columns")
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var lines []model.StatementLine
	ids := make(externalIDs)
	for n, rec := range records[1:] {
		row := n + 2
		date, err := time.Parse(layout, field(rec, "date"))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", row, field(rec, "date"), err)
		}

		var amount decimal.Decimal
		if hasAmount {
			if amount, err = parseMoney(field(rec, "amount")); err != nil {
				return nil, fmt.Errorf("row %d: parsing amount: %w", row, err)
			}
		} else {
			debit, err := parseMoney(field(rec, "debit"))
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing debit: %w", row, err)
			}
			credit, err := parseMoney(field(rec, "credit"))
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing credit: %w", row, err)
			}
			amount = credit.Sub(debit.Abs())
		}
		if amount.IsZero() {
			return nil, fmt.Errorf("row %d: amount is zero", row)
		}

		line := model.StatementLine{
			Date:        date,
			Amount:      amount,
			Description: field(rec, "description"),
			Payee:       field(rec, "payee"),
			ReferenceNo: field(rec, "reference"),
			ExternalID:  field(rec, "external_id"),
		}
		if line.ExternalID == "" {
			line.ExternalID = ids.unique(contentID(line))
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// parseMoney accepts thousands separators and accounting parentheses.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if neg {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

func contentID(l model.StatementLine) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		l.Date.Format(DefaultDateFormat), l.Amount.String(), l.Description, l.Payee, l.ReferenceNo,
	}, "\x1f")))
	return "csv_" + hex.EncodeToString(h[:8])
}
