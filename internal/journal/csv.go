package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Header is the CSV header for journal import files.
const Header = "group,date,account_code,description,debit,credit,currency,exchange_rate"

const (
	numFields   = 8
	dateFormat  = "2006-01-02"
	colGroup    = 0
	colDate     = 1
	colAcctCode = 2
	colDesc     = 3
	colDebit    = 4
	colCredit   = 5
	colCurrency = 6
	colRate     = 7
)

// Row is one line of a journal import file. Rows sharing a Group form one
// transaction.
type Row struct {
	Group        string
	Date         time.Time
	AccountCode  string
	Description  string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Currency     string          // empty = base currency
	ExchangeRate decimal.Decimal // zero = 1 for the base currency
}

// ReadRows reads all rows from a journal CSV reader.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes rows to a journal CSV writer (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to a CSV record.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colGroup] = row.Group
	rec[colDate] = row.Date.Format(dateFormat)
	rec[colAcctCode] = row.AccountCode
	rec[colDesc] = row.Description

	if !row.Debit.IsZero() {
		rec[colDebit] = row.Debit.StringFixed(2)
	}
	if !row.Credit.IsZero() {
		rec[colCredit] = row.Credit.StringFixed(2)
	}

	rec[colCurrency] = row.Currency
	if !row.ExchangeRate.IsZero() {
		rec[colRate] = row.ExchangeRate.String()
	}
	return rec
}

// UnmarshalRow converts a CSV record to a Row.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return Row{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	debit, err := parseAmount("debit", record[colDebit])
	if err != nil {
		return Row{}, err
	}
	credit, err := parseAmount("credit", record[colCredit])
	if err != nil {
		return Row{}, err
	}
	rate, err := parseAmount("exchange_rate", record[colRate])
	if err != nil {
		return Row{}, err
	}

	return Row{
		Group:        strings.TrimSpace(record[colGroup]),
		Date:         date,
		AccountCode:  strings.TrimSpace(record[colAcctCode]),
		Description:  record[colDesc],
		Debit:        debit,
		Credit:       credit,
		Currency:     strings.ToUpper(strings.TrimSpace(record[colCurrency])),
		ExchangeRate: rate,
	}, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return d, nil
}
