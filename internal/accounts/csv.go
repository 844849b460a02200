package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

const (
	numFields     = 8
	colCode       = 0
	colName       = 1
	colType       = 2
	colParentCode = 3
	colCurrency   = 4
	colIsSystem   = 5
	colManual     = 6
	colDesc       = 7
)

var header = []string{"code", "name", "type", "parent_code", "currency", "is_system", "allow_manual_journal", "description"}

// ChartEntry is one account of a chart template. Parents are referenced by
// code so a chart can be seeded into any organization.
type ChartEntry struct {
	Code               string
	Name               string
	Type               model.AccountType
	ParentCode         string
	Currency           string // empty = organization base currency
	IsSystem           bool
	AllowManualJournal bool
	Description        string
}

// ReadChart reads a chart-of-accounts CSV.
func ReadChart(r io.Reader) ([]ChartEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var entries []ChartEntry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteChart writes a chart-of-accounts CSV.
func WriteChart(w io.Writer, entries []ChartEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalEntry converts a ChartEntry to a CSV row.
func MarshalEntry(e ChartEntry) []string {
	row := make([]string, numFields)
	row[colCode] = e.Code
	row[colName] = e.Name
	row[colType] = string(e.Type)
	row[colParentCode] = e.ParentCode
	row[colCurrency] = e.Currency
	row[colIsSystem] = strconv.FormatBool(e.IsSystem)
	row[colManual] = strconv.FormatBool(e.AllowManualJournal)
	row[colDesc] = e.Description
	return row
}

// UnmarshalEntry converts a CSV row to a ChartEntry. The description column
// is optional.
func UnmarshalEntry(record []string) (ChartEntry, error) {
	if len(record) != numFields && len(record) != numFields-1 {
		return ChartEntry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	typ, err := model.ParseAccountType(record[colType])
	if err != nil {
		return ChartEntry{}, err
	}
	isSystem, err := parseBool(record[colIsSystem], false)
	if err != nil {
		return ChartEntry{}, fmt.Errorf("parsing is_system %q: %w", record[colIsSystem], err)
	}
	manual, err := parseBool(record[colManual], true)
	if err != nil {
		return ChartEntry{}, fmt.Errorf("parsing allow_manual_journal %q: %w", record[colManual], err)
	}

	e := ChartEntry{
		Code:               record[colCode],
		Name:               record[colName],
		Type:               typ,
		ParentCode:         record[colParentCode],
		Currency:           record[colCurrency],
		IsSystem:           isSystem,
		AllowManualJournal: manual,
	}
	if len(record) == numFields {
		e.Description = record[colDesc]
	}
	if e.Code == "" || e.Name == "" {
		return ChartEntry{}, fmt.Errorf("code and name are required")
	}
	return e, nil
}

func parseBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

// ChartOf converts stored accounts back into chart entries, resolving
// parent ids to codes.
func ChartOf(accounts []model.Account) []ChartEntry {
	codes := make(map[string]string, len(accounts))
	for _, a := range accounts {
		codes[a.ID] = a.Code
	}
	entries := make([]ChartEntry, len(accounts))
	for i, a := range accounts {
		entries[i] = ChartEntry{
			Code:               a.Code,
			Name:               a.Name,
			Type:               a.Type,
			Currency:           a.Currency,
			IsSystem:           a.IsSystem,
			AllowManualJournal: a.AllowManualJournal,
			Description:        a.Description,
		}
		if a.ParentID != nil {
			entries[i].ParentCode = codes[*a.ParentID]
		}
	}
	return entries
}
