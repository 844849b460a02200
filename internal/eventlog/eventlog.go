// Package eventlog keeps an append-only CSV journal of ledger events on
// local disk.
package eventlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
)

// Header is the CSV header of the event log.
const Header = "occurred_at,type,organization_id,transaction_id,reference,status,entries"

// DefaultPath is the log location inside a project directory.
const DefaultPath = "logs/ledger-events.csv"

const (
	numFields        = 7
	colOccurredAt    = 0
	colType          = 1
	colOrganization  = 2
	colTransactionID = 3
	colReference     = 4
	colStatus        = 5
	colEntries       = 6
)

// Entry is one row in the event log.
type Entry struct {
	OccurredAt     time.Time
	Type           events.Type
	OrganizationID string
	TransactionID  string
	Reference      string
	Status         string
	Entries        int
}

// FromEvent flattens an event into a log row.
func FromEvent(e events.Event) Entry {
	return Entry{
		OccurredAt:     e.OccurredAt,
		Type:           e.Type,
		OrganizationID: e.OrganizationID,
		TransactionID:  e.TransactionID,
		Reference:      e.Reference,
		Status:         e.Status,
		Entries:        len(e.Entries),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colOccurredAt] = e.OccurredAt.UTC().Format(time.RFC3339)
	row[colType] = string(e.Type)
	row[colOrganization] = e.OrganizationID
	row[colTransactionID] = e.TransactionID
	row[colReference] = e.Reference
	row[colStatus] = e.Status
	row[colEntries] = fmt.Sprint(e.Entries)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colOccurredAt])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colOccurredAt], err)
	}
	var n int
	if _, err := fmt.Sscan(record[colEntries], &n); err != nil {
		return Entry{}, fmt.Errorf("parsing entry count %q: %w", record[colEntries], err)
	}

	return Entry{
		OccurredAt:     ts,
		Type:           events.Type(record[colType]),
		OrganizationID: record[colOrganization],
		TransactionID:  record[colTransactionID],
		Reference:      record[colReference],
		Status:         record[colStatus],
		Entries:        n,
	}, nil
}

// Append writes entries to the CSV file at path, creating the file and
// header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries of the log at path. A missing file yields no
// entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading event log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Publisher appends every published event to a log file.
type Publisher struct {
	path string
	mu   sync.Mutex
}

// NewPublisher returns a Publisher writing to path.
func NewPublisher(path string) *Publisher {
	return &Publisher{path: path}
}

func (p *Publisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Append(p.path, []Entry{FromEvent(e)})
}
