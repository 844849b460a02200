// Package events publishes ledger events to downstream consumers.
//
// Publication happens after the posting has committed. A failed publish is
// reported to the caller, who logs it; it never undoes the posting.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Type names a ledger event.
type Type string

const (
	TransactionPosted Type = "transaction.posted"
	TransactionVoided Type = "transaction.voided"
	TransferShipped   Type = "transfer.shipped"
	TransferReceived  Type = "transfer.received"
	BankMatched       Type = "bank.matched"
)

// Entry is the ledger effect carried in an event.
type Entry struct {
	AccountID    string          `json:"account_id"`
	EntryType    string          `json:"entry_type"`
	AmountInBase decimal.Decimal `json:"amount_in_base"`
}

// Event is one ledger event.
type Event struct {
	Type           Type      `json:"type"`
	OrganizationID string    `json:"organization_id"`
	TransactionID  string    `json:"transaction_id"`
	Reference      string    `json:"reference,omitempty"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
	Entries        []Entry   `json:"entries,omitempty"`
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "ledger event",
		"type", e.Type,
		"org", e.OrganizationID,
		"transaction_id", e.TransactionID,
		"status", e.Status,
		"entries", len(e.Entries))
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Multi publishes to each publisher in turn and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
