package ledger

import (
	"context"
	"time"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// DefaultMaxBulk is the largest number of transactions BulkPost accepts.
const DefaultMaxBulk = 100

// Lifecycle moves transactions through DRAFT, POSTED, VOIDED and CANCELLED.
type Lifecycle struct {
	poster  *Poster
	maxBulk int
	now     func() time.Time
}

// NewLifecycle creates a Lifecycle. maxBulk <= 0 selects DefaultMaxBulk.
func NewLifecycle(p *Poster, maxBulk int) *Lifecycle {
	if maxBulk <= 0 {
		maxBulk = DefaultMaxBulk
	}
	return &Lifecycle{poster: p, maxBulk: maxBulk, now: time.Now}
}

// Get loads a transaction with its entries.
func (l *Lifecycle) Get(ctx context.Context, orgID, txnID string) (model.Transaction, error) {
	return l.poster.store.GetTransaction(ctx, orgID, txnID)
}

// List returns transaction headers matching f.
func (l *Lifecycle) List(ctx context.Context, orgID string, f store.TransactionFilter) ([]model.Transaction, error) {
	return l.poster.store.ListTransactions(ctx, orgID, f)
}

// Post moves a DRAFT to POSTED after re-validating it, and applies its
// balance effects.
func (l *Lifecycle) Post(ctx context.Context, orgID, txnID string) (model.Transaction, error) {
	var txn model.Transaction
	err := l.poster.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if txn, err = q.GetTransaction(ctx, orgID, txnID); err != nil {
			return err
		}
		if txn.Status != model.StatusDraft {
			return errs.Validation("invalid_transition", "cannot post a %s transaction", txn.Status)
		}
		o := postOptions{privileged: txn.Privileged}
		accounts, err := l.poster.checkAccounts(ctx, q, orgID, txn.Entries, o)
		if err != nil {
			return err
		}
		if err := checkBalanced(txn.Entries); err != nil {
			return err
		}
		ok, err := q.TransitionTransaction(ctx, orgID, txnID, model.StatusDraft, model.StatusPosted)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Validation("invalid_transition", "transaction %s is no longer a draft", txnID)
		}
		txn.Status = model.StatusPosted
		return l.poster.tracker.Apply(ctx, q, accounts, txn.Entries)
	})
	if err != nil {
		return model.Transaction{}, err
	}
	l.poster.Notify(ctx, events.TransactionPosted, txn)
	return txn, nil
}

// Edit replaces all entries of a DRAFT. Posted transactions are immutable;
// correct them by voiding.
func (l *Lifecycle) Edit(ctx context.Context, orgID, txnID string, entries []NewEntry) (model.Transaction, error) {
	var txn model.Transaction
	err := l.poster.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if txn, err = q.GetTransaction(ctx, orgID, txnID); err != nil {
			return err
		}
		if txn.Status != model.StatusDraft {
			return errs.Immutability("posted_immutable", "cannot edit a %s transaction; void it and post a correction", txn.Status)
		}
		built, err := l.poster.buildEntries(entries, txn.Metadata.Currency, txn.Metadata.ExchangeRate)
		if err != nil {
			return err
		}
		if _, err := l.poster.checkAccounts(ctx, q, orgID, built, postOptions{privileged: txn.Privileged}); err != nil {
			return err
		}
		if err := checkBalanced(built); err != nil {
			return err
		}
		ok, err := q.ReplaceEntries(ctx, orgID, txnID, built)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Immutability("posted_immutable", "transaction %s is no longer a draft", txnID)
		}
		txn.Entries = built
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

// Delete removes a DRAFT and its entries.
func (l *Lifecycle) Delete(ctx context.Context, orgID, txnID string) error {
	return l.poster.store.InTx(ctx, func(q *store.Queries) error {
		txn, err := q.GetTransaction(ctx, orgID, txnID)
		if err != nil {
			return err
		}
		if txn.Status != model.StatusDraft {
			return errs.Immutability("posted_immutable", "cannot delete a %s transaction", txn.Status)
		}
		ok, err := q.DeleteDraft(ctx, orgID, txnID)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Immutability("posted_immutable", "transaction %s is no longer a draft", txnID)
		}
		return nil
	})
}

// Cancel retires a DRAFT without deleting it. Cancelled transactions never
// affect balances.
func (l *Lifecycle) Cancel(ctx context.Context, orgID, txnID string) (model.Transaction, error) {
	var txn model.Transaction
	err := l.poster.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if txn, err = q.GetTransaction(ctx, orgID, txnID); err != nil {
			return err
		}
		switch txn.Status {
		case model.StatusDraft:
		case model.StatusPosted:
			return errs.Immutability("posted_immutable", "posted transactions are voided, not cancelled")
		default:
			return errs.Validation("invalid_transition", "cannot cancel a %s transaction", txn.Status)
		}
		ok, err := q.TransitionTransaction(ctx, orgID, txnID, model.StatusDraft, model.StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Validation("invalid_transition", "transaction %s is no longer a draft", txnID)
		}
		txn.Status = model.StatusCancelled
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

// Void marks a POSTED transaction VOIDED and posts its reversal: the same
// accounts and amounts with every side flipped. Both happen in one unit of
// work, so of two concurrent voids only one succeeds.
func (l *Lifecycle) Void(ctx context.Context, orgID, txnID, userID, reason string) (model.Transaction, error) {
	var reversal model.Transaction
	err := l.poster.store.InTx(ctx, func(q *store.Queries) error {
		orig, err := q.GetTransaction(ctx, orgID, txnID)
		if err != nil {
			return err
		}
		switch {
		case orig.IsLocked:
			return errs.Immutability("reconciled_locked", "transaction %s is part of a finalized reconciliation", txnID)
		case orig.Status == model.StatusVoided:
			return errs.Immutability("already_voided", "transaction %s is already voided", txnID)
		case orig.Status == model.StatusCancelled:
			return errs.Immutability("cancelled", "transaction %s is cancelled", txnID)
		case orig.Status != model.StatusPosted:
			return errs.Validation("invalid_transition", "only posted transactions can be voided; delete or cancel the draft")
		}

		ok, err := q.TransitionTransaction(ctx, orgID, txnID, model.StatusPosted, model.StatusVoided)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Immutability("already_voided", "transaction %s was voided or locked concurrently", txnID)
		}

		reversal = l.reversalOf(orig, userID, reason)
		return l.poster.persist(ctx, q, &reversal, postOptions{privileged: true, allowInactive: true})
	})
	if err != nil {
		return model.Transaction{}, err
	}
	l.poster.Notify(ctx, events.TransactionVoided, reversal)
	return reversal, nil
}

func (l *Lifecycle) reversalOf(orig model.Transaction, userID, reason string) model.Transaction {
	y, m, d := l.now().UTC().Date()
	entries := make([]model.LedgerEntry, len(orig.Entries))
	for i, e := range orig.Entries {
		entries[i] = model.LedgerEntry{
			ID:           id.New(),
			AccountID:    e.AccountID,
			EntryType:    e.EntryType.Opposite(),
			Amount:       e.Amount,
			Currency:     e.Currency,
			ExchangeRate: e.ExchangeRate,
			AmountInBase: e.AmountInBase,
			BranchID:     e.BranchID,
			Description:  e.Description,
			LineNo:       e.LineNo,
		}
	}
	desc := "Reversal of " + orig.ID
	if orig.Description != "" {
		desc = "Reversal: " + orig.Description
	}
	return model.Transaction{
		ID:             id.New(),
		OrganizationID: orig.OrganizationID,
		Type:           model.TypeReversal,
		Date:           time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Description:    desc,
		Status:         model.StatusPosted,
		BranchID:       orig.BranchID,
		Metadata: model.Metadata{
			Kind:         model.MetaReversal,
			Currency:     orig.Metadata.Currency,
			ExchangeRate: orig.Metadata.ExchangeRate,
			Reference:    orig.Metadata.Reference,
			Reversal:     &model.ReversalMeta{OriginalID: orig.ID, Reason: reason},
		},
		Privileged: true,
		CreatedBy:  userID,
		Entries:    entries,
	}
}

// ItemResult is the outcome of one item in a batch.
type ItemResult struct {
	ID    string    `json:"id"`
	OK    bool      `json:"ok"`
	Kind  errs.Kind `json:"kind,omitempty"`
	Error string    `json:"error,omitempty"`
}

// BulkPost posts up to the configured maximum of drafts one at a time. Each
// item commits or fails on its own; earlier successes are never rolled back.
func (l *Lifecycle) BulkPost(ctx context.Context, orgID string, txnIDs []string) ([]ItemResult, error) {
	if len(txnIDs) > l.maxBulk {
		return nil, errs.Validation("batch_size", "at most %d transactions per batch, got %d", l.maxBulk, len(txnIDs))
	}
	results := make([]ItemResult, len(txnIDs))
	for i, txnID := range txnIDs {
		results[i] = ItemResult{ID: txnID, OK: true}
		if _, err := l.Post(ctx, orgID, txnID); err != nil {
			results[i] = ItemResult{ID: txnID, Kind: errs.KindOf(err), Error: err.Error()}
		}
	}
	return results, nil
}
