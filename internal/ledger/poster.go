// Package ledger posts balanced transactions, tracks account balances and
// runs the journal lifecycle (post, edit, delete, void, cancel).
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// UnbalancedEntryError reports a transaction whose base-currency debits and
// credits differ by more than one cent.
type UnbalancedEntryError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry: debits %s != credits %s",
		e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

// Unwrap classifies the error as a validation failure.
func (e *UnbalancedEntryError) Unwrap() error {
	return errs.Validation("balanced", "debits %s != credits %s", e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

// NewEntry is one requested ledger line.
type NewEntry struct {
	AccountID   string
	EntryType   model.EntryType
	Amount      decimal.Decimal
	Description string
	BranchID    *string
	// Currency and ExchangeRate override the transaction's when set.
	Currency     string
	ExchangeRate decimal.Decimal
}

// NewTransaction is a request to create a transaction.
type NewTransaction struct {
	Type        model.TransactionType
	Date        time.Time
	Description string
	// Status is DRAFT (the default) or POSTED.
	Status       model.TransactionStatus
	BranchID     *string
	Currency     string
	ExchangeRate decimal.Decimal
	Metadata     model.Metadata
	CreatedBy    string
	Entries      []NewEntry
}

type postOptions struct {
	privileged    bool
	allowInactive bool
}

// PostOption changes how a transaction is validated.
type PostOption func(*postOptions)

// Privileged marks the caller as an internal flow allowed to post to control
// accounts.
func Privileged() PostOption {
	return func(o *postOptions) { o.privileged = true }
}

// Options configures a Poster.
type Options struct {
	BaseCurrency string
	Publisher    events.Publisher
	Logger       *slog.Logger
}

// Poster creates balanced transactions.
type Poster struct {
	store     *store.Store
	tracker   *Tracker
	base      string
	publisher events.Publisher
	logger    *slog.Logger
}

// NewPoster creates a Poster.
func NewPoster(st *store.Store, opts Options) *Poster {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "UGX"
	}
	return &Poster{
		store:     st,
		tracker:   NewTracker(st, opts.Logger),
		base:      opts.BaseCurrency,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
}

// Store returns the underlying store.
func (p *Poster) Store() *store.Store { return p.store }

// Tracker returns the balance tracker.
func (p *Poster) Tracker() *Tracker { return p.tracker }

// BaseCurrency returns the reporting currency.
func (p *Poster) BaseCurrency() string { return p.base }

// CreateTransaction validates and persists a transaction in its own database
// transaction. POSTED transactions update balances in the same unit of work
// and are announced after commit.
func (p *Poster) CreateTransaction(ctx context.Context, orgID string, in NewTransaction, opts ...PostOption) (model.Transaction, error) {
	var txn model.Transaction
	err := p.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		txn, err = p.CreateTransactionTx(ctx, q, orgID, in, opts...)
		return err
	})
	if err != nil {
		return model.Transaction{}, err
	}
	if txn.Status == model.StatusPosted {
		p.Notify(ctx, events.TransactionPosted, txn)
	}
	return txn, nil
}

// CreateTransactionTx is CreateTransaction inside a caller-owned database
// transaction. The caller publishes events after its commit.
func (p *Poster) CreateTransactionTx(ctx context.Context, q *store.Queries, orgID string, in NewTransaction, opts ...PostOption) (model.Transaction, error) {
	var o postOptions
	for _, opt := range opts {
		opt(&o)
	}
	txn, err := p.build(orgID, in, o)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := p.persist(ctx, q, &txn, o); err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

// build turns a request into a transaction with computed base amounts.
func (p *Poster) build(orgID string, in NewTransaction, o postOptions) (model.Transaction, error) {
	if orgID == "" {
		return model.Transaction{}, errs.Validation("organization", "organization id is required")
	}
	if in.Date.IsZero() {
		return model.Transaction{}, errs.Validation("date", "transaction date is required")
	}
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	if status != model.StatusDraft && status != model.StatusPosted {
		return model.Transaction{}, errs.Validation("status", "transactions are created DRAFT or POSTED, not %s", status)
	}
	typ := in.Type
	if typ == "" {
		typ = model.TypeJournalEntry
	}

	currency, rate, err := p.resolveCurrency(in.Currency, in.ExchangeRate)
	if err != nil {
		return model.Transaction{}, err
	}

	meta := in.Metadata
	if meta.Kind == "" {
		meta.Kind = metadataKindFor(typ)
	}
	meta.Currency = currency
	meta.ExchangeRate = rate
	if err := meta.Validate(); err != nil {
		return model.Transaction{}, errs.Validation("metadata", "%v", err)
	}

	entries, err := p.buildEntries(in.Entries, currency, rate)
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		ID:             id.New(),
		OrganizationID: orgID,
		Type:           typ,
		Date:           in.Date,
		Description:    in.Description,
		Status:         status,
		BranchID:       in.BranchID,
		Metadata:       meta,
		Privileged:     o.privileged,
		CreatedBy:      in.CreatedBy,
		Entries:        entries,
	}, nil
}

func (p *Poster) buildEntries(in []NewEntry, currency string, rate decimal.Decimal) ([]model.LedgerEntry, error) {
	if len(in) == 0 {
		return nil, errs.Validation("entries", "a transaction needs at least one entry")
	}
	entries := make([]model.LedgerEntry, len(in))
	for i, ne := range in {
		line := i + 1
		if !ne.EntryType.Valid() {
			return nil, errs.Validation("entry_type", "line %d: entry type %q must be DEBIT or CREDIT", line, ne.EntryType)
		}
		if !ne.Amount.IsPositive() {
			return nil, errs.Validation("amount", "line %d: amount %s must be positive", line, ne.Amount)
		}
		if !money.InRange(ne.Amount) {
			return nil, errs.Validation("amount", "line %d: amount %s exceeds %s", line, ne.Amount, money.MaxAmount)
		}
		if ne.AccountID == "" {
			return nil, errs.Validation("account", "line %d: account is required", line)
		}
		cur, r := currency, rate
		if ne.Currency != "" || !ne.ExchangeRate.IsZero() {
			var err error
			if cur, r, err = p.resolveCurrency(ne.Currency, ne.ExchangeRate); err != nil {
				return nil, err
			}
		}
		base := money.Round2(ne.Amount.Mul(r))
		if !money.InRange(base) {
			return nil, errs.Validation("amount", "line %d: base amount %s exceeds %s", line, base, money.MaxAmount)
		}
		entries[i] = model.LedgerEntry{
			ID:           id.New(),
			AccountID:    ne.AccountID,
			EntryType:    ne.EntryType,
			Amount:       ne.Amount,
			Currency:     cur,
			ExchangeRate: r,
			AmountInBase: base,
			BranchID:     ne.BranchID,
			Description:  ne.Description,
			LineNo:       line,
		}
	}
	return entries, nil
}

// resolveCurrency applies the currency rules: the base currency always has
// rate 1, and any other currency needs a positive rate.
func (p *Poster) resolveCurrency(currency string, rate decimal.Decimal) (string, decimal.Decimal, error) {
	if currency == "" {
		currency = p.base
	}
	one := decimal.NewFromInt(1)
	if currency == p.base {
		if rate.IsZero() {
			return currency, one, nil
		}
		if !rate.Equal(one) {
			return "", decimal.Zero, errs.Validation("exchange_rate", "base currency %s must use rate 1, got %s", currency, rate)
		}
		return currency, one, nil
	}
	if !rate.IsPositive() {
		return "", decimal.Zero, errs.Validation("exchange_rate", "currency %s needs a positive exchange rate", currency)
	}
	return currency, rate, nil
}

func metadataKindFor(t model.TransactionType) model.MetadataKind {
	switch t {
	case model.TypeReversal:
		return model.MetaReversal
	case model.TypeTransfer:
		return model.MetaTransfer
	case model.TypeBankSettlement:
		return model.MetaSettlement
	case model.TypeOpeningBalance:
		return model.MetaOpening
	}
	return model.MetaJournal
}

// persist validates accounts and balance, stores the transaction and applies
// balances when it is POSTED.
func (p *Poster) persist(ctx context.Context, q *store.Queries, txn *model.Transaction, o postOptions) error {
	accounts, err := p.checkAccounts(ctx, q, txn.OrganizationID, txn.Entries, o)
	if err != nil {
		return err
	}
	if err := checkBalanced(txn.Entries); err != nil {
		return err
	}
	if err := q.InsertTransaction(ctx, txn); err != nil {
		return err
	}
	if txn.Status == model.StatusPosted {
		if err := p.tracker.Apply(ctx, q, accounts, txn.Entries); err != nil {
			return err
		}
	}
	return nil
}

// checkAccounts loads every referenced account and enforces tenancy,
// activity and control-account rules.
func (p *Poster) checkAccounts(ctx context.Context, q *store.Queries, orgID string, entries []model.LedgerEntry, o postOptions) (map[string]model.Account, error) {
	accounts := make(map[string]model.Account)
	for _, e := range entries {
		if _, ok := accounts[e.AccountID]; ok {
			continue
		}
		acct, err := q.GetAccount(ctx, orgID, e.AccountID)
		if err != nil {
			return nil, err
		}
		if !acct.IsActive && !o.allowInactive {
			return nil, errs.Validation("account_inactive", "account %s is inactive", acct.Code)
		}
		if acct.IsControl() && !o.privileged {
			return nil, errs.Policy("manual_journal", "account %s does not allow manual journal postings", acct.Code)
		}
		accounts[acct.ID] = acct
	}
	return accounts, nil
}

func checkBalanced(entries []model.LedgerEntry) error {
	var debits, credits decimal.Decimal
	var hasDebit, hasCredit bool
	for _, e := range entries {
		switch e.EntryType {
		case model.EntryDebit:
			debits = debits.Add(e.AmountInBase)
			hasDebit = true
		case model.EntryCredit:
			credits = credits.Add(e.AmountInBase)
			hasCredit = true
		}
	}
	if !hasDebit || !hasCredit {
		return errs.Validation("double_entry", "a transaction needs at least one debit and one credit")
	}
	if !money.WithinEpsilon(debits, credits) {
		return &UnbalancedEntryError{Debits: debits, Credits: credits}
	}
	return nil
}

// Notify publishes an event for a committed transaction. Publication
// failures are logged and otherwise ignored.
func (p *Poster) Notify(ctx context.Context, typ events.Type, txn model.Transaction) {
	p.logger.Info("transaction committed",
		"transaction_id", txn.ID,
		"org", txn.OrganizationID,
		"status", txn.Status,
		"entries", len(txn.Entries))

	e := events.Event{
		Type:           typ,
		OrganizationID: txn.OrganizationID,
		TransactionID:  txn.ID,
		Reference:      txn.Metadata.Reference,
		Status:         string(txn.Status),
		OccurredAt:     time.Now().UTC(),
		Entries:        make([]events.Entry, len(txn.Entries)),
	}
	for i, le := range txn.Entries {
		e.Entries[i] = events.Entry{AccountID: le.AccountID, EntryType: string(le.EntryType), AmountInBase: le.AmountInBase}
	}
	if err := p.publisher.Publish(ctx, e); err != nil {
		p.logger.Warn("publishing ledger event", "type", typ, "transaction_id", txn.ID, "error", err)
	}
}
