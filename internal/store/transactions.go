package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

type transactionRow struct {
	ID             string    `db:"id"`
	OrganizationID string    `db:"organization_id"`
	Type           string    `db:"type"`
	Date           string    `db:"date"`
	Description    string    `db:"description"`
	Status         string    `db:"status"`
	BranchID       *string   `db:"branch_id"`
	Metadata       string    `db:"metadata"`
	IsLocked       bool      `db:"is_locked"`
	Privileged     bool      `db:"privileged"`
	CreatedBy      string    `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r transactionRow) toModel() (model.Transaction, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return model.Transaction{}, err
	}
	meta, err := model.UnmarshalMetadata(r.Metadata)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	return model.Transaction{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Type:           model.TransactionType(r.Type),
		Date:           date,
		Description:    r.Description,
		Status:         model.TransactionStatus(r.Status),
		BranchID:       r.BranchID,
		Metadata:       meta,
		IsLocked:       r.IsLocked,
		Privileged:     r.Privileged,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

type entryRow struct {
	ID            string          `db:"id"`
	TransactionID string          `db:"transaction_id"`
	AccountID     string          `db:"account_id"`
	EntryType     string          `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	ExchangeRate  decimal.Decimal `db:"exchange_rate"`
	AmountInBase  decimal.Decimal `db:"amount_in_base"`
	BranchID      *string         `db:"branch_id"`
	Description   string          `db:"description"`
	LineNo        int             `db:"line_no"`
}

func (r entryRow) toModel() model.LedgerEntry {
	return model.LedgerEntry{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		AccountID:     r.AccountID,
		EntryType:     model.EntryType(r.EntryType),
		Amount:        r.Amount,
		Currency:      r.Currency,
		ExchangeRate:  r.ExchangeRate,
		AmountInBase:  r.AmountInBase,
		BranchID:      r.BranchID,
		Description:   r.Description,
		LineNo:        r.LineNo,
	}
}

const transactionColumns = `id, organization_id, type, date, description, status, branch_id, metadata,
	is_locked, privileged, created_by, created_at, updated_at`

const entryColumns = `id, transaction_id, account_id, entry_type, amount, currency, exchange_rate,
	amount_in_base, branch_id, description, line_no`

// InsertTransaction stores a transaction header and its entries.
func (q *Queries) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	meta, err := model.MarshalMetadata(t.Metadata)
	if err != nil {
		return err
	}
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts
	if _, err := q.exec(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrganizationID, string(t.Type), formatDate(t.Date), t.Description, string(t.Status),
		t.BranchID, meta, t.IsLocked, t.Privileged, t.CreatedBy, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("inserting transaction %s: %w", t.ID, err)
	}
	return q.insertEntries(ctx, t.ID, t.Entries)
}

func (q *Queries) insertEntries(ctx context.Context, txnID string, entries []model.LedgerEntry) error {
	for i := range entries {
		e := &entries[i]
		e.TransactionID = txnID
		if _, err := q.exec(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.TransactionID, e.AccountID, string(e.EntryType), e.Amount, e.Currency,
			e.ExchangeRate, e.AmountInBase, e.BranchID, e.Description, e.LineNo); err != nil {
			return fmt.Errorf("inserting entry %d of %s: %w", e.LineNo, txnID, err)
		}
	}
	return nil
}

// ReplaceEntries swaps the entries of a DRAFT transaction. It returns false if
// the transaction was no longer a draft.
func (q *Queries) ReplaceEntries(ctx context.Context, orgID, txnID string, entries []model.LedgerEntry) (bool, error) {
	n, err := q.exec(ctx, `UPDATE transactions SET updated_at = ?
		WHERE id = ? AND organization_id = ? AND status = ?`,
		now(), txnID, orgID, string(model.StatusDraft))
	if err != nil {
		return false, fmt.Errorf("touching transaction %s: %w", txnID, err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := q.exec(ctx, `DELETE FROM ledger_entries WHERE transaction_id = ?`, txnID); err != nil {
		return false, fmt.Errorf("clearing entries of %s: %w", txnID, err)
	}
	return true, q.insertEntries(ctx, txnID, entries)
}

// DeleteDraft removes a DRAFT transaction and its entries. It returns false if
// the transaction was no longer a draft.
func (q *Queries) DeleteDraft(ctx context.Context, orgID, txnID string) (bool, error) {
	if _, err := q.exec(ctx, `DELETE FROM ledger_entries WHERE transaction_id IN
		(SELECT id FROM transactions WHERE id = ? AND organization_id = ? AND status = ?)`,
		txnID, orgID, string(model.StatusDraft)); err != nil {
		return false, fmt.Errorf("deleting entries of %s: %w", txnID, err)
	}
	n, err := q.exec(ctx, `DELETE FROM transactions WHERE id = ? AND organization_id = ? AND status = ?`,
		txnID, orgID, string(model.StatusDraft))
	if err != nil {
		return false, fmt.Errorf("deleting transaction %s: %w", txnID, err)
	}
	return n > 0, nil
}

// TransitionTransaction moves an unlocked transaction from one status to
// another. It returns false when the row was not in status from, or was
// locked, at the time of the update.
func (q *Queries) TransitionTransaction(ctx context.Context, orgID, txnID string, from, to model.TransactionStatus) (bool, error) {
	n, err := q.exec(ctx, `UPDATE transactions SET status = ?, updated_at = ?
		WHERE id = ? AND organization_id = ? AND status = ? AND is_locked = ?`,
		string(to), now(), txnID, orgID, string(from), false)
	if err != nil {
		return false, fmt.Errorf("moving transaction %s to %s: %w", txnID, to, err)
	}
	return n > 0, nil
}

// LockTransactions sets is_locked on the given transactions.
func (q *Queries) LockTransactions(ctx context.Context, orgID string, ids []string) error {
	for _, id := range ids {
		if _, err := q.exec(ctx, `UPDATE transactions SET is_locked = ?, updated_at = ?
			WHERE id = ? AND organization_id = ?`, true, now(), id, orgID); err != nil {
			return fmt.Errorf("locking transaction %s: %w", id, err)
		}
	}
	return nil
}

// GetTransaction loads a transaction with its entries ordered by line.
func (q *Queries) GetTransaction(ctx context.Context, orgID, id string) (model.Transaction, error) {
	var r transactionRow
	if err := q.get(ctx, &r, `SELECT `+transactionColumns+` FROM transactions
		WHERE id = ? AND organization_id = ?`, id, orgID); err != nil {
		return model.Transaction{}, notFound(err, "transaction", id)
	}
	t, err := r.toModel()
	if err != nil {
		return model.Transaction{}, err
	}
	var rows []entryRow
	if err := q.selectAll(ctx, &rows, `SELECT `+entryColumns+` FROM ledger_entries
		WHERE transaction_id = ? ORDER BY line_no`, id); err != nil {
		return model.Transaction{}, fmt.Errorf("loading entries of %s: %w", id, err)
	}
	t.Entries = make([]model.LedgerEntry, len(rows))
	for i, er := range rows {
		t.Entries[i] = er.toModel()
	}
	return t, nil
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Status model.TransactionStatus
	Type   model.TransactionType
	From   time.Time
	To     time.Time
	Limit  int
}

// ListTransactions returns transaction headers, newest date first.
func (q *Queries) ListTransactions(ctx context.Context, orgID string, f TransactionFilter) ([]model.Transaction, error) {
	where := []string{"organization_id = ?"}
	args := []any{orgID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatDate(f.To))
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []transactionRow
	if err := q.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	out := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// PostedEntry is a ledger entry of a transaction that carries balance effects,
// joined with what is needed to compute that effect.
type PostedEntry struct {
	TransactionID string          `db:"transaction_id"`
	Date          string          `db:"date"`
	IsLocked      bool            `db:"is_locked"`
	AccountID     string          `db:"account_id"`
	AccountType   string          `db:"account_type"`
	EntryType     string          `db:"entry_type"`
	AmountInBase  decimal.Decimal `db:"amount_in_base"`
}

// EntryFilter narrows ListPostedEntries.
type EntryFilter struct {
	AccountID string
	// Through, when set, keeps only transactions dated on or before it.
	Through time.Time
}

// ListPostedEntries returns entries of POSTED and VOIDED transactions. A voided
// transaction keeps its effect because its reversal is itself posted.
func (q *Queries) ListPostedEntries(ctx context.Context, orgID string, f EntryFilter) ([]PostedEntry, error) {
	where := []string{"t.organization_id = ?", "t.status IN (?, ?)"}
	args := []any{orgID, string(model.StatusPosted), string(model.StatusVoided)}
	if f.AccountID != "" {
		where = append(where, "e.account_id = ?")
		args = append(args, f.AccountID)
	}
	if !f.Through.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, formatDate(f.Through))
	}
	var rows []PostedEntry
	if err := q.selectAll(ctx, &rows, `SELECT e.transaction_id, t.date, t.is_locked, e.account_id,
		a.type AS account_type, e.entry_type, e.amount_in_base
		FROM ledger_entries e
		JOIN transactions t ON t.id = e.transaction_id
		JOIN accounts a ON a.id = e.account_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY t.date, e.transaction_id, e.line_no`, args...); err != nil {
		return nil, fmt.Errorf("listing posted entries: %w", err)
	}
	return rows, nil
}
