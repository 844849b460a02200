package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

// InsertFeed stores a bank feed.
func (q *Queries) InsertFeed(ctx context.Context, f *model.BankFeed) error {
	f.CreatedAt = now()
	if _, err := q.exec(ctx, `INSERT INTO bank_feeds (id, organization_id, name, account_id, created_at)
		VALUES (?, ?, ?, ?, ?)`, f.ID, f.OrganizationID, f.Name, f.AccountID, f.CreatedAt); err != nil {
		return fmt.Errorf("inserting bank feed %s: %w", f.Name, err)
	}
	return nil
}

type feedRow struct {
	ID             string    `db:"id"`
	OrganizationID string    `db:"organization_id"`
	Name           string    `db:"name"`
	AccountID      string    `db:"account_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// GetFeed loads a bank feed.
func (q *Queries) GetFeed(ctx context.Context, orgID, id string) (model.BankFeed, error) {
	var r feedRow
	if err := q.get(ctx, &r, `SELECT id, organization_id, name, account_id, created_at
		FROM bank_feeds WHERE id = ? AND organization_id = ?`, id, orgID); err != nil {
		return model.BankFeed{}, notFound(err, "bank feed", id)
	}
	return model.BankFeed(r), nil
}

type bankTxnRow struct {
	ID                      string          `db:"id"`
	OrganizationID          string          `db:"organization_id"`
	FeedID                  string          `db:"feed_id"`
	Date                    string          `db:"date"`
	Amount                  decimal.Decimal `db:"amount"`
	Description             string          `db:"description"`
	Payee                   string          `db:"payee"`
	ReferenceNo             string          `db:"reference_no"`
	ExternalID              string          `db:"external_id"`
	Status                  string          `db:"status"`
	MatchedDocumentID       *string         `db:"matched_document_id"`
	CategoryAccountID       *string         `db:"category_account_id"`
	SettlementTransactionID *string         `db:"settlement_transaction_id"`
	CreatedAt               time.Time       `db:"created_at"`
}

func (r bankTxnRow) toModel() (model.BankTransaction, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return model.BankTransaction{}, err
	}
	return model.BankTransaction{
		ID:                      r.ID,
		OrganizationID:          r.OrganizationID,
		FeedID:                  r.FeedID,
		Date:                    date,
		Amount:                  r.Amount,
		Description:             r.Description,
		Payee:                   r.Payee,
		ReferenceNo:             r.ReferenceNo,
		ExternalID:              r.ExternalID,
		Status:                  model.BankTransactionStatus(r.Status),
		MatchedDocumentID:       r.MatchedDocumentID,
		CategoryAccountID:       r.CategoryAccountID,
		SettlementTransactionID: r.SettlementTransactionID,
		CreatedAt:               r.CreatedAt,
	}, nil
}

const bankTxnColumns = `id, organization_id, feed_id, date, amount, description, payee, reference_no,
	external_id, status, matched_document_id, category_account_id, settlement_transaction_id, created_at`

// InsertBankTransaction stores an imported bank line. A repeated external id
// on the same feed returns a Conflict error.
func (q *Queries) InsertBankTransaction(ctx context.Context, b *model.BankTransaction) error {
	b.CreatedAt = now()
	if _, err := q.exec(ctx, `INSERT INTO bank_transactions (`+bankTxnColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OrganizationID, b.FeedID, formatDate(b.Date), b.Amount, b.Description, b.Payee,
		b.ReferenceNo, b.ExternalID, string(b.Status), b.MatchedDocumentID, b.CategoryAccountID,
		b.SettlementTransactionID, b.CreatedAt); err != nil {
		return fmt.Errorf("inserting bank transaction: %w", err)
	}
	return nil
}

// BankTransactionExists reports whether the feed already holds externalID.
func (q *Queries) BankTransactionExists(ctx context.Context, feedID, externalID string) (bool, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM bank_transactions WHERE feed_id = ? AND external_id = ?`,
		feedID, externalID); err != nil {
		return false, fmt.Errorf("checking bank transaction: %w", err)
	}
	return n > 0, nil
}

// GetBankTransaction loads an imported bank line.
func (q *Queries) GetBankTransaction(ctx context.Context, orgID, id string) (model.BankTransaction, error) {
	var r bankTxnRow
	if err := q.get(ctx, &r, `SELECT `+bankTxnColumns+` FROM bank_transactions
		WHERE id = ? AND organization_id = ?`, id, orgID); err != nil {
		return model.BankTransaction{}, notFound(err, "bank transaction", id)
	}
	return r.toModel()
}

// ListBankTransactions returns a feed's lines in the given status (all when
// status is empty), oldest first.
func (q *Queries) ListBankTransactions(ctx context.Context, orgID, feedID string, status model.BankTransactionStatus) ([]model.BankTransaction, error) {
	query := `SELECT ` + bankTxnColumns + ` FROM bank_transactions WHERE organization_id = ?`
	args := []any{orgID}
	if feedID != "" {
		query += ` AND feed_id = ?`
		args = append(args, feedID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY date, created_at`

	var rows []bankTxnRow
	if err := q.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing bank transactions: %w", err)
	}
	out := make([]model.BankTransaction, 0, len(rows))
	for _, r := range rows {
		b, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// BankResolution records how an UNPROCESSED bank line was resolved.
type BankResolution struct {
	Status                  model.BankTransactionStatus
	MatchedDocumentID       *string
	CategoryAccountID       *string
	SettlementTransactionID *string
}

// ResolveBankTransaction moves an UNPROCESSED line to r.Status. It returns
// false if the line had already been resolved.
func (q *Queries) ResolveBankTransaction(ctx context.Context, orgID, id string, r BankResolution) (bool, error) {
	n, err := q.exec(ctx, `UPDATE bank_transactions SET status = ?, matched_document_id = ?,
		category_account_id = ?, settlement_transaction_id = ?
		WHERE id = ? AND organization_id = ? AND status = ?`,
		string(r.Status), r.MatchedDocumentID, r.CategoryAccountID, r.SettlementTransactionID,
		id, orgID, string(model.BankUnprocessed))
	if err != nil {
		return false, fmt.Errorf("resolving bank transaction %s: %w", id, err)
	}
	return n > 0, nil
}

type documentRow struct {
	ID              string          `db:"id"`
	OrganizationID  string          `db:"organization_id"`
	Kind            string          `db:"kind"`
	Number          string          `db:"number"`
	Counterparty    string          `db:"counterparty"`
	Date            string          `db:"date"`
	Amount          decimal.Decimal `db:"amount"`
	Currency        string          `db:"currency"`
	ContraAccountID string          `db:"contra_account_id"`
	Status          string          `db:"status"`
	Inflow          bool            `db:"inflow"`
	CreatedAt       time.Time       `db:"created_at"`
}

func (r documentRow) toModel() (model.Document, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return model.Document{}, err
	}
	return model.Document{
		ID:              r.ID,
		OrganizationID:  r.OrganizationID,
		Kind:            model.DocumentKind(r.Kind),
		Number:          r.Number,
		Counterparty:    r.Counterparty,
		Date:            date,
		Amount:          r.Amount,
		Currency:        r.Currency,
		ContraAccountID: r.ContraAccountID,
		Status:          model.DocumentStatus(r.Status),
		Inflow:          r.Inflow,
		CreatedAt:       r.CreatedAt,
	}, nil
}

const documentColumns = `id, organization_id, kind, number, counterparty, date, amount, currency,
	contra_account_id, status, inflow, created_at`

// InsertDocument registers an open document.
func (q *Queries) InsertDocument(ctx context.Context, d *model.Document) error {
	d.CreatedAt = now()
	if _, err := q.exec(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrganizationID, string(d.Kind), d.Number, d.Counterparty, formatDate(d.Date),
		d.Amount, d.Currency, d.ContraAccountID, string(d.Status), d.Inflow, d.CreatedAt); err != nil {
		return fmt.Errorf("inserting document %s: %w", d.Number, err)
	}
	return nil
}

// GetDocument loads a document.
func (q *Queries) GetDocument(ctx context.Context, orgID, id string) (model.Document, error) {
	var r documentRow
	if err := q.get(ctx, &r, `SELECT `+documentColumns+` FROM documents
		WHERE id = ? AND organization_id = ?`, id, orgID); err != nil {
		return model.Document{}, notFound(err, "document", id)
	}
	return r.toModel()
}

// ListOpenDocuments returns OPEN documents flowing in the given direction.
func (q *Queries) ListOpenDocuments(ctx context.Context, orgID string, inflow bool) ([]model.Document, error) {
	var rows []documentRow
	if err := q.selectAll(ctx, &rows, `SELECT `+documentColumns+` FROM documents
		WHERE organization_id = ? AND status = ? AND inflow = ? ORDER BY date, number`,
		orgID, string(model.DocumentOpen), inflow); err != nil {
		return nil, fmt.Errorf("listing open documents: %w", err)
	}
	out := make([]model.Document, 0, len(rows))
	for _, r := range rows {
		d, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// SettleDocument marks an OPEN document SETTLED. It returns false if the
// document was already settled.
func (q *Queries) SettleDocument(ctx context.Context, orgID, id string) (bool, error) {
	n, err := q.exec(ctx, `UPDATE documents SET status = ? WHERE id = ? AND organization_id = ? AND status = ?`,
		string(model.DocumentSettled), id, orgID, string(model.DocumentOpen))
	if err != nil {
		return false, fmt.Errorf("settling document %s: %w", id, err)
	}
	return n > 0, nil
}

// InsertRule stores a categorization rule.
func (q *Queries) InsertRule(ctx context.Context, r *model.CategorizationRule) error {
	if _, err := q.exec(ctx, `INSERT INTO categorization_rules
		(id, organization_id, name, pattern, merchant, account_id, priority, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrganizationID, r.Name, r.Pattern, r.Merchant, r.AccountID, r.Priority, r.Active); err != nil {
		return fmt.Errorf("inserting rule %s: %w", r.Name, err)
	}
	return nil
}

// DeleteRule removes a categorization rule.
func (q *Queries) DeleteRule(ctx context.Context, orgID, id string) error {
	n, err := q.exec(ctx, `DELETE FROM categorization_rules WHERE id = ? AND organization_id = ?`, id, orgID)
	if err != nil {
		return fmt.Errorf("deleting rule %s: %w", id, err)
	}
	if n == 0 {
		return notFound(errNoRows, "rule", id)
	}
	return nil
}

type ruleRow struct {
	ID             string `db:"id"`
	OrganizationID string `db:"organization_id"`
	Name           string `db:"name"`
	Pattern        string `db:"pattern"`
	Merchant       string `db:"merchant"`
	AccountID      string `db:"account_id"`
	Priority       int    `db:"priority"`
	Active         bool   `db:"active"`
}

// ListRules returns the organization's active rules, lowest priority number first.
func (q *Queries) ListRules(ctx context.Context, orgID string) ([]model.CategorizationRule, error) {
	var rows []ruleRow
	if err := q.selectAll(ctx, &rows, `SELECT id, organization_id, name, pattern, merchant, account_id, priority, active
		FROM categorization_rules WHERE organization_id = ? AND active = ? ORDER BY priority, name`,
		orgID, true); err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	out := make([]model.CategorizationRule, len(rows))
	for i, r := range rows {
		out[i] = model.CategorizationRule(r)
	}
	return out, nil
}
