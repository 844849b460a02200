package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

type reconciliationRow struct {
	ID               string          `db:"id"`
	OrganizationID   string          `db:"organization_id"`
	AccountID        string          `db:"account_id"`
	StatementDate    string          `db:"statement_date"`
	StatementBalance decimal.Decimal `db:"statement_balance"`
	BookBalance      decimal.Decimal `db:"book_balance"`
	Difference       decimal.Decimal `db:"difference"`
	Status           string          `db:"status"`
	FinalizedBy      string          `db:"finalized_by"`
	FinalizedAt      *time.Time      `db:"finalized_at"`
	CreatedAt        time.Time       `db:"created_at"`
}

const reconciliationColumns = `id, organization_id, account_id, statement_date, statement_balance,
	book_balance, difference, status, finalized_by, finalized_at, created_at`

// InsertReconciliation stores a new reconciliation.
func (q *Queries) InsertReconciliation(ctx context.Context, r *model.BankReconciliation) error {
	r.CreatedAt = now()
	if _, err := q.exec(ctx, `INSERT INTO reconciliations (`+reconciliationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrganizationID, r.AccountID, formatDate(r.StatementDate), r.StatementBalance,
		r.BookBalance, r.Difference, string(r.Status), r.FinalizedBy, r.FinalizedAt, r.CreatedAt); err != nil {
		return fmt.Errorf("inserting reconciliation: %w", err)
	}
	return nil
}

// GetReconciliation loads a reconciliation with its cleared transaction ids.
func (q *Queries) GetReconciliation(ctx context.Context, orgID, id string) (model.BankReconciliation, error) {
	var r reconciliationRow
	if err := q.get(ctx, &r, `SELECT `+reconciliationColumns+` FROM reconciliations
		WHERE id = ? AND organization_id = ?`, id, orgID); err != nil {
		return model.BankReconciliation{}, notFound(err, "reconciliation", id)
	}
	date, err := parseDate(r.StatementDate)
	if err != nil {
		return model.BankReconciliation{}, err
	}
	rec := model.BankReconciliation{
		ID:               r.ID,
		OrganizationID:   r.OrganizationID,
		AccountID:        r.AccountID,
		StatementDate:    date,
		StatementBalance: r.StatementBalance,
		BookBalance:      r.BookBalance,
		Difference:       r.Difference,
		Status:           model.ReconciliationStatus(r.Status),
		FinalizedBy:      r.FinalizedBy,
		FinalizedAt:      r.FinalizedAt,
		CreatedAt:        r.CreatedAt,
	}
	if err := q.selectAll(ctx, &rec.ClearedIDs, `SELECT transaction_id FROM reconciliation_items
		WHERE reconciliation_id = ? ORDER BY transaction_id`, id); err != nil {
		return model.BankReconciliation{}, fmt.Errorf("loading cleared items of %s: %w", id, err)
	}
	return rec, nil
}

// AddClearedItems marks transactions cleared on a reconciliation. Already
// cleared ids are ignored.
func (q *Queries) AddClearedItems(ctx context.Context, recID string, txnIDs []string) error {
	for _, id := range txnIDs {
		if _, err := q.exec(ctx, `INSERT INTO reconciliation_items (reconciliation_id, transaction_id)
			VALUES (?, ?) ON CONFLICT (reconciliation_id, transaction_id) DO NOTHING`, recID, id); err != nil {
			return fmt.Errorf("clearing transaction %s: %w", id, err)
		}
	}
	return nil
}

// RemoveClearedItems un-clears transactions on a reconciliation.
func (q *Queries) RemoveClearedItems(ctx context.Context, recID string, txnIDs []string) error {
	for _, id := range txnIDs {
		if _, err := q.exec(ctx, `DELETE FROM reconciliation_items
			WHERE reconciliation_id = ? AND transaction_id = ?`, recID, id); err != nil {
			return fmt.Errorf("un-clearing transaction %s: %w", id, err)
		}
	}
	return nil
}

// FinalizeReconciliation records the final figures and moves the
// reconciliation to FINALIZED. It returns false if it was already finalized.
func (q *Queries) FinalizeReconciliation(ctx context.Context, orgID string, r *model.BankReconciliation) (bool, error) {
	ts := now()
	n, err := q.exec(ctx, `UPDATE reconciliations SET status = ?, book_balance = ?, difference = ?,
		finalized_by = ?, finalized_at = ?
		WHERE id = ? AND organization_id = ? AND status = ?`,
		string(model.ReconciliationFinalized), r.BookBalance, r.Difference, r.FinalizedBy, ts,
		r.ID, orgID, string(model.ReconciliationInProgress))
	if err != nil {
		return false, fmt.Errorf("finalizing reconciliation %s: %w", r.ID, err)
	}
	if n > 0 {
		r.Status = model.ReconciliationFinalized
		r.FinalizedAt = &ts
	}
	return n > 0, nil
}
