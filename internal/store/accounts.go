package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
)

type accountRow struct {
	ID                 string    `db:"id"`
	OrganizationID     string    `db:"organization_id"`
	Code               string    `db:"code"`
	Name               string    `db:"name"`
	Type               string    `db:"type"`
	ParentID           *string   `db:"parent_id"`
	Currency           string    `db:"currency"`
	BalanceMinor       int64     `db:"balance_minor"`
	IsSystem           bool      `db:"is_system"`
	IsActive           bool      `db:"is_active"`
	AllowManualJournal bool      `db:"allow_manual_journal"`
	Description        string    `db:"description"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r accountRow) toModel() model.Account {
	return model.Account{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID,
		Code:               r.Code,
		Name:               r.Name,
		Type:               model.AccountType(r.Type),
		ParentID:           r.ParentID,
		Currency:           r.Currency,
		Balance:            money.FromMinor(r.BalanceMinor),
		IsSystem:           r.IsSystem,
		IsActive:           r.IsActive,
		AllowManualJournal: r.AllowManualJournal,
		Description:        r.Description,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

const accountColumns = `id, organization_id, code, name, type, parent_id, currency, balance_minor,
	is_system, is_active, allow_manual_journal, description, created_at, updated_at`

// InsertAccount stores a new account. A duplicate code in the organization
// returns a Conflict error.
func (q *Queries) InsertAccount(ctx context.Context, a *model.Account) error {
	ts := now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = ts
	}
	a.UpdatedAt = ts
	_, err := q.exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OrganizationID, a.Code, a.Name, string(a.Type), a.ParentID, a.Currency,
		money.ToMinor(a.Balance), a.IsSystem, a.IsActive, a.AllowManualJournal, a.Description,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", a.Code, err)
	}
	return nil
}

// UpdateAccount rewrites the editable columns of an account. The cached
// balance is never touched here.
func (q *Queries) UpdateAccount(ctx context.Context, a *model.Account) error {
	a.UpdatedAt = now()
	n, err := q.exec(ctx, `UPDATE accounts SET code = ?, name = ?, type = ?, parent_id = ?,
		currency = ?, is_active = ?, allow_manual_journal = ?, description = ?, updated_at = ?
		WHERE id = ? AND organization_id = ?`,
		a.Code, a.Name, string(a.Type), a.ParentID, a.Currency, a.IsActive,
		a.AllowManualJournal, a.Description, a.UpdatedAt, a.ID, a.OrganizationID)
	if err != nil {
		return fmt.Errorf("updating account %s: %w", a.ID, err)
	}
	if n == 0 {
		return notFound(errNoRows, "account", a.ID)
	}
	return nil
}

// DeleteAccount removes an account row.
func (q *Queries) DeleteAccount(ctx context.Context, orgID, id string) error {
	n, err := q.exec(ctx, `DELETE FROM accounts WHERE id = ? AND organization_id = ?`, id, orgID)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	if n == 0 {
		return notFound(errNoRows, "account", id)
	}
	return nil
}

// GetAccount loads an account by id within an organization.
func (q *Queries) GetAccount(ctx context.Context, orgID, id string) (model.Account, error) {
	var r accountRow
	err := q.get(ctx, &r, `SELECT `+accountColumns+` FROM accounts WHERE id = ? AND organization_id = ?`, id, orgID)
	if err != nil {
		return model.Account{}, notFound(err, "account", id)
	}
	return r.toModel(), nil
}

// GetAccountByCode loads an account by its code within an organization.
func (q *Queries) GetAccountByCode(ctx context.Context, orgID, code string) (model.Account, error) {
	var r accountRow
	err := q.get(ctx, &r, `SELECT `+accountColumns+` FROM accounts WHERE code = ? AND organization_id = ?`, code, orgID)
	if err != nil {
		return model.Account{}, notFound(err, "account", code)
	}
	return r.toModel(), nil
}

// ListAccounts returns the organization's accounts ordered by code.
func (q *Queries) ListAccounts(ctx context.Context, orgID string) ([]model.Account, error) {
	var rows []accountRow
	if err := q.selectAll(ctx, &rows, `SELECT `+accountColumns+` FROM accounts
		WHERE organization_id = ? ORDER BY code`, orgID); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	out := make([]model.Account, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// AccountCodeExists reports whether code is taken in the organization.
func (q *Queries) AccountCodeExists(ctx context.Context, orgID, code string) (bool, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM accounts WHERE organization_id = ? AND code = ?`, orgID, code); err != nil {
		return false, fmt.Errorf("checking account code: %w", err)
	}
	return n > 0, nil
}

// AccountHasChildren reports whether any account names id as its parent.
func (q *Queries) AccountHasChildren(ctx context.Context, id string) (bool, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM accounts WHERE parent_id = ?`, id); err != nil {
		return false, fmt.Errorf("checking child accounts: %w", err)
	}
	return n > 0, nil
}

// AccountHasEntries reports whether any ledger entry references id.
func (q *Queries) AccountHasEntries(ctx context.Context, id string) (bool, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM ledger_entries WHERE account_id = ?`, id); err != nil {
		return false, fmt.Errorf("checking account entries: %w", err)
	}
	return n > 0, nil
}

// IncrementBalance adds delta minor units to an account's cached balance in a
// single statement.
func (q *Queries) IncrementBalance(ctx context.Context, accountID string, deltaMinor int64) error {
	n, err := q.exec(ctx, `UPDATE accounts SET balance_minor = balance_minor + ?, updated_at = ? WHERE id = ?`,
		deltaMinor, now(), accountID)
	if err != nil {
		return fmt.Errorf("incrementing balance of %s: %w", accountID, err)
	}
	if n == 0 {
		return notFound(errNoRows, "account", accountID)
	}
	return nil
}

// SetBalance overwrites an account's cached balance.
func (q *Queries) SetBalance(ctx context.Context, accountID string, minor int64) error {
	if _, err := q.exec(ctx, `UPDATE accounts SET balance_minor = ?, updated_at = ? WHERE id = ?`,
		minor, now(), accountID); err != nil {
		return fmt.Errorf("setting balance of %s: %w", accountID, err)
	}
	return nil
}
