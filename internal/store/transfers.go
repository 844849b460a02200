package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

type transferRow struct {
	ID                   string    `db:"id"`
	OrganizationID       string    `db:"organization_id"`
	ReferenceNumber      string    `db:"reference_number"`
	FromBranchID         string    `db:"from_branch_id"`
	ToBranchID           string    `db:"to_branch_id"`
	Status               string    `db:"status"`
	ClearingAccountID    *string   `db:"clearing_account_id"`
	InventoryAccountID   *string   `db:"inventory_account_id"`
	Notes                string    `db:"notes"`
	RequestedBy          string    `db:"requested_by"`
	ApprovedBy           string    `db:"approved_by"`
	ShipTransactionID    *string   `db:"ship_transaction_id"`
	ReceiveTransactionID *string   `db:"receive_transaction_id"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

type transferItemRow struct {
	ID         string          `db:"id"`
	TransferID string          `db:"transfer_id"`
	ProductID  string          `db:"product_id"`
	Quantity   decimal.Decimal `db:"quantity"`
	UnitCost   decimal.Decimal `db:"unit_cost"`
	LineNo     int             `db:"line_no"`
}

func (r transferRow) toModel() model.InterBranchTransfer {
	return model.InterBranchTransfer{
		ID:                   r.ID,
		OrganizationID:       r.OrganizationID,
		ReferenceNumber:      r.ReferenceNumber,
		FromBranchID:         r.FromBranchID,
		ToBranchID:           r.ToBranchID,
		Status:               model.TransferStatus(r.Status),
		ClearingAccountID:    r.ClearingAccountID,
		InventoryAccountID:   r.InventoryAccountID,
		Notes:                r.Notes,
		RequestedBy:          r.RequestedBy,
		ApprovedBy:           r.ApprovedBy,
		ShipTransactionID:    r.ShipTransactionID,
		ReceiveTransactionID: r.ReceiveTransactionID,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

const transferColumns = `id, organization_id, reference_number, from_branch_id, to_branch_id, status,
	clearing_account_id, inventory_account_id, notes, requested_by, approved_by,
	ship_transaction_id, receive_transaction_id, created_at, updated_at`

// InsertTransfer stores a transfer and its items. A duplicate reference in
// the organization returns a Conflict error.
func (q *Queries) InsertTransfer(ctx context.Context, t *model.InterBranchTransfer) error {
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts
	if _, err := q.exec(ctx, `INSERT INTO transfers (`+transferColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrganizationID, t.ReferenceNumber, t.FromBranchID, t.ToBranchID, string(t.Status),
		t.ClearingAccountID, t.InventoryAccountID, t.Notes, t.RequestedBy, t.ApprovedBy,
		t.ShipTransactionID, t.ReceiveTransactionID, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("inserting transfer %s: %w", t.ReferenceNumber, err)
	}
	for i := range t.Items {
		it := &t.Items[i]
		it.TransferID = t.ID
		if _, err := q.exec(ctx, `INSERT INTO transfer_items (id, transfer_id, product_id, quantity, unit_cost, line_no)
			VALUES (?, ?, ?, ?, ?, ?)`,
			it.ID, it.TransferID, it.ProductID, it.Quantity, it.UnitCost, it.LineNo); err != nil {
			return fmt.Errorf("inserting transfer item %d: %w", it.LineNo, err)
		}
	}
	return nil
}

// GetTransfer loads a transfer with its items ordered by line.
func (q *Queries) GetTransfer(ctx context.Context, orgID, id string) (model.InterBranchTransfer, error) {
	var r transferRow
	if err := q.get(ctx, &r, `SELECT `+transferColumns+` FROM transfers
		WHERE id = ? AND organization_id = ?`, id, orgID); err != nil {
		return model.InterBranchTransfer{}, notFound(err, "transfer", id)
	}
	t := r.toModel()

	var items []transferItemRow
	if err := q.selectAll(ctx, &items, `SELECT id, transfer_id, product_id, quantity, unit_cost, line_no
		FROM transfer_items WHERE transfer_id = ? ORDER BY line_no`, id); err != nil {
		return model.InterBranchTransfer{}, fmt.Errorf("loading items of transfer %s: %w", id, err)
	}
	for _, it := range items {
		t.Items = append(t.Items, model.TransferItem{
			ID:         it.ID,
			TransferID: it.TransferID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitCost:   it.UnitCost,
			LineNo:     it.LineNo,
		})
	}
	return t, nil
}

// TransferUpdate carries the optional columns written alongside a status change.
type TransferUpdate struct {
	ApprovedBy           string
	ShipTransactionID    string
	ReceiveTransactionID string
}

// TransitionTransfer moves a transfer from one status to another, writing any
// non-empty fields of u. It returns false when the transfer was not in status
// from at the time of the update.
func (q *Queries) TransitionTransfer(ctx context.Context, orgID, id string, from, to model.TransferStatus, u TransferUpdate) (bool, error) {
	n, err := q.exec(ctx, `UPDATE transfers SET status = ?, updated_at = ?,
		approved_by = CASE WHEN ? = '' THEN approved_by ELSE ? END,
		ship_transaction_id = CASE WHEN ? = '' THEN ship_transaction_id ELSE ? END,
		receive_transaction_id = CASE WHEN ? = '' THEN receive_transaction_id ELSE ? END
		WHERE id = ? AND organization_id = ? AND status = ?`,
		string(to), now(),
		u.ApprovedBy, u.ApprovedBy,
		u.ShipTransactionID, u.ShipTransactionID,
		u.ReceiveTransactionID, u.ReceiveTransactionID,
		id, orgID, string(from))
	if err != nil {
		return false, fmt.Errorf("moving transfer %s to %s: %w", id, to, err)
	}
	return n > 0, nil
}

// ListTransfers returns transfer headers, newest first. An empty status
// matches all.
func (q *Queries) ListTransfers(ctx context.Context, orgID string, status model.TransferStatus) ([]model.InterBranchTransfer, error) {
	var rows []transferRow
	if err := q.selectAll(ctx, &rows, `SELECT `+transferColumns+` FROM transfers
		WHERE organization_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at DESC, reference_number DESC`, orgID, string(status), string(status)); err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	out := make([]model.InterBranchTransfer, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
