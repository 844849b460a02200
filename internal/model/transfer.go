package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the state of an inter-branch transfer.
type TransferStatus string

const (
	TransferDraft     TransferStatus = "DRAFT"
	TransferRequested TransferStatus = "REQUESTED"
	TransferApproved  TransferStatus = "APPROVED"
	TransferInTransit TransferStatus = "IN_TRANSIT"
	TransferReceived  TransferStatus = "RECEIVED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// Cancellable reports whether a transfer in status s can still be cancelled.
// Nothing has been posted before IN_TRANSIT, so no reversal is needed.
func (s TransferStatus) Cancellable() bool {
	switch s {
	case TransferDraft, TransferRequested, TransferApproved:
		return true
	}
	return false
}

// InterBranchTransfer moves stock between two branches of one organization.
type InterBranchTransfer struct {
	ID                   string         `json:"id"`
	OrganizationID       string         `json:"organization_id"`
	ReferenceNumber      string         `json:"reference_number"`
	FromBranchID         string         `json:"from_branch_id"`
	ToBranchID           string         `json:"to_branch_id"`
	Status               TransferStatus `json:"status"`
	ClearingAccountID    *string        `json:"clearing_account_id,omitempty"`
	InventoryAccountID   *string        `json:"inventory_account_id,omitempty"`
	Notes                string         `json:"notes"`
	RequestedBy          string         `json:"requested_by"`
	ApprovedBy           string         `json:"approved_by"`
	ShipTransactionID    *string        `json:"ship_transaction_id,omitempty"`
	ReceiveTransactionID *string        `json:"receive_transaction_id,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	Items                []TransferItem `json:"items,omitempty"`
}

// Total returns the sum of quantity x unit cost over all items.
func (t InterBranchTransfer) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.Value())
	}
	return total
}

// TransferItem is one product line on a transfer.
type TransferItem struct {
	ID         string          `json:"id"`
	TransferID string          `json:"transfer_id"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	LineNo     int             `json:"line_no"`
}

// Value returns quantity x unit cost.
func (it TransferItem) Value() decimal.Decimal {
	return it.Quantity.Mul(it.UnitCost)
}
