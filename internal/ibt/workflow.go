// Package ibt runs inter-branch stock transfers: a state machine that books
// one ledger posting when goods leave the source branch and one when they
// arrive at the destination.
package ibt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// ReferencePrefix starts every transfer reference number.
const ReferencePrefix = "IBT"

// Workflow moves transfers through DRAFT, REQUESTED, APPROVED, IN_TRANSIT
// and RECEIVED, or to CANCELLED before anything is shipped.
type Workflow struct {
	poster *ledger.Poster
	logger *slog.Logger
	now    func() time.Time
}

// NewWorkflow creates a Workflow posting through p.
func NewWorkflow(p *ledger.Poster, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{poster: p, logger: logger, now: time.Now}
}

// NewItem is one product line of a transfer request.
type NewItem struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// NewTransfer is a request to create a transfer.
type NewTransfer struct {
	FromBranchID string `json:"from_branch_id"`
	ToBranchID   string `json:"to_branch_id"`
	// ClearingAccountID enables postings; InventoryAccountID is then required.
	ClearingAccountID  *string   `json:"clearing_account_id,omitempty"`
	InventoryAccountID *string   `json:"inventory_account_id,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	RequestedBy        string    `json:"requested_by,omitempty"`
	Items              []NewItem `json:"items"`
}

func (in NewTransfer) validate() error {
	if strings.TrimSpace(in.FromBranchID) == "" || strings.TrimSpace(in.ToBranchID) == "" {
		return errs.Validation("branch", "source and destination branches are required")
	}
	if in.FromBranchID == in.ToBranchID {
		return errs.Validation("same_branch", "source and destination branch must differ")
	}
	if len(in.Items) == 0 {
		return errs.Validation("items", "a transfer needs at least one line item")
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return errs.Validation("items", "line %d: product is required", i+1)
		}
		if !it.Quantity.IsPositive() {
			return errs.Validation("quantity", "line %d: quantity must be positive", i+1)
		}
		if it.UnitCost.IsNegative() {
			return errs.Validation("unit_cost", "line %d: unit cost cannot be negative", i+1)
		}
	}
	if in.ClearingAccountID != nil && in.InventoryAccountID == nil {
		return errs.Validation("inventory_account", "an inventory account is required when a clearing account is set")
	}
	if in.ClearingAccountID != nil && *in.ClearingAccountID == *in.InventoryAccountID {
		return errs.Validation("same_account", "clearing and inventory accounts must differ")
	}
	return nil
}

// Create stores a DRAFT transfer with the next reference number of the
// source branch, e.g. IBT-KLA-000001.
func (w *Workflow) Create(ctx context.Context, orgID string, in NewTransfer) (model.InterBranchTransfer, error) {
	if err := in.validate(); err != nil {
		return model.InterBranchTransfer{}, err
	}
	t := model.InterBranchTransfer{
		ID:                 id.New(),
		OrganizationID:     orgID,
		FromBranchID:       in.FromBranchID,
		ToBranchID:         in.ToBranchID,
		Status:             model.TransferDraft,
		ClearingAccountID:  in.ClearingAccountID,
		InventoryAccountID: in.InventoryAccountID,
		Notes:              in.Notes,
		RequestedBy:        in.RequestedBy,
	}
	for i, it := range in.Items {
		t.Items = append(t.Items, model.TransferItem{
			ID:        id.New(),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
			LineNo:    i + 1,
		})
	}

	err := w.poster.Store().InTx(ctx, func(q *store.Queries) error {
		for _, acctID := range []*string{t.ClearingAccountID, t.InventoryAccountID} {
			if acctID == nil {
				continue
			}
			if _, err := q.GetAccount(ctx, orgID, *acctID); err != nil {
				return err
			}
		}
		seq, err := q.NextSequence(ctx, id.SequenceName(ReferencePrefix, orgID, t.FromBranchID))
		if err != nil {
			return err
		}
		t.ReferenceNumber = id.FormatReference(ReferencePrefix, t.FromBranchID, seq)
		return q.InsertTransfer(ctx, &t)
	})
	if err != nil {
		return model.InterBranchTransfer{}, err
	}
	w.logger.Info("transfer created", "org", orgID, "reference", t.ReferenceNumber,
		"from", t.FromBranchID, "to", t.ToBranchID, "items", len(t.Items))
	return t, nil
}

// Get loads a transfer with its items.
func (w *Workflow) Get(ctx context.Context, orgID, transferID string) (model.InterBranchTransfer, error) {
	return w.poster.Store().GetTransfer(ctx, orgID, transferID)
}

// List returns transfers in the given status, or all when status is empty.
func (w *Workflow) List(ctx context.Context, orgID string, status model.TransferStatus) ([]model.InterBranchTransfer, error) {
	return w.poster.Store().ListTransfers(ctx, orgID, status)
}

// Submit moves a DRAFT to REQUESTED.
func (w *Workflow) Submit(ctx context.Context, orgID, transferID string) (model.InterBranchTransfer, error) {
	return w.transition(ctx, orgID, transferID, model.TransferDraft, model.TransferRequested, store.TransferUpdate{})
}

// Approve moves a REQUESTED transfer to APPROVED on behalf of approverID.
func (w *Workflow) Approve(ctx context.Context, orgID, transferID, approverID string) (model.InterBranchTransfer, error) {
	if approverID == "" {
		return model.InterBranchTransfer{}, errs.Validation("approver", "approval requires an approver id")
	}
	return w.transition(ctx, orgID, transferID, model.TransferRequested, model.TransferApproved,
		store.TransferUpdate{ApprovedBy: approverID})
}

// Cancel retires a transfer that has not shipped. Nothing has been posted
// yet, so nothing is reversed.
func (w *Workflow) Cancel(ctx context.Context, orgID, transferID string) (model.InterBranchTransfer, error) {
	var t model.InterBranchTransfer
	err := w.poster.Store().InTx(ctx, func(q *store.Queries) error {
		var err error
		if t, err = q.GetTransfer(ctx, orgID, transferID); err != nil {
			return err
		}
		if !t.Status.Cancellable() {
			return errs.Validation("invalid_transition", "transfer %s is %s and can no longer be cancelled", t.ReferenceNumber, t.Status)
		}
		ok, err := q.TransitionTransfer(ctx, orgID, transferID, t.Status, model.TransferCancelled, store.TransferUpdate{})
		if err != nil {
			return err
		}
		if !ok {
			return errs.Validation("invalid_transition", "transfer %s changed concurrently", t.ReferenceNumber)
		}
		t.Status = model.TransferCancelled
		return nil
	})
	if err != nil {
		return model.InterBranchTransfer{}, err
	}
	return t, nil
}

func (w *Workflow) transition(ctx context.Context, orgID, transferID string, from, to model.TransferStatus, u store.TransferUpdate) (model.InterBranchTransfer, error) {
	var t model.InterBranchTransfer
	err := w.poster.Store().InTx(ctx, func(q *store.Queries) error {
		var err error
		if t, err = q.GetTransfer(ctx, orgID, transferID); err != nil {
			return err
		}
		if t.Status != from {
			return errs.Validation("invalid_transition", "transfer %s is %s, expected %s", t.ReferenceNumber, t.Status, from)
		}
		ok, err := q.TransitionTransfer(ctx, orgID, transferID, from, to, u)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Validation("invalid_transition", "transfer %s changed concurrently", t.ReferenceNumber)
		}
		t.Status = to
		if u.ApprovedBy != "" {
			t.ApprovedBy = u.ApprovedBy
		}
		return nil
	})
	if err != nil {
		return model.InterBranchTransfer{}, err
	}
	w.logger.Info("transfer moved", "org", orgID, "reference", t.ReferenceNumber, "status", to)
	return t, nil
}

// Ship moves an APPROVED transfer to IN_TRANSIT. With a clearing account it
// posts, on the source branch, one debit to clearing per line balanced by a
// single credit to inventory.
func (w *Workflow) Ship(ctx context.Context, orgID, transferID, userID string) (model.InterBranchTransfer, error) {
	return w.move(ctx, orgID, transferID, userID, model.LegShip)
}

// Receive moves an IN_TRANSIT transfer to RECEIVED. With a clearing account
// it posts, on the destination branch, one aggregate credit to clearing
// balanced by a debit to inventory.
func (w *Workflow) Receive(ctx context.Context, orgID, transferID, userID string) (model.InterBranchTransfer, error) {
	return w.move(ctx, orgID, transferID, userID, model.LegReceive)
}

func (w *Workflow) move(ctx context.Context, orgID, transferID, userID string, leg model.TransferLeg) (model.InterBranchTransfer, error) {
	from, to, evt := model.TransferApproved, model.TransferInTransit, events.TransferShipped
	if leg == model.LegReceive {
		from, to, evt = model.TransferInTransit, model.TransferReceived, events.TransferReceived
	}

	var (
		t      model.InterBranchTransfer
		posted *model.Transaction
	)
	err := w.poster.Store().InTx(ctx, func(q *store.Queries) error {
		var err error
		if t, err = q.GetTransfer(ctx, orgID, transferID); err != nil {
			return err
		}
		if t.Status != from {
			return errs.Validation("invalid_transition", "transfer %s is %s, expected %s", t.ReferenceNumber, t.Status, from)
		}

		var u store.TransferUpdate
		if t.ClearingAccountID != nil && postedValue(t).IsPositive() {
			txn, err := w.poster.CreateTransactionTx(ctx, q, orgID, w.posting(t, leg, userID), ledger.Privileged())
			if err != nil {
				return fmt.Errorf("posting %s leg of %s: %w", leg, t.ReferenceNumber, err)
			}
			posted = &txn
			if leg == model.LegShip {
				u.ShipTransactionID = txn.ID
				t.ShipTransactionID = &txn.ID
			} else {
				u.ReceiveTransactionID = txn.ID
				t.ReceiveTransactionID = &txn.ID
			}
		}

		ok, err := q.TransitionTransfer(ctx, orgID, transferID, from, to, u)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Validation("invalid_transition", "transfer %s changed concurrently", t.ReferenceNumber)
		}
		t.Status = to
		return nil
	})
	if err != nil {
		return model.InterBranchTransfer{}, err
	}
	if posted != nil {
		w.poster.Notify(ctx, evt, *posted)
	}
	w.logger.Info("transfer moved", "org", orgID, "reference", t.ReferenceNumber, "status", to, "posted", posted != nil)
	return t, nil
}

// postedValue is the leg amount: the sum of the rounded line values. A
// transfer of zero-cost goods posts nothing.
func postedValue(t model.InterBranchTransfer) decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(money.Round2(it.Value()))
	}
	return total
}

// posting builds the ledger transaction for one leg. Line values are rounded
// before summing so the aggregate side matches the itemized side exactly.
func (w *Workflow) posting(t model.InterBranchTransfer, leg model.TransferLeg, userID string) ledger.NewTransaction {
	clearing, inventory := *t.ClearingAccountID, *t.InventoryAccountID
	branch := t.FromBranchID
	if leg == model.LegReceive {
		branch = t.ToBranchID
	}

	var (
		entries []ledger.NewEntry
		total   decimal.Decimal
	)
	for _, it := range t.Items {
		v := money.Round2(it.Value())
		if v.IsZero() {
			continue
		}
		total = total.Add(v)
		if leg == model.LegShip {
			entries = append(entries, ledger.NewEntry{
				AccountID: clearing, EntryType: model.EntryDebit, Amount: v, BranchID: &branch,
				Description: fmt.Sprintf("%s line %d: %s x %s", t.ReferenceNumber, it.LineNo, it.Quantity, it.ProductID),
			})
		}
	}
	if leg == model.LegShip {
		entries = append(entries, ledger.NewEntry{
			AccountID: inventory, EntryType: model.EntryCredit, Amount: total, BranchID: &branch,
			Description: t.ReferenceNumber + " goods shipped",
		})
	} else {
		entries = append(entries,
			ledger.NewEntry{AccountID: inventory, EntryType: model.EntryDebit, Amount: total, BranchID: &branch,
				Description: t.ReferenceNumber + " goods received"},
			ledger.NewEntry{AccountID: clearing, EntryType: model.EntryCredit, Amount: total, BranchID: &branch,
				Description: t.ReferenceNumber + " clearing settled"},
		)
	}

	y, m, d := w.now().UTC().Date()
	return ledger.NewTransaction{
		Type:        model.TypeTransfer,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Description: fmt.Sprintf("Inter-branch transfer %s (%s)", t.ReferenceNumber, leg),
		Status:      model.StatusPosted,
		BranchID:    &branch,
		CreatedBy:   userID,
		Metadata: model.Metadata{
			Kind:      model.MetaTransfer,
			Reference: t.ReferenceNumber,
			Transfer:  &model.TransferMeta{TransferID: t.ID, Reference: t.ReferenceNumber, Leg: leg},
		},
		Entries: entries,
	}
}

// ClearingBalance returns the net debit on the clearing account across the
// transfer's postings. It is zero once a transfer with postings is RECEIVED.
func (w *Workflow) ClearingBalance(ctx context.Context, orgID, transferID string) (decimal.Decimal, error) {
	st := w.poster.Store()
	t, err := st.GetTransfer(ctx, orgID, transferID)
	if err != nil {
		return decimal.Zero, err
	}
	if t.ClearingAccountID == nil {
		return decimal.Zero, nil
	}
	var net decimal.Decimal
	for _, txnID := range []*string{t.ShipTransactionID, t.ReceiveTransactionID} {
		if txnID == nil {
			continue
		}
		txn, err := st.GetTransaction(ctx, orgID, *txnID)
		if err != nil {
			return decimal.Zero, err
		}
		for _, e := range txn.Entries {
			if e.AccountID != *t.ClearingAccountID {
				continue
			}
			if e.EntryType == model.EntryDebit {
				net = net.Add(e.AmountInBase)
			} else {
				net = net.Sub(e.AmountInBase)
			}
		}
	}
	return net, nil
}
