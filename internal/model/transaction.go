package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	StatusDraft     TransactionStatus = "DRAFT"
	StatusPosted    TransactionStatus = "POSTED"
	StatusVoided    TransactionStatus = "VOIDED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible from s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusVoided || s == StatusCancelled
}

// AffectsBalances reports whether transactions in status s carry balance effects.
// A voided transaction keeps its original effect; its reversal cancels it out.
func (s TransactionStatus) AffectsBalances() bool {
	return s == StatusPosted || s == StatusVoided
}

// TransactionType names the business event behind a transaction.
type TransactionType string

const (
	TypeJournalEntry   TransactionType = "JOURNAL_ENTRY"
	TypeOpeningBalance TransactionType = "OPENING_BALANCE"
	TypeInvoice        TransactionType = "INVOICE"
	TypeBill           TransactionType = "BILL"
	TypePayment        TransactionType = "PAYMENT"
	TypeExpense        TransactionType = "EXPENSE"
	TypeTransfer       TransactionType = "TRANSFER"
	TypeBankSettlement TransactionType = "BANK_SETTLEMENT"
	TypeReversal       TransactionType = "REVERSAL"
)

// EntryType is the side of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Valid reports whether e is DEBIT or CREDIT.
func (e EntryType) Valid() bool {
	return e == EntryDebit || e == EntryCredit
}

// Opposite returns the other side.
func (e EntryType) Opposite() EntryType {
	if e == EntryDebit {
		return EntryCredit
	}
	return EntryDebit
}

// Transaction is the header of a balanced set of ledger entries.
type Transaction struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	Type           TransactionType   `json:"type"`
	Date           time.Time         `json:"date"`
	Description    string            `json:"description"`
	Status         TransactionStatus `json:"status"`
	BranchID       *string           `json:"branch_id,omitempty"`
	Metadata       Metadata          `json:"metadata"`
	IsLocked       bool              `json:"is_locked"`
	// Privileged drafts were created by an internal flow and may touch control accounts.
	Privileged bool          `json:"privileged"`
	CreatedBy  string        `json:"created_by"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Entries    []LedgerEntry `json:"entries,omitempty"`
}

// Totals returns the base-currency debit and credit sums of the entries.
func (t Transaction) Totals() (debits, credits decimal.Decimal) {
	for _, e := range t.Entries {
		switch e.EntryType {
		case EntryDebit:
			debits = debits.Add(e.AmountInBase)
		case EntryCredit:
			credits = credits.Add(e.AmountInBase)
		}
	}
	return debits, credits
}

// LedgerEntry is one debit or credit leg of a transaction.
type LedgerEntry struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	EntryType     EntryType       `json:"entry_type"`
	Amount        decimal.Decimal `json:"amount"` // entry currency
	Currency      string          `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	AmountInBase  decimal.Decimal `json:"amount_in_base"`
	BranchID      *string         `json:"branch_id,omitempty"`
	Description   string          `json:"description"`
	LineNo        int             `json:"line_no"`
}
