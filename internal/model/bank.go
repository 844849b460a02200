package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementLine is a normalized row handed over by a statement parser.
type StatementLine struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"` // negative = withdrawal, positive = deposit
	Description string          `json:"description"`
	Payee       string          `json:"payee"`
	ReferenceNo string          `json:"reference_no"`
	ExternalID  string          `json:"external_id"`
}

// BankFeed connects an imported statement source to a bank GL account.
type BankFeed struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	AccountID      string    `json:"account_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// BankTransactionStatus is the processing state of an imported bank line.
type BankTransactionStatus string

const (
	BankUnprocessed BankTransactionStatus = "UNPROCESSED"
	BankMatched     BankTransactionStatus = "MATCHED"
	BankCategorized BankTransactionStatus = "CATEGORIZED"
	BankIgnored     BankTransactionStatus = "IGNORED"
)

// BankTransaction is an imported bank statement line.
type BankTransaction struct {
	ID                      string                `json:"id"`
	OrganizationID          string                `json:"organization_id"`
	FeedID                  string                `json:"feed_id"`
	Date                    time.Time             `json:"date"`
	Amount                  decimal.Decimal       `json:"amount"`
	Description             string                `json:"description"`
	Payee                   string                `json:"payee"`
	ReferenceNo             string                `json:"reference_no"`
	ExternalID              string                `json:"external_id"`
	Status                  BankTransactionStatus `json:"status"`
	MatchedDocumentID       *string               `json:"matched_document_id,omitempty"`
	CategoryAccountID       *string               `json:"category_account_id,omitempty"`
	SettlementTransactionID *string               `json:"settlement_transaction_id,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
}

// DocumentKind is the kind of open business document a bank line may settle.
type DocumentKind string

const (
	DocumentInvoice DocumentKind = "INVOICE"
	DocumentBill    DocumentKind = "BILL"
	DocumentPayment DocumentKind = "PAYMENT"
)

// DocumentStatus is the settlement state of a document.
type DocumentStatus string

const (
	DocumentOpen    DocumentStatus = "OPEN"
	DocumentSettled DocumentStatus = "SETTLED"
)

// Document is an open invoice, bill or payment registered by a document subsystem.
type Document struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	Kind            DocumentKind    `json:"kind"`
	Number          string          `json:"number"`
	Counterparty    string          `json:"counterparty"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"` // outstanding, always positive
	Currency        string          `json:"currency"`
	ContraAccountID string          `json:"contra_account_id"`
	Status          DocumentStatus  `json:"status"`
	// Inflow is true when settling the document brings money into the bank.
	Inflow    bool      `json:"inflow"`
	CreatedAt time.Time `json:"created_at"`
}

// CategorizationRule assigns bank lines to an account without a document match.
type CategorizationRule struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Pattern        string `json:"pattern"`  // case-insensitive regexp over description and payee
	Merchant       string `json:"merchant"` // normalized payee equality
	AccountID      string `json:"account_id"`
	Priority       int    `json:"priority"`
	Active         bool   `json:"active"`
}

// ReconciliationStatus is the state of a bank reconciliation.
type ReconciliationStatus string

const (
	ReconciliationInProgress ReconciliationStatus = "IN_PROGRESS"
	ReconciliationFinalized  ReconciliationStatus = "FINALIZED"
)

// BankReconciliation compares a bank account's books to a statement.
type BankReconciliation struct {
	ID               string               `json:"id"`
	OrganizationID   string               `json:"organization_id"`
	AccountID        string               `json:"account_id"`
	StatementDate    time.Time            `json:"statement_date"`
	StatementBalance decimal.Decimal      `json:"statement_balance"`
	BookBalance      decimal.Decimal      `json:"book_balance"`
	Difference       decimal.Decimal      `json:"difference"`
	Status           ReconciliationStatus `json:"status"`
	ClearedIDs       []string             `json:"cleared_ids,omitempty"`
	FinalizedBy      string               `json:"finalized_by"`
	FinalizedAt      *time.Time           `json:"finalized_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}
