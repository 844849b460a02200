package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset       AccountType = "ASSET"
	AccountTypeLiability   AccountType = "LIABILITY"
	AccountTypeEquity      AccountType = "EQUITY"
	AccountTypeRevenue     AccountType = "REVENUE"
	AccountTypeExpense     AccountType = "EXPENSE"
	AccountTypeCostOfSales AccountType = "COST_OF_SALES"
)

// AccountTypes lists every account type in chart order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
	AccountTypeCostOfSales,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense, AccountTypeCostOfSales:
		return true
	}
	return false
}

// NormalSide returns the side on which the account type's balance grows.
func (t AccountType) NormalSide() EntryType {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeCostOfSales:
		return EntryDebit
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return EntryCredit
	}
	panic(fmt.Sprintf("model: unknown account type %q", string(t)))
}

// ParseAccountType converts a stored or user-supplied string to an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown account type %q", s)
	}
	return t, nil
}

// Account is a row in an organization's chart of accounts.
type Account struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	ParentID       *string         `json:"parent_id,omitempty"` // nil = top-level
	Currency       string          `json:"currency"`
	Balance        decimal.Decimal `json:"balance"` // signed, on the account's normal side
	IsSystem       bool            `json:"is_system"`
	IsActive       bool            `json:"is_active"`
	// AllowManualJournal is false for control accounts fed by sub-ledgers (AR, AP).
	AllowManualJournal bool      `json:"allow_manual_journal"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsControl reports whether the account rejects ad-hoc manual postings.
func (a Account) IsControl() bool {
	return !a.AllowManualJournal
}
