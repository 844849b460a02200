package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalSide(t *testing.T) {
	tests := []struct {
		typ  AccountType
		want EntryType
	}{
		{AccountTypeAsset, EntryDebit},
		{AccountTypeExpense, EntryDebit},
		{AccountTypeCostOfSales, EntryDebit},
		{AccountTypeLiability, EntryCredit},
		{AccountTypeEquity, EntryCredit},
		{AccountTypeRevenue, EntryCredit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.NormalSide(), "NormalSide(%s)", tt.typ)
	}
	assert.Len(t, AccountTypes, len(tests), "every account type needs a normal side")
}

func TestNormalSide_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() { AccountType("SUSPENSE").NormalSide() })
}

func TestParseAccountType(t *testing.T) {
	got, err := ParseAccountType("COST_OF_SALES")
	require.NoError(t, err)
	assert.Equal(t, AccountTypeCostOfSales, got)

	_, err = ParseAccountType("asset")
	assert.Error(t, err)
}

func TestEntryTypeOpposite(t *testing.T) {
	assert.Equal(t, EntryCredit, EntryDebit.Opposite())
	assert.Equal(t, EntryDebit, EntryCredit.Opposite())
}

func TestTransactionTotals(t *testing.T) {
	txn := Transaction{Entries: []LedgerEntry{
		{EntryType: EntryDebit, AmountInBase: decimal.RequireFromString("60.00")},
		{EntryType: EntryDebit, AmountInBase: decimal.RequireFromString("40.00")},
		{EntryType: EntryCredit, AmountInBase: decimal.RequireFromString("100.00")},
	}}
	debits, credits := txn.Totals()
	assert.True(t, debits.Equal(decimal.NewFromInt(100)))
	assert.True(t, credits.Equal(decimal.NewFromInt(100)))
}

func TestStatusFlags(t *testing.T) {
	assert.True(t, StatusVoided.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPosted.Terminal())

	assert.True(t, StatusPosted.AffectsBalances())
	assert.True(t, StatusVoided.AffectsBalances())
	assert.False(t, StatusDraft.AffectsBalances())
	assert.False(t, StatusCancelled.AffectsBalances())
}

func TestTransferCancellable(t *testing.T) {
	assert.True(t, TransferDraft.Cancellable())
	assert.True(t, TransferRequested.Cancellable())
	assert.True(t, TransferApproved.Cancellable())
	assert.False(t, TransferInTransit.Cancellable())
	assert.False(t, TransferReceived.Cancellable())
	assert.False(t, TransferCancelled.Cancellable())
}

func TestTransferTotal(t *testing.T) {
	ibt := InterBranchTransfer{Items: []TransferItem{
		{Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(50)},
		{Quantity: decimal.RequireFromString("2.5"), UnitCost: decimal.RequireFromString("4.00")},
	}}
	assert.Equal(t, "510.00", ibt.Total().StringFixed(2))
}

func TestMetadataValidate(t *testing.T) {
	ok := Metadata{Kind: MetaReversal, Reversal: &ReversalMeta{OriginalID: "t1"}}
	assert.NoError(t, ok.Validate())

	mixed := Metadata{Kind: MetaJournal, Reversal: &ReversalMeta{OriginalID: "t1"}}
	assert.Error(t, mixed.Validate())

	missing := Metadata{Kind: MetaTransfer}
	assert.Error(t, missing.Validate())

	unknown := Metadata{Kind: "misc"}
	assert.Error(t, unknown.Validate())
}

func TestMetadataStorage(t *testing.T) {
	m := Metadata{
		Kind:         MetaTransfer,
		Currency:     "UGX",
		ExchangeRate: decimal.NewFromInt(1),
		Transfer:     &TransferMeta{TransferID: "x", Reference: "IBT-A-000001", Leg: LegShip},
	}
	s, err := MarshalMetadata(m)
	require.NoError(t, err)

	got, err := UnmarshalMetadata(s)
	require.NoError(t, err)
	assert.Equal(t, MetadataVersion, got.Version)
	require.NotNil(t, got.Transfer)
	assert.Equal(t, LegShip, got.Transfer.Leg)

	_, err = UnmarshalMetadata(`{"version":99,"kind":"journal"}`)
	assert.Error(t, err)
}
