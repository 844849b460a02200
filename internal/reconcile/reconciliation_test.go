package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

func (f *fixture) post(t *testing.T, date time.Time, debit, credit, amount string) string {
	t.Helper()
	txn, err := f.poster.CreateTransaction(context.Background(), org, ledger.NewTransaction{
		Date:        date,
		Description: "test",
		Status:      model.StatusPosted,
		Entries: []ledger.NewEntry{
			{AccountID: f.id(debit), EntryType: model.EntryDebit, Amount: dec(amount)},
			{AccountID: f.id(credit), EntryType: model.EntryCredit, Amount: dec(amount)},
		},
	})
	require.NoError(t, err)
	return txn.ID
}

func (f *fixture) locked(t *testing.T, txnID string) bool {
	t.Helper()
	txn, err := f.store.GetTransaction(context.Background(), org, txnID)
	require.NoError(t, err)
	return txn.IsLocked
}

func TestReconciliation_FinalizeLocksClearedTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opening := f.post(t, day(1), "1010", "3000", "1000")
	rent := f.post(t, day(5), "6000", "1010", "200")
	lateDeposit := f.post(t, day(30), "1010", "4000", "300")
	april := f.post(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "1010", "4000", "50")

	rec, err := f.svc.Start(ctx, org, f.id("1010"), day(31), dec("800"))
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationInProgress, rec.Status)
	assert.Equal(t, "1100.00", rec.BookBalance.StringFixed(2))
	assert.Equal(t, "-800.00", rec.Difference.StringFixed(2))

	_, err = f.svc.Finalize(ctx, org, rec.ID, "u1")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindPolicy))
	assert.Equal(t, "reconciliation_difference", errs.RuleOf(err))
	assert.Contains(t, err.Error(), "-800.00")
	assert.False(t, f.locked(t, opening))

	_, err = f.svc.Clear(ctx, org, rec.ID, []string{april})
	assert.Equal(t, "reconciliation_item", errs.RuleOf(err))

	sum, err := f.svc.Clear(ctx, org, rec.ID, []string{opening, rent})
	require.NoError(t, err)
	assert.Equal(t, "300.00", sum.DepositsInTransit.StringFixed(2))
	assert.Equal(t, "0.00", sum.Outstanding.StringFixed(2))
	assert.Equal(t, "0.00", sum.Difference.StringFixed(2))
	assert.Equal(t, []string{lateDeposit}, sum.Uncleared)
	assert.True(t, sum.Balanced())

	sum, err = f.svc.Unclear(ctx, org, rec.ID, []string{rent})
	require.NoError(t, err)
	assert.Equal(t, "200.00", sum.Outstanding.StringFixed(2))
	assert.Equal(t, "200.00", sum.Difference.StringFixed(2))
	_, err = f.svc.Clear(ctx, org, rec.ID, []string{rent})
	require.NoError(t, err)

	done, err := f.svc.Finalize(ctx, org, rec.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationFinalized, done.Status)
	assert.Equal(t, "u1", done.FinalizedBy)
	require.NotNil(t, done.FinalizedAt)

	assert.True(t, f.locked(t, opening))
	assert.True(t, f.locked(t, rent))
	assert.False(t, f.locked(t, lateDeposit))

	lc := ledger.NewLifecycle(f.poster, 10)
	_, err = lc.Void(ctx, org, opening, "u1", "wrong amount")
	assert.Equal(t, "reconciled_locked", errs.RuleOf(err))

	_, err = f.svc.Finalize(ctx, org, rec.ID, "u1")
	assert.True(t, errs.IsKind(err, errs.KindImmutability))
	_, err = f.svc.Clear(ctx, org, rec.ID, []string{lateDeposit})
	assert.Equal(t, "reconciliation_finalized", errs.RuleOf(err))

	final, err := f.svc.Summary(ctx, org, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.ReconciliationFinalized), final.Status)
	assert.ElementsMatch(t, []string{opening, rent}, final.Cleared)
}

func TestReconciliation_LockedItemsCountAsCleared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opening := f.post(t, day(1), "1010", "3000", "1000")
	rec, err := f.svc.Start(ctx, org, f.id("1010"), day(31), dec("1000"))
	require.NoError(t, err)
	_, err = f.svc.Clear(ctx, org, rec.ID, []string{opening})
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, org, rec.ID, "u1")
	require.NoError(t, err)

	deposit := f.post(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), "1010", "4000", "250.50")
	april, err := f.svc.Start(ctx, org, f.id("1010"), time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), dec("1250.50"))
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, org, april.ID)
	require.NoError(t, err)
	assert.Equal(t, "1250.50", sum.BookBalance.StringFixed(2))
	assert.Equal(t, []string{deposit}, sum.Uncleared)
	assert.Equal(t, "-250.50", sum.Difference.StringFixed(2))

	sum, err = f.svc.Clear(ctx, org, april.ID, []string{deposit})
	require.NoError(t, err)
	assert.True(t, sum.Balanced())
}

func TestReconciliation_OneCentTolerance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opening := f.post(t, day(1), "1010", "3000", "1000")

	for _, tc := range []struct {
		statement string
		ok        bool
	}{
		{"1000.02", false},
		{"999.99", true},
	} {
		rec, err := f.svc.Start(ctx, org, f.id("1010"), day(31), dec(tc.statement))
		require.NoError(t, err)
		_, err = f.svc.Clear(ctx, org, rec.ID, []string{opening})
		require.NoError(t, err)
		_, err = f.svc.Finalize(ctx, org, rec.ID, "u1")
		if tc.ok {
			assert.NoError(t, err, tc.statement)
		} else {
			assert.True(t, errs.IsKind(err, errs.KindPolicy), tc.statement)
			assert.False(t, f.locked(t, opening))
		}
	}
}

func TestReconciliation_StartValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, org, f.id("1010"), time.Time{}, dec("1"))
	assert.Equal(t, "statement_date", errs.RuleOf(err))

	_, err = f.svc.Start(ctx, org, f.id("1010"), day(1), dec("1.005"))
	assert.Equal(t, "precision", errs.RuleOf(err))

	_, err = f.svc.Start(ctx, org, "nope", day(1), dec("1"))
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}
