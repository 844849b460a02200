package journal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

const org = "org-1"

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.OpenTest(t)
	ctx := context.Background()
	for _, a := range []struct {
		code string
		typ  model.AccountType
	}{
		{"1000", model.AccountTypeAsset},
		{"1020", model.AccountTypeAsset},
		{"3000", model.AccountTypeEquity},
		{"6010", model.AccountTypeExpense},
	} {
		acct := model.Account{ID: id.New(), OrganizationID: org, Code: a.code, Name: a.code, Type: a.typ,
			Currency: "UGX", IsActive: true, AllowManualJournal: true}
		require.NoError(t, st.InsertAccount(ctx, &acct))
	}
	return NewService(ledger.NewPoster(st, ledger.Options{BaseCurrency: "UGX"}), nil), st
}

const sample = Header + `
J1,2025-03-01,1000,Owner investment,1000000,,,
J1,2025-03-01,3000,Owner investment,,1000000,,
J2,2025-03-05,6010,March rent,250000,,,
J2,2025-03-05,1000,March rent,,250000,,
J3,2025-03-06,1020,Dollar deposit,100,,USD,3700
J3,2025-03-06,3000,Dollar deposit,,370000,,
`

func TestImport(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	txns, err := svc.Import(ctx, org, strings.NewReader(sample), "u1")
	require.NoError(t, err)
	require.Len(t, txns, 3)

	for _, txn := range txns {
		assert.Equal(t, model.StatusDraft, txn.Status)
		assert.Equal(t, "u1", txn.CreatedBy)
		require.NotNil(t, txn.Metadata.Journal)
		assert.Equal(t, "csv", txn.Metadata.Journal.Source)
	}
	assert.Equal(t, "J1", txns[0].Metadata.Reference)
	assert.Equal(t, "Owner investment", txns[0].Description)
	assert.Equal(t, "370000.00", txns[2].Entries[0].AmountInBase.StringFixed(2))
	assert.Equal(t, "USD", txns[2].Entries[0].Currency)
	assert.Equal(t, "UGX", txns[2].Entries[1].Currency)

	cash, err := st.GetAccountByCode(ctx, org, "1000")
	require.NoError(t, err)
	assert.True(t, cash.Balance.IsZero(), "drafts leave balances alone")
}

func TestImport_AllOrNothing(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	bad := sample + "J4,2025-03-07,9999,Typo,10,,,\nJ4,2025-03-07,1000,Typo,,10,,\n"
	_, err := svc.Import(ctx, org, strings.NewReader(bad), "u1")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	require.Len(t, ie.Problems, 1)
	assert.Equal(t, "account", ie.Problems[0].Rule)
	assert.Equal(t, 8, ie.Problems[0].Line)

	txns, err := st.ListTransactions(ctx, org, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestImport_PosterRejectsRollBack(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	// Foreign currency without a rate passes file validation but not posting.
	in := Header + "\nJ1,2025-03-01,1000,x,10,,,\nJ1,2025-03-01,3000,x,,10,,\nJ2,2025-03-01,1020,y,10,,USD,\nJ2,2025-03-01,3000,y,,10,,\n"
	_, err := svc.Import(ctx, org, strings.NewReader(in), "u1")
	assert.True(t, errs.IsKind(err, errs.KindValidation))
	assert.Contains(t, err.Error(), "group J2")

	txns, err := st.ListTransactions(ctx, org, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestImport_Empty(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Import(context.Background(), org, strings.NewReader(Header+"\n"), "u1")
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestImportFileAndExport(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	txns, err := svc.ImportFile(ctx, org, path, "u1")
	require.NoError(t, err)
	require.Len(t, txns, 3)

	var buf bytes.Buffer
	n, err := svc.Export(ctx, org, store.TransactionFilter{Status: model.StatusDraft}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := ReadRows(&buf)
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	assert.Empty(t, ValidateRows(rows, newMockAccounts("1000", "1020", "3000", "6010")))

	_, err = svc.ImportFile(ctx, org, filepath.Join(t.TempDir(), "missing.csv"), "u1")
	assert.Error(t, err)
}
