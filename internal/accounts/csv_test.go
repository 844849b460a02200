package accounts

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

func TestRoundTrip(t *testing.T) {
	chart := []ChartEntry{
		{Code: "1010", Name: "Bank", Type: model.AccountTypeAsset, IsSystem: true, AllowManualJournal: true, Description: "Primary bank, \"main\""},
		{Code: "1100", Name: "Accounts Receivable", Type: model.AccountTypeAsset, IsSystem: true},
		{Code: "6010", Name: "Rent", Type: model.AccountTypeExpense, ParentCode: "6000", Currency: "USD", AllowManualJournal: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, chart))

	got, err := ReadChart(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}

func TestReadChart_OptionalColumns(t *testing.T) {
	in := "code,name,type,parent_code,currency,is_system,allow_manual_journal\n" +
		"1000,Cash,ASSET,,,,\n"
	got, err := ReadChart(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsSystem)
	assert.True(t, got[0].AllowManualJournal, "manual journals default to allowed")
}

func TestReadChart_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"unknown type", "1000,Cash,MONEY,,,false,true,"},
		{"bad bool", "1000,Cash,ASSET,,,maybe,true,"},
		{"missing name", "1000,,ASSET,,,false,true,"},
		{"short row", "1000,Cash,ASSET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadChart(strings.NewReader(strings.Join(header, ",") + "\n" + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	chart, err := ReadChart(f)
	require.NoError(t, err)
	require.Len(t, chart, 11)

	types := make(map[model.AccountType]bool)
	for _, e := range chart {
		types[e.Type] = true
	}
	for _, at := range model.AccountTypes {
		assert.True(t, types[at], "missing %s", at)
	}
	assert.Equal(t, "6000", chart[10].ParentCode)
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart("trading")
	require.NotEmpty(t, chart)

	codes := make(map[string]ChartEntry)
	for _, e := range chart {
		codes[e.Code] = e
	}
	for _, code := range []string{CodeCash, CodeBank, CodeReceivable, CodeInventory, CodeInterBranch,
		CodePayable, CodeVATPayable, CodeOwnersCapital, CodeSales, CodeCostOfGoodsSold} {
		e, ok := codes[code]
		require.True(t, ok, "expected account %s", code)
		assert.True(t, e.IsSystem, "account %s should be a system account", code)
	}
	assert.False(t, codes[CodeReceivable].AllowManualJournal, "AR is a control account")
	assert.False(t, codes[CodePayable].AllowManualJournal, "AP is a control account")

	seen := make(map[string]bool)
	for _, e := range chart {
		assert.NotEmpty(t, e.Name, "account %s missing name", e.Code)
		assert.True(t, e.Type.Valid(), "account %s type", e.Code)
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		if e.ParentCode != "" {
			assert.True(t, seen[e.ParentCode], "parent of %s must come first", e.Code)
		}
		seen[e.Code] = true
	}
}

func TestDefaultChart_Services(t *testing.T) {
	chart := DefaultChart("services")
	for _, e := range chart {
		assert.NotEqual(t, CodeInventory, e.Code)
	}
	assert.Greater(t, len(DefaultChart("unknown")), len(chart))
}

func TestChartOf(t *testing.T) {
	parent := "p1"
	accts := []model.Account{
		{ID: parent, Code: "6000", Name: "Opex", Type: model.AccountTypeExpense, AllowManualJournal: true},
		{ID: "c1", Code: "6010", Name: "Rent", Type: model.AccountTypeExpense, ParentID: &parent},
	}
	chart := ChartOf(accts)
	require.Len(t, chart, 2)
	assert.Empty(t, chart[0].ParentCode)
	assert.Equal(t, "6000", chart[1].ParentCode)
	assert.False(t, chart[1].AllowManualJournal)
}
