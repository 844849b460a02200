package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chaseHeader = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n"

func parseChaseFixture(t *testing.T) []lineView {
	t.Helper()
	f, err := os.Open("testdata/chase_checking.csv")
	require.NoError(t, err)
	defer f.Close()

	lines, err := (&ChaseParser{}).Parse(f)
	require.NoError(t, err)
	out := make([]lineView, len(lines))
	for i, l := range lines {
		out[i] = lineView{l.Date.Format("2006-01-02"), l.Amount.StringFixed(2), l.Description, l.Payee, l.ReferenceNo, l.ExternalID}
	}
	return out
}

type lineView struct {
	Date, Amount, Description, Payee, Reference, ExternalID string
}

func TestChaseParser_Parse(t *testing.T) {
	lines := parseChaseFixture(t)
	require.Len(t, lines, 6)

	assert.Equal(t, lineView{
		Date:        "2025-01-03",
		Amount:      "-4.00",
		Description: "GITHUB *PRO SUBSCRIPTION",
		Payee:       "GITHUB",
		ExternalID:  "chase_20250103_GITHUBPROS",
	}, lines[0])

	assert.Equal(t, "ACME CONSULTING INVOICE 1042", lines[3].Description)
	assert.Equal(t, "3500.00", lines[3].Amount)
	assert.Equal(t, "ACME", lines[3].Payee)

	assert.Equal(t, "1187", lines[2].Reference)
	assert.Equal(t, "2025-01-22", lines[5].Date)
}

func TestChaseParser_Signs(t *testing.T) {
	for _, l := range parseChaseFixture(t) {
		if l.Description == "ACME CONSULTING INVOICE 1042" {
			assert.False(t, strings.HasPrefix(l.Amount, "-"))
		} else {
			assert.True(t, strings.HasPrefix(l.Amount, "-"), "expected withdrawal for %s", l.Description)
		}
	}
}

func TestChaseParser_DuplicateRowsGetDistinctIDs(t *testing.T) {
	csv := chaseHeader +
		"DEBIT,01/03/2025,COFFEE,-4.00,DEBIT_CARD,100.00,\n" +
		"DEBIT,01/03/2025,COFFEE,-4.00,DEBIT_CARD,96.00,\n" +
		"DEBIT,01/03/2025,COFFEE,-4.00,DEBIT_CARD,92.00,\n"
	lines, err := (&ChaseParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "chase_20250103_COFFEE", lines[0].ExternalID)
	assert.Equal(t, "chase_20250103_COFFEE_2", lines[1].ExternalID)
	assert.Equal(t, "chase_20250103_COFFEE_3", lines[2].ExternalID)
}

func TestChaseParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad date", "DEBIT,NOTADATE,desc,-4.00,ACH_DEBIT,100.00,\n", "parsing date"},
		{"bad amount", "DEBIT,01/03/2025,desc,abc,ACH_DEBIT,100.00,\n", "parsing amount"},
		{"wrong field count", "DEBIT,01/03/2025,desc\n", "reading chase CSV"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&ChaseParser{}).Parse(strings.NewReader(chaseHeader + tt.row))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestChaseParser_EmptyFile(t *testing.T) {
	lines, err := (&ChaseParser{}).Parse(strings.NewReader(chaseHeader))
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestGenericParser_Parse(t *testing.T) {
	f, err := os.Open("testdata/generic.csv")
	require.NoError(t, err)
	defer f.Close()

	lines, err := (&GenericParser{}).Parse(f)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, "500000.00", lines[0].Amount.StringFixed(2))
	assert.Equal(t, "Kampala Traders Ltd", lines[0].Payee)
	assert.Equal(t, "INV-1042", lines[0].ReferenceNo)
	assert.Equal(t, 1, lines[0].Date.Day())

	assert.Equal(t, "-1200.00", lines[1].Amount.StringFixed(2))
	assert.Equal(t, "-15.50", lines[2].Amount.StringFixed(2))

	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l.ExternalID, "csv_"))
	}
	assert.NotEqual(t, lines[1].ExternalID, lines[2].ExternalID)
}

func TestGenericParser_StableIDs(t *testing.T) {
	csv := "date,amount,description\n2025-03-01,10.00,x\n2025-03-01,10.00,x\n"
	a, err := (&GenericParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	b, err := (&GenericParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, a, 2)
	assert.Equal(t, a[0].ExternalID, b[0].ExternalID)
	assert.Equal(t, a[0].ExternalID+"_2", a[1].ExternalID)
}

func TestGenericParser_Options(t *testing.T) {
	csv := "Value Date,Narration,Amount,Transaction ID\n15/03/2025,Fuel,(42.10),T-9\n"
	lines, err := (&GenericParser{DateFormat: "02/01/2006"}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "-42.10", lines[0].Amount.StringFixed(2))
	assert.Equal(t, "Fuel", lines[0].Description)
	assert.Equal(t, "T-9", lines[0].ExternalID)
	assert.Equal(t, 15, lines[0].Date.Day())
}

func TestGenericParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"no date column", "amount\n1.00\n", "no date column"},
		{"no amount column", "date,description\n2025-01-01,x\n", "amount column"},
		{"bad date", "date,amount\n01/01/2025,1.00\n", "row 2: parsing date"},
		{"bad amount", "date,amount\n2025-01-01,one\n", "row 2: parsing amount"},
		{"zero amount", "date,amount\n2025-01-01,0\n", "amount is zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&GenericParser{}).Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("chase"))
	assert.NotNil(t, r.Get("CSV"))
	assert.Nil(t, r.Get("ofx"))
	assert.Equal(t, []string{"chase", "csv"}, r.Formats())
	assert.Panics(t, func() { r.Register(&ChaseParser{}) })
}

func TestRegistry_ParseFile(t *testing.T) {
	r := DefaultRegistry()
	lines, err := r.ParseFile("chase", "testdata/chase_checking.csv")
	require.NoError(t, err)
	assert.Len(t, lines, 6)

	_, err = r.ParseFile("ofx", "testdata/chase_checking.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: chase, csv")
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chase.csv"), []byte("a,b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, processedDir), 0o755))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "chase.csv", files[0].Name)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jan.csv"), []byte("x"), 0o644))

	require.NoError(t, MarkProcessed(dir, "jan.csv"))

	_, err := os.Stat(filepath.Join(dir, "jan.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, processedDir, "jan.csv"))
	assert.NoError(t, err)
}
