package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRowRoundTrip(t *testing.T) {
	rows := []Row{
		{Group: "J1", Date: date(2025, 3, 1), AccountCode: "1000", Description: "Capital, initial", Debit: dec("1000000")},
		{Group: "J1", Date: date(2025, 3, 1), AccountCode: "3000", Description: "Capital, initial", Credit: dec("1000000")},
		{Group: "J2", Date: date(2025, 3, 2), AccountCode: "1020", Debit: dec("100.50"), Currency: "USD", ExchangeRate: dec("3700.25")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))

	got, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range rows {
		assert.Equal(t, rows[i].Group, got[i].Group)
		assert.True(t, rows[i].Date.Equal(got[i].Date))
		assert.Equal(t, rows[i].AccountCode, got[i].AccountCode)
		assert.Equal(t, rows[i].Description, got[i].Description)
		assert.True(t, rows[i].Debit.Equal(got[i].Debit), "row %d debit", i)
		assert.True(t, rows[i].Credit.Equal(got[i].Credit), "row %d credit", i)
		assert.Equal(t, rows[i].Currency, got[i].Currency)
		assert.True(t, rows[i].ExchangeRate.Equal(got[i].ExchangeRate), "row %d rate", i)
	}
}

func TestUnmarshalRow_Normalizes(t *testing.T) {
	row, err := UnmarshalRow([]string{" J1 ", "2025-03-01", " 6010 ", "Rent", "1,250,000.00", "", "ugx", ""})
	require.NoError(t, err)
	assert.Equal(t, "J1", row.Group)
	assert.Equal(t, "6010", row.AccountCode)
	assert.Equal(t, "1250000", row.Debit.String())
	assert.Equal(t, "UGX", row.Currency)
	assert.True(t, row.ExchangeRate.IsZero())
}

func TestUnmarshalRow_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
		want   string
	}{
		{"bad date", []string{"J1", "01/03/2025", "1000", "", "1", "", "", ""}, "parsing date"},
		{"bad debit", []string{"J1", "2025-03-01", "1000", "", "abc", "", "", ""}, "parsing debit"},
		{"bad credit", []string{"J1", "2025-03-01", "1000", "", "", "1.2.3", "", ""}, "parsing credit"},
		{"bad rate", []string{"J1", "2025-03-01", "1000", "", "1", "", "USD", "x"}, "parsing exchange_rate"},
		{"short", []string{"J1", "2025-03-01"}, "expected 8 fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRow(tt.record)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadRows_ReportsLine(t *testing.T) {
	in := Header + "\nJ1,2025-03-01,1000,,10,,,\nJ1,bad,3000,,,10,,\n"
	_, err := ReadRows(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestReadRows_Empty(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, rows)
}
