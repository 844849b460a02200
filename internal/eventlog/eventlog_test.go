package eventlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
)

var testTime = time.Date(2025, 3, 5, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		OccurredAt:     testTime,
		Type:           events.TransactionPosted,
		OrganizationID: "org-1",
		TransactionID:  "txn-1",
		Reference:      "JE-000001",
		Status:         "POSTED",
		Entries:        2,
	}
}

func TestAppend_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, Append(path, []Entry{testEntry()}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))
}

func TestAppend_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Type = events.TransactionVoided
	e2.Status = "VOIDED"
	require.NoError(t, Append(path, []Entry{e2}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, events.TransactionPosted, entries[0].Type)
	assert.Equal(t, events.TransactionVoided, entries[1].Type)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
	}{
		{"short", []string{"2025-03-05T10:30:00Z", "transaction.posted"}},
		{"bad time", []string{"yesterday", "transaction.posted", "org-1", "t", "", "POSTED", "2"}},
		{"bad count", []string{"2025-03-05T10:30:00Z", "transaction.posted", "org-1", "t", "", "POSTED", "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEntry(tt.record)
			assert.Error(t, err)
		})
	}
}

func TestPublisher(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	p := NewPublisher(path)

	err := p.Publish(context.Background(), events.Event{
		Type:           events.BankMatched,
		OrganizationID: "org-1",
		TransactionID:  "txn-9",
		Status:         "POSTED",
		OccurredAt:     testTime,
		Entries:        []events.Entry{{AccountID: "a"}, {AccountID: "b"}},
	})
	require.NoError(t, err)

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, events.BankMatched, entries[0].Type)
	assert.Equal(t, 2, entries[0].Entries)
}
