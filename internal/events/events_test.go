package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		Type:           TransactionPosted,
		OrganizationID: "org-1",
		TransactionID:  "t-1",
		Status:         "POSTED",
		OccurredAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Entries: []Entry{
			{AccountID: "cash", EntryType: "DEBIT", AmountInBase: decimal.RequireFromString("1000000.00")},
			{AccountID: "capital", EntryType: "CREDIT", AmountInBase: decimal.RequireFromString("1000000.00")},
		},
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "transaction.posted", decoded["type"])
	assert.Equal(t, "org-1", decoded["organization_id"])
	entries := decoded["entries"].([]any)
	assert.Equal(t, "1000000", entries[0].(map[string]any)["amount_in_base"])
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Contains(t, buf.String(), "transaction_id=t-1")
	assert.Contains(t, buf.String(), "entries=2")
}

func TestRecorderAndNop(t *testing.T) {
	r := &Recorder{}
	var p Publisher = r
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Len(t, r.Events(), 1)

	assert.NoError(t, Nop{}.Publish(context.Background(), sampleEvent()))
}

type failing struct{}

func (failing) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	require.NoError(t, Multi{a, b}.Publish(context.Background(), sampleEvent()))
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)

	err := Multi{failing{}, a}.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, a.Events(), 2, "later publishers still run")
}

func TestNewKafkaPublisher_DefaultTopic(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Equal(t, DefaultTopic, p.writer.Topic)
	assert.NoError(t, p.Close())
}
