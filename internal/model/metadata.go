package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MetadataVersion is the current version of the stored metadata layout.
const MetadataVersion = 1

// MetadataKind selects which variant of Metadata is populated.
type MetadataKind string

const (
	MetaJournal    MetadataKind = "journal"
	MetaOpening    MetadataKind = "opening"
	MetaReversal   MetadataKind = "reversal"
	MetaTransfer   MetadataKind = "transfer"
	MetaSettlement MetadataKind = "settlement"
)

// Metadata is the typed, versioned extra data carried by a transaction.
// Exactly one of the variant pointers matching Kind may be set.
type Metadata struct {
	Version      int             `json:"version"`
	Kind         MetadataKind    `json:"kind"`
	Currency     string          `json:"currency,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Reference    string          `json:"reference,omitempty"`

	Journal    *JournalMeta    `json:"journal,omitempty"`
	Reversal   *ReversalMeta   `json:"reversal,omitempty"`
	Transfer   *TransferMeta   `json:"transfer,omitempty"`
	Settlement *SettlementMeta `json:"settlement,omitempty"`
}

// JournalMeta describes a manually entered journal.
type JournalMeta struct {
	JournalType string `json:"journal_type,omitempty"`
	Source      string `json:"source,omitempty"`
}

// ReversalMeta links a reversing transaction to the one it cancels.
type ReversalMeta struct {
	OriginalID string `json:"original_id"`
	Reason     string `json:"reason,omitempty"`
}

// TransferLeg identifies which half of an inter-branch transfer was booked.
type TransferLeg string

const (
	LegShip    TransferLeg = "ship"
	LegReceive TransferLeg = "receive"
)

// TransferMeta ties a posting to an inter-branch transfer.
type TransferMeta struct {
	TransferID string      `json:"transfer_id"`
	Reference  string      `json:"reference"`
	Leg        TransferLeg `json:"leg"`
}

// SettlementMeta ties a posting to a bank transaction and what it settled.
type SettlementMeta struct {
	BankTransactionID string `json:"bank_transaction_id"`
	DocumentID        string `json:"document_id,omitempty"`
	RuleID            string `json:"rule_id,omitempty"`
}

// Validate checks that only the variant matching Kind is populated.
func (m Metadata) Validate() error {
	set := map[MetadataKind]bool{
		MetaJournal:    m.Journal != nil,
		MetaReversal:   m.Reversal != nil,
		MetaTransfer:   m.Transfer != nil,
		MetaSettlement: m.Settlement != nil,
	}
	switch m.Kind {
	case MetaJournal, MetaOpening, MetaReversal, MetaTransfer, MetaSettlement:
	default:
		return fmt.Errorf("unknown metadata kind %q", m.Kind)
	}
	for kind, present := range set {
		if present && kind != m.Kind {
			return fmt.Errorf("metadata kind %q cannot carry %s data", m.Kind, kind)
		}
	}
	if m.Kind == MetaReversal && (m.Reversal == nil || m.Reversal.OriginalID == "") {
		return fmt.Errorf("reversal metadata requires the original transaction id")
	}
	if m.Kind == MetaTransfer && (m.Transfer == nil || m.Transfer.TransferID == "") {
		return fmt.Errorf("transfer metadata requires the transfer id")
	}
	if m.Kind == MetaSettlement && (m.Settlement == nil || m.Settlement.BankTransactionID == "") {
		return fmt.Errorf("settlement metadata requires the bank transaction id")
	}
	return nil
}

// MarshalMetadata encodes m for storage, stamping the current version.
func MarshalMetadata(m Metadata) (string, error) {
	if m.Version == 0 {
		m.Version = MetadataVersion
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}
	return string(data), nil
}

// UnmarshalMetadata decodes stored metadata.
func UnmarshalMetadata(s string) (Metadata, error) {
	var m Metadata
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return m, fmt.Errorf("parsing metadata: %w", err)
	}
	if m.Version > MetadataVersion {
		return m, fmt.Errorf("metadata version %d is newer than supported %d", m.Version, MetadataVersion)
	}
	return m, nil
}
