package store

import (
	"context"
	"fmt"
)

// schema is portable DDL accepted by both sqlite3 and postgres. Money is
// stored as decimal TEXT except cached balances, which are integer minor
// units so they can be incremented atomically. Business dates are TEXT
// (YYYY-MM-DD).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id                   TEXT PRIMARY KEY,
		organization_id      TEXT NOT NULL,
		code                 TEXT NOT NULL,
		name                 TEXT NOT NULL,
		type                 TEXT NOT NULL,
		parent_id            TEXT REFERENCES accounts(id),
		currency             TEXT NOT NULL,
		balance_minor        BIGINT NOT NULL DEFAULT 0,
		is_system            BOOLEAN NOT NULL DEFAULT FALSE,
		is_active            BOOLEAN NOT NULL DEFAULT TRUE,
		allow_manual_journal BOOLEAN NOT NULL DEFAULT TRUE,
		description          TEXT NOT NULL DEFAULT '',
		created_at           TIMESTAMP NOT NULL,
		updated_at           TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_org_code ON accounts (organization_id, code)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id              TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		type            TEXT NOT NULL,
		date            TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL,
		branch_id       TEXT,
		metadata        TEXT NOT NULL DEFAULT '',
		is_locked       BOOLEAN NOT NULL DEFAULT FALSE,
		privileged      BOOLEAN NOT NULL DEFAULT FALSE,
		created_by      TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_org_status ON transactions (organization_id, status)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id             TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
		account_id     TEXT NOT NULL REFERENCES accounts(id),
		entry_type     TEXT NOT NULL,
		amount         TEXT NOT NULL,
		currency       TEXT NOT NULL,
		exchange_rate  TEXT NOT NULL,
		amount_in_base TEXT NOT NULL,
		branch_id      TEXT,
		description    TEXT NOT NULL DEFAULT '',
		line_no        INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_txn ON ledger_entries (transaction_id)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_account ON ledger_entries (account_id)`,

	`CREATE TABLE IF NOT EXISTS sequences (
		name    TEXT PRIMARY KEY,
		last_no BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transfers (
		id                     TEXT PRIMARY KEY,
		organization_id        TEXT NOT NULL,
		reference_number       TEXT NOT NULL,
		from_branch_id         TEXT NOT NULL,
		to_branch_id           TEXT NOT NULL,
		status                 TEXT NOT NULL,
		clearing_account_id    TEXT REFERENCES accounts(id),
		inventory_account_id   TEXT REFERENCES accounts(id),
		notes                  TEXT NOT NULL DEFAULT '',
		requested_by           TEXT NOT NULL DEFAULT '',
		approved_by            TEXT NOT NULL DEFAULT '',
		ship_transaction_id    TEXT,
		receive_transaction_id TEXT,
		created_at             TIMESTAMP NOT NULL,
		updated_at             TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS transfers_org_reference ON transfers (organization_id, reference_number)`,

	`CREATE TABLE IF NOT EXISTS transfer_items (
		id          TEXT PRIMARY KEY,
		transfer_id TEXT NOT NULL REFERENCES transfers(id) ON DELETE CASCADE,
		product_id  TEXT NOT NULL,
		quantity    TEXT NOT NULL,
		unit_cost   TEXT NOT NULL,
		line_no     INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS bank_feeds (
		id              TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name            TEXT NOT NULL,
		account_id      TEXT NOT NULL REFERENCES accounts(id),
		created_at      TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS bank_transactions (
		id                        TEXT PRIMARY KEY,
		organization_id           TEXT NOT NULL,
		feed_id                   TEXT NOT NULL REFERENCES bank_feeds(id),
		date                      TEXT NOT NULL,
		amount                    TEXT NOT NULL,
		description               TEXT NOT NULL DEFAULT '',
		payee                     TEXT NOT NULL DEFAULT '',
		reference_no              TEXT NOT NULL DEFAULT '',
		external_id               TEXT NOT NULL DEFAULT '',
		status                    TEXT NOT NULL,
		matched_document_id       TEXT,
		category_account_id       TEXT,
		settlement_transaction_id TEXT,
		created_at                TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bank_transactions_feed_external
		ON bank_transactions (feed_id, external_id) WHERE external_id <> ''`,
	`CREATE INDEX IF NOT EXISTS bank_transactions_org_status ON bank_transactions (organization_id, status)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id                TEXT PRIMARY KEY,
		organization_id   TEXT NOT NULL,
		kind              TEXT NOT NULL,
		number            TEXT NOT NULL,
		counterparty      TEXT NOT NULL DEFAULT '',
		date              TEXT NOT NULL,
		amount            TEXT NOT NULL,
		currency          TEXT NOT NULL,
		contra_account_id TEXT NOT NULL REFERENCES accounts(id),
		status            TEXT NOT NULL,
		inflow            BOOLEAN NOT NULL,
		created_at        TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS documents_org_kind_number ON documents (organization_id, kind, number)`,

	`CREATE TABLE IF NOT EXISTS categorization_rules (
		id              TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name            TEXT NOT NULL,
		pattern         TEXT NOT NULL DEFAULT '',
		merchant        TEXT NOT NULL DEFAULT '',
		account_id      TEXT NOT NULL REFERENCES accounts(id),
		priority        INTEGER NOT NULL DEFAULT 0,
		active          BOOLEAN NOT NULL DEFAULT TRUE
	)`,

	`CREATE TABLE IF NOT EXISTS reconciliations (
		id                TEXT PRIMARY KEY,
		organization_id   TEXT NOT NULL,
		account_id        TEXT NOT NULL REFERENCES accounts(id),
		statement_date    TEXT NOT NULL,
		statement_balance TEXT NOT NULL,
		book_balance      TEXT NOT NULL DEFAULT '0',
		difference        TEXT NOT NULL DEFAULT '0',
		status            TEXT NOT NULL,
		finalized_by      TEXT NOT NULL DEFAULT '',
		finalized_at      TIMESTAMP,
		created_at        TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS reconciliation_items (
		reconciliation_id TEXT NOT NULL REFERENCES reconciliations(id) ON DELETE CASCADE,
		transaction_id    TEXT NOT NULL REFERENCES transactions(id),
		PRIMARY KEY (reconciliation_id, transaction_id)
	)`,
}

// Migrate creates any missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement %d: %w", i, err)
		}
	}
	return nil
}
