package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every start; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_reputation (
		id      BIGSERIAL PRIMARY KEY,
		address TEXT NOT NULL UNIQUE,
		score   DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS payment_receipts (
		id               BIGSERIAL PRIMARY KEY,
		tx_hash          TEXT NOT NULL UNIQUE,
		payer_address    TEXT NOT NULL,
		merchant_address TEXT NOT NULL,
		amount           BIGINT NOT NULL CHECK (amount >= 0),
		asset_id         TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS payment_receipts_payer_idx ON payment_receipts (payer_address)`,
	`CREATE INDEX IF NOT EXISTS payment_receipts_merchant_idx ON payment_receipts (merchant_address)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id               BIGSERIAL PRIMARY KEY,
		invoice_id       TEXT NOT NULL UNIQUE,
		merchant_address TEXT NOT NULL,
		customer_address TEXT,
		amount           BIGINT NOT NULL CHECK (amount >= 0),
		description      TEXT,
		status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'paid', 'cancelled')),
		asset_id         TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS invoices_merchant_idx ON invoices (merchant_address)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id                 BIGSERIAL PRIMARY KEY,
		name               TEXT NOT NULL,
		api_key            TEXT NOT NULL UNIQUE,
		owner_address      TEXT,
		reputation_address TEXT,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS agent_payments (
		id               BIGSERIAL PRIMARY KEY,
		agent_id         BIGINT NOT NULL,
		merchant_address TEXT NOT NULL,
		amount           BIGINT NOT NULL CHECK (amount >= 0),
		tx_hash          TEXT,
		asset_id         TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS agent_payments_agent_idx ON agent_payments (agent_id)`,
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

// Reset drops every ledger table. Only the seeder calls it.
func Reset(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		"DROP TABLE IF EXISTS agent_payments, agents, invoices, payment_receipts, user_reputation")
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	return nil
}
