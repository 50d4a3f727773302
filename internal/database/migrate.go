package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username      VARCHAR(80)  NOT NULL UNIQUE,
		email         VARCHAR(120) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(20)  NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
		balance       INTEGER      NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id    UUID         NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
		kind          VARCHAR(20)  NOT NULL CHECK (kind IN ('topup', 'purchase', 'admin_add', 'admin_subtract')),
		amount        INTEGER      NOT NULL CHECK (amount <> 0),
		description   VARCHAR(255) NOT NULL DEFAULT '',
		balance_after INTEGER      NOT NULL,
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS topup_requests (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id     UUID        NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
		amount         INTEGER     NOT NULL CHECK (amount >= 10000),
		godcoin_amount INTEGER     NOT NULL CHECK (godcoin_amount > 0),
		method         VARCHAR(20) NOT NULL CHECK (method IN ('momo', 'bank')),
		status         VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		processed_at   TIMESTAMPTZ,
		processed_by   UUID REFERENCES accounts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_topup_requests_status ON topup_requests(status, created_at)`,
	`CREATE TABLE IF NOT EXISTS products (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name           VARCHAR(200) NOT NULL,
		description    TEXT         NOT NULL DEFAULT '',
		price          INTEGER      NOT NULL CHECK (price >= 0),
		image          VARCHAR(255),
		stock          INTEGER      NOT NULL DEFAULT 0 CHECK (stock >= 0),
		sold_count     INTEGER      NOT NULL DEFAULT 0 CHECK (sold_count >= 0),
		inventory_file VARCHAR(255),
		created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id   UUID        NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
		product_id   UUID        NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
		account_info TEXT        NOT NULL,
		price        INTEGER     NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title         VARCHAR(200) NOT NULL,
		content       TEXT         NOT NULL,
		thumbnail     VARCHAR(255),
		is_premium    BOOLEAN      NOT NULL DEFAULT FALSE,
		premium_price INTEGER      NOT NULL DEFAULT 0 CHECK (premium_price >= 0),
		author_id     UUID         NOT NULL REFERENCES accounts(id),
		views         INTEGER      NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS post_purchases (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID        NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
		post_id    UUID        NOT NULL REFERENCES posts(id) ON DELETE RESTRICT,
		price      INTEGER     NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (account_id, post_id)
	)`,
}

// Migrate creates the application tables and indexes. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	logger.Info("schema migrations applied", "statements", len(schema))
	return nil
}
