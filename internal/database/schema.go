package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the subscription tables. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account    TEXT PRIMARY KEY,
		token      UUID NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS watchers (
		category   TEXT NOT NULL,
		account    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (category, account)
	)`,
	`CREATE TABLE IF NOT EXISTS thresholds (
		id         BIGSERIAL PRIMARY KEY,
		account    TEXT NOT NULL,
		item_ids   INTEGER[] NOT NULL,
		kind       TEXT NOT NULL,
		value      BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS thresholds_account_idx ON thresholds (account)`,
}

// Migrate applies Schema in order.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
