package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the DDL for the subscriptions table. Every statement is
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL,
	subscribed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS subscriptions_email_idx ON subscriptions (email);
`

// EnsureSchema creates the subscriptions table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
