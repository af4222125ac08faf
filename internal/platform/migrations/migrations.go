// Package migrations bootstraps the PostgreSQL schema. Statements are
// idempotent so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	// Records keep a surrogate key: clients may submit the same id more than
	// once and every submission is stored.
	`CREATE TABLE IF NOT EXISTS records (
		seq        BIGSERIAL PRIMARY KEY,
		id         TEXT NOT NULL,
		name       TEXT NOT NULL,
		date       TEXT NOT NULL,
		file_url   TEXT NOT NULL,
		payload    JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS managers (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		company_bin  TEXT NOT NULL,
		manager_id   TEXT NOT NULL,
		full_data    JSONB,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_id ON records (id)`,
	`CREATE INDEX IF NOT EXISTS idx_records_created_at ON records (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_manager_id ON orders (manager_id)`,
}

// Apply executes all schema statements in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
