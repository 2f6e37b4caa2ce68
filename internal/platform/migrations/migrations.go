// Package migrations creates the database schema. Statements are idempotent
// so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS blood_pressure (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		entry_date DATE NOT NULL,
		systolic INTEGER NOT NULL,
		diastolic INTEGER NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS weight_entries (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		entry_date DATE NOT NULL,
		weight NUMERIC(6,2) NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS temperature_entries (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		entry_date DATE NOT NULL,
		temperature NUMERIC(4,1) NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		entry_date DATE NOT NULL,
		doc_type TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_url TEXT NOT NULL,
		file_size TEXT NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_blood_pressure_owner ON blood_pressure (user_email, entry_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_weight_entries_owner ON weight_entries (user_email, entry_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_temperature_entries_owner ON temperature_entries (user_email, entry_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents (user_email, entry_date DESC)`,
}

// Apply runs every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
