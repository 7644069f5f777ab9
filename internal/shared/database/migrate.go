package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the remote store schema if it does not exist. The portal
// treats the remote database as a replication target, so the schema is kept
// deliberately flat: one row per report, one insert-only timeline table, and
// the directory tables backing assignment pickers.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			report_id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'Low',
			status TEXT NOT NULL DEFAULT 'Pending',
			submitted_at TIMESTAMPTZ NOT NULL,
			location_text TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			lng DOUBLE PRECISION NOT NULL DEFAULT 0,
			reporter_name TEXT NOT NULL DEFAULT 'Citizen',
			reporter_phone TEXT,
			anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			assigned_department TEXT NOT NULL DEFAULT 'Administration',
			assigned_officer_id TEXT,
			assigned_officer_name TEXT NOT NULL DEFAULT 'Unassigned'
		)`,
		`CREATE TABLE IF NOT EXISTS report_timeline (
			id BIGSERIAL PRIMARY KEY,
			report_id TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_timeline_report_id
			ON report_timeline (report_id, at)`,
		`CREATE TABLE IF NOT EXISTS departments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			ward TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS officers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			department TEXT NOT NULL,
			phone TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_officers_department
			ON officers (department)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
