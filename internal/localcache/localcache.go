// Package localcache persists JSON snapshots of the in-memory state to a
// local SQLite file. The cache is what makes the portal local-first: on
// startup a warm cache replaces the initial bulk fetch from the remote store.
package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/nagrik-gov/portal/internal/shared/errors"
)

// Well-known document keys.
const (
	DocReports       = "reports"
	DocNotifications = "notifications"
	DocGeocodePrefix = "geocode:"
)

// Cache is a key to JSON document store backed by SQLite.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache file and ensures the schema exists.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrap(err, "opening local cache")
	}

	// A single writer is enough for a snapshot cache and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS documents (
		key        TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "creating cache schema")
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Save marshals v and upserts it under key.
func (c *Cache) Save(ctx context.Context, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, "encoding cache document")
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(body), time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "saving cache document")
	}
	return nil
}

// Load unmarshals the document under key into v. It returns (false, nil) when
// the key has never been written.
func (c *Cache) Load(ctx context.Context, key string, v interface{}) (bool, error) {
	var body string
	err := c.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE key = ?`, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, "loading cache document")
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return false, apperrors.Wrap(err, "decoding cache document")
	}
	return true, nil
}

// Delete removes the document under key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return apperrors.Wrap(err, "deleting cache document")
	}
	return nil
}
