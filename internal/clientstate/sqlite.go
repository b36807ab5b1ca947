// ABOUTME: SQLite database holding durable client state for sitever-check
// ABOUTME: Key-value pairs partitioned by origin plus installed worker registrations

package clientstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a worker registration does not exist.
var ErrNotFound = errors.New("not found")

// DB is the client state database.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and if needed creates) the state database at path.
func Open(path string) (*DB, error) {
	logger := slog.Default().With("component", "clientstate")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(10000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	d := &DB{db: db, logger: logger}
	if err := d.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("client state opened", "path", path)
	return d, nil
}

func (d *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			origin     TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (origin, key)
		);

		CREATE TABLE IF NOT EXISTS worker_registrations (
			origin        TEXT NOT NULL,
			scope         TEXT NOT NULL,
			script_url    TEXT NOT NULL,
			script_sha256 TEXT NOT NULL DEFAULT '',
			fetched_at    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (origin, scope)
		);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Origin returns the key-value view for one origin.
func (d *DB) Origin(origin string) *Store {
	return &Store{db: d, origin: origin}
}

// OriginOf returns scheme://host[:port] of rawURL.
func OriginOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url has no origin: %q", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Store is durable key-value storage scoped to a single origin.
type Store struct {
	db     *DB
	origin string
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE origin = ? AND key = ?`, s.origin, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO kv (origin, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (origin, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.origin, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.db.ExecContext(ctx,
		`DELETE FROM kv WHERE origin = ? AND key = ?`, s.origin, key,
	); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// All returns every key-value pair for the origin.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE origin = ? ORDER BY key`, s.origin)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// WorkerRecord is a persisted worker registration.
type WorkerRecord struct {
	Origin       string
	Scope        string
	ScriptURL    string
	ScriptSHA256 string
	FetchedAt    time.Time // zero until the script is first fetched
}

// PutWorker registers (or re-registers) a worker for origin and scope.
// Re-registering with a different script URL clears the recorded fetch.
func (d *DB) PutWorker(ctx context.Context, rec WorkerRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO worker_registrations (origin, scope, script_url) VALUES (?, ?, ?)
		ON CONFLICT (origin, scope) DO UPDATE SET
			script_url    = excluded.script_url,
			script_sha256 = CASE WHEN script_url = excluded.script_url THEN script_sha256 ELSE '' END,
			fetched_at    = CASE WHEN script_url = excluded.script_url THEN fetched_at ELSE '' END
	`, rec.Origin, rec.Scope, rec.ScriptURL)
	if err != nil {
		return fmt.Errorf("registering worker: %w", err)
	}
	return nil
}

// Workers lists the registrations for origin ordered by scope.
func (d *DB) Workers(ctx context.Context, origin string) ([]WorkerRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT origin, scope, script_url, script_sha256, fetched_at
		FROM worker_registrations WHERE origin = ? ORDER BY scope
	`, origin)
	if err != nil {
		return nil, fmt.Errorf("listing workers: %w", err)
	}
	defer rows.Close()

	var out []WorkerRecord
	for rows.Next() {
		var rec WorkerRecord
		var fetchedAt string
		if err := rows.Scan(&rec.Origin, &rec.Scope, &rec.ScriptURL, &rec.ScriptSHA256, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning worker: %w", err)
		}
		if fetchedAt != "" {
			rec.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
			if err != nil {
				return nil, fmt.Errorf("parsing fetched_at: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordWorkerFetch stores the digest and time of the latest script fetch.
// Returns ErrNotFound if the registration doesn't exist.
func (d *DB) RecordWorkerFetch(ctx context.Context, origin, scope, sha256Hex string, at time.Time) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE worker_registrations SET script_sha256 = ?, fetched_at = ?
		WHERE origin = ? AND scope = ?
	`, sha256Hex, at.UTC().Format(time.RFC3339), origin, scope)
	if err != nil {
		return fmt.Errorf("recording worker fetch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorker removes a registration.
// Returns ErrNotFound if the registration doesn't exist.
func (d *DB) DeleteWorker(ctx context.Context, origin, scope string) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM worker_registrations WHERE origin = ? AND scope = ?`, origin, scope)
	if err != nil {
		return fmt.Errorf("deleting worker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
