// ABOUTME: SQLite implementation of the version Store using modernc.org/sqlite
// ABOUTME: Keeps the singleton record and its ordered changelog in two tables

package versionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/sitever/internal/semver"
)

// SQLiteStore implements Store on top of SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "versionstore")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
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
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite version store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS version_record (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			version      TEXT NOT NULL,
			release_date TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS changelog (
			position     INTEGER PRIMARY KEY,
			version      TEXT NOT NULL,
			date         TEXT NOT NULL,
			type         TEXT NOT NULL,
			description  TEXT NOT NULL,
			changes_json TEXT NOT NULL DEFAULT '[]'
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (*Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT version, release_date FROM version_record WHERE id = 1`,
	).Scan(&rec.Version, &rec.ReleaseDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no version record", ErrUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying version record: %v", ErrUnavailable, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT version, date, type, description, changes_json
		FROM changelog
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying changelog: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	rec.Changelog = []ChangelogEntry{}
	for rows.Next() {
		var e ChangelogEntry
		var kind, changesJSON string
		if err := rows.Scan(&e.Version, &e.Date, &kind, &e.Description, &changesJSON); err != nil {
			return nil, fmt.Errorf("%w: scanning changelog: %v", ErrUnavailable, err)
		}
		e.Type = semver.Kind(kind)
		if err := json.Unmarshal([]byte(changesJSON), &e.Changes); err != nil {
			return nil, fmt.Errorf("%w: decoding changes for %s: %v", ErrUnavailable, e.Version, err)
		}
		rec.Changelog = append(rec.Changelog, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating changelog: %v", ErrUnavailable, err)
	}

	rec.normalize()
	return &rec, nil
}

// Save implements Store. The record and changelog are replaced in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO version_record (id, version, release_date, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			release_date = excluded.release_date,
			updated_at = excluded.updated_at
	`, rec.Version, rec.ReleaseDate, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving version record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM changelog`); err != nil {
		return fmt.Errorf("clearing changelog: %w", err)
	}

	for i, e := range rec.Changelog {
		changes := e.Changes
		if changes == nil {
			changes = []string{}
		}
		changesJSON, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("encoding changes for %s: %w", e.Version, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO changelog (position, version, date, type, description, changes_json)
			VALUES (?, ?, ?, ?, ?, ?)
		`, i, e.Version, e.Date, string(e.Type), e.Description, string(changesJSON))
		if err != nil {
			return fmt.Errorf("saving changelog entry %s: %w", e.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing version record: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
