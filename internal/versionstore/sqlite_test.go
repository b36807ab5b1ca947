// ABOUTME: Tests for the SQLite version store
// ABOUTME: Covers empty databases, round-trips, and wholesale replacement of the changelog

package versionstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "version.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "version.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSQLiteStore_LoadEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := &Record{
		Version:     "1.4.2",
		ReleaseDate: "2025-05-05",
		Changelog: []ChangelogEntry{
			{Version: "1.4.2", Date: "2025-05-05T08:00:00.000Z", Type: "patch", Description: "Typo", Changes: []string{"footer"}},
			{Version: "1.4.1", Date: "2025-05-01T08:00:00.000Z", Type: "patch", Description: "Links"},
		},
	}
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", got.Version)
	assert.Equal(t, "2025-05-05", got.ReleaseDate)
	require.Len(t, got.Changelog, 2)
	assert.Equal(t, "1.4.2", got.Changelog[0].Version, "order must be preserved")
	assert.Equal(t, []string{"footer"}, got.Changelog[0].Changes)
	assert.Equal(t, []string{}, got.Changelog[1].Changes)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Record{
		Version:     "1.0.0",
		ReleaseDate: "2025-01-01",
		Changelog:   []ChangelogEntry{{Version: "1.0.0", Type: "major"}, {Version: "0.9.0", Type: "minor"}},
	}))
	require.NoError(t, s.Save(ctx, &Record{Version: "1.0.1", ReleaseDate: "2025-01-02"}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", got.Version)
	assert.Empty(t, got.Changelog)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", "whatever", false, nil)
	assert.Error(t, err)
}
