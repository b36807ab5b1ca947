// ABOUTME: Tests for the bump, init and changelog command helpers
// ABOUTME: Drives argument and menu modes against in-memory and file stores

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sitever/internal/config"
	"github.com/2389/sitever/internal/semver"
	"github.com/2389/sitever/internal/versionstore"
)

var bumpTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestBump_ArgumentMode(t *testing.T) {
	store := versionstore.NewMockStore(versionstore.NewRecord("1.2.9", bumpTime))
	var out bytes.Buffer

	err := bump(context.Background(), store, []string{"minor", "New", "pricing", "page"}, strings.NewReader(""), &out, bumpTime)
	require.NoError(t, err)

	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", rec.Version)
	require.Len(t, rec.Changelog, 1)
	assert.Equal(t, "New pricing page", rec.Changelog[0].Description)
	assert.Equal(t, semver.KindMinor, rec.Changelog[0].Type)

	assert.Contains(t, out.String(), "1.2.9 → 1.3.0")
	assert.Contains(t, out.String(), "Description: New pricing page")
	assert.Contains(t, out.String(), "Date: 2025-03-01")
}

func TestBump_ArgumentModeRejectsUnknownKind(t *testing.T) {
	store := versionstore.NewMockStore(versionstore.NewRecord("1.0.0", bumpTime))

	err := bump(context.Background(), store, []string{"huge"}, strings.NewReader(""), &bytes.Buffer{}, bumpTime)
	assert.ErrorIs(t, err, semver.ErrInvalidKind)
	assert.Equal(t, 0, store.SaveCalls())
}

func TestBump_MenuMode(t *testing.T) {
	tests := []struct {
		answer string
		want   string
	}{
		{"1", "1.2.10"},
		{"2", "1.3.0"},
		{"3", "2.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			store := versionstore.NewMockStore(versionstore.NewRecord("1.2.9", bumpTime))
			var out bytes.Buffer

			err := bump(context.Background(), store, nil, strings.NewReader(tt.answer+"\n\n"), &out, bumpTime)
			require.NoError(t, err)

			rec, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Version)
			assert.Equal(t, versionstore.DefaultDescription, rec.Changelog[0].Description)
			assert.Contains(t, out.String(), "Current version: 1.2.9")
		})
	}
}

func TestBump_MenuExit(t *testing.T) {
	store := versionstore.NewMockStore(versionstore.NewRecord("1.2.9", bumpTime))

	err := bump(context.Background(), store, nil, strings.NewReader("4\n"), &bytes.Buffer{}, bumpTime)
	assert.ErrorIs(t, err, errAborted)
	assert.Equal(t, 0, store.SaveCalls())
}

func TestBump_MenuInvalidOption(t *testing.T) {
	store := versionstore.NewMockStore(versionstore.NewRecord("1.2.9", bumpTime))

	err := bump(context.Background(), store, nil, strings.NewReader("9\n"), &bytes.Buffer{}, bumpTime)
	assert.Error(t, err)
	assert.Equal(t, 0, store.SaveCalls())
}

func TestSeedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "public", "version.json")
	a := initAnswers{StoreDriver: versionstore.DriverFile, StorePath: path, InitialVersion: "1.0"}

	seeded, err := seedStore(ctx, a, bumpTime)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = seedStore(ctx, a, bumpTime)
	require.NoError(t, err)
	assert.False(t, seeded, "existing record is kept")

	store, err := versionstore.NewFileStore(path, versionstore.FileOptions{})
	require.NoError(t, err)
	rec, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", rec.Version)
	assert.Equal(t, "2025-03-01", rec.ReleaseDate)
}

func TestRenderServerConfig_Loads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	a := initAnswers{
		HTTPAddr:    "localhost:3000",
		StaticDir:   "public",
		StoreDriver: versionstore.DriverFile,
		StorePath:   "public/version.json",
		StoreWatch:  true,
		LogLevel:    "info",
		LogFormat:   "text",
	}
	require.NoError(t, writeFile(path, renderServerConfig(a)))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", cfg.Server.HTTPAddr)
	assert.True(t, cfg.Store.Watch)
	assert.Equal(t, config.DefaultAllowedOrigins, cfg.CORS.AllowedOrigins)
}

func TestPrintChangelog(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var out bytes.Buffer
	printChangelog(&out, nil)
	assert.Contains(t, out.String(), "No releases recorded yet.")

	out.Reset()
	printChangelog(&out, []versionstore.ChangelogEntry{{
		Version: "1.3.0", Date: "2025-03-01T10:00:00.000Z", Type: semver.KindMinor,
		Description: "Pricing", Changes: []string{"plans table"},
	}})
	assert.Contains(t, out.String(), "1.3.0 [minor]")
	assert.Contains(t, out.String(), "  - plans table")
}
