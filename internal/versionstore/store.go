// ABOUTME: Version record model and the Store interface for its persistence
// ABOUTME: Defines VersionRecord, ChangelogEntry and the StoreUnavailable error

package versionstore

import (
	"context"
	"errors"
	"time"

	"github.com/2389/sitever/internal/semver"
)

// ErrUnavailable is returned when the version record cannot be read or parsed.
var ErrUnavailable = errors.New("version store unavailable")

// ISOTimeFormat matches the millisecond ISO-8601 timestamps written into
// changelog entries (e.g. 2025-01-02T15:04:05.000Z).
const ISOTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ReleaseDateFormat is the layout of Record.ReleaseDate.
const ReleaseDateFormat = "2006-01-02"

// ChangelogEntry describes a single published bump.
type ChangelogEntry struct {
	Version     string      `json:"version"`
	Date        string      `json:"date"`
	Type        semver.Kind `json:"type"`
	Description string      `json:"description"`
	Changes     []string    `json:"changes"`
}

// Record is the singleton describing the currently published site version.
// It is replaced wholesale on every bump.
type Record struct {
	Version     string           `json:"version"`
	ReleaseDate string           `json:"releaseDate"`
	Changelog   []ChangelogEntry `json:"changelog,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Version: r.Version, ReleaseDate: r.ReleaseDate}
	if r.Changelog != nil {
		out.Changelog = make([]ChangelogEntry, len(r.Changelog))
		for i, e := range r.Changelog {
			e.Changes = append([]string{}, e.Changes...)
			out.Changelog[i] = e
		}
	}
	return out
}

// normalize makes every changelog entry serialize its changes as an array.
func (r *Record) normalize() {
	for i := range r.Changelog {
		if r.Changelog[i].Changes == nil {
			r.Changelog[i].Changes = []string{}
		}
	}
}

// NewRecord returns an initial record for version released at now.
func NewRecord(version string, now time.Time) *Record {
	return &Record{
		Version:     version,
		ReleaseDate: now.UTC().Format(ReleaseDateFormat),
		Changelog:   []ChangelogEntry{},
	}
}

// Store persists the version record.
type Store interface {
	// Load returns the current record. Errors wrap ErrUnavailable.
	Load(ctx context.Context) (*Record, error)
	// Save replaces the current record.
	Save(ctx context.Context, rec *Record) error
	Close() error
}
