// ABOUTME: The version bump operation, the only mutator of the version record
// ABOUTME: Increments one component, stamps the release date, prepends a changelog entry

package versionstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2389/sitever/internal/semver"
)

// DefaultDescription is recorded when a bump is given no description.
const DefaultDescription = "No description"

// BumpResult reports what a bump changed.
type BumpResult struct {
	Previous string
	Record   *Record
}

// Bump loads the current record, increments it according to kind and saves
// the replacement. Nothing is written when kind is invalid.
func Bump(ctx context.Context, s Store, kind semver.Kind, description string, now time.Time) (*BumpResult, error) {
	rec, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	next, err := semver.Bump(rec.Version, kind)
	if err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = DefaultDescription
	}

	now = now.UTC()
	entry := ChangelogEntry{
		Version:     next,
		Date:        now.Format(ISOTimeFormat),
		Type:        kind,
		Description: description,
		Changes:     []string{},
	}

	updated := &Record{
		Version:     next,
		ReleaseDate: now.Format(ReleaseDateFormat),
		Changelog:   append([]ChangelogEntry{entry}, rec.Clone().Changelog...),
	}

	if err := s.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("saving bumped record: %w", err)
	}
	return &BumpResult{Previous: rec.Version, Record: updated}, nil
}
