// ABOUTME: Version service operations independent of HTTP
// ABOUTME: Reports the published version, its changelog, and whether a client is behind

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/sitever/internal/dedupe"
	"github.com/2389/sitever/internal/semver"
	"github.com/2389/sitever/internal/versionstore"
)

// ErrBadRequest is returned when the caller supplied invalid input.
var ErrBadRequest = errors.New("bad request")

// Check messages.
const (
	MessageUpdateAvailable = "New version available"
	MessageUpToDate        = "Your version is up to date"
)

// Identical store failures are logged once per window.
const (
	failureLogWindow = time.Minute
	failureLogKeys   = 256
)

// VersionInfo is the currently published version.
type VersionInfo struct {
	Version     string
	ReleaseDate string
	Timestamp   time.Time
}

// CheckResult is the outcome of comparing a client's version to the published one.
type CheckResult struct {
	ClientVersion   string
	LatestVersion   string
	UpdateAvailable bool
	Message         string
}

// Service answers version queries from the version store.
type Service struct {
	store    versionstore.Store
	now      func() time.Time
	failures *dedupe.Window
	logger   *slog.Logger
}

// NewService creates a service reading from store.
func NewService(store versionstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		now:      time.Now,
		failures: dedupe.New(failureLogWindow, failureLogKeys),
		logger:   logger.With("component", "version-service"),
	}
}

// GetVersion returns the published version and the current server time.
func (s *Service) GetVersion(ctx context.Context) (*VersionInfo, error) {
	rec, err := s.load(ctx, "get_version")
	if err != nil {
		return nil, err
	}
	return &VersionInfo{
		Version:     rec.Version,
		ReleaseDate: rec.ReleaseDate,
		Timestamp:   s.now(),
	}, nil
}

// GetChangelog returns the changelog, newest first. An absent changelog is empty.
func (s *Service) GetChangelog(ctx context.Context) ([]versionstore.ChangelogEntry, error) {
	rec, err := s.load(ctx, "get_changelog")
	if err != nil {
		return nil, err
	}
	if rec.Changelog == nil {
		return []versionstore.ChangelogEntry{}, nil
	}
	return rec.Changelog, nil
}

// CheckVersion compares clientVersion with the published version. An empty
// clientVersion is rejected before the store is read.
func (s *Service) CheckVersion(ctx context.Context, clientVersion string) (*CheckResult, error) {
	if clientVersion == "" {
		return nil, fmt.Errorf("%w: clientVersion is required", ErrBadRequest)
	}

	rec, err := s.load(ctx, "check_version")
	if err != nil {
		return nil, err
	}

	updateAvailable := semver.Compare(clientVersion, rec.Version) < 0
	msg := MessageUpToDate
	if updateAvailable {
		msg = MessageUpdateAvailable
	}

	s.logger.Debug("version checked",
		"client_version", clientVersion,
		"latest_version", rec.Version,
		"update_available", updateAvailable,
	)

	return &CheckResult{
		ClientVersion:   clientVersion,
		LatestVersion:   rec.Version,
		UpdateAvailable: updateAvailable,
		Message:         msg,
	}, nil
}

// load reads the record, logging failures at most once per window per
// operation and error text.
func (s *Service) load(ctx context.Context, op string) (*versionstore.Record, error) {
	rec, err := s.store.Load(ctx)
	if err == nil && strings.TrimSpace(rec.Version) == "" {
		err = fmt.Errorf("%w: record has no version", versionstore.ErrUnavailable)
	}
	if err == nil {
		return rec, nil
	}

	if allowed, suppressed := s.failures.Allow(op + ":" + err.Error()); allowed {
		args := []any{"op", op, "error", err}
		if suppressed > 0 {
			args = append(args, "suppressed", suppressed)
		}
		s.logger.Error("reading version store", args...)
	}
	return nil, err
}
