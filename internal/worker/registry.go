// ABOUTME: Background worker registrations for a site and their script refresh
// ABOUTME: Update re-fetches the worker script bypassing caches and records its digest

package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/2389/sitever/internal/clientstate"
	"github.com/2389/sitever/internal/monitor"
)

// Store persists registrations.
type Store interface {
	Workers(ctx context.Context, origin string) ([]clientstate.WorkerRecord, error)
	PutWorker(ctx context.Context, rec clientstate.WorkerRecord) error
	RecordWorkerFetch(ctx context.Context, origin, scope, sha256Hex string, at time.Time) error
	DeleteWorker(ctx context.Context, origin, scope string) error
}

// Registry manages the worker registrations of one origin.
type Registry struct {
	store  Store
	origin string
	http   *http.Client
	now    func() time.Time
	logger *slog.Logger
}

// NewRegistry creates a registry for origin. A nil http.Client uses
// http.DefaultClient.
func NewRegistry(store Store, origin string, hc *http.Client, logger *slog.Logger) *Registry {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		origin: origin,
		http:   hc,
		now:    time.Now,
		logger: logger.With("component", "worker", "origin", origin),
	}
}

// Register installs a worker for scope. scriptURL may be relative to the
// origin. The script is fetched once so the registration starts with a digest.
func (r *Registry) Register(ctx context.Context, scope, scriptURL string) (*Registration, error) {
	base, err := url.Parse(r.origin + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing origin: %w", err)
	}
	ref, err := url.Parse(scriptURL)
	if err != nil {
		return nil, fmt.Errorf("parsing script url: %w", err)
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme+"://"+abs.Host != r.origin {
		return nil, fmt.Errorf("script %s is not on origin %s", abs, r.origin)
	}

	rec := clientstate.WorkerRecord{Origin: r.origin, Scope: scope, ScriptURL: abs.String()}
	if err := r.store.PutWorker(ctx, rec); err != nil {
		return nil, err
	}

	reg := &Registration{registry: r, rec: rec}
	if err := reg.Update(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

// Unregister removes the worker for scope. Removing a scope with no worker
// is not an error.
func (r *Registry) Unregister(ctx context.Context, scope string) error {
	err := r.store.DeleteWorker(ctx, r.origin, scope)
	if errors.Is(err, clientstate.ErrNotFound) {
		return nil
	}
	if err == nil {
		r.logger.Info("worker unregistered", "scope", scope)
	}
	return err
}

// List returns the installed workers.
func (r *Registry) List(ctx context.Context) ([]*Registration, error) {
	recs, err := r.store.Workers(ctx, r.origin)
	if err != nil {
		return nil, err
	}
	out := make([]*Registration, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &Registration{registry: r, rec: rec})
	}
	return out, nil
}

// Registrations implements monitor.WorkerRegistry.
func (r *Registry) Registrations(ctx context.Context) ([]monitor.Registration, error) {
	regs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]monitor.Registration, len(regs))
	for i, reg := range regs {
		out[i] = reg
	}
	return out, nil
}

// Registration is one installed worker.
type Registration struct {
	registry *Registry
	rec      clientstate.WorkerRecord
}

// Scope returns the URL scope the worker controls.
func (g *Registration) Scope() string { return g.rec.Scope }

// ScriptURL returns the absolute URL of the worker script.
func (g *Registration) ScriptURL() string { return g.rec.ScriptURL }

// Digest returns the hex SHA-256 of the last fetched script.
func (g *Registration) Digest() string { return g.rec.ScriptSHA256 }

// Update re-fetches the worker script with Cache-Control: no-cache and
// records its digest and fetch time.
func (g *Registration) Update(ctx context.Context) error {
	r := g.registry

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.rec.ScriptURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Service-Worker", "script")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching worker script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching worker script: status %d", resp.StatusCode)
	}

	h := sha256.New()
	if _, err := io.Copy(h, resp.Body); err != nil {
		return fmt.Errorf("reading worker script: %w", err)
	}
	digest := hex.EncodeToString(h.Sum(nil))

	if err := r.store.RecordWorkerFetch(ctx, g.rec.Origin, g.rec.Scope, digest, r.now()); err != nil {
		return err
	}

	if g.rec.ScriptSHA256 != "" && g.rec.ScriptSHA256 != digest {
		r.logger.Info("worker script changed", "scope", g.rec.Scope, "sha256", digest)
	}
	g.rec.ScriptSHA256 = digest
	return nil
}
