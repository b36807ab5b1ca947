// ABOUTME: Runs update sessions back to back, one per simulated page load
// ABOUTME: Wires client state, asset cache, workers, prompt and the version client into a monitor

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/2389/sitever/internal/assetcache"
	"github.com/2389/sitever/internal/client"
	"github.com/2389/sitever/internal/clientstate"
	"github.com/2389/sitever/internal/config"
	"github.com/2389/sitever/internal/monitor"
	"github.com/2389/sitever/internal/prompt"
	"github.com/2389/sitever/internal/worker"
)

// runner owns everything that outlives a single session.
type runner struct {
	cfg     monitor.Config
	checker monitor.Checker
	storage monitor.Storage
	prompt  monitor.Prompt
	purger  *monitor.Purger
	page    *httpPage
	logger  *slog.Logger

	closers []io.Closer
}

// newRunner opens client state and caches for cfg. The prompt reads answers
// from in and draws to out.
func newRunner(ctx context.Context, cfg *config.ClientConfig, hc *http.Client, in io.Reader, out io.Writer, logger *slog.Logger) (*runner, error) {
	api, err := client.New(cfg.Monitor.APIEndpoint, client.WithHTTPClient(hc))
	if err != nil {
		return nil, err
	}

	pageURL := cfg.Page.URL
	if pageURL == "" {
		pageURL = api.Origin() + "/"
	}
	origin, err := clientstate.OriginOf(pageURL)
	if err != nil {
		return nil, fmt.Errorf("page url: %w", err)
	}

	db, err := clientstate.Open(cfg.Storage.StatePath)
	if err != nil {
		return nil, fmt.Errorf("opening client state: %w", err)
	}
	r := &runner{
		cfg: monitor.Config{
			APIEndpoint:      cfg.Monitor.APIEndpoint,
			ShowNotification: cfg.Monitor.Notify(),
			AutoReloadDelay:  cfg.Monitor.AutoReloadDelay,
			ShowDelay:        cfg.Monitor.ShowDelay,
			Debug:            cfg.Monitor.Debug,
		},
		checker: api,
		storage: db.Origin(origin),
		logger:  logger,
		closers: []io.Closer{db},
	}

	// A nil *assetcache.Dir must not reach the purger as a non-nil interface.
	var caches monitor.CacheStorage
	var dir *assetcache.Dir
	if cfg.Storage.CacheDir != "" {
		dir, err = assetcache.New(cfg.Storage.CacheDir)
		if err != nil {
			r.Close()
			return nil, err
		}
		caches = dir
	}

	registry := worker.NewRegistry(db, origin, hc, logger)
	if cfg.Page.WorkerScript != "" {
		if _, err := registry.Register(ctx, "/", cfg.Page.WorkerScript); err != nil {
			logger.Warn("registering worker", "script", cfg.Page.WorkerScript, "error", err)
		}
	} else if err := registry.Unregister(ctx, "/"); err != nil {
		logger.Warn("removing stale worker", "error", err)
	}

	r.purger = monitor.NewPurger(caches, registry, logger)
	r.page = newHTTPPage(pageURL, hc, dir, logger)
	if r.cfg.ShowNotification {
		r.prompt = prompt.NewTerminal(in, out)
	}
	return r, nil
}

// Close releases the client state database.
func (r *runner) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// run starts sessions until one ends without reloading the page. With once
// set it then returns; otherwise the page stays open until ctx is done.
func (r *runner) run(ctx context.Context, once bool) error {
	for {
		reloaded, err := r.session(ctx)
		if err != nil {
			return err
		}
		if reloaded {
			r.logger.Info("page reloaded, starting new session")
			continue
		}
		if once {
			return nil
		}
		<-ctx.Done()
		return nil
	}
}

// session runs one page load and reports whether it ended in a reload.
func (r *runner) session(ctx context.Context) (bool, error) {
	if err := r.page.Load(ctx); err != nil {
		r.logger.Warn("loading page", "error", err)
	}

	m, err := monitor.New(r.cfg, monitor.Deps{
		Checker: r.checker,
		Storage: r.storage,
		Prompt:  r.prompt,
		Page:    r.page,
		Purger:  r.purger,
	}, r.logger)
	if err != nil {
		return false, err
	}
	defer m.Close()

	m.CheckForUpdates(ctx)

	select {
	case <-ctx.Done():
		return false, nil
	case <-m.Done():
	}
	m.Wait()

	if m.State() != monitor.StateReloading {
		r.logger.Info("session finished", "session", m.SessionID(), "state", m.State())
		return false, nil
	}
	select {
	case <-ctx.Done():
		return false, nil
	case <-r.page.Reloads():
		return true, nil
	}
}
