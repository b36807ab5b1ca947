// ABOUTME: Cache purge sequence run when a newer site version is detected
// ABOUTME: Deletes every named cache and refreshes every worker registration concurrently

package monitor

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// purgeConcurrency bounds per-item fan-out inside each purge step.
const purgeConcurrency = 4

// CacheStorage is a set of named asset caches.
type CacheStorage interface {
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// Registration is one installed background worker.
type Registration interface {
	Scope() string
	// Update asks the worker to re-fetch its script.
	Update(ctx context.Context) error
}

// WorkerRegistry lists installed background workers.
type WorkerRegistry interface {
	Registrations(ctx context.Context) ([]Registration, error)
}

// PurgeReport counts what a purge attempted.
type PurgeReport struct {
	CachesDeleted  int
	CachesFailed   int
	WorkersUpdated int
	WorkersFailed  int
}

// Purger clears client-side caches. A nil CacheStorage or WorkerRegistry
// means the capability is unavailable; that step is skipped silently.
type Purger struct {
	caches  CacheStorage
	workers WorkerRegistry
	logger  *slog.Logger
}

// NewPurger creates a purger over the given capabilities.
func NewPurger(caches CacheStorage, workers WorkerRegistry, logger *slog.Logger) *Purger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{
		caches:  caches,
		workers: workers,
		logger:  logger.With("component", "purge"),
	}
}

// Purge deletes every named cache and requests an update of every worker
// registration. Every item is attempted even when others fail. Failures are
// logged and counted in the report, never returned.
func (p *Purger) Purge(ctx context.Context) PurgeReport {
	var (
		mu     sync.Mutex
		report PurgeReport
		g      errgroup.Group
	)

	if p.caches != nil {
		g.Go(func() error {
			deleted, failed := p.deleteCaches(ctx)
			mu.Lock()
			report.CachesDeleted, report.CachesFailed = deleted, failed
			mu.Unlock()
			return nil
		})
	}

	if p.workers != nil {
		g.Go(func() error {
			updated, failed := p.updateWorkers(ctx)
			mu.Lock()
			report.WorkersUpdated, report.WorkersFailed = updated, failed
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	p.logger.Info("caches purged",
		"caches_deleted", report.CachesDeleted,
		"caches_failed", report.CachesFailed,
		"workers_updated", report.WorkersUpdated,
		"workers_failed", report.WorkersFailed,
	)
	return report
}

func (p *Purger) deleteCaches(ctx context.Context) (deleted, failed int) {
	names, err := p.caches.Keys(ctx)
	if err != nil {
		p.logger.Error("listing caches", "error", err)
		return 0, 0
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(purgeConcurrency)

	for _, name := range names {
		g.Go(func() error {
			ok, err := p.caches.Delete(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				p.logger.Warn("deleting cache", "cache", name, "error", err)
				return nil
			}
			if ok {
				deleted++
				p.logger.Debug("cache deleted", "cache", name)
			}
			return nil
		})
	}
	_ = g.Wait()
	return deleted, failed
}

func (p *Purger) updateWorkers(ctx context.Context) (updated, failed int) {
	regs, err := p.workers.Registrations(ctx)
	if err != nil {
		p.logger.Error("listing worker registrations", "error", err)
		return 0, 0
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(purgeConcurrency)

	for _, reg := range regs {
		g.Go(func() error {
			err := reg.Update(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				p.logger.Warn("updating worker", "scope", reg.Scope(), "error", err)
				return nil
			}
			updated++
			p.logger.Debug("worker updated", "scope", reg.Scope())
			return nil
		})
	}
	_ = g.Wait()
	return updated, failed
}
