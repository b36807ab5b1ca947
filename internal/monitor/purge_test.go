// ABOUTME: Tests for the cache purge sequence
// ABOUTME: Verifies every cache and worker is attempted even when some fail

package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurge_AttemptsEverythingDespiteFailures(t *testing.T) {
	caches := newFakeCaches("assets-v1", "images-v1", "api-v1")
	caches.failing["images-v1"] = true

	good := &fakeRegistration{scope: "/"}
	bad := &fakeRegistration{scope: "/app/", err: errors.New("script fetch failed")}
	registry := &fakeRegistry{regs: []*fakeRegistration{good, bad}}

	p := NewPurger(caches, registry, discardLogger())
	report := p.Purge(context.Background())

	assert.Equal(t, PurgeReport{
		CachesDeleted:  2,
		CachesFailed:   1,
		WorkersUpdated: 1,
		WorkersFailed:  1,
	}, report)

	for _, name := range []string{"assets-v1", "images-v1", "api-v1"} {
		assert.Equal(t, 1, caches.attempts[name], "cache %s should be attempted once", name)
	}
	assert.Equal(t, int32(1), good.updates.Load())
	assert.Equal(t, int32(1), bad.updates.Load())
	assert.Equal(t, []string{"images-v1"}, caches.remaining())
}

func TestPurge_NilCapabilitiesSkipped(t *testing.T) {
	p := NewPurger(nil, nil, discardLogger())
	assert.Equal(t, PurgeReport{}, p.Purge(context.Background()))
}

func TestPurge_CacheListingFailureStillUpdatesWorkers(t *testing.T) {
	caches := newFakeCaches()
	caches.keysErr = errors.New("storage unavailable")
	reg := &fakeRegistration{scope: "/"}

	p := NewPurger(caches, &fakeRegistry{regs: []*fakeRegistration{reg}}, discardLogger())
	report := p.Purge(context.Background())

	assert.Equal(t, 0, report.CachesDeleted)
	assert.Equal(t, 1, report.WorkersUpdated)
	assert.Equal(t, int32(1), reg.updates.Load())
}

func TestPurge_RegistryFailureStillDeletesCaches(t *testing.T) {
	caches := newFakeCaches("a", "b")

	p := NewPurger(caches, &fakeRegistry{err: errors.New("registry closed")}, discardLogger())
	report := p.Purge(context.Background())

	assert.Equal(t, 2, report.CachesDeleted)
	assert.Empty(t, caches.remaining())
}

func TestPurge_Idempotent(t *testing.T) {
	caches := newFakeCaches("a")
	p := NewPurger(caches, nil, discardLogger())

	first := p.Purge(context.Background())
	second := p.Purge(context.Background())

	assert.Equal(t, 1, first.CachesDeleted)
	assert.Equal(t, 0, second.CachesDeleted)
	assert.Equal(t, 0, second.CachesFailed)
}
