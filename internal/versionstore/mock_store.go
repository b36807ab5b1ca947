// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without touching disk and to inject failures

package versionstore

import (
	"context"
	"fmt"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu        sync.RWMutex
	record    *Record
	loadErr   error
	saveErr   error
	loadCalls int
	saveCalls int
}

// NewMockStore creates a MockStore holding rec (which may be nil).
func NewMockStore(rec *Record) *MockStore {
	return &MockStore{record: rec.Clone()}
}

// SetLoadError makes every subsequent Load fail with err wrapped in ErrUnavailable.
func (m *MockStore) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetSaveError makes every subsequent Save fail with err.
func (m *MockStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// LoadCalls reports how many times Load has been called.
func (m *MockStore) LoadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCalls
}

// SaveCalls reports how many times Save has been called.
func (m *MockStore) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

// Load implements Store.
func (m *MockStore) Load(ctx context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadCalls++
	if m.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, m.loadErr)
	}
	if m.record == nil {
		return nil, fmt.Errorf("%w: no version record", ErrUnavailable)
	}
	return m.record.Clone(), nil
}

// Save implements Store.
func (m *MockStore) Save(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.record = rec.Clone()
	return nil
}

// Close implements Store.
func (m *MockStore) Close() error {
	return nil
}
