// ABOUTME: Test doubles for every monitor collaborator plus a manual clock
// ABOUTME: The manual clock fires scheduled tasks in deadline order when advanced

package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/sitever/internal/client"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// manualClock implements Scheduler; time only moves on Advance.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, firing due tasks one at a time, including
// tasks scheduled by tasks that fire along the way.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*manualTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of tasks that have not fired or been stopped.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeChecker struct {
	result *client.CheckResult
	err    error
	calls  atomic.Int32
	mu     sync.Mutex
	sent   []string
}

func (f *fakeChecker) CheckVersion(_ context.Context, clientVersion string) (*client.CheckResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.sent = append(f.sent, clientVersion)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.ClientVersion = clientVersion
	return &res, nil
}

func updateTo(latest string) *fakeChecker {
	return &fakeChecker{result: &client.CheckResult{
		Success:         true,
		LatestVersion:   latest,
		UpdateAvailable: true,
		Message:         "New version available",
	}}
}

func upToDate(latest string) *fakeChecker {
	return &fakeChecker{result: &client.CheckResult{
		Success:       true,
		LatestVersion: latest,
		Message:       "Your version is up to date",
	}}
}

type memStorage struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newMemStorage(kv ...string) *memStorage {
	s := &memStorage{values: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = kv[i+1]
	}
	return s
}

func (s *memStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memStorage) value(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

type fakePrompt struct {
	mu         sync.Mutex
	shown      int
	from, to   string
	onAccept   func()
	onDismiss  func()
	hidden     int
	countdowns []int
	// onHide runs after Hide records the call.
	onHide func()
}

func (p *fakePrompt) ShowUpdatePrompt(from, to string, onAccept, onDismiss func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown++
	p.from, p.to = from, to
	p.onAccept, p.onDismiss = onAccept, onDismiss
}

func (p *fakePrompt) Hide() {
	p.mu.Lock()
	p.hidden++
	hook := p.onHide
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (p *fakePrompt) Countdown(secondsLeft int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.countdowns = append(p.countdowns, secondsLeft)
}

func (p *fakePrompt) accept() {
	p.mu.Lock()
	f := p.onAccept
	p.mu.Unlock()
	f()
}

func (p *fakePrompt) dismiss() {
	p.mu.Lock()
	f := p.onDismiss
	p.mu.Unlock()
	f()
}

func (p *fakePrompt) snapshot() (shown, hidden int, countdowns []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown, p.hidden, append([]int(nil), p.countdowns...)
}

type fakePage struct {
	reloads     atomic.Int32
	bustFetches atomic.Int32
	bustErr     error
}

func (p *fakePage) BustFetch(context.Context) error {
	p.bustFetches.Add(1)
	return p.bustErr
}

func (p *fakePage) Reload() { p.reloads.Add(1) }

type fakeCaches struct {
	mu       sync.Mutex
	names    []string
	failing  map[string]bool
	attempts map[string]int
	keysErr  error
}

func newFakeCaches(names ...string) *fakeCaches {
	return &fakeCaches{names: names, failing: map[string]bool{}, attempts: map[string]int{}}
}

func (c *fakeCaches) Keys(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keysErr != nil {
		return nil, c.keysErr
	}
	return append([]string(nil), c.names...), nil
}

func (c *fakeCaches) Delete(_ context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[name]++
	if c.failing[name] {
		return false, errors.New("locked")
	}
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (c *fakeCaches) remaining() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

type fakeRegistration struct {
	scope   string
	err     error
	updates atomic.Int32
}

func (r *fakeRegistration) Scope() string { return r.scope }

func (r *fakeRegistration) Update(context.Context) error {
	r.updates.Add(1)
	return r.err
}

type fakeRegistry struct {
	regs []*fakeRegistration
	err  error
}

func (r *fakeRegistry) Registrations(context.Context) ([]Registration, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Registration, len(r.regs))
	for i, reg := range r.regs {
		out[i] = reg
	}
	return out, nil
}
