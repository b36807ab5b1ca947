// ABOUTME: Update monitor session: checks the published version once and drives the update flow
// ABOUTME: Persists the known version, purges caches, prompts the user and reloads at most once

package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/sitever/internal/client"
)

// Storage keys.
const (
	KeyAppVersion      = "app_version"
	KeyLastUpdateCheck = "last_update_check"
)

// DefaultVersion is assumed when nothing has been stored yet.
const DefaultVersion = "1.0.0"

// Defaults applied to zero Config durations.
const (
	DefaultAutoReloadDelay = 10 * time.Second
	DefaultShowDelay       = 500 * time.Millisecond
)

// Fixed pauses in the accept path: after the purge and after the
// cache-busting fetch.
const settleDelay = 300 * time.Millisecond

const countdownInterval = time.Second

// Task names.
const (
	taskShow      = "show"
	taskCountdown = "countdown"
	taskTimeout   = "timeout"
	taskSettle    = "settle"
	taskReload    = "reload"
)

// State is a point in the update session lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateChecking        State = "checking"
	StateUpToDate        State = "up_to_date"
	StateUpdateAvailable State = "update_available"
	StateNotifying       State = "notifying"
	StatePurging         State = "purging"
	StateReloading       State = "reloading"
	StateFailed          State = "failed"
	StateDeferred        State = "deferred"
)

// Checker asks the version service whether a client version is behind.
type Checker interface {
	CheckVersion(ctx context.Context, clientVersion string) (*client.CheckResult, error)
}

// Storage is durable per-origin key-value storage.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Prompt shows the update notification. onAccept and onDismiss may be called
// from any goroutine; extra calls are ignored.
type Prompt interface {
	ShowUpdatePrompt(from, to string, onAccept, onDismiss func())
	Hide()
}

// CountdownDisplay is implemented by prompts that show the seconds left
// before the automatic reload.
type CountdownDisplay interface {
	Countdown(secondsLeft int)
}

// Page is the document the session runs in.
type Page interface {
	// BustFetch fetches the current page bypassing every cache.
	BustFetch(ctx context.Context) error
	// Reload reloads the page. The session ends with it.
	Reload()
}

// Config holds the monitor options.
type Config struct {
	APIEndpoint      string
	ShowNotification bool
	AutoReloadDelay  time.Duration
	ShowDelay        time.Duration
	Debug            bool
}

// DefaultConfig returns the defaults: notifications on, 10s auto reload,
// 500ms show delay.
func DefaultConfig() Config {
	return Config{
		ShowNotification: true,
		AutoReloadDelay:  DefaultAutoReloadDelay,
		ShowDelay:        DefaultShowDelay,
	}
}

// Deps are the collaborators a Monitor drives.
type Deps struct {
	Checker   Checker
	Storage   Storage
	Prompt    Prompt
	Page      Page
	Purger    *Purger
	Scheduler Scheduler
	Now       func() time.Time
}

// Monitor is one update session, the lifetime of a single page load.
type Monitor struct {
	cfg       Config
	checker   Checker
	storage   Storage
	prompt    Prompt
	page      Page
	purger    *Purger
	scheduler Scheduler
	now       func() time.Time
	logger    *slog.Logger

	sessionID string

	// ctx scopes background work; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	checked     bool
	reloaded    bool
	tasks       map[string]*scheduled
	secondsLeft int
	done        chan struct{}
	doneClosed  bool
}

type scheduled struct {
	task Task
}

// New creates a session. Checker, Storage and Page are required; Prompt is
// required when notifications are enabled.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Monitor, error) {
	if deps.Checker == nil {
		return nil, errors.New("monitor: checker is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("monitor: storage is required")
	}
	if deps.Page == nil {
		return nil, errors.New("monitor: page is required")
	}
	if cfg.ShowNotification && deps.Prompt == nil {
		return nil, errors.New("monitor: prompt is required when notifications are enabled")
	}
	if cfg.AutoReloadDelay <= 0 {
		cfg.AutoReloadDelay = DefaultAutoReloadDelay
	}
	if cfg.ShowDelay < 0 {
		cfg.ShowDelay = DefaultShowDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	sessionID := uuid.New().String()
	logger = logger.With("component", "monitor", "session", sessionID)

	if deps.Purger == nil {
		deps.Purger = NewPurger(nil, nil, logger)
	}
	if deps.Scheduler == nil {
		deps.Scheduler = RealScheduler{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		cfg:       cfg,
		checker:   deps.Checker,
		storage:   deps.Storage,
		prompt:    deps.Prompt,
		page:      deps.Page,
		purger:    deps.Purger,
		scheduler: deps.Scheduler,
		now:       deps.Now,
		logger:    logger,
		sessionID: sessionID,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		tasks:     make(map[string]*scheduled),
		done:      make(chan struct{}),
	}, nil
}

// SessionID identifies this session in logs.
func (m *Monitor) SessionID() string { return m.sessionID }

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done is closed when the session reaches a terminal state.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Wait blocks until background purges and fetches have finished. Pending
// timers are not waited on; use Done for the end of the session.
func (m *Monitor) Wait() { m.wg.Wait() }

// Close cancels pending timers and background work and waits for it to stop.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.cancelTasksLocked()
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}

// CheckForUpdates checks the stored version against the service. It runs at
// most once per session; later calls return nil without any I/O. It also
// returns nil when the check fails.
func (m *Monitor) CheckForUpdates(ctx context.Context) *client.CheckResult {
	m.mu.Lock()
	if m.checked {
		m.mu.Unlock()
		m.trace("update check already performed")
		return nil
	}
	m.checked = true
	m.state = StateChecking
	m.mu.Unlock()

	current := m.currentVersion(ctx)
	m.trace("checking for updates", "current", current, "endpoint", m.cfg.APIEndpoint)

	res, err := m.checker.CheckVersion(ctx, current)
	if err == nil && (res == nil || !res.Success) {
		err = errors.New("check was not successful")
	}
	if err != nil {
		m.logger.Error("update check failed", "error", err)
		m.finish(StateFailed)
		return nil
	}

	if res.UpdateAvailable {
		m.handleUpdateAvailable(ctx, current, res)
		return res
	}

	m.persist(ctx, KeyAppVersion, res.LatestVersion)
	m.trace("version is up to date", "version", res.LatestVersion)
	m.finish(StateUpToDate)
	return res
}

func (m *Monitor) currentVersion(ctx context.Context) string {
	v, ok, err := m.storage.Get(ctx, KeyAppVersion)
	if err != nil {
		m.logger.Warn("reading stored version", "error", err)
		return DefaultVersion
	}
	if !ok || v == "" {
		return DefaultVersion
	}
	return v
}

func (m *Monitor) persist(ctx context.Context, key, value string) {
	if err := m.storage.Set(ctx, key, value); err != nil {
		m.logger.Warn("persisting monitor state", "key", key, "error", err)
	}
}

func (m *Monitor) handleUpdateAvailable(ctx context.Context, from string, res *client.CheckResult) {
	to := res.LatestVersion
	m.logger.Info("new version available", "from", from, "to", to)

	m.persist(ctx, KeyAppVersion, to)
	m.persist(ctx, KeyLastUpdateCheck, m.now().UTC().Format(time.RFC3339))

	m.mu.Lock()
	m.state = StateUpdateAvailable
	if !m.cfg.ShowNotification {
		m.closeDoneLocked()
	} else {
		m.scheduleLocked(taskShow, m.cfg.ShowDelay, func() { m.notify(from, to) })
	}
	m.mu.Unlock()

	m.goBackground(func(ctx context.Context) { m.purger.Purge(ctx) })
}

func (m *Monitor) notify(from, to string) {
	m.mu.Lock()
	if m.state != StateUpdateAvailable {
		m.mu.Unlock()
		return
	}
	m.state = StateNotifying
	m.secondsLeft = int((m.cfg.AutoReloadDelay + countdownInterval - 1) / countdownInterval)
	secondsLeft := m.secondsLeft
	m.scheduleLocked(taskCountdown, countdownInterval, m.tick)
	m.scheduleLocked(taskTimeout, m.cfg.AutoReloadDelay, m.timeout)
	m.mu.Unlock()

	m.trace("showing update prompt", "from", from, "to", to, "auto_reload_in", m.cfg.AutoReloadDelay)
	m.prompt.ShowUpdatePrompt(from, to, m.accept, m.dismiss)
	m.showCountdown(secondsLeft)
}

func (m *Monitor) tick() {
	m.mu.Lock()
	if m.state != StateNotifying {
		m.mu.Unlock()
		return
	}
	if m.secondsLeft > 0 {
		m.secondsLeft--
	}
	secondsLeft := m.secondsLeft
	if secondsLeft > 0 {
		m.scheduleLocked(taskCountdown, countdownInterval, m.tick)
	}
	m.mu.Unlock()

	m.showCountdown(secondsLeft)
}

func (m *Monitor) showCountdown(secondsLeft int) {
	if d, ok := m.prompt.(CountdownDisplay); ok {
		d.Countdown(secondsLeft)
	}
}

func (m *Monitor) accept() {
	m.mu.Lock()
	if m.state != StateNotifying {
		m.mu.Unlock()
		return
	}
	m.cancelTasksLocked()
	m.state = StatePurging
	m.mu.Unlock()

	m.logger.Info("update accepted")
	m.prompt.Hide()

	m.goBackground(func(ctx context.Context) {
		m.purger.Purge(ctx)
		if ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		m.scheduleLocked(taskSettle, settleDelay, func() {
			if err := m.page.BustFetch(m.ctx); err != nil {
				m.logger.Warn("cache-busting fetch failed", "error", err)
			}
			m.mu.Lock()
			m.scheduleLocked(taskReload, settleDelay, m.reload)
			m.mu.Unlock()
		})
		m.mu.Unlock()
	})
}

func (m *Monitor) dismiss() {
	m.mu.Lock()
	if m.state != StateNotifying {
		m.mu.Unlock()
		return
	}
	m.cancelTasksLocked()
	m.state = StateDeferred
	m.closeDoneLocked()
	m.mu.Unlock()

	m.prompt.Hide()
	m.logger.Info("update deferred")
}

func (m *Monitor) timeout() {
	m.mu.Lock()
	if m.state != StateNotifying {
		m.mu.Unlock()
		return
	}
	m.cancelTasksLocked()
	m.state = StatePurging
	m.mu.Unlock()

	m.prompt.Hide()
	m.logger.Info("auto reload timer elapsed")

	m.goBackground(func(ctx context.Context) {
		m.purger.Purge(ctx)
		m.reload()
	})
}

func (m *Monitor) reload() {
	m.mu.Lock()
	if m.reloaded || m.ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.reloaded = true
	m.state = StateReloading
	m.closeDoneLocked()
	m.mu.Unlock()

	m.logger.Info("reloading page")
	m.page.Reload()
}

func (m *Monitor) finish(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.closeDoneLocked()
}

func (m *Monitor) closeDoneLocked() {
	if !m.doneClosed {
		m.doneClosed = true
		close(m.done)
	}
}

// scheduleLocked runs f after d under the given name, replacing any task
// already scheduled under it. A task that was cancelled or replaced after it
// started firing is skipped. Must be called with mu held.
func (m *Monitor) scheduleLocked(name string, d time.Duration, f func()) {
	if prev, ok := m.tasks[name]; ok {
		prev.task.Stop()
	}
	s := &scheduled{}
	m.tasks[name] = s
	s.task = m.scheduler.AfterFunc(d, func() {
		m.mu.Lock()
		if m.tasks[name] != s {
			m.mu.Unlock()
			return
		}
		delete(m.tasks, name)
		m.mu.Unlock()
		f()
	})
}

// cancelTasksLocked must be called with mu held.
func (m *Monitor) cancelTasksLocked() {
	for name, s := range m.tasks {
		s.task.Stop()
		delete(m.tasks, name)
	}
}

func (m *Monitor) goBackground(f func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		f(m.ctx)
	}()
}

// trace logs only when the session runs with Debug enabled.
func (m *Monitor) trace(msg string, args ...any) {
	if m.cfg.Debug {
		m.logger.Debug(msg, args...)
	}
}
