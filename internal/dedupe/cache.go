// ABOUTME: Thread-safe TTL window for suppressing repeated events by key.
// ABOUTME: The server uses it so a broken version file logs once per window, not once per request.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key        string
	firstSeen  time.Time
	suppressed int
	element    *list.Element
}

// Window remembers keys for a TTL. The first occurrence of a key inside the
// window is allowed; later occurrences are counted and suppressed.
// Uses a doubly-linked list in insertion order for O(1) eviction.
type Window struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a window with the given TTL and maximum number of tracked keys.
func New(ttl time.Duration, maxSize int) *Window {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Window{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Allow reports whether an event with key should be emitted. When it is,
// suppressed is the number of occurrences swallowed since the last allowed one.
func (w *Window) Allow(key string) (allowed bool, suppressed int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if e, ok := w.seen[key]; ok {
		if now.Sub(e.firstSeen) < w.ttl {
			e.suppressed++
			return false, 0
		}
		suppressed = e.suppressed
		e.firstSeen = now
		e.suppressed = 0
		w.order.MoveToBack(e.element)
		return true, suppressed
	}

	if len(w.seen) >= w.maxSize {
		w.evictOldest()
	}

	e := &entry{key: key, firstSeen: now}
	e.element = w.order.PushBack(e)
	w.seen[key] = e
	return true, 0
}

// size returns the number of tracked keys.
func (w *Window) size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// evictOldest must be called with mu held.
func (w *Window) evictOldest() {
	front := w.order.Front()
	if front == nil {
		return
	}
	e, _ := front.Value.(*entry)
	w.order.Remove(front)
	delete(w.seen, e.key)
}
