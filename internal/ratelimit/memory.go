package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultIdleTTL    = 15 * time.Minute
	DefaultSweepEvery = 2 * time.Minute
)

type window struct {
	events   []Event
	lastSeen time.Time
}

// prune drops events stamped at or before cutoff. Events are appended in
// time order, so the live ones are a suffix.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.events) && !w.events[i].At.After(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}

// MemoryStore keeps every client window in one map behind a mutex.
type MemoryStore struct {
	rule       Rule
	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

func WithIdleTTL(d time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		if d > 0 {
			m.idleTTL = d
		}
	}
}

func WithSweepEvery(d time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		if d > 0 {
			m.sweepEvery = d
		}
	}
}

func NewMemoryStore(rule Rule, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		rule:       rule,
		idleTTL:    DefaultIdleTTL,
		sweepEvery: DefaultSweepEvery,
		now:        time.Now,
		windows:    make(map[string]*window),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Allow(_ context.Context, key string, ev Event) (Decision, error) {
	now := m.now()
	ev.At = now
	scoped := m.rule.Scoped(ev.Method, ev.Path)

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok {
		w = &window{}
		m.windows[key] = w
	}
	w.lastSeen = now
	w.prune(now.Add(-m.rule.Window))

	if scoped {
		var first *Event
		n := 0
		for i := range w.events {
			if m.rule.Scoped(w.events[i].Method, w.events[i].Path) {
				if first == nil {
					first = &w.events[i]
				}
				n++
			}
		}
		if n >= m.rule.ScopedLimit {
			return m.reject(m.rule.ScopedLimit, first, now), nil
		}
	}
	if len(w.events) >= m.rule.GlobalLimit {
		var first *Event
		if len(w.events) > 0 {
			first = &w.events[0]
		}
		return m.reject(m.rule.GlobalLimit, first, now), nil
	}

	w.events = append(w.events, ev)

	d := Decision{Allowed: true, Limit: m.rule.GlobalLimit, Remaining: m.rule.GlobalLimit - len(w.events)}
	if scoped {
		n := 0
		for _, e := range w.events {
			if m.rule.Scoped(e.Method, e.Path) {
				n++
			}
		}
		d.Limit = m.rule.ScopedLimit
		d.Remaining = m.rule.ScopedLimit - n
	}
	return d, nil
}

func (m *MemoryStore) reject(limit int, oldest *Event, now time.Time) Decision {
	retry := m.rule.Window
	if oldest != nil {
		retry = untilExpiry(oldest.At, now, m.rule.Window)
	}
	return Decision{Allowed: false, Limit: limit, RetryAfter: retry}
}

// Sweep removes windows that are empty after pruning or idle past IdleTTL.
// It returns how many keys were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	cutoff := now.Add(-m.rule.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		w.prune(cutoff)
		if len(w.events) == 0 || now.Sub(w.lastSeen) > m.idleTTL {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps every SweepEvery until ctx is done.
func (m *MemoryStore) StartJanitor(ctx context.Context) {
	go func() {
		t := time.NewTicker(m.sweepEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Sweep()
			}
		}
	}()
}

// Len reports the number of tracked keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
