package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps a rolling window of attempt timestamps per key.
// State lives in process memory and is not shared across instances. Keys
// whose attempts have all aged out are dropped by a sweep that runs at most
// once per window, so one-shot keys do not accumulate.
type MemoryLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	entries   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     max,
		window:  window,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	l.sweep(now, cutoff)

	kept := l.entries[key][:0]
	for _, at := range l.entries[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= l.max {
		l.entries[key] = kept
		return false, nil
	}

	l.entries[key] = append(kept, now)
	return true, nil
}

// sweep drops keys with no attempts left inside the window. Caller holds mu.
func (l *MemoryLimiter) sweep(now, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	for key, attempts := range l.entries {
		stale := true
		for _, at := range attempts {
			if at.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.entries, key)
		}
	}
}
