package notify

import (
	"sync"
	"time"
)

// slidingLimiter enforces channel-scoped sliding-window delivery caps.
// Params: attempt timestamps per channel+rule key under one mutex.
// Returns: limiter distinct from the rule-level anchored window.
type slidingLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// newSlidingLimiter creates an empty limiter.
// Params: none.
// Returns: initialized limiter.
func newSlidingLimiter() *slidingLimiter {
	return &slidingLimiter{windows: make(map[string][]time.Time)}
}

// Allow reserves one delivery slot when the window has capacity.
// Params: channel+rule key, current time, cap, and window width. A cap or
// window of zero disables the limit for the key.
// Returns: true when the delivery may proceed; the slot is consumed.
func (l *slidingLimiter) Allow(key string, now time.Time, max int, window time.Duration) bool {
	if max <= 0 || window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-window)
	kept := l.windows[key][:0]
	for _, at := range l.windows[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= max {
		l.windows[key] = kept
		return false
	}
	l.windows[key] = append(kept, now)
	return true
}
