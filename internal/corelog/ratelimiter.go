package corelog

import (
	"sync"
	"time"
)

// RateLimiter allows at most one event per interval. It protects stdout
// from being flooded when an upstream tier fails wholesale and every
// per-API task in the fan-out logs an error within the same millisecond.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	clock    Clock
}

// NewRateLimiter creates a limiter allowing one event per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval, clock: SystemClock{}}
}

// Allow reports whether an event may proceed right now, and records it if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}
