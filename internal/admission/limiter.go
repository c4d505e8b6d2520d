// Package admission holds the process-wide gates a request must pass before
// an analysis runs: the sliding-window rate limiter and the per-key analysis
// lock. Both are in-memory; a multi-instance deployment would swap in
// shared-store implementations behind the same interfaces.
package admission

import (
	"sync"
	"time"
)

// Limiter is the admission contract for per-identity rate limiting.
type Limiter interface {
	// Allow reports whether the identity may start a full analysis now.
	// On rejection it returns the delay after which a retry can succeed.
	Allow(identity string) (bool, time.Duration)
}

const (
	defaultLimit       = 3
	defaultWindow      = 5 * time.Minute
	defaultSweepPeriod = time.Minute
)

// RateLimiter counts full-analysis requests per identity over a trailing
// window. A request is allowed iff fewer than limit timestamps fall inside
// the window; on allow the current timestamp is recorded. A background sweep
// evicts identities whose timestamps are entirely outside the window,
// bounding memory. Safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// NewRateLimiter creates a RateLimiter and starts its sweep goroutine.
// Call Stop when done.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}
	rl := &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go rl.sweepLoop(defaultSweepPeriod)
	return rl
}

// Allow implements Limiter.
func (rl *RateLimiter) Allow(identity string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	recent := rl.hits[identity][:0]
	for _, ts := range rl.hits[identity] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rl.limit {
		rl.hits[identity] = recent
		// The oldest in-window hit leaving the window frees a slot.
		return false, recent[0].Add(rl.window).Sub(now)
	}

	rl.hits[identity] = append(recent, now)
	return true, 0
}

// Stop terminates the sweep goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) sweepLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops identities with no activity inside the window.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for identity, hits := range rl.hits {
		stale := true
		for _, ts := range hits {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(rl.hits, identity)
		}
	}
}

var _ Limiter = (*RateLimiter)(nil)
