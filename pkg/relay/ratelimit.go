package relay

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window request limiter keyed by client address.
// Each key may make at most max requests per window.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time

	now func() time.Time // overridable in tests
}

// NewRateLimiter creates a limiter allowing max requests per window
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// limit. Rejected requests are not recorded.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.prune(key, now)
	if len(recent) >= rl.max {
		rl.hits[key] = recent
		return false
	}

	rl.hits[key] = append(recent, now)
	return true
}

// Remaining returns how many requests key may still make in the current window
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := rl.prune(key, rl.now())
	rl.hits[key] = recent

	if left := rl.max - len(recent); left > 0 {
		return left
	}
	return 0
}

// RetryAfter returns how long key must wait before the next request
// would be allowed. Zero when the key is under the limit.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.prune(key, now)
	rl.hits[key] = recent

	if len(recent) < rl.max {
		return 0
	}
	// The oldest hit is the next to fall out of the window
	return recent[0].Add(rl.window).Sub(now)
}

// Cleanup drops keys whose hits have all aged out of the window
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.hits {
		if recent := rl.prune(key, now); len(recent) == 0 {
			delete(rl.hits, key)
		} else {
			rl.hits[key] = recent
		}
	}
}

// prune returns key's hits still inside the window. Caller holds the lock.
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	all := rl.hits[key]

	i := 0
	for i < len(all) && !all[i].After(cutoff) {
		i++
	}
	return all[i:]
}
