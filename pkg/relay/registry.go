package relay

import (
	"errors"
	"sync"
	"time"
)

// ErrPoolFull is returned when the session pool is at capacity
var ErrPoolFull = errors.New("session pool full")

// closer is the minimal surface the registry needs to evict a session
type closer interface {
	Close()
}

// entry tracks a registered session and its activity timestamps
type entry struct {
	conn       closer
	connected  time.Time
	lastActive time.Time
}

// Registry is a bounded pool of live voice sessions. Sessions that go
// quiet longer than the sweep threshold are closed and evicted.
type Registry struct {
	mu       sync.Mutex
	max      int
	sessions map[string]*entry
}

// NewRegistry creates a registry capped at max concurrent sessions
func NewRegistry(max int) *Registry {
	return &Registry{
		max:      max,
		sessions: make(map[string]*entry),
	}
}

// Add registers a session. Returns ErrPoolFull at capacity.
func (r *Registry) Add(id string, c closer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.max {
		return ErrPoolFull
	}

	now := time.Now()
	r.sessions[id] = &entry{
		conn:       c,
		connected:  now,
		lastActive: now,
	}
	return nil
}

// Touch records activity for a session. Unknown IDs are ignored.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.lastActive = time.Now()
	}
}

// Remove unregisters a session without closing it. Safe to call twice.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and evicts sessions idle longer than maxIdle.
// Returns the number of sessions evicted.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []closer
	for id, e := range r.sessions {
		if e.lastActive.Before(cutoff) {
			stale = append(stale, e.conn)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	// Close outside the lock: Close tears down a websocket whose
	// handler will call Remove.
	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// CloseAll closes and evicts every session. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]closer, 0, len(r.sessions))
	for id, e := range r.sessions {
		conns = append(conns, e.conn)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
