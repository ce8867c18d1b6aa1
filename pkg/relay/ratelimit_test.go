package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clock is a controllable time source for limiter tests
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(max int, window time.Duration) (*RateLimiter, *clock) {
	ck := &clock{t: time.Unix(1700000000, 0)}
	rl := NewRateLimiter(max, window)
	rl.now = ck.now
	return rl, ck
}

func TestRateLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter(3, time.Minute)

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"), "fourth request should be denied")
}

func TestRateLimiterPerKey(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are limited independently")
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl, ck := newTestLimiter(2, time.Minute)

	assert.True(t, rl.Allow("k"))
	ck.advance(30 * time.Second)
	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))

	// First hit falls out of the window
	ck.advance(31 * time.Second)
	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
}

func TestRateLimiterDeniedNotRecorded(t *testing.T) {
	rl, ck := newTestLimiter(1, time.Minute)

	assert.True(t, rl.Allow("k"))
	for i := 0; i < 10; i++ {
		assert.False(t, rl.Allow("k"))
	}

	// Only the single allowed hit should age out
	ck.advance(time.Minute + time.Second)
	assert.True(t, rl.Allow("k"))
}

func TestRateLimiterRemaining(t *testing.T) {
	rl, _ := newTestLimiter(3, time.Minute)

	assert.Equal(t, 3, rl.Remaining("k"))
	rl.Allow("k")
	assert.Equal(t, 2, rl.Remaining("k"))
	rl.Allow("k")
	rl.Allow("k")
	assert.Equal(t, 0, rl.Remaining("k"))
	rl.Allow("k") // denied
	assert.Equal(t, 0, rl.Remaining("k"))
}

func TestRateLimiterRetryAfter(t *testing.T) {
	rl, ck := newTestLimiter(1, time.Minute)

	assert.Zero(t, rl.RetryAfter("k"))

	rl.Allow("k")
	assert.Equal(t, time.Minute, rl.RetryAfter("k"))

	ck.advance(40 * time.Second)
	assert.Equal(t, 20*time.Second, rl.RetryAfter("k"))

	ck.advance(21 * time.Second)
	assert.Zero(t, rl.RetryAfter("k"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, ck := newTestLimiter(5, time.Minute)

	rl.Allow("old")
	ck.advance(2 * time.Minute)
	rl.Allow("live")

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.hits, "old")
	assert.Contains(t, rl.hits, "live")
}
