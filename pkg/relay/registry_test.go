package relay

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	closed atomic.Int32
}

func (f *fakeConn) Close() { f.closed.Add(1) }

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry(2)

	require.NoError(t, r.Add("a", &fakeConn{}))
	require.NoError(t, r.Add("b", &fakeConn{}))
	assert.Equal(t, 2, r.Count())
}

func TestRegistryPoolFull(t *testing.T) {
	r := NewRegistry(1)

	require.NoError(t, r.Add("a", &fakeConn{}))
	err := r.Add("b", &fakeConn{})
	assert.ErrorIs(t, err, ErrPoolFull)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(1)
	c := &fakeConn{}

	require.NoError(t, r.Add("a", c))
	r.Remove("a")
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, int32(0), c.closed.Load(), "Remove should not close")

	// Removing twice is fine
	r.Remove("a")

	// Slot is free again
	require.NoError(t, r.Add("b", &fakeConn{}))
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry(10)
	stale := &fakeConn{}
	fresh := &fakeConn{}

	require.NoError(t, r.Add("stale", stale))
	require.NoError(t, r.Add("fresh", fresh))

	time.Sleep(20 * time.Millisecond)
	r.Touch("fresh")

	n := r.Sweep(10 * time.Millisecond)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, int32(1), stale.closed.Load())
	assert.Equal(t, int32(0), fresh.closed.Load())
}

func TestRegistrySweepNothingStale(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, r.Add("a", &fakeConn{}))

	assert.Equal(t, 0, r.Sweep(time.Hour))
	assert.Equal(t, 1, r.Count())
}

func TestRegistryTouchUnknown(t *testing.T) {
	r := NewRegistry(1)
	r.Touch("nope") // should not panic
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry(10)
	a := &fakeConn{}
	b := &fakeConn{}

	require.NoError(t, r.Add("a", a))
	require.NoError(t, r.Add("b", b))

	r.CloseAll()
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, int32(1), a.closed.Load())
	assert.Equal(t, int32(1), b.closed.Load())
}
