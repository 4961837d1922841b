package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestTickClosesWindowAfterInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(WithUpdateInterval(time.Second), WithClock(clock.now))

	for _, used := range []uint32{512, 4096, 1024} {
		clock.t = clock.t.Add(250 * time.Millisecond)
		_, ok := p.Tick(used, 65536)
		assert.False(t, ok)
	}

	clock.t = clock.t.Add(250 * time.Millisecond)
	stats, ok := p.Tick(256, 65536)
	require.True(t, ok)
	assert.Equal(t, 4, stats.Frames)
	assert.InDelta(t, 4.0, stats.FPS, 1e-9)
	assert.Equal(t, uint32(4096), stats.PeakArenaBytes)
	assert.Equal(t, uint32(65536), stats.ArenaCapacity)
	assert.Positive(t, stats.HeapMB)

	clock.t = clock.t.Add(2 * time.Second)
	stats, ok = p.Tick(128, 65536)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Frames)
	assert.Equal(t, uint32(128), stats.PeakArenaBytes, "the peak resets with each window")
}

func TestTickWithoutElapsedTime(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithUpdateInterval(0), WithClock(clock.now))

	_, ok := p.Tick(64, 256)
	assert.False(t, ok, "no window closes while the clock stands still")
}
