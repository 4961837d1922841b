package uniform_arena

import (
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T, capacity uint32, options ...ArenaOption) (Arena, *device.NullDevice) {
	t.Helper()
	d := device.NewNullDevice(256)
	a, err := NewArena(d, capacity, options...)
	require.NoError(t, err)
	t.Cleanup(a.Release)
	return a, d
}

func TestAllocOffsetsAreAlignedPrefixSums(t *testing.T) {
	a, _ := newTestArena(t, 4096)
	a.BeginFrame()

	sizes := []uint32{16, 300, 1, 256, 64}
	var expected uint32
	for _, s := range sizes {
		span, offset, err := a.AllocConstants(s)
		require.NoError(t, err)
		assert.Equal(t, expected, offset)
		assert.Len(t, span, int(s))
		expected += common.AlignUp(s, 256)
		assert.Equal(t, expected, a.Used())
		assert.LessOrEqual(t, a.Used(), a.Capacity())
	}
}

func TestAllocExhaustionLeavesCounterUntouched(t *testing.T) {
	a, _ := newTestArena(t, 1024)
	a.BeginFrame()

	_, _, err := a.AllocConstants(768)
	require.NoError(t, err)
	_, _, err = a.AllocConstants(257)
	assert.ErrorIs(t, err, ErrArenaExhausted)
	assert.Equal(t, uint32(768), a.Used())

	_, offset, err := a.AllocConstants(200)
	require.NoError(t, err)
	assert.Equal(t, uint32(768), offset)
	assert.Equal(t, uint32(1024), a.Used())
}

func TestAllocRejectsSizesNearUint32Limit(t *testing.T) {
	a, _ := newTestArena(t, 4096)
	a.BeginFrame()

	_, _, err := a.AllocConstants(64)
	require.NoError(t, err)
	for _, size := range []uint32{math.MaxUint32, math.MaxUint32 - 255, 4097} {
		span, _, err := a.AllocConstants(size)
		assert.ErrorIs(t, err, ErrArenaExhausted, "size %d", size)
		assert.Nil(t, span)
		assert.Equal(t, uint32(256), a.Used(), "size %d", size)
	}

	_, offset, err := a.AllocConstants(16)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), offset)
}

func TestFrameLifecycle(t *testing.T) {
	a, d := newTestArena(t, 1024)
	assert.Equal(t, uint64(0), a.FrameIndex())

	_, _, err := a.AllocConstants(16)
	assert.ErrorIs(t, err, ErrFrameNotOpen)
	assert.ErrorIs(t, a.EndFrame(), ErrFrameNotOpen)

	a.BeginFrame()
	assert.True(t, a.FrameOpen())
	span, _, err := a.AllocConstants(8)
	require.NoError(t, err)
	common.PutFloat32s(span, 1, 2)
	require.NoError(t, a.EndFrame())
	assert.False(t, a.FrameOpen())

	writes := d.Writes()
	require.Len(t, writes, 1)
	assert.Same(t, a.Buffer(), writes[0].Buffer)
	assert.Len(t, writes[0].Data, 256)
	assert.Equal(t, float32(2), common.Float32At(a.Buffer().(*device.NullBuffer).Data, 4))

	a.BeginFrame()
	assert.Equal(t, uint64(2), a.FrameIndex())
	assert.Equal(t, uint32(0), a.Used())
	span, offset, err := a.AllocConstants(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), offset)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, span, "reused memory is cleared")

	// an empty frame uploads nothing
	a.BeginFrame()
	require.NoError(t, a.EndFrame())
	assert.Len(t, d.Writes(), 1)
}

func TestUpdateConstants(t *testing.T) {
	a, _ := newTestArena(t, 1024)
	a.BeginFrame()

	type objectConstants struct {
		Color  mgl32.Vec4
		Cutoff float32
		_      [3]float32
	}
	first := objectConstants{Color: mgl32.Vec4{0.25, 0.5, 0.75, 1}, Cutoff: 0.5}
	off, err := UpdateConstants(a, &first)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), off)

	second := mgl32.Ident4()
	off2, err := UpdateConstants(a, &second)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), off2)

	require.NoError(t, a.EndFrame())
	data := a.Buffer().(*device.NullBuffer).Data
	assert.Equal(t, float32(0.75), common.Float32At(data, 8))
	assert.Equal(t, float32(0.5), common.Float32At(data, 16))
	assert.Equal(t, float32(1), common.Float32At(data, 256))

	a.BeginFrame()
	var notFixed []string
	_, err = UpdateConstants(a, &notFixed)
	assert.Error(t, err)
}

func TestConcurrentAllocationsDoNotOverlap(t *testing.T) {
	a, _ := newTestArena(t, 256*64)
	a.BeginFrame()

	var wg sync.WaitGroup
	offsets := make([]uint32, 64)
	for i := range offsets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, off, err := a.AllocConstants(100)
			assert.NoError(t, err)
			offsets[i] = off
		}()
	}
	wg.Wait()

	seen := make(map[uint32]bool)
	for _, off := range offsets {
		assert.Zero(t, off%256)
		assert.False(t, seen[off], "offset %d handed out twice", off)
		seen[off] = true
	}
	assert.Equal(t, a.Capacity(), a.Used())
}

func TestNewArenaOptions(t *testing.T) {
	a, _ := newTestArena(t, 2048, WithAlignment(512), WithLabel("arena"))
	assert.Equal(t, uint32(512), a.Alignment())
	assert.Equal(t, "arena", a.Buffer().Label())

	low, _ := newTestArena(t, 2048, WithAlignment(16))
	assert.Equal(t, uint32(256), low.Alignment())

	_, err := NewArena(device.NewNullDevice(256), 128)
	assert.Error(t, err)
	_, err = NewArena(device.NewNullDevice(256), 4096, WithAlignment(384))
	assert.Error(t, err)
}
