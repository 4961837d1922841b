// Package uniform_arena implements the per-frame transient uniform allocator. Every draw's uniform
// blocks are staged into one CPU-side arena at aligned offsets, uploaded to a single GPU buffer once
// per frame, and selected at draw time through dynamic offsets.
package uniform_arena

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

var (
	// ErrArenaExhausted is returned when an allocation would exceed the per-frame capacity.
	ErrArenaExhausted = errors.New("frame uniform arena exhausted")

	// ErrFrameNotOpen is returned when allocating outside BeginFrame/EndFrame.
	ErrFrameNotOpen = errors.New("frame uniform arena used outside BeginFrame/EndFrame")
)

// arena is the implementation of the Arena interface.
type arena struct {
	dev       device.Device
	label     string
	buffer    device.Buffer
	staging   []byte
	capacity  uint32
	alignment uint32

	used  atomic.Uint32
	frame atomic.Uint64
	open  atomic.Bool
}

// Arena is a per-frame bump allocator over one shared uniform buffer.
//
// Usage pattern:
//  1. BeginFrame resets the arena and advances the frame index
//  2. AllocConstants / UpdateConstants stage data and return the dynamic offset selecting it
//  3. EndFrame uploads the used range to the GPU buffer
//
// Offsets handed out in one frame are invalid after the next BeginFrame.
// Allocation is safe for concurrent use; BeginFrame and EndFrame are not.
type Arena interface {
	// BeginFrame resets the used-byte counter to zero, advances the frame index and opens the arena.
	BeginFrame()

	// EndFrame closes the arena and uploads the bytes allocated this frame.
	//
	// Returns:
	//   - error: ErrFrameNotOpen if no frame is open, or the device upload error
	EndFrame() error

	// AllocConstants reserves size bytes rounded up to the alignment and returns the staging span and its offset.
	// The span is zeroed and valid until the next BeginFrame.
	//
	// Parameters:
	//   - size: the number of bytes to reserve
	//
	// Returns:
	//   - []byte: the staging span, size bytes long
	//   - uint32: the byte offset of the span, used as the dynamic offset
	//   - error: ErrFrameNotOpen outside a frame, ErrArenaExhausted if the frame capacity would be exceeded
	AllocConstants(size uint32) ([]byte, uint32, error)

	// Used returns the bytes allocated in the current frame.
	//
	// Returns:
	//   - uint32: the used-byte count
	Used() uint32

	// Capacity returns the per-frame capacity in bytes.
	//
	// Returns:
	//   - uint32: the capacity
	Capacity() uint32

	// Alignment returns the offset alignment of every allocation.
	//
	// Returns:
	//   - uint32: the alignment, a power of two
	Alignment() uint32

	// FrameIndex returns the index of the current or last frame. Zero before the first BeginFrame.
	//
	// Returns:
	//   - uint64: the frame index
	FrameIndex() uint64

	// FrameOpen reports whether allocations are currently allowed.
	//
	// Returns:
	//   - bool: true between BeginFrame and EndFrame
	FrameOpen() bool

	// Buffer returns the GPU buffer bound by dynamic uniform resource sets.
	//
	// Returns:
	//   - device.Buffer: the arena buffer
	Buffer() device.Buffer

	// Release releases the GPU buffer.
	Release()
}

var _ Arena = &arena{}

// NewArena creates an arena of the given per-frame capacity on dev.
// Allocations are aligned to the larger of the device's dynamic offset alignment and WithAlignment.
//
// Parameters:
//   - dev: the device owning the buffer
//   - capacity: the per-frame capacity in bytes
//   - options: a variadic list of options
//
// Returns:
//   - Arena: the arena
//   - error: error if the capacity or alignment is invalid or the buffer cannot be created
func NewArena(dev device.Device, capacity uint32, options ...ArenaOption) (Arena, error) {
	a := &arena{
		dev:       dev,
		label:     "frame_uniform_arena",
		capacity:  capacity,
		alignment: dev.MinUniformBufferOffsetAlignment(),
	}
	for _, opt := range options {
		opt(a)
	}
	if !common.IsPowerOfTwo(a.alignment) {
		return nil, fmt.Errorf("uniform arena alignment %d is not a power of two", a.alignment)
	}
	if capacity < a.alignment {
		return nil, fmt.Errorf("uniform arena capacity %d is below the alignment %d", capacity, a.alignment)
	}
	buf, err := dev.CreateBuffer(device.BufferDescriptor{
		Label: a.label,
		Size:  uint64(capacity),
		Usage: device.BufferUsageUniform | device.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create uniform arena buffer: %w", err)
	}
	a.buffer = buf
	a.staging = make([]byte, capacity)
	return a, nil
}

func (a *arena) BeginFrame() {
	a.used.Store(0)
	a.frame.Add(1)
	a.open.Store(true)
}

func (a *arena) EndFrame() error {
	if !a.open.Swap(false) {
		return ErrFrameNotOpen
	}
	used := a.used.Load()
	if used == 0 {
		return nil
	}
	if err := a.dev.WriteBuffer(a.buffer, 0, a.staging[:used]); err != nil {
		return fmt.Errorf("failed to upload uniform arena: %w", err)
	}
	return nil
}

func (a *arena) AllocConstants(size uint32) ([]byte, uint32, error) {
	if !a.open.Load() {
		return nil, 0, ErrFrameNotOpen
	}
	// rounded in 64 bits so sizes near the uint32 limit cannot wrap to a small allocation
	alignment := uint64(a.alignment)
	aligned := (uint64(max(size, 1)) + alignment - 1) / alignment * alignment
	for {
		offset := a.used.Load()
		if uint64(offset)+aligned > uint64(a.capacity) {
			return nil, 0, fmt.Errorf("%w: %d bytes requested, %d of %d used", ErrArenaExhausted, aligned, offset, a.capacity)
		}
		end := offset + uint32(aligned)
		if a.used.CompareAndSwap(offset, end) {
			span := a.staging[offset : offset+size : end]
			clear(span)
			return span, offset, nil
		}
	}
}

// UpdateConstants stages v in the arena using its little-endian fixed-size encoding.
//
// Parameters:
//   - a: the arena
//   - v: a pointer to a fixed-size value
//
// Returns:
//   - uint32: the byte offset of the staged value
//   - error: error if T has no fixed size or the allocation fails
func UpdateConstants[T any](a Arena, v *T) (uint32, error) {
	size := binary.Size(v)
	if size < 0 {
		return 0, fmt.Errorf("uniform arena: %T has no fixed-size encoding", v)
	}
	span, offset, err := a.AllocConstants(uint32(size))
	if err != nil {
		return 0, err
	}
	if _, err := binary.Encode(span, binary.LittleEndian, v); err != nil {
		return 0, fmt.Errorf("uniform arena: failed to encode %T: %w", v, err)
	}
	return offset, nil
}

func (a *arena) Used() uint32 {
	return a.used.Load()
}

func (a *arena) Capacity() uint32 {
	return a.capacity
}

func (a *arena) Alignment() uint32 {
	return a.alignment
}

func (a *arena) FrameIndex() uint64 {
	return a.frame.Load()
}

func (a *arena) FrameOpen() bool {
	return a.open.Load()
}

func (a *arena) Buffer() device.Buffer {
	return a.buffer
}

func (a *arena) Release() {
	if a.buffer != nil {
		a.buffer.Release()
		a.buffer = nil
	}
	a.staging = nil
	a.open.Store(false)
}
