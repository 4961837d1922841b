package material

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/uniform_arena"
)

// ErrStaleProxy is returned when a proxy built in an earlier frame is applied.
var ErrStaleProxy = errors.New("render proxy belongs to an earlier frame")

// UniformSpan is one uniform block staged in the frame arena for a proxy.
type UniformSpan struct {
	// Block is the index of the block in the variant's Blocks.
	Block  int
	Offset uint32
	Size   uint32
	Data   []byte
}

// RenderProxy is the immutable draw-ready bundle produced by a material for one pass: the pipeline,
// the resource sets of sets 0 to 2, the dynamic uniform set and the arena offsets selecting this
// material's uniform blocks. A proxy is valid for the arena frame it was built in.
type RenderProxy struct {
	PositionStreams int
	RenderState     pipeline.RenderState
	Pipeline        device.Pipeline
	// Sets holds the per-frame, lightmap and material sets. Nil entries are not bound.
	Sets           [3]device.ResourceSet
	Dynamic        device.ResourceSet
	Uniforms       []UniformSpan
	DynamicOffsets []uint32
	Frame          uint64
	// Serial changes every time the owning material rebuilds a proxy.
	Serial     uint64
	StencilRef uint32
	UseStencil bool
}

// IsEmpty reports whether the proxy draws nothing.
func (p RenderProxy) IsEmpty() bool {
	return p.Pipeline == nil
}

// ValidFor reports whether the proxy's uniform offsets still address live data in the arena.
func (p RenderProxy) ValidFor(arena uniform_arena.Arena) bool {
	return !p.IsEmpty() && p.Frame == arena.FrameIndex() && arena.FrameOpen()
}

// ApplyProxy records the commands binding p on enc: the pipeline, every non-nil resource set,
// the dynamic uniform set with the proxy's offsets and the stencil reference.
// An empty proxy records nothing.
//
// Parameters:
//   - enc: the draw encoder
//   - arena: the frame arena the proxy's offsets point into
//   - p: the proxy
//
// Returns:
//   - error: ErrStaleProxy if p was built in an earlier frame
func ApplyProxy(enc device.DrawEncoder, arena uniform_arena.Arena, p RenderProxy) error {
	if p.IsEmpty() {
		return nil
	}
	if !p.ValidFor(arena) {
		return fmt.Errorf("%w: built in frame %d, arena at frame %d", ErrStaleProxy, p.Frame, arena.FrameIndex())
	}
	enc.SetPipeline(p.Pipeline)
	for i, set := range p.Sets {
		if set != nil {
			enc.SetResourceSet(uint32(i), set, nil)
		}
	}
	if p.Dynamic != nil {
		enc.SetResourceSet(pipeline.SetDynamicUniforms, p.Dynamic, p.DynamicOffsets)
	}
	if p.UseStencil {
		enc.SetStencilReference(p.StencilRef)
	}
	return nil
}

// proxyCache remembers the inputs a cached proxy was built from.
type proxyCache struct {
	valid    bool
	variant  pipeline.RenderState
	epoch    uint64
	images   uint64
	samplers uint64
	blocks   uint64
	frame    uint64
	streams  int
	dir      device.Image
	color    device.Image
	proxy    RenderProxy
}

func (c *proxyCache) matches(key proxyCache) bool {
	return c.valid &&
		c.variant == key.variant &&
		c.epoch == key.epoch &&
		c.images == key.images &&
		c.samplers == key.samplers &&
		c.blocks == key.blocks &&
		c.frame == key.frame &&
		c.streams == key.streams &&
		c.dir == key.dir &&
		c.color == key.color
}

func (c *proxyCache) store(key proxyCache, p RenderProxy) {
	*c = key
	c.valid = true
	c.proxy = p
}
