package device

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// NullResource is the common part of every object a NullDevice creates.
type NullResource struct {
	ID       uuid.UUID
	label    string
	released bool
	dev      *NullDevice
}

func (r *NullResource) Label() string {
	return r.label
}

func (r *NullResource) Release() {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.dev.live--
}

// Released reports whether Release has been called.
func (r *NullResource) Released() bool {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	return r.released
}

// NullBuffer is a CPU-backed buffer; its contents reflect every WriteBuffer call.
type NullBuffer struct {
	NullResource
	Usage BufferUsage
	Data  []byte
}

func (b *NullBuffer) Size() uint64 { return uint64(len(b.Data)) }

// NullImage keeps the uploaded pixels so tests can inspect what would be sampled.
type NullImage struct {
	NullResource
	Desc   ImageDescriptor
	Pixels []byte
}

func (i *NullImage) Width() uint32  { return i.Desc.Width }
func (i *NullImage) Height() uint32 { return i.Desc.Height }

// NullSampler records its descriptor.
type NullSampler struct {
	NullResource
	Desc SamplerDescriptor
}

// NullShaderModule records its descriptor.
type NullShaderModule struct {
	NullResource
	Desc ShaderModuleDescriptor
}

// NullResourceLayout records its entries.
type NullResourceLayout struct {
	NullResource
	entries []LayoutEntry
}

func (l *NullResourceLayout) Entries() []LayoutEntry { return l.entries }

// NullResourceSet records the bound entries.
type NullResourceSet struct {
	NullResource
	layout  ResourceLayout
	Entries []ResourceSetEntry
}

func (s *NullResourceSet) Layout() ResourceLayout { return s.layout }

// Entry returns the bound entry for a binding slot.
func (s *NullResourceSet) Entry(binding uint32) (ResourceSetEntry, bool) {
	for _, e := range s.Entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return ResourceSetEntry{}, false
}

// NullPipeline records its descriptor.
type NullPipeline struct {
	NullResource
	Desc PipelineDescriptor
}

// NullDeviceStats counts the objects created by a NullDevice.
type NullDeviceStats struct {
	Buffers       int
	Images        int
	Samplers      int
	ShaderModules int
	Layouts       int
	ResourceSets  int
	Pipelines     int
	Writes        int
}

// NullDevice is a Device that performs no GPU work. It validates resource set entries against
// their layouts, keeps buffer contents on the CPU and counts every object it creates.
// It is safe for concurrent use.
type NullDevice struct {
	mu        sync.Mutex
	alignment uint32
	stats     NullDeviceStats
	live      int
	writes    []BufferWrite
}

var _ Device = &NullDevice{}

// NewNullDevice creates a NullDevice with the given dynamic uniform offset alignment.
// An alignment of zero selects 256 bytes.
//
// Parameters:
//   - alignment: the minimum uniform buffer offset alignment to report
//
// Returns:
//   - *NullDevice: the device
func NewNullDevice(alignment uint32) *NullDevice {
	if alignment == 0 {
		alignment = 256
	}
	return &NullDevice{alignment: alignment}
}

func (d *NullDevice) newResource(label string) NullResource {
	d.live++
	return NullResource{ID: uuid.New(), label: label, dev: d}
}

// Stats returns a snapshot of the creation counters.
func (d *NullDevice) Stats() NullDeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Live returns the number of created objects that have not been released.
func (d *NullDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Writes returns a copy of every buffer write issued so far.
func (d *NullDevice) Writes() []BufferWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]BufferWrite(nil), d.writes...)
}

func (d *NullDevice) MinUniformBufferOffsetAlignment() uint32 {
	return d.alignment
}

func (d *NullDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %q: size must be positive", desc.Label)
	}
	d.stats.Buffers++
	return &NullBuffer{NullResource: d.newResource(desc.Label), Usage: desc.Usage, Data: make([]byte, desc.Size)}, nil
}

func (d *NullDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	nb, ok := buf.(*NullBuffer)
	if !ok || nb == nil {
		return fmt.Errorf("write to foreign buffer %T", buf)
	}
	if nb.released {
		return fmt.Errorf("write to released buffer %q", nb.label)
	}
	if offset+uint64(len(data)) > uint64(len(nb.Data)) {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q of %d bytes", len(data), offset, nb.label, len(nb.Data))
	}
	copy(nb.Data[offset:], data)
	d.stats.Writes++
	d.writes = append(d.writes, BufferWrite{Buffer: buf, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (d *NullDevice) CreateImage(desc ImageDescriptor, pixels []byte) (Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("image %q: dimensions must be positive", desc.Label)
	}
	if pixels != nil && len(pixels) != int(desc.Width*desc.Height*4) {
		return nil, fmt.Errorf("image %q: expected %d bytes of pixels, got %d", desc.Label, desc.Width*desc.Height*4, len(pixels))
	}
	d.stats.Images++
	return &NullImage{NullResource: d.newResource(desc.Label), Desc: desc, Pixels: append([]byte(nil), pixels...)}, nil
}

func (d *NullDevice) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Samplers++
	return &NullSampler{NullResource: d.newResource(desc.Label), Desc: desc}, nil
}

func (d *NullDevice) CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Source == "" && len(desc.Bytecode) == 0 {
		return nil, fmt.Errorf("shader module %q: no source or bytecode", desc.Label)
	}
	d.stats.ShaderModules++
	return &NullShaderModule{NullResource: d.newResource(desc.Label), Desc: desc}, nil
}

func (d *NullDevice) CreateResourceLayout(desc ResourceLayoutDescriptor) (ResourceLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return nil, fmt.Errorf("layout %q: duplicate binding %d", desc.Label, e.Binding)
		}
		seen[e.Binding] = true
		if e.HasDynamicOffset && e.Kind != BindingUniformBuffer {
			return nil, fmt.Errorf("layout %q: binding %d: dynamic offset on %s", desc.Label, e.Binding, e.Kind)
		}
	}
	d.stats.Layouts++
	return &NullResourceLayout{NullResource: d.newResource(desc.Label), entries: append([]LayoutEntry(nil), desc.Entries...)}, nil
}

func (d *NullDevice) CreateResourceSet(desc ResourceSetDescriptor) (ResourceSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Layout == nil {
		return nil, fmt.Errorf("resource set %q: nil layout", desc.Label)
	}
	layout := desc.Layout.Entries()
	if len(layout) != len(desc.Entries) {
		return nil, fmt.Errorf("resource set %q: layout has %d entries, got %d", desc.Label, len(layout), len(desc.Entries))
	}
	for _, e := range desc.Entries {
		var le *LayoutEntry
		for i := range layout {
			if layout[i].Binding == e.Binding {
				le = &layout[i]
				break
			}
		}
		if le == nil {
			return nil, fmt.Errorf("resource set %q: binding %d not in layout", desc.Label, e.Binding)
		}
		var ok bool
		switch le.Kind {
		case BindingUniformBuffer:
			ok = e.Buffer != nil && e.Image == nil && e.Sampler == nil
			if ok && e.Offset+e.Size > e.Buffer.Size() {
				return nil, fmt.Errorf("resource set %q: binding %d range exceeds buffer", desc.Label, e.Binding)
			}
		case BindingTexture:
			ok = e.Image != nil && e.Buffer == nil && e.Sampler == nil
		case BindingSampler:
			ok = e.Sampler != nil && e.Buffer == nil && e.Image == nil
		}
		if !ok {
			return nil, fmt.Errorf("resource set %q: binding %d expects a %s", desc.Label, e.Binding, le.Kind)
		}
	}
	d.stats.ResourceSets++
	return &NullResourceSet{NullResource: d.newResource(desc.Label), layout: desc.Layout, Entries: append([]ResourceSetEntry(nil), desc.Entries...)}, nil
}

func (d *NullDevice) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.VertexModule == nil {
		return nil, fmt.Errorf("pipeline %q: missing vertex module", desc.Label)
	}
	d.stats.Pipelines++
	return &NullPipeline{NullResource: d.newResource(desc.Label), Desc: desc}, nil
}

// EncoderCommand is one call recorded by a NullEncoder.
type EncoderCommand struct {
	Op             string
	Index          uint32
	Pipeline       Pipeline
	Set            ResourceSet
	DynamicOffsets []uint32
	StencilRef     uint32
}

// NullEncoder is a DrawEncoder that records every call.
type NullEncoder struct {
	Commands []EncoderCommand
}

var _ DrawEncoder = &NullEncoder{}

func (e *NullEncoder) SetPipeline(p Pipeline) {
	e.Commands = append(e.Commands, EncoderCommand{Op: "SetPipeline", Pipeline: p})
}

func (e *NullEncoder) SetResourceSet(index uint32, set ResourceSet, dynamicOffsets []uint32) {
	e.Commands = append(e.Commands, EncoderCommand{
		Op:             "SetResourceSet",
		Index:          index,
		Set:            set,
		DynamicOffsets: append([]uint32(nil), dynamicOffsets...),
	})
}

func (e *NullEncoder) SetStencilReference(ref uint32) {
	e.Commands = append(e.Commands, EncoderCommand{Op: "SetStencilReference", StencilRef: ref})
}
