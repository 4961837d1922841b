package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// bufferBinding is a buffer bound at a byte range.
type bufferBinding struct {
	buffer device.Buffer
	offset uint64
	size   uint64
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// layout is the resource layout the set is built against. It is released with the provider only if owned.
	layout      device.ResourceLayout
	ownedLayout bool

	// set is the most recently built resource set, or nil before the first Build.
	set device.ResourceSet

	// buffers, images and samplers hold the resources bound to each binding slot.
	buffers  map[uint32]bufferBinding
	images   map[uint32]device.Image
	samplers map[uint32]device.Sampler

	// owned are resources whose lifetime ends with the provider.
	owned []device.Resource

	// serial counts successful builds.
	serial uint64
}

// BindGroupProvider holds the resources bound to the slots of one resource layout and the
// resource set built from them. Materials use one per proxy category, the render-state compiler
// uses one for each dynamic-uniform set, and the renderer uses one per render pass for per-frame data.
//
// Usage pattern:
//  1. Create a provider against a layout with NewBindGroupProvider and WithResourceLayout
//  2. Bind resources with SetBuffer / SetImage / SetSampler
//  3. Call Build to create the resource set; call it again after rebinding to replace the set
//  4. Read ResourceSet() for draw-time binding
//  5. Release the provider when its owner is disposed
type BindGroupProvider interface {
	// Release releases the resource set, the layout if owned, and every owned resource.
	// Borrowed images, samplers and buffers are left alone.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// ResourceSet returns the most recently built resource set.
	// Returns nil if Build has not succeeded yet.
	//
	// Returns:
	//   - device.ResourceSet: the resource set or nil
	ResourceSet() device.ResourceSet

	// ResourceLayout returns the layout the provider builds sets against.
	//
	// Returns:
	//   - device.ResourceLayout: the resource layout or nil
	ResourceLayout() device.ResourceLayout

	// Serial returns the number of successful builds. It changes exactly when ResourceSet changes.
	//
	// Returns:
	//   - uint64: the build serial
	Serial() uint64

	// Buffer returns the buffer bound at a binding, or nil if none is bound.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - device.Buffer: the buffer or nil
	Buffer(binding uint32) device.Buffer

	// Image returns the image bound at a binding, or nil if none is bound.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - device.Image: the image or nil
	Image(binding uint32) device.Image

	// Sampler returns the sampler bound at a binding, or nil if none is bound.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - device.Sampler: the sampler or nil
	Sampler(binding uint32) device.Sampler

	// SetBuffer binds a buffer range to a binding. A zero size binds the whole buffer from offset.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	//   - offset: the byte offset of the bound range
	//   - size: the byte size of the bound range
	SetBuffer(binding uint32, buf device.Buffer, offset, size uint64)

	// SetImage binds an image to a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - img: the image
	SetImage(binding uint32, img device.Image)

	// SetSampler binds a sampler to a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding uint32, s device.Sampler)

	// Own hands the lifetime of resources to the provider; they are released by Release.
	//
	// Parameters:
	//   - resources: the resources to own
	Own(resources ...device.Resource)

	// Build creates a resource set from the bound resources, covering every entry of the layout,
	// and releases the previous set.
	//
	// Parameters:
	//   - dev: the device creating the set
	//
	// Returns:
	//   - device.ResourceSet: the new set
	//   - error: error if the provider has no layout, a slot is unbound, or the device rejects the set
	Build(dev device.Device) (device.ResourceSet, error)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label used for the provider and the sets it builds
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		buffers:  make(map[uint32]bufferBinding),
		images:   make(map[uint32]device.Image),
		samplers: make(map[uint32]device.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) ResourceSet() device.ResourceSet {
	return p.set
}

func (p *bindGroupProvider) ResourceLayout() device.ResourceLayout {
	return p.layout
}

func (p *bindGroupProvider) Serial() uint64 {
	return p.serial
}

func (p *bindGroupProvider) Buffer(binding uint32) device.Buffer {
	return p.buffers[binding].buffer
}

func (p *bindGroupProvider) Image(binding uint32) device.Image {
	return p.images[binding]
}

func (p *bindGroupProvider) Sampler(binding uint32) device.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding uint32, buf device.Buffer, offset, size uint64) {
	p.buffers[binding] = bufferBinding{buffer: buf, offset: offset, size: size}
}

func (p *bindGroupProvider) SetImage(binding uint32, img device.Image) {
	p.images[binding] = img
}

func (p *bindGroupProvider) SetSampler(binding uint32, s device.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Own(resources ...device.Resource) {
	p.owned = append(p.owned, resources...)
}

func (p *bindGroupProvider) Build(dev device.Device) (device.ResourceSet, error) {
	if p.layout == nil {
		return nil, fmt.Errorf("bind group provider %s: no resource layout", p.label)
	}
	layoutEntries := p.layout.Entries()
	entries := make([]device.ResourceSetEntry, 0, len(layoutEntries))
	for _, le := range layoutEntries {
		e := device.ResourceSetEntry{Binding: le.Binding}
		switch le.Kind {
		case device.BindingUniformBuffer:
			b, ok := p.buffers[le.Binding]
			if !ok || b.buffer == nil {
				return nil, fmt.Errorf("bind group provider %s: no buffer bound at binding %d", p.label, le.Binding)
			}
			e.Buffer, e.Offset, e.Size = b.buffer, b.offset, b.size
			if e.Size == 0 {
				e.Size = b.buffer.Size() - b.offset
			}
		case device.BindingTexture:
			if e.Image = p.images[le.Binding]; e.Image == nil {
				return nil, fmt.Errorf("bind group provider %s: no image bound at binding %d", p.label, le.Binding)
			}
		case device.BindingSampler:
			if e.Sampler = p.samplers[le.Binding]; e.Sampler == nil {
				return nil, fmt.Errorf("bind group provider %s: no sampler bound at binding %d", p.label, le.Binding)
			}
		}
		entries = append(entries, e)
	}

	set, err := dev.CreateResourceSet(device.ResourceSetDescriptor{Label: p.label, Layout: p.layout, Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("bind group provider %s: %w", p.label, err)
	}
	if p.set != nil {
		p.set.Release()
	}
	p.set = set
	p.serial++
	return set, nil
}

func (p *bindGroupProvider) Release() {
	if p.set != nil {
		p.set.Release()
		p.set = nil
	}
	if p.layout != nil && p.ownedLayout {
		p.layout.Release()
	}
	p.layout = nil
	for _, r := range p.owned {
		if r != nil {
			r.Release()
		}
	}
	p.owned = nil
	clear(p.buffers)
	clear(p.images)
	clear(p.samplers)
}
