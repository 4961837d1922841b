// Package device defines the backend-neutral GPU surface used by the render-state and material layer.
//
// The Device interface covers exactly the object creation and upload calls the layer needs: resource
// layouts, resource sets, pipelines, buffers, images and samplers. DrawEncoder is the draw-time
// binding surface. NullDevice implements both without a GPU and records every call.
package device

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
)

// Resource is implemented by every object a Device creates.
type Resource interface {
	// Label returns the debug label of the resource.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Release frees the backend object. Releasing twice is a no-op.
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	Resource

	// Size returns the size of the buffer in bytes.
	//
	// Returns:
	//   - uint64: the buffer size
	Size() uint64
}

// Image is a sampled 2D texture together with its default view.
type Image interface {
	Resource

	// Width returns the width in pixels.
	Width() uint32

	// Height returns the height in pixels.
	Height() uint32
}

// Sampler is a texture sampler.
type Sampler interface {
	Resource
}

// ShaderModule is a compiled shading stage.
type ShaderModule interface {
	Resource
}

// ResourceLayout describes which kinds of resources occupy which binding slots of one set.
type ResourceLayout interface {
	Resource

	// Entries returns the layout entries in binding order.
	//
	// Returns:
	//   - []LayoutEntry: the layout entries
	Entries() []LayoutEntry
}

// ResourceSet binds concrete resources to the slots of a ResourceLayout.
type ResourceSet interface {
	Resource

	// Layout returns the layout this set was created against.
	//
	// Returns:
	//   - ResourceLayout: the layout
	Layout() ResourceLayout
}

// Pipeline is a compiled render pipeline.
type Pipeline interface {
	Resource
}

// LayoutEntry is one binding slot of a resource layout.
type LayoutEntry struct {
	Binding    uint32
	Visibility ShaderStage
	Kind       BindingKind
	// HasDynamicOffset marks uniform buffer slots whose offset is supplied at draw time.
	HasDynamicOffset bool
	// MinBindingSize is the minimum buffer range in bytes for uniform buffer slots.
	MinBindingSize uint64
}

// ResourceLayoutDescriptor describes a layout to create.
type ResourceLayoutDescriptor struct {
	Label   string
	Entries []LayoutEntry
}

// ResourceSetEntry binds one resource to one slot. Exactly one of Buffer, Image or Sampler is set.
type ResourceSetEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
	Image   Image
	Sampler Sampler
}

// ResourceSetDescriptor describes a resource set to create.
type ResourceSetDescriptor struct {
	Label   string
	Layout  ResourceLayout
	Entries []ResourceSetEntry
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// ImageDescriptor describes a sampled 2D image to create.
type ImageDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
}

// SamplerDescriptor describes a sampler to create. The zero value is a linear, repeating sampler.
type SamplerDescriptor struct {
	Label     string
	MinFilter FilterMode
	MagFilter FilterMode
	AddressU  AddressMode
	AddressV  AddressMode
	AddressW  AddressMode
}

// ShaderModuleDescriptor describes a shading stage to create.
// Backends consume either the textual Source or the Bytecode, whichever they support.
type ShaderModuleDescriptor struct {
	Label      string
	Stage      ShaderStage
	EntryPoint string
	Source     string
	Bytecode   []byte
}

// VertexAttribute is one attribute of a vertex buffer layout.
type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

// VertexBufferLayout describes one vertex stream.
type VertexBufferLayout struct {
	ArrayStride uint64
	Attributes  []VertexAttribute
}

// PipelineDescriptor describes a render pipeline to create.
type PipelineDescriptor struct {
	Label string
	// Layouts is indexed by set number. Nil entries are bound to an empty layout.
	Layouts        []ResourceLayout
	VertexModule   ShaderModule
	FragmentModule ShaderModule
	VertexEntry    string
	FragmentEntry  string
	VertexBuffers  []VertexBufferLayout
	State          state.State
	ColorFormats   []TextureFormat
	DepthFormat    TextureFormat
	SampleCount    uint32
}

// BufferWrite describes a single buffer upload at a byte offset.
type BufferWrite struct {
	Buffer Buffer
	Offset uint64
	Data   []byte
}

// Device creates GPU objects and uploads data to them.
// Create* calls are load-time operations; WriteBuffer is issued once per frame by the uniform arena.
type Device interface {
	// CreateBuffer allocates a buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: error if allocation fails
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// WriteBuffer uploads data into a buffer at the given byte offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination byte offset
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: error if the write falls outside the buffer
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateImage creates a sampled 2D image and uploads its RGBA8 pixels.
	//
	// Parameters:
	//   - desc: the image descriptor
	//   - pixels: tightly packed pixel data, 4 bytes per pixel, or nil to leave uninitialized
	//
	// Returns:
	//   - Image: the created image
	//   - error: error if creation fails
	CreateImage(desc ImageDescriptor, pixels []byte) (Image, error)

	// CreateSampler creates a sampler.
	//
	// Parameters:
	//   - desc: the sampler descriptor
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: error if creation fails
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreateShaderModule creates a shading stage from source or bytecode.
	//
	// Parameters:
	//   - desc: the shader module descriptor
	//
	// Returns:
	//   - ShaderModule: the created module
	//   - error: error if the backend rejects the stage
	CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModule, error)

	// CreateResourceLayout creates a resource layout.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - ResourceLayout: the created layout
	//   - error: error if creation fails
	CreateResourceLayout(desc ResourceLayoutDescriptor) (ResourceLayout, error)

	// CreateResourceSet binds resources to a layout.
	//
	// Parameters:
	//   - desc: the resource set descriptor
	//
	// Returns:
	//   - ResourceSet: the created set
	//   - error: error if an entry does not match the layout
	CreateResourceSet(desc ResourceSetDescriptor) (ResourceSet, error)

	// CreatePipeline creates a render pipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - Pipeline: the created pipeline
	//   - error: error if creation fails
	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)

	// MinUniformBufferOffsetAlignment returns the required alignment of dynamic uniform offsets.
	//
	// Returns:
	//   - uint32: the alignment in bytes, a power of two
	MinUniformBufferOffsetAlignment() uint32
}

// DrawEncoder is the draw-time binding surface of a render pass encoder.
type DrawEncoder interface {
	// SetPipeline binds a render pipeline.
	//
	// Parameters:
	//   - p: the pipeline
	SetPipeline(p Pipeline)

	// SetResourceSet binds a resource set at a set index.
	//
	// Parameters:
	//   - index: the set index
	//   - set: the resource set
	//   - dynamicOffsets: one offset per dynamic slot of the set, in binding order
	SetResourceSet(index uint32, set ResourceSet, dynamicOffsets []uint32)

	// SetStencilReference sets the stencil reference value.
	//
	// Parameters:
	//   - ref: the reference value
	SetStencilReference(ref uint32)
}
