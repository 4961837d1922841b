package pipeline

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
)

// renderState is the implementation of the RenderState interface.
// It holds one compiled variant of a shader asset: its fixed-function state, stages, uniform table
// and the device objects built from them.
type renderState struct {
	index         int
	name          string
	renderPass    render_pass.RenderPass
	vertexFactory VertexFactory

	// state is the typed state the variant was described with; packed is its packed form.
	state  state.State
	packed state.Block

	vertexStage, fragmentStage shader.Stage

	table *uniformTable

	// layouts is indexed by set number. The per-frame layout at set 0 is borrowed from the render pass.
	layouts  [setCount]device.ResourceLayout
	pipeline device.Pipeline

	// dynamic holds the resource set binding the frame arena buffer to every uniform block.
	dynamic bind_group_provider.BindGroupProvider
}

// RenderState is one compiled variant of a shader asset. It couples the variant's target render pass,
// vertex factory and fixed-function state with the uniform table merged from its stages, the resource
// layouts built from that table, the device pipeline and the shared dynamic-uniform resource set.
type RenderState interface {
	// Index returns the declaration index of the variant, its permanent identity within the asset.
	//
	// Returns:
	//   - int: the variant index
	Index() int

	// Name returns the variant name.
	//
	// Returns:
	//   - string: the variant name
	Name() string

	// RenderPass returns the pass the variant draws in.
	//
	// Returns:
	//   - render_pass.RenderPass: the render pass
	RenderPass() render_pass.RenderPass

	// VertexFactory returns the vertex factory the variant was compiled for.
	//
	// Returns:
	//   - VertexFactory: the vertex factory
	VertexFactory() VertexFactory

	// State returns the typed fixed-function state.
	//
	// Returns:
	//   - state.State: the state
	State() state.State

	// PackedState returns the packed form of State.
	//
	// Returns:
	//   - state.Block: the packed state block
	PackedState() state.Block

	// Stage retrieves the compiled stage of the given type, or nil if the variant has none.
	//
	// Parameters:
	//   - shaderType: the stage type
	//
	// Returns:
	//   - shader.Stage: the stage or nil
	Stage(shaderType shader.ShaderType) shader.Stage

	// Uniforms returns the uniform table in UniformIndex order.
	//
	// Returns:
	//   - []ShaderUniform: the table
	Uniforms() []ShaderUniform

	// FindUniform looks a uniform up by name.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - ShaderUniform: the uniform
	//   - bool: true if the variant declares the name
	FindUniform(name string) (ShaderUniform, bool)

	// ImageCount returns the number of material images.
	//
	// Returns:
	//   - int: the image count
	ImageCount() int

	// SamplerCount returns the number of material samplers.
	//
	// Returns:
	//   - int: the sampler count
	SamplerCount() int

	// Blocks returns the dynamic uniform blocks in block index order.
	//
	// Returns:
	//   - []UniformBlock: the blocks
	Blocks() []UniformBlock

	// BlockOrder returns block indices in binding order, the order dynamic offsets are supplied in.
	//
	// Returns:
	//   - []int: the block indices
	BlockOrder() []int

	// Lightmap returns the set 1 slots in binding order. Empty when the variant samples no lightmap.
	//
	// Returns:
	//   - []LightmapSlot: the lightmap slots
	Lightmap() []LightmapSlot

	// Pipeline returns the device pipeline.
	//
	// Returns:
	//   - device.Pipeline: the pipeline
	Pipeline() device.Pipeline

	// ResourceLayout returns the layout of a binding set, or nil if the variant binds nothing there.
	//
	// Parameters:
	//   - set: the set number
	//
	// Returns:
	//   - device.ResourceLayout: the layout or nil
	ResourceLayout(set uint32) device.ResourceLayout

	// DynamicResourceSet returns the set 3 resource set, or nil when the variant has no uniform blocks.
	//
	// Returns:
	//   - device.ResourceSet: the dynamic uniform resource set or nil
	DynamicResourceSet() device.ResourceSet

	// Release releases the pipeline, the owned layouts and the dynamic resource set.
	// Stages and the borrowed per-frame layout are left alone.
	Release()
}

var _ RenderState = &renderState{}

// NewRenderState creates a RenderState from the provided options.
// The compiler builds variants this way; tests use it to assemble variants without a device.
//
// Parameters:
//   - index: the declaration index of the variant
//   - name: the variant name
//   - options: a variadic list of options
//
// Returns:
//   - RenderState: the variant
func NewRenderState(index int, name string, options ...RenderStateOption) RenderState {
	rs := &renderState{
		index: index,
		name:  name,
		state: state.Default(),
		table: newUniformTable(),
	}
	for _, opt := range options {
		opt(rs)
	}
	rs.packed = rs.state.Pack()
	return rs
}

func (r *renderState) Index() int {
	return r.index
}

func (r *renderState) Name() string {
	return r.name
}

func (r *renderState) RenderPass() render_pass.RenderPass {
	return r.renderPass
}

func (r *renderState) VertexFactory() VertexFactory {
	return r.vertexFactory
}

func (r *renderState) State() state.State {
	return r.state
}

func (r *renderState) PackedState() state.Block {
	return r.packed
}

func (r *renderState) Stage(shaderType shader.ShaderType) shader.Stage {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return r.vertexStage
	case shader.ShaderTypeFragment:
		return r.fragmentStage
	}
	return nil
}

func (r *renderState) Uniforms() []ShaderUniform {
	return r.table.uniforms
}

func (r *renderState) FindUniform(name string) (ShaderUniform, bool) {
	i, ok := r.table.byName[name]
	if !ok {
		return ShaderUniform{}, false
	}
	return r.table.uniforms[i], true
}

func (r *renderState) ImageCount() int {
	return r.table.images
}

func (r *renderState) SamplerCount() int {
	return r.table.samplers
}

func (r *renderState) Blocks() []UniformBlock {
	return r.table.blocks
}

func (r *renderState) BlockOrder() []int {
	return r.table.blockOrder()
}

func (r *renderState) Lightmap() []LightmapSlot {
	return r.table.lightmap
}

func (r *renderState) Pipeline() device.Pipeline {
	return r.pipeline
}

func (r *renderState) ResourceLayout(set uint32) device.ResourceLayout {
	if set >= setCount {
		return nil
	}
	return r.layouts[set]
}

func (r *renderState) DynamicResourceSet() device.ResourceSet {
	if r.dynamic == nil {
		return nil
	}
	return r.dynamic.ResourceSet()
}

func (r *renderState) Release() {
	if r.dynamic != nil {
		r.dynamic.Release()
		r.dynamic = nil
	}
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}
	for set := SetLightmap; set < setCount; set++ {
		if r.layouts[set] != nil {
			r.layouts[set].Release()
			r.layouts[set] = nil
		}
	}
	r.layouts[SetPerFrame] = nil
}
