package pipeline

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
)

// RenderStateOption is a functional option used to configure a RenderState during construction.
type RenderStateOption func(*renderState)

// WithRenderPass sets the render pass the variant draws in.
//
// Parameters:
//   - p: the render pass
//
// Returns:
//   - RenderStateOption: a function that sets the render pass
func WithRenderPass(p render_pass.RenderPass) RenderStateOption {
	return func(r *renderState) {
		r.renderPass = p
	}
}

// WithVertexFactory sets the vertex factory of the variant.
//
// Parameters:
//   - f: the vertex factory
//
// Returns:
//   - RenderStateOption: a function that sets the vertex factory
func WithVertexFactory(f VertexFactory) RenderStateOption {
	return func(r *renderState) {
		r.vertexFactory = f
	}
}

// WithState sets the fixed-function state. The packed form is derived from it.
//
// Parameters:
//   - s: the typed state
//
// Returns:
//   - RenderStateOption: a function that sets the state
func WithState(s state.State) RenderStateOption {
	return func(r *renderState) {
		r.state = s
	}
}

// WithVertexStage sets the vertex stage.
//
// Parameters:
//   - s: the compiled vertex stage
//
// Returns:
//   - RenderStateOption: a function that sets the vertex stage
func WithVertexStage(s shader.Stage) RenderStateOption {
	return func(r *renderState) {
		r.vertexStage = s
	}
}

// WithFragmentStage sets the fragment stage.
//
// Parameters:
//   - s: the compiled fragment stage
//
// Returns:
//   - RenderStateOption: a function that sets the fragment stage
func WithFragmentStage(s shader.Stage) RenderStateOption {
	return func(r *renderState) {
		r.fragmentStage = s
	}
}

// WithBindings merges reflected bindings into the uniform table, vertex stage bindings first.
// Conflicting bindings panic; the compiler merges through mergeBindings instead and returns the error.
//
// Parameters:
//   - alignment: the dynamic uniform offset alignment the block sizes are rounded to
//   - stages: the reflected bindings of each stage, in stage order
//
// Returns:
//   - RenderStateOption: a function that fills the uniform table
func WithBindings(alignment uint32, stages ...[]shader.ResourceBinding) RenderStateOption {
	return func(r *renderState) {
		if err := r.mergeBindings(alignment, stages...); err != nil {
			panic("pipeline: " + err.Error())
		}
	}
}

// WithPipeline sets the device pipeline.
//
// Parameters:
//   - p: the pipeline
//
// Returns:
//   - RenderStateOption: a function that sets the pipeline
func WithPipeline(p device.Pipeline) RenderStateOption {
	return func(r *renderState) {
		r.pipeline = p
	}
}

// WithResourceLayout sets the layout of a binding set.
//
// Parameters:
//   - set: the set number
//   - layout: the resource layout
//
// Returns:
//   - RenderStateOption: a function that sets the layout
func WithResourceLayout(set uint32, layout device.ResourceLayout) RenderStateOption {
	return func(r *renderState) {
		if set < setCount {
			r.layouts[set] = layout
		}
	}
}

// WithDynamicResourceSet sets the provider holding the dynamic uniform resource set.
//
// Parameters:
//   - p: the provider
//
// Returns:
//   - RenderStateOption: a function that sets the dynamic provider
func WithDynamicResourceSet(p bind_group_provider.BindGroupProvider) RenderStateOption {
	return func(r *renderState) {
		r.dynamic = p
	}
}

func (r *renderState) mergeBindings(alignment uint32, stages ...[]shader.ResourceBinding) error {
	t := newUniformTable()
	for _, b := range stages {
		if err := t.merge(b); err != nil {
			return err
		}
	}
	t.align(alignment)
	r.table = t
	return nil
}
