package pipeline

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
)

// shaderAsset is the implementation of the Shader interface.
type shaderAsset struct {
	name     string
	path     string
	queue    shader.Queue
	variants []RenderState
	// modules are the device shader modules shared by the variants, keyed by stage key.
	modules map[string]device.ShaderModule
}

// Shader is a compiled shader asset: the ordered render-state variants of one shader description.
// A variant's index in Variants is its permanent identity.
type Shader interface {
	// Name returns the shader name declared by the description.
	//
	// Returns:
	//   - string: the shader name
	Name() string

	// Path returns the description file the asset was loaded from. Empty for in-memory descriptions.
	//
	// Returns:
	//   - string: the path
	Path() string

	// Queue returns the render queue of the asset.
	//
	// Returns:
	//   - shader.Queue: the queue
	Queue() shader.Queue

	// Variants returns the compiled variants in declaration order.
	//
	// Returns:
	//   - []RenderState: the variants
	Variants() []RenderState

	// Variant returns the variant at index.
	//
	// Parameters:
	//   - index: the variant index
	//
	// Returns:
	//   - RenderState: the variant
	//   - bool: false if index is out of range
	Variant(index int) (RenderState, bool)

	// Dispose releases every variant and shader module. The asset is unusable afterwards.
	Dispose()
}

var _ Shader = &shaderAsset{}

func (s *shaderAsset) Name() string {
	return s.name
}

func (s *shaderAsset) Path() string {
	return s.path
}

func (s *shaderAsset) Queue() shader.Queue {
	return s.queue
}

func (s *shaderAsset) Variants() []RenderState {
	return s.variants
}

func (s *shaderAsset) Variant(index int) (RenderState, bool) {
	if index < 0 || index >= len(s.variants) {
		return nil, false
	}
	return s.variants[index], true
}

func (s *shaderAsset) Dispose() {
	for _, v := range s.variants {
		v.Release()
	}
	s.variants = nil
	for key, m := range s.modules {
		m.Release()
		delete(s.modules, key)
	}
}
