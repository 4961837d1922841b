// Package render_pass provides the registry of named render passes that shader descriptions target.
// Each pass carries its attachment formats and the per-frame resource layout/set that every pipeline
// drawn in the pass binds at set 0.
package render_pass

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// Default pass names registered by the renderer.
const (
	PassForward      = "Forward"
	PassDepthPrepass = "DepthPrepass"
	PassShadowCaster = "ShadowCaster"
)

// Targets describes the attachments a pass renders into.
type Targets struct {
	ColorFormats []device.TextureFormat
	DepthFormat  device.TextureFormat
	SampleCount  uint32
}

// renderPass is the implementation of the RenderPass interface.
type renderPass struct {
	name    string
	targets Targets
	layout  device.ResourceLayout
	set     device.ResourceSet
}

// RenderPass is a named pass a render-state variant targets.
type RenderPass interface {
	// Name returns the unique name of the pass, as referenced by RenderPass statements.
	//
	// Returns:
	//   - string: the pass name
	Name() string

	// Targets returns the attachment formats of the pass.
	//
	// Returns:
	//   - Targets: the attachment description
	Targets() Targets

	// PerFrameResourceLayout returns the set 0 layout shared by every pipeline in the pass.
	// Returns nil when the pass has no per-frame resources.
	//
	// Returns:
	//   - device.ResourceLayout: the per-frame layout or nil
	PerFrameResourceLayout() device.ResourceLayout

	// PerFrameResourceSet returns the set 0 resource set bound before every draw in the pass.
	// Returns nil when the pass has no per-frame resources.
	//
	// Returns:
	//   - device.ResourceSet: the per-frame set or nil
	PerFrameResourceSet() device.ResourceSet
}

var _ RenderPass = &renderPass{}

// NewRenderPass creates a RenderPass with the given name and options.
// Without options the pass has a single RGBA8 color target, a Depth24PlusStencil8 depth target,
// one sample and no per-frame resources.
//
// Parameters:
//   - name: the unique pass name
//   - options: a variadic list of options to configure the pass
//
// Returns:
//   - RenderPass: the configured pass
func NewRenderPass(name string, options ...RenderPassOption) RenderPass {
	if name == "" {
		panic("render_pass: name must not be empty")
	}
	p := &renderPass{
		name: name,
		targets: Targets{
			ColorFormats: []device.TextureFormat{device.TextureFormatRGBA8Unorm},
			DepthFormat:  device.TextureFormatDepth24PlusStencil8,
			SampleCount:  1,
		},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *renderPass) Name() string {
	return p.name
}

func (p *renderPass) Targets() Targets {
	return p.targets
}

func (p *renderPass) PerFrameResourceLayout() device.ResourceLayout {
	return p.layout
}

func (p *renderPass) PerFrameResourceSet() device.ResourceSet {
	return p.set
}
