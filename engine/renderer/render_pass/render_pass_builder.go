package render_pass

import "github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"

// RenderPassOption is a functional option used to configure a RenderPass during construction.
type RenderPassOption func(*renderPass)

// WithTargets sets the attachment formats of the pass.
//
// Parameters:
//   - t: the attachment description
//
// Returns:
//   - RenderPassOption: option function to apply
func WithTargets(t Targets) RenderPassOption {
	return func(p *renderPass) {
		if t.SampleCount == 0 {
			t.SampleCount = 1
		}
		p.targets = t
	}
}

// WithDepthOnly removes every color target and renders depth into the given format.
//
// Parameters:
//   - format: the depth attachment format
//
// Returns:
//   - RenderPassOption: option function to apply
func WithDepthOnly(format device.TextureFormat) RenderPassOption {
	return func(p *renderPass) {
		p.targets.ColorFormats = nil
		p.targets.DepthFormat = format
	}
}

// WithPerFrameResources sets the set 0 layout and resource set of the pass.
//
// Parameters:
//   - layout: the per-frame layout
//   - set: the per-frame resource set created against layout
//
// Returns:
//   - RenderPassOption: option function to apply
func WithPerFrameResources(layout device.ResourceLayout, set device.ResourceSet) RenderPassOption {
	return func(p *renderPass) {
		p.layout = layout
		p.set = set
	}
}
