package bind_group_provider

import "github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithResourceLayout sets the layout the provider builds sets against. The layout is borrowed.
//
// Parameters:
//   - layout: the resource layout
//
// Returns:
//   - BindGroupProviderOption: a function that sets the layout for this provider
func WithResourceLayout(layout device.ResourceLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.layout = layout
		p.ownedLayout = false
	}
}

// WithOwnedResourceLayout sets the layout the provider builds sets against and releases it with the provider.
//
// Parameters:
//   - layout: the resource layout
//
// Returns:
//   - BindGroupProviderOption: a function that sets the owned layout for this provider
func WithOwnedResourceLayout(layout device.ResourceLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.layout = layout
		p.ownedLayout = true
	}
}

// WithBuffer binds a buffer range for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//   - offset: the byte offset of the bound range
//   - size: the byte size of the bound range, zero for the rest of the buffer
//
// Returns:
//   - BindGroupProviderOption: a function that binds the buffer for the specified binding
func WithBuffer(binding uint32, buf device.Buffer, offset, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = bufferBinding{buffer: buf, offset: offset, size: size}
	}
}

// WithImage binds an image for a specific binding index.
//
// Parameters:
//   - binding: the binding index
//   - img: the image
//
// Returns:
//   - BindGroupProviderOption: a function that binds the image for the specified binding
func WithImage(binding uint32, img device.Image) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.images[binding] = img
	}
}

// WithSampler binds a sampler for a specific binding index.
//
// Parameters:
//   - binding: the binding index
//   - s: the sampler
//
// Returns:
//   - BindGroupProviderOption: a function that binds the sampler for the specified binding
func WithSampler(binding uint32, s device.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.samplers[binding] = s
	}
}
