package wgpu_device

import "github.com/cogentcore/webgpu/wgpu"

// WGPUDeviceOption is a functional option used to configure a WGPUDevice during construction.
type WGPUDeviceOption func(*wgpuDevice)

// WithLabel sets the debug label of the device.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - WGPUDeviceOption: a function that sets the label
func WithLabel(label string) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.label = label
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether the fallback adapter is required
//
// Returns:
//   - WGPUDeviceOption: a function that sets the adapter preference
func WithForceFallbackAdapter(force bool) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithLowPower prefers an integrated adapter over a discrete one.
//
// Returns:
//   - WGPUDeviceOption: a function that sets the power preference
func WithLowPower() WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.powerPreference = wgpu.PowerPreferenceLowPower
	}
}

// WithMinUniformBufferOffsetAlignment requests a dynamic uniform offset alignment.
// Adapters reject values below their own minimum.
//
// Parameters:
//   - alignment: the alignment in bytes, a power of two
//
// Returns:
//   - WGPUDeviceOption: a function that sets the requested limit
func WithMinUniformBufferOffsetAlignment(alignment uint32) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.limits.MinUniformBufferOffsetAlignment = alignment
	}
}
