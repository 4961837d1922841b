// Package wgpu_device implements device.Device on WebGPU through github.com/cogentcore/webgpu.
package wgpu_device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDevice is the implementation of the WGPUDevice interface.
type wgpuDevice struct {
	mu     *sync.Mutex
	label  string
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference
	limits               wgpu.Limits
}

// WGPUDevice is a device.Device backed by a WebGPU adapter. It runs headless; surfaces and
// swapchains belong to the caller, which reaches the raw handles through Device and Queue.
type WGPUDevice interface {
	device.Device

	// Device returns the underlying wgpu device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the queue buffer and texture uploads are submitted on.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// Encoder wraps a render pass encoder as a device.DrawEncoder.
	//
	// Parameters:
	//   - pass: the render pass encoder
	//
	// Returns:
	//   - device.DrawEncoder: the wrapped encoder
	Encoder(pass *wgpu.RenderPassEncoder) device.DrawEncoder

	// Release releases the device, adapter and instance.
	Release()
}

var _ WGPUDevice = &wgpuDevice{}

// NewWGPUDevice requests an adapter and a device. The calling goroutine is locked to its OS thread.
//
// Parameters:
//   - options: a variadic list of options
//
// Returns:
//   - WGPUDevice: the device
//   - error: error if no adapter or device is available
func NewWGPUDevice(options ...WGPUDeviceOption) (WGPUDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:              &sync.Mutex{},
		label:           "Main Device",
		powerPreference: wgpu.PowerPreferenceHighPerformance,
		limits:          wgpu.DefaultLimits(),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		PowerPreference:      d.powerPreference,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          d.label,
		RequiredLimits: &wgpu.RequiredLimits{Limits: d.limits},
	})
	if err != nil {
		d.adapter.Release()
		d.instance.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()
	common.Logger().Info("wgpu device ready", "label", d.label, "uniform_alignment", d.limits.MinUniformBufferOffsetAlignment)
	return d, nil
}

func (d *wgpuDevice) Device() *wgpu.Device {
	return d.device
}

func (d *wgpuDevice) Queue() *wgpu.Queue {
	return d.queue
}

func (d *wgpuDevice) MinUniformBufferOffsetAlignment() uint32 {
	return d.limits.MinUniformBufferOffsetAlignment
}

func (d *wgpuDevice) CreateBuffer(desc device.BufferDescriptor) (device.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBuffer{label: desc.Label, buffer: buf, size: desc.Size}, nil
}

func (d *wgpuDevice) WriteBuffer(buf device.Buffer, offset uint64, data []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok || wb.buffer == nil {
		return fmt.Errorf("write to foreign or released buffer %q", buf.Label())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.WriteBuffer(wb.buffer, offset, data)
}

func (d *wgpuDevice) CreateImage(desc device.ImageDescriptor, pixels []byte) (device.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	format, ok := textureFormats[desc.Format]
	if !ok {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	size := wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image %q: %w", desc.Label, err)
	}
	if len(pixels) > 0 {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  desc.Width * 4,
				RowsPerImage: desc.Height,
			},
			&size,
		)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view of image %q: %w", desc.Label, err)
	}
	return &wgpuImage{label: desc.Label, texture: tex, view: view, width: desc.Width, height: desc.Height}, nil
}

func (d *wgpuDevice) CreateSampler(desc device.SamplerDescriptor) (device.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	smp, err := d.device.CreateSampler(samplerDescriptor(desc))
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler %q: %w", desc.Label, err)
	}
	return &wgpuSampler{label: desc.Label, sampler: smp}, nil
}

func (d *wgpuDevice) CreateShaderModule(desc device.ShaderModuleDescriptor) (device.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	md := &wgpu.ShaderModuleDescriptor{Label: desc.Label}
	switch {
	case len(desc.Bytecode) > 0:
		md.SPIRVDescriptor = &wgpu.ShaderModuleSPIRVDescriptor{Code: desc.Bytecode}
	case desc.Source != "":
		md.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source}
	default:
		return nil, fmt.Errorf("shader module %q has neither bytecode nor source", desc.Label)
	}
	m, err := d.device.CreateShaderModule(md)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %q: %w", desc.Label, err)
	}
	return &wgpuShaderModule{label: desc.Label, module: m}, nil
}

func (d *wgpuDevice) CreateResourceLayout(desc device.ResourceLayoutDescriptor) (device.ResourceLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entries = append(entries, layoutEntry(e))
	}
	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resource layout %q: %w", desc.Label, err)
	}
	return &wgpuResourceLayout{label: desc.Label, layout: layout, entries: append([]device.LayoutEntry(nil), desc.Entries...)}, nil
}

func (d *wgpuDevice) CreateResourceSet(desc device.ResourceSetDescriptor) (device.ResourceSet, error) {
	layout, ok := desc.Layout.(*wgpuResourceLayout)
	if !ok || layout.layout == nil {
		return nil, fmt.Errorf("resource set %q: foreign or released layout", desc.Label)
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			wb, ok := e.Buffer.(*wgpuBuffer)
			if !ok {
				return nil, fmt.Errorf("resource set %q: binding %d holds a foreign buffer", desc.Label, e.Binding)
			}
			entry.Buffer = wb.buffer
			entry.Offset = e.Offset
			entry.Size = common.Coalesce(e.Size, wgpu.WholeSize)
		case e.Image != nil:
			entry.TextureView = TextureView(e.Image)
		case e.Sampler != nil:
			ws, ok := e.Sampler.(*wgpuSampler)
			if !ok {
				return nil, fmt.Errorf("resource set %q: binding %d holds a foreign sampler", desc.Label, e.Binding)
			}
			entry.Sampler = ws.sampler
		default:
			return nil, fmt.Errorf("resource set %q: binding %d is empty", desc.Label, e.Binding)
		}
		entries = append(entries, entry)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resource set %q: %w", desc.Label, err)
	}
	return &wgpuResourceSet{label: desc.Label, group: group, layout: desc.Layout}, nil
}

func (d *wgpuDevice) CreatePipeline(desc device.PipelineDescriptor) (device.Pipeline, error) {
	vs, ok := desc.VertexModule.(*wgpuShaderModule)
	if !ok {
		return nil, errors.New("a vertex module created by this device is required to create a render pipeline")
	}
	layouts := make([]*wgpu.BindGroupLayout, len(desc.Layouts))
	for i, l := range desc.Layouts {
		wl, ok := l.(*wgpuResourceLayout)
		if !ok {
			return nil, fmt.Errorf("pipeline %q: layout %d is missing or foreign", desc.Label, i)
		}
		layouts[i] = wl.layout
	}
	if desc.State.FillMode != state.FillSolid {
		common.Logger().Warn("wireframe fill is not supported by WebGPU, drawing solid", "pipeline", desc.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline layout %q: %w", desc.Label, err)
	}

	rpd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: desc.VertexEntry,
			Buffers:    vertexBuffers(desc.VertexBuffers),
		},
		Primitive:    primitiveState(desc.State),
		DepthStencil: depthStencilState(desc.State, desc.DepthFormat),
		Multisample: wgpu.MultisampleState{
			Count:                  max(desc.SampleCount, 1),
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: desc.State.AlphaToCoverage,
		},
	}
	if fs, ok := desc.FragmentModule.(*wgpuShaderModule); ok {
		targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
		for _, f := range desc.ColorFormats {
			targets = append(targets, wgpu.ColorTargetState{
				Format:    textureFormats[f],
				Blend:     blendState(desc.State),
				WriteMask: colorWriteMask(desc.State.ColorWriteMask),
			})
		}
		rpd.Fragment = &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		}
	}

	created, err := d.device.CreateRenderPipeline(rpd)
	if err != nil {
		pipelineLayout.Release()
		return nil, fmt.Errorf("failed to create render pipeline %q: %w", desc.Label, err)
	}
	return &wgpuPipeline{label: desc.Label, pipeline: created, layout: pipelineLayout}, nil
}

func (d *wgpuDevice) Encoder(pass *wgpu.RenderPassEncoder) device.DrawEncoder {
	return &passEncoder{pass: pass}
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = nil
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// passEncoder adapts a wgpu render pass encoder to device.DrawEncoder.
type passEncoder struct {
	pass *wgpu.RenderPassEncoder
}

func (e *passEncoder) SetPipeline(p device.Pipeline) {
	if rp := RenderPipeline(p); rp != nil {
		e.pass.SetPipeline(rp)
	}
}

func (e *passEncoder) SetResourceSet(index uint32, set device.ResourceSet, dynamicOffsets []uint32) {
	if ws, ok := set.(*wgpuResourceSet); ok && ws.group != nil {
		e.pass.SetBindGroup(index, ws.group, dynamicOffsets)
	}
}

func (e *passEncoder) SetStencilReference(ref uint32) {
	e.pass.SetStencilReference(ref)
}
