package wgpu_device

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	label  string
	buffer *wgpu.Buffer
	size   uint64
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }

func (b *wgpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

type wgpuImage struct {
	label   string
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   uint32
	height  uint32
}

func (i *wgpuImage) Label() string  { return i.label }
func (i *wgpuImage) Width() uint32  { return i.width }
func (i *wgpuImage) Height() uint32 { return i.height }

func (i *wgpuImage) Release() {
	if i.view != nil {
		i.view.Release()
		i.view = nil
	}
	if i.texture != nil {
		i.texture.Release()
		i.texture = nil
	}
}

type wgpuSampler struct {
	label   string
	sampler *wgpu.Sampler
}

func (s *wgpuSampler) Label() string { return s.label }

func (s *wgpuSampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}

type wgpuShaderModule struct {
	label  string
	module *wgpu.ShaderModule
}

func (m *wgpuShaderModule) Label() string { return m.label }

func (m *wgpuShaderModule) Release() {
	if m.module != nil {
		m.module.Release()
		m.module = nil
	}
}

type wgpuResourceLayout struct {
	label   string
	layout  *wgpu.BindGroupLayout
	entries []device.LayoutEntry
}

func (l *wgpuResourceLayout) Label() string                 { return l.label }
func (l *wgpuResourceLayout) Entries() []device.LayoutEntry { return l.entries }

func (l *wgpuResourceLayout) Release() {
	if l.layout != nil {
		l.layout.Release()
		l.layout = nil
	}
}

type wgpuResourceSet struct {
	label  string
	group  *wgpu.BindGroup
	layout device.ResourceLayout
}

func (s *wgpuResourceSet) Label() string                 { return s.label }
func (s *wgpuResourceSet) Layout() device.ResourceLayout { return s.layout }

func (s *wgpuResourceSet) Release() {
	if s.group != nil {
		s.group.Release()
		s.group = nil
	}
}

type wgpuPipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
}

func (p *wgpuPipeline) Label() string { return p.label }

func (p *wgpuPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}

// RenderPipeline returns the wgpu pipeline behind a pipeline created by this package, or nil.
func RenderPipeline(p device.Pipeline) *wgpu.RenderPipeline {
	if wp, ok := p.(*wgpuPipeline); ok {
		return wp.pipeline
	}
	return nil
}

// TextureView returns the wgpu view behind an image created by this package, or nil.
func TextureView(img device.Image) *wgpu.TextureView {
	if wi, ok := img.(*wgpuImage); ok {
		return wi.view
	}
	return nil
}
