package wgpu_device

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
	"github.com/cogentcore/webgpu/wgpu"
)

var cullModes = map[state.CullMode]wgpu.CullMode{
	state.CullNone:  wgpu.CullModeNone,
	state.CullFront: wgpu.CullModeFront,
	state.CullBack:  wgpu.CullModeBack,
}

var frontFaces = map[state.FrontFace]wgpu.FrontFace{
	state.FrontFaceCCW: wgpu.FrontFaceCCW,
	state.FrontFaceCW:  wgpu.FrontFaceCW,
}

var topologies = map[state.Topology]wgpu.PrimitiveTopology{
	state.TopologyTriangleList:  wgpu.PrimitiveTopologyTriangleList,
	state.TopologyTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
	state.TopologyLineList:      wgpu.PrimitiveTopologyLineList,
	state.TopologyLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	state.TopologyPointList:     wgpu.PrimitiveTopologyPointList,
}

var compareFuncs = map[state.CompareFunc]wgpu.CompareFunction{
	state.CompareNever:        wgpu.CompareFunctionNever,
	state.CompareLess:         wgpu.CompareFunctionLess,
	state.CompareEqual:        wgpu.CompareFunctionEqual,
	state.CompareLessEqual:    wgpu.CompareFunctionLessEqual,
	state.CompareGreater:      wgpu.CompareFunctionGreater,
	state.CompareNotEqual:     wgpu.CompareFunctionNotEqual,
	state.CompareGreaterEqual: wgpu.CompareFunctionGreaterEqual,
	state.CompareAlways:       wgpu.CompareFunctionAlways,
}

var stencilOps = map[state.StencilOp]wgpu.StencilOperation{
	state.StencilKeep:     wgpu.StencilOperationKeep,
	state.StencilZero:     wgpu.StencilOperationZero,
	state.StencilReplace:  wgpu.StencilOperationReplace,
	state.StencilInvert:   wgpu.StencilOperationInvert,
	state.StencilIncrSat:  wgpu.StencilOperationIncrementClamp,
	state.StencilDecrSat:  wgpu.StencilOperationDecrementClamp,
	state.StencilIncrWrap: wgpu.StencilOperationIncrementWrap,
	state.StencilDecrWrap: wgpu.StencilOperationDecrementWrap,
}

var blendFactors = map[state.BlendFactor]wgpu.BlendFactor{
	state.BlendZero:             wgpu.BlendFactorZero,
	state.BlendOne:              wgpu.BlendFactorOne,
	state.BlendSrcColor:         wgpu.BlendFactorSrc,
	state.BlendOneMinusSrcColor: wgpu.BlendFactorOneMinusSrc,
	state.BlendSrcAlpha:         wgpu.BlendFactorSrcAlpha,
	state.BlendOneMinusSrcAlpha: wgpu.BlendFactorOneMinusSrcAlpha,
	state.BlendDstColor:         wgpu.BlendFactorDst,
	state.BlendOneMinusDstColor: wgpu.BlendFactorOneMinusDst,
	state.BlendDstAlpha:         wgpu.BlendFactorDstAlpha,
	state.BlendOneMinusDstAlpha: wgpu.BlendFactorOneMinusDstAlpha,
	state.BlendSrcAlphaSaturate: wgpu.BlendFactorSrcAlphaSaturated,
	state.BlendConstant:         wgpu.BlendFactorConstant,
	state.BlendOneMinusConstant: wgpu.BlendFactorOneMinusConstant,
}

var blendOps = map[state.BlendOp]wgpu.BlendOperation{
	state.BlendOpAdd:             wgpu.BlendOperationAdd,
	state.BlendOpSubtract:        wgpu.BlendOperationSubtract,
	state.BlendOpReverseSubtract: wgpu.BlendOperationReverseSubtract,
	state.BlendOpMin:             wgpu.BlendOperationMin,
	state.BlendOpMax:             wgpu.BlendOperationMax,
}

var textureFormats = map[device.TextureFormat]wgpu.TextureFormat{
	device.TextureFormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	device.TextureFormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	device.TextureFormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	device.TextureFormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
	device.TextureFormatDepth24Plus:         wgpu.TextureFormatDepth24Plus,
	device.TextureFormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	device.TextureFormatDepth32Float:        wgpu.TextureFormatDepth32Float,
}

var vertexFormats = map[device.VertexFormat]wgpu.VertexFormat{
	device.VertexFormatFloat32:   wgpu.VertexFormatFloat32,
	device.VertexFormatFloat32x2: wgpu.VertexFormatFloat32x2,
	device.VertexFormatFloat32x3: wgpu.VertexFormatFloat32x3,
	device.VertexFormatFloat32x4: wgpu.VertexFormatFloat32x4,
	device.VertexFormatUint32:    wgpu.VertexFormatUint32,
	device.VertexFormatUint32x4:  wgpu.VertexFormatUint32x4,
	device.VertexFormatUint8x4:   wgpu.VertexFormatUint8x4,
	device.VertexFormatUnorm8x4:  wgpu.VertexFormatUnorm8x4,
}

var filterModes = map[device.FilterMode]wgpu.FilterMode{
	device.FilterLinear:  wgpu.FilterModeLinear,
	device.FilterNearest: wgpu.FilterModeNearest,
}

var addressModes = map[device.AddressMode]wgpu.AddressMode{
	device.AddressRepeat:       wgpu.AddressModeRepeat,
	device.AddressClampToEdge:  wgpu.AddressModeClampToEdge,
	device.AddressMirrorRepeat: wgpu.AddressModeMirrorRepeat,
}

// shaderStages converts a stage bit set.
func shaderStages(s device.ShaderStage) wgpu.ShaderStage {
	var out wgpu.ShaderStage
	if s&device.ShaderStageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&device.ShaderStageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	return out
}

func bufferUsage(u device.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&device.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&device.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	if u&device.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&device.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	return out
}

func colorWriteMask(m state.ColorWriteMask) wgpu.ColorWriteMask {
	var out wgpu.ColorWriteMask
	if m&state.ColorWriteRed != 0 {
		out |= wgpu.ColorWriteMaskRed
	}
	if m&state.ColorWriteGreen != 0 {
		out |= wgpu.ColorWriteMaskGreen
	}
	if m&state.ColorWriteBlue != 0 {
		out |= wgpu.ColorWriteMaskBlue
	}
	if m&state.ColorWriteAlpha != 0 {
		out |= wgpu.ColorWriteMaskAlpha
	}
	return out
}

// layoutEntry converts a backend-neutral layout slot.
func layoutEntry(e device.LayoutEntry) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: shaderStages(e.Visibility),
	}
	switch e.Kind {
	case device.BindingUniformBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.HasDynamicOffset = e.HasDynamicOffset
		entry.Buffer.MinBindingSize = e.MinBindingSize
	case device.BindingTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case device.BindingSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	}
	return entry
}

func blendComponent(c state.BlendComponent) wgpu.BlendComponent {
	return wgpu.BlendComponent{
		SrcFactor: blendFactors[c.Src],
		DstFactor: blendFactors[c.Dst],
		Operation: blendOps[c.Op],
	}
}

// blendState returns nil when blending is disabled.
func blendState(s state.State) *wgpu.BlendState {
	if !s.IsBlendEnabled() {
		return nil
	}
	return &wgpu.BlendState{
		Color: blendComponent(s.Color),
		Alpha: blendComponent(s.Alpha),
	}
}

func primitiveState(s state.State) wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  topologies[s.Topology],
		FrontFace: frontFaces[s.FrontFace],
		CullMode:  cullModes[s.CullMode],
	}
}

func stencilFace(f state.StencilFace) wgpu.StencilFaceState {
	return wgpu.StencilFaceState{
		Compare:     compareFuncs[f.Compare],
		FailOp:      stencilOps[f.Fail],
		DepthFailOp: stencilOps[f.DepthFail],
		PassOp:      stencilOps[f.Pass],
	}
}

// depthStencilState returns nil for pipelines without a depth target.
func depthStencilState(s state.State, format device.TextureFormat) *wgpu.DepthStencilState {
	if format == device.TextureFormatUndefined {
		return nil
	}
	ds := &wgpu.DepthStencilState{
		Format:            textureFormats[format],
		DepthWriteEnabled: s.DepthWrite,
		DepthCompare:      compareFuncs[s.DepthCompare],
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
	if s.Stencil.Enabled && format.HasStencil() {
		ds.StencilFront = stencilFace(s.Stencil.Front)
		ds.StencilBack = stencilFace(s.BackStencil())
		ds.StencilReadMask = uint32(s.Stencil.ReadMask)
		ds.StencilWriteMask = uint32(s.Stencil.WriteMask)
	}
	return ds
}

func vertexBuffers(layouts []device.VertexBufferLayout) []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, 0, len(layouts))
	for _, l := range layouts {
		attrs := make([]wgpu.VertexAttribute, 0, len(l.Attributes))
		for _, a := range l.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormats[a.Format],
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			})
		}
		out = append(out, wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}
	return out
}

func samplerDescriptor(desc device.SamplerDescriptor) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  addressModes[desc.AddressU],
		AddressModeV:  addressModes[desc.AddressV],
		AddressModeW:  addressModes[desc.AddressW],
		MagFilter:     filterModes[desc.MagFilter],
		MinFilter:     filterModes[desc.MinFilter],
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}
