package device

// ShaderStage is a bit set of programmable pipeline stages.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment

	ShaderStageNone ShaderStage = 0
)

// BindingKind is the resource category occupying a layout slot.
type BindingKind uint8

const (
	BindingUniformBuffer BindingKind = iota
	BindingTexture
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniformBuffer:
		return "UniformBuffer"
	case BindingTexture:
		return "Texture"
	case BindingSampler:
		return "Sampler"
	}
	return "Unknown"
}

// BufferUsage is a bit set describing how a buffer may be used.
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageCopyDst
	BufferUsageVertex
	BufferUsageIndex
)

// TextureFormat is the pixel format of an image or render target.
type TextureFormat uint8

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatRGBA16Float
	TextureFormatDepth24Plus
	TextureFormatDepth24PlusStencil8
	TextureFormatDepth32Float
)

// HasStencil reports whether the format carries a stencil aspect.
func (f TextureFormat) HasStencil() bool {
	return f == TextureFormatDepth24PlusStencil8
}

// FilterMode selects texel filtering.
type FilterMode uint8

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// AddressMode selects how coordinates outside [0, 1] are resolved.
type AddressMode uint8

const (
	AddressRepeat AddressMode = iota
	AddressClampToEdge
	AddressMirrorRepeat
)

// VertexFormat is the data type of one vertex attribute.
type VertexFormat uint8

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUint32
	VertexFormatUint32x4
	VertexFormatUint8x4
	VertexFormatUnorm8x4
)

// Size returns the byte size of one attribute of this format.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatFloat32, VertexFormatUint32, VertexFormatUint8x4, VertexFormatUnorm8x4:
		return 4
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4, VertexFormatUint32x4:
		return 16
	}
	return 0
}
