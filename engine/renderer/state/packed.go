package state

// Word selects one of the three integers of a packed Block.
type Word uint8

const (
	WordRasterizer Word = iota
	WordDepthStencil
	WordBlend
)

// Field describes one bit-field inside a Block word: the bits owned by the field are Mask<<Shift.
type Field struct {
	Name  string
	Word  Word
	Shift uint
	Mask  uint64
	// Max is the largest legal value of the field.
	Max uint64
}

const (
	rasterCullShift      = 0
	rasterFillShift      = 2
	rasterFrontFaceShift = 3
	rasterTopologyShift  = 4
	rasterDepthClipShift = 7
	rasterScissorShift   = 8

	dsDepthWriteShift      = 0
	dsDepthCompareShift    = 1
	dsStencilEnableShift   = 4
	dsSeparateStencilShift = 5
	dsStencilRefShift      = 6
	dsStencilReadShift     = 14
	dsStencilWriteShift    = 22
	dsFrontCompareShift    = 30
	dsFrontPassShift       = 33
	dsFrontFailShift       = 36
	dsFrontDepthFailShift  = 39
	dsBackCompareShift     = 42
	dsBackPassShift        = 45
	dsBackFailShift        = 48
	dsBackDepthFailShift   = 51

	blendWriteMaskShift       = 0
	blendColorSrcShift        = 4
	blendColorDstShift        = 8
	blendColorOpShift         = 12
	blendAlphaSrcShift        = 15
	blendAlphaDstShift        = 19
	blendAlphaOpShift         = 23
	blendAlphaToCoverageShift = 26

	mask1 = 0x1
	mask2 = 0x3
	mask3 = 0x7
	mask4 = 0xF
	mask8 = 0xFF
)

var (
	FieldCullMode  = Field{"CullMode", WordRasterizer, rasterCullShift, mask2, uint64(CullBack)}
	FieldFillMode  = Field{"FillMode", WordRasterizer, rasterFillShift, mask1, uint64(FillWireframe)}
	FieldFrontFace = Field{"FrontFace", WordRasterizer, rasterFrontFaceShift, mask1, uint64(FrontFaceCW)}
	FieldTopology  = Field{"Topology", WordRasterizer, rasterTopologyShift, mask3, uint64(TopologyPointList)}
	FieldDepthClip = Field{"DepthClip", WordRasterizer, rasterDepthClipShift, mask1, 1}
	FieldScissor   = Field{"Scissor", WordRasterizer, rasterScissorShift, mask1, 1}

	FieldDepthWrite            = Field{"DepthWrite", WordDepthStencil, dsDepthWriteShift, mask1, 1}
	FieldDepthCompare          = Field{"DepthCompare", WordDepthStencil, dsDepthCompareShift, mask3, uint64(CompareAlways)}
	FieldStencilEnable         = Field{"StencilEnable", WordDepthStencil, dsStencilEnableShift, mask1, 1}
	FieldSeparateStencil       = Field{"SeparateStencil", WordDepthStencil, dsSeparateStencilShift, mask1, 1}
	FieldStencilRef            = Field{"StencilRef", WordDepthStencil, dsStencilRefShift, mask8, 0xFF}
	FieldStencilReadMask       = Field{"StencilReadMask", WordDepthStencil, dsStencilReadShift, mask8, 0xFF}
	FieldStencilWriteMask      = Field{"StencilWriteMask", WordDepthStencil, dsStencilWriteShift, mask8, 0xFF}
	FieldStencilFrontCompare   = Field{"StencilFrontCompare", WordDepthStencil, dsFrontCompareShift, mask3, uint64(CompareAlways)}
	FieldStencilFrontPass      = Field{"StencilFrontPass", WordDepthStencil, dsFrontPassShift, mask3, uint64(StencilDecrWrap)}
	FieldStencilFrontFail      = Field{"StencilFrontFail", WordDepthStencil, dsFrontFailShift, mask3, uint64(StencilDecrWrap)}
	FieldStencilFrontDepthFail = Field{"StencilFrontDepthFail", WordDepthStencil, dsFrontDepthFailShift, mask3, uint64(StencilDecrWrap)}
	FieldStencilBackCompare    = Field{"StencilBackCompare", WordDepthStencil, dsBackCompareShift, mask3, uint64(CompareAlways)}
	FieldStencilBackPass       = Field{"StencilBackPass", WordDepthStencil, dsBackPassShift, mask3, uint64(StencilDecrWrap)}
	FieldStencilBackFail       = Field{"StencilBackFail", WordDepthStencil, dsBackFailShift, mask3, uint64(StencilDecrWrap)}
	FieldStencilBackDepthFail  = Field{"StencilBackDepthFail", WordDepthStencil, dsBackDepthFailShift, mask3, uint64(StencilDecrWrap)}

	FieldColorWriteMask  = Field{"ColorWriteMask", WordBlend, blendWriteMaskShift, mask4, uint64(ColorWriteAll)}
	FieldColorSrc        = Field{"ColorSrc", WordBlend, blendColorSrcShift, mask4, uint64(BlendOneMinusConstant)}
	FieldColorDst        = Field{"ColorDst", WordBlend, blendColorDstShift, mask4, uint64(BlendOneMinusConstant)}
	FieldColorOp         = Field{"ColorOp", WordBlend, blendColorOpShift, mask3, uint64(BlendOpMax)}
	FieldAlphaSrc        = Field{"AlphaSrc", WordBlend, blendAlphaSrcShift, mask4, uint64(BlendOneMinusConstant)}
	FieldAlphaDst        = Field{"AlphaDst", WordBlend, blendAlphaDstShift, mask4, uint64(BlendOneMinusConstant)}
	FieldAlphaOp         = Field{"AlphaOp", WordBlend, blendAlphaOpShift, mask3, uint64(BlendOpMax)}
	FieldAlphaToCoverage = Field{"AlphaToCoverage", WordBlend, blendAlphaToCoverageShift, mask1, 1}
)

// Fields lists every packed field in word then shift order.
var Fields = []Field{
	FieldCullMode, FieldFillMode, FieldFrontFace, FieldTopology, FieldDepthClip, FieldScissor,
	FieldDepthWrite, FieldDepthCompare, FieldStencilEnable, FieldSeparateStencil,
	FieldStencilRef, FieldStencilReadMask, FieldStencilWriteMask,
	FieldStencilFrontCompare, FieldStencilFrontPass, FieldStencilFrontFail, FieldStencilFrontDepthFail,
	FieldStencilBackCompare, FieldStencilBackPass, FieldStencilBackFail, FieldStencilBackDepthFail,
	FieldColorWriteMask, FieldColorSrc, FieldColorDst, FieldColorOp,
	FieldAlphaSrc, FieldAlphaDst, FieldAlphaOp, FieldAlphaToCoverage,
}

var (
	frontStencilFields = [4]Field{FieldStencilFrontCompare, FieldStencilFrontPass, FieldStencilFrontFail, FieldStencilFrontDepthFail}
	backStencilFields  = [4]Field{FieldStencilBackCompare, FieldStencilBackPass, FieldStencilBackFail, FieldStencilBackDepthFail}
)

// Block is the packed form of a State: three words of disjoint bit-fields.
// The zero Block is not a valid pipeline state; call SetDefault first.
type Block struct {
	Rasterizer   uint64
	DepthStencil uint64
	Blend        uint64
}

func (b *Block) word(w Word) *uint64 {
	switch w {
	case WordRasterizer:
		return &b.Rasterizer
	case WordDepthStencil:
		return &b.DepthStencil
	case WordBlend:
		return &b.Blend
	}
	panic("state: invalid block word")
}

// Set clears exactly the bits owned by f and ORs in v shifted into place.
// Bits of v above the field mask are discarded so a neighbouring field is never touched.
//
// Parameters:
//   - f: the field to write
//   - v: the new value
func (b *Block) Set(f Field, v uint64) {
	w := b.word(f.Word)
	*w = (*w &^ (f.Mask << f.Shift)) | ((v & f.Mask) << f.Shift)
}

// Get masks and shifts the value of f back out of the block.
//
// Parameters:
//   - f: the field to read
//
// Returns:
//   - uint64: the field value
func (b Block) Get(f Field) uint64 {
	return (*b.word(f.Word) >> f.Shift) & f.Mask
}

func (b *Block) setBool(f Field, v bool) {
	if v {
		b.Set(f, 1)
	} else {
		b.Set(f, 0)
	}
}

func (b Block) getBool(f Field) bool {
	return b.Get(f) != 0
}

func (b *Block) setStencilFace(fields [4]Field, face StencilFace) {
	b.Set(fields[0], uint64(face.Compare))
	b.Set(fields[1], uint64(face.Pass))
	b.Set(fields[2], uint64(face.Fail))
	b.Set(fields[3], uint64(face.DepthFail))
}

func (b Block) stencilFace(fields [4]Field) StencilFace {
	return StencilFace{
		Compare:   CompareFunc(b.Get(fields[0])),
		Pass:      StencilOp(b.Get(fields[1])),
		Fail:      StencilOp(b.Get(fields[2])),
		DepthFail: StencilOp(b.Get(fields[3])),
	}
}

// SetDefault overwrites every field with the value of Default.
func (b *Block) SetDefault() {
	*b = Default().Pack()
}

// IsBlendEnabled is false only when both blend equations are the identity.
func (b Block) IsBlendEnabled() bool {
	return Unpack(b).IsBlendEnabled()
}

// IsDepthTestEnabled is false only when the depth compare function is CompareAlways.
func (b Block) IsDepthTestEnabled() bool {
	return b.DepthCompare() != CompareAlways
}

func (b *Block) SetCullMode(v CullMode)             { b.Set(FieldCullMode, uint64(v)) }
func (b Block) CullMode() CullMode                  { return CullMode(b.Get(FieldCullMode)) }
func (b *Block) SetFillMode(v FillMode)             { b.Set(FieldFillMode, uint64(v)) }
func (b Block) FillMode() FillMode                  { return FillMode(b.Get(FieldFillMode)) }
func (b *Block) SetFrontFace(v FrontFace)           { b.Set(FieldFrontFace, uint64(v)) }
func (b Block) FrontFace() FrontFace                { return FrontFace(b.Get(FieldFrontFace)) }
func (b *Block) SetTopology(v Topology)             { b.Set(FieldTopology, uint64(v)) }
func (b Block) Topology() Topology                  { return Topology(b.Get(FieldTopology)) }
func (b *Block) SetDepthClip(v bool)                { b.setBool(FieldDepthClip, v) }
func (b Block) DepthClip() bool                     { return b.getBool(FieldDepthClip) }
func (b *Block) SetScissor(v bool)                  { b.setBool(FieldScissor, v) }
func (b Block) Scissor() bool                       { return b.getBool(FieldScissor) }
func (b *Block) SetDepthWrite(v bool)               { b.setBool(FieldDepthWrite, v) }
func (b Block) DepthWrite() bool                    { return b.getBool(FieldDepthWrite) }
func (b *Block) SetDepthCompare(v CompareFunc)      { b.Set(FieldDepthCompare, uint64(v)) }
func (b Block) DepthCompare() CompareFunc           { return CompareFunc(b.Get(FieldDepthCompare)) }
func (b *Block) SetColorWriteMask(v ColorWriteMask) { b.Set(FieldColorWriteMask, uint64(v)) }
func (b Block) ColorWriteMask() ColorWriteMask      { return ColorWriteMask(b.Get(FieldColorWriteMask)) }
func (b *Block) SetAlphaToCoverage(v bool)          { b.setBool(FieldAlphaToCoverage, v) }
func (b Block) AlphaToCoverage() bool               { return b.getBool(FieldAlphaToCoverage) }

func (b *Block) SetColorBlend(c BlendComponent) {
	b.Set(FieldColorSrc, uint64(c.Src))
	b.Set(FieldColorDst, uint64(c.Dst))
	b.Set(FieldColorOp, uint64(c.Op))
}

func (b Block) ColorBlend() BlendComponent {
	return BlendComponent{BlendFactor(b.Get(FieldColorSrc)), BlendFactor(b.Get(FieldColorDst)), BlendOp(b.Get(FieldColorOp))}
}

func (b *Block) SetAlphaBlend(c BlendComponent) {
	b.Set(FieldAlphaSrc, uint64(c.Src))
	b.Set(FieldAlphaDst, uint64(c.Dst))
	b.Set(FieldAlphaOp, uint64(c.Op))
}

func (b Block) AlphaBlend() BlendComponent {
	return BlendComponent{BlendFactor(b.Get(FieldAlphaSrc)), BlendFactor(b.Get(FieldAlphaDst)), BlendOp(b.Get(FieldAlphaOp))}
}
