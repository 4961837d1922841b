// Package state holds the fixed-function pipeline toggles of a render-state variant.
//
// State is the typed form manipulated by the shader parser and the render-state compiler.
// Block is the packed form: three 64-bit words (rasterizer, depth-stencil, blend) that are
// cheap to compare and hash. Conversion between the two happens only at the pipeline
// object boundary through State.Pack and Unpack.
package state

// CullMode selects which triangle faces are discarded by the rasterizer.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// FillMode selects how triangles are rasterized.
type FillMode uint8

const (
	FillSolid FillMode = iota
	FillWireframe
)

// FrontFace selects the winding order that identifies front-facing triangles.
type FrontFace uint8

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// Topology is the primitive topology used by the input assembler.
type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

// CompareFunc is a depth or stencil comparison function.
type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// StencilOp is the operation applied to the stencil buffer.
type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilInvert
	StencilIncrSat
	StencilDecrSat
	StencilIncrWrap
	StencilDecrWrap
)

// BlendFactor scales a blend equation operand.
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendSrcAlphaSaturate
	BlendConstant
	BlendOneMinusConstant
)

// BlendOp combines the two scaled operands of a blend equation.
type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// ColorWriteMask selects which color channels are written.
type ColorWriteMask uint8

const (
	ColorWriteRed ColorWriteMask = 1 << iota
	ColorWriteGreen
	ColorWriteBlue
	ColorWriteAlpha

	ColorWriteNone ColorWriteMask = 0
	ColorWriteAll                 = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)

// BlendComponent is one blend equation (color or alpha).
type BlendComponent struct {
	Src BlendFactor
	Dst BlendFactor
	Op  BlendOp
}

// IsIdentity reports whether the equation writes the source unchanged (src=one, dst=zero, op=add).
func (c BlendComponent) IsIdentity() bool {
	return c.Op == BlendOpAdd && c.Src == BlendOne && c.Dst == BlendZero
}

// StencilFace holds the stencil test configuration of one triangle face.
type StencilFace struct {
	Compare   CompareFunc
	Pass      StencilOp
	Fail      StencilOp
	DepthFail StencilOp
}

// StencilState is the stencil configuration. When Separate is false the Back face mirrors Front.
type StencilState struct {
	Enabled   bool
	Separate  bool
	Ref       uint8
	ReadMask  uint8
	WriteMask uint8
	Front     StencilFace
	Back      StencilFace
}

// State is the typed set of fixed-function toggles of one render-state variant.
type State struct {
	CullMode  CullMode
	FillMode  FillMode
	FrontFace FrontFace
	Topology  Topology
	DepthClip bool
	Scissor   bool

	DepthWrite   bool
	DepthCompare CompareFunc
	Stencil      StencilState

	ColorWriteMask  ColorWriteMask
	Color           BlendComponent
	Alpha           BlendComponent
	AlphaToCoverage bool
}

// Default returns the state every description starts from: depth write, depth clip and
// scissor on, depth compare less-or-equal, back-face culling, full color write mask,
// identity blending and a triangle list topology.
func Default() State {
	keep := StencilFace{Compare: CompareAlways, Pass: StencilKeep, Fail: StencilKeep, DepthFail: StencilKeep}
	return State{
		CullMode:     CullBack,
		FillMode:     FillSolid,
		FrontFace:    FrontFaceCCW,
		Topology:     TopologyTriangleList,
		DepthClip:    true,
		Scissor:      true,
		DepthWrite:   true,
		DepthCompare: CompareLessEqual,
		Stencil: StencilState{
			ReadMask:  0xFF,
			WriteMask: 0xFF,
			Front:     keep,
			Back:      keep,
		},
		ColorWriteMask: ColorWriteAll,
		Color:          BlendComponent{Src: BlendOne, Dst: BlendZero, Op: BlendOpAdd},
		Alpha:          BlendComponent{Src: BlendOne, Dst: BlendZero, Op: BlendOpAdd},
	}
}

// IsBlendEnabled is false only when both the color and alpha equations are the identity.
func (s State) IsBlendEnabled() bool {
	return !(s.Color.IsIdentity() && s.Alpha.IsIdentity())
}

// IsDepthTestEnabled is false only when the depth compare function is CompareAlways.
func (s State) IsDepthTestEnabled() bool {
	return s.DepthCompare != CompareAlways
}

// BackStencil returns the effective back-face stencil configuration.
func (s State) BackStencil() StencilFace {
	if s.Stencil.Separate {
		return s.Stencil.Back
	}
	return s.Stencil.Front
}

// Pack serializes the state into its packed block form.
func (s State) Pack() Block {
	var b Block
	b.SetCullMode(s.CullMode)
	b.SetFillMode(s.FillMode)
	b.SetFrontFace(s.FrontFace)
	b.SetTopology(s.Topology)
	b.setBool(FieldDepthClip, s.DepthClip)
	b.setBool(FieldScissor, s.Scissor)

	b.setBool(FieldDepthWrite, s.DepthWrite)
	b.SetDepthCompare(s.DepthCompare)
	b.setBool(FieldStencilEnable, s.Stencil.Enabled)
	b.setBool(FieldSeparateStencil, s.Stencil.Separate)
	b.Set(FieldStencilRef, uint64(s.Stencil.Ref))
	b.Set(FieldStencilReadMask, uint64(s.Stencil.ReadMask))
	b.Set(FieldStencilWriteMask, uint64(s.Stencil.WriteMask))
	b.setStencilFace(frontStencilFields, s.Stencil.Front)
	b.setStencilFace(backStencilFields, s.Stencil.Back)

	b.SetColorWriteMask(s.ColorWriteMask)
	b.Set(FieldColorSrc, uint64(s.Color.Src))
	b.Set(FieldColorDst, uint64(s.Color.Dst))
	b.Set(FieldColorOp, uint64(s.Color.Op))
	b.Set(FieldAlphaSrc, uint64(s.Alpha.Src))
	b.Set(FieldAlphaDst, uint64(s.Alpha.Dst))
	b.Set(FieldAlphaOp, uint64(s.Alpha.Op))
	b.setBool(FieldAlphaToCoverage, s.AlphaToCoverage)
	return b
}

// Unpack deserializes a packed block into its typed form.
func Unpack(b Block) State {
	return State{
		CullMode:     b.CullMode(),
		FillMode:     b.FillMode(),
		FrontFace:    b.FrontFace(),
		Topology:     b.Topology(),
		DepthClip:    b.getBool(FieldDepthClip),
		Scissor:      b.getBool(FieldScissor),
		DepthWrite:   b.getBool(FieldDepthWrite),
		DepthCompare: b.DepthCompare(),
		Stencil: StencilState{
			Enabled:   b.getBool(FieldStencilEnable),
			Separate:  b.getBool(FieldSeparateStencil),
			Ref:       uint8(b.Get(FieldStencilRef)),
			ReadMask:  uint8(b.Get(FieldStencilReadMask)),
			WriteMask: uint8(b.Get(FieldStencilWriteMask)),
			Front:     b.stencilFace(frontStencilFields),
			Back:      b.stencilFace(backStencilFields),
		},
		ColorWriteMask: b.ColorWriteMask(),
		Color: BlendComponent{
			Src: BlendFactor(b.Get(FieldColorSrc)),
			Dst: BlendFactor(b.Get(FieldColorDst)),
			Op:  BlendOp(b.Get(FieldColorOp)),
		},
		Alpha: BlendComponent{
			Src: BlendFactor(b.Get(FieldAlphaSrc)),
			Dst: BlendFactor(b.Get(FieldAlphaDst)),
			Op:  BlendOp(b.Get(FieldAlphaOp)),
		},
		AlphaToCoverage: b.getBool(FieldAlphaToCoverage),
	}
}
