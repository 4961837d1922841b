package state

import (
	"fmt"
	"strings"
)

var cullModeNames = []string{"None", "Front", "Back"}
var fillModeNames = []string{"Solid", "Wireframe"}
var frontFaceNames = []string{"CCW", "CW"}
var topologyNames = []string{"TriangleList", "TriangleStrip", "LineList", "LineStrip", "PointList"}
var compareNames = []string{"Never", "Less", "Equal", "LEqual", "Greater", "NotEqual", "GEqual", "Always"}
var stencilOpNames = []string{"Keep", "Zero", "Replace", "Invert", "IncrSat", "DecrSat", "IncrWrap", "DecrWrap"}
var blendFactorNames = []string{
	"Zero", "One", "SrcColor", "OneMinusSrcColor", "SrcAlpha", "OneMinusSrcAlpha",
	"DstColor", "OneMinusDstColor", "DstAlpha", "OneMinusDstAlpha", "SrcAlphaSaturate",
	"Constant", "OneMinusConstant",
}
var blendOpNames = []string{"Add", "Sub", "RevSub", "Min", "Max"}

func lookup(kind string, names []string, s string) (uint8, error) {
	for i, n := range names {
		if n == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q (expected one of %s)", kind, s, strings.Join(names, ", "))
}

func name(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%d", v)
}

func ParseCullMode(s string) (CullMode, error) {
	v, err := lookup("cull mode", cullModeNames, s)
	return CullMode(v), err
}

func ParseFillMode(s string) (FillMode, error) {
	v, err := lookup("fill mode", fillModeNames, s)
	return FillMode(v), err
}

func ParseFrontFace(s string) (FrontFace, error) {
	v, err := lookup("front face", frontFaceNames, s)
	return FrontFace(v), err
}

func ParseTopology(s string) (Topology, error) {
	v, err := lookup("topology", topologyNames, s)
	return Topology(v), err
}

func ParseCompareFunc(s string) (CompareFunc, error) {
	v, err := lookup("compare function", compareNames, s)
	return CompareFunc(v), err
}

func ParseStencilOp(s string) (StencilOp, error) {
	v, err := lookup("stencil op", stencilOpNames, s)
	return StencilOp(v), err
}

func ParseBlendFactor(s string) (BlendFactor, error) {
	v, err := lookup("blend factor", blendFactorNames, s)
	return BlendFactor(v), err
}

func ParseBlendOp(s string) (BlendOp, error) {
	v, err := lookup("blend op", blendOpNames, s)
	return BlendOp(v), err
}

// ParseBool accepts the toggle spellings "on" and "off".
func ParseBool(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid toggle %q (expected on or off)", s)
}

// ParseColorWriteMask accepts "0" or any subset of the letters R, G, B and A.
func ParseColorWriteMask(s string) (ColorWriteMask, error) {
	if s == "0" {
		return ColorWriteNone, nil
	}
	if s == "" {
		return 0, fmt.Errorf("empty color mask")
	}
	var m ColorWriteMask
	for _, r := range s {
		switch r {
		case 'R':
			m |= ColorWriteRed
		case 'G':
			m |= ColorWriteGreen
		case 'B':
			m |= ColorWriteBlue
		case 'A':
			m |= ColorWriteAlpha
		default:
			return 0, fmt.Errorf("invalid color mask %q", s)
		}
	}
	return m, nil
}

func (v CullMode) String() string    { return name(cullModeNames, uint8(v)) }
func (v FillMode) String() string    { return name(fillModeNames, uint8(v)) }
func (v FrontFace) String() string   { return name(frontFaceNames, uint8(v)) }
func (v Topology) String() string    { return name(topologyNames, uint8(v)) }
func (v CompareFunc) String() string { return name(compareNames, uint8(v)) }
func (v StencilOp) String() string   { return name(stencilOpNames, uint8(v)) }
func (v BlendFactor) String() string { return name(blendFactorNames, uint8(v)) }
func (v BlendOp) String() string     { return name(blendOpNames, uint8(v)) }

func (m ColorWriteMask) String() string {
	if m == ColorWriteNone {
		return "0"
	}
	var sb strings.Builder
	for i, c := range "RGBA" {
		if m&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func (c BlendComponent) String() string {
	return fmt.Sprintf("%s %s %s", c.Src, c.Dst, c.Op)
}

// String renders the packed words as hexadecimal.
func (b Block) String() string {
	return fmt.Sprintf("raster=%#x depthStencil=%#x blend=%#x", b.Rasterizer, b.DepthStencil, b.Blend)
}
