package shader

import "github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"

// vertexFormatInfo holds the device vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format device.VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
// Used to compute uniform block sizes and member offsets.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// parsedBinding is one @group/@binding declaration found in WGSL source
type parsedBinding struct {
	group        uint32
	binding      uint32
	addressSpace string
	name         string
	typeName     string
}
