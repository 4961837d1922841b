package shader

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// wgslPrimitiveLayoutMap maps WGSL primitive, vector and matrix type names
// to their byte size and alignment per the WGSL specification.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	// Scalars
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	// Vectors – f32
	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	// Vectors – i32
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	// Vectors – u32
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	// Matrices – matCxR<f32>: C columns of vecR<f32>, stride = roundUp(align(vecR), size(vecR))
	"mat2x2<f32>": {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat2x2f":     {16, 8},
	"mat3x3f":     {48, 16},
	"mat4x4f":     {64, 16},
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment using primitives
// and previously-computed struct layouts. Handles fixed-size arrays (array<T, N>) and returns
// false for runtime-sized arrays or unknown types, which cannot appear in a uniform block.
//
// Parameters:
//   - typeName: the WGSL type name to resolve, e.g. "f32", "MaterialParams", "array<vec4f, 4>"
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: true if the type could be resolved
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	if strings.HasPrefix(typeName, "array<") && strings.HasSuffix(typeName, ">") {
		inner := typeName[6 : len(typeName)-1]
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) != 2 {
			return wgslTypeLayout{}, false
		}
		elemLayout, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return wgslTypeLayout{}, false
		}
		// uniform address space rounds array element stride up to 16
		align := common.AlignUp(elemLayout.align, 16)
		stride := common.AlignUp(elemLayout.size, align)
		return wgslTypeLayout{count * stride, align}, true
	}

	return wgslTypeLayout{}, false
}

// computeStructLayout computes the byte size, alignment and member offsets of a single WGSL struct
// using WGSL struct layout rules: each field is placed at the next aligned offset, and the total
// size is rounded up to the struct's alignment (max alignment of all fields). Fields with @builtin
// attributes are skipped as they are not part of the buffer layout.
//
// Parameters:
//   - ps: the parsed struct whose layout to compute
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the computed layout
//   - []BlockMember: the member offsets and sizes in declaration order
//   - bool: true if all fields could be resolved
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, []BlockMember, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)
	members := make([]BlockMember, 0, len(ps.fields))

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fieldLayout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, nil, false
		}
		offset = common.AlignUp(offset, fieldLayout.align)
		members = append(members, BlockMember{Name: field.name, Offset: uint32(offset), Size: uint32(fieldLayout.size)})
		offset += fieldLayout.size
		if fieldLayout.align > maxAlign {
			maxAlign = fieldLayout.align
		}
	}

	return wgslTypeLayout{common.AlignUp(offset, maxAlign), maxAlign}, members, true
}

// computeStructSizes computes the layout of all parsed WGSL structs.
// It resolves dependencies between structs iteratively, handling cases where one struct
// contains fields typed as another struct.
//
// Parameters:
//   - structs: all parsed struct blocks from the WGSL source
//
// Returns:
//   - map[string]wgslTypeLayout: struct name to computed layout
//   - map[string][]BlockMember: struct name to member offsets
func computeStructSizes(structs []parsedStruct) (map[string]wgslTypeLayout, map[string][]BlockMember) {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	members := make(map[string][]BlockMember, len(structs))
	remaining := make([]parsedStruct, len(structs))
	copy(remaining, structs)

	for {
		progress := false
		next := remaining[:0]

		for _, ps := range remaining {
			if layout, m, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
				members[ps.name] = m
				progress = true
			} else {
				next = append(next, ps)
			}
		}

		remaining = next
		if !progress || len(remaining) == 0 {
			break
		}
	}

	return resolved, members
}

// classifyResource maps a parsed WGSL declaration to a binding kind.
// Storage buffers and storage textures have no material-layer kind and report false.
//
// Parameters:
//   - addressSpace: the address space qualifier (e.g. "uniform"), empty for handle types
//   - typeName: the WGSL type string (e.g. "MaterialParams", "texture_2d<f32>", "sampler")
//
// Returns:
//   - BindingKind: the binding kind
//   - bool: false if the declaration is not an image, sampler or uniform block
func classifyResource(addressSpace, typeName string) (BindingKind, bool) {
	if addressSpace != "" {
		return BindingUniformBlock, addressSpace == "uniform"
	}
	switch {
	case typeName == "sampler" || typeName == "sampler_comparison":
		return BindingSampler, true
	case strings.HasPrefix(typeName, "texture_storage_"):
		return 0, false
	case strings.HasPrefix(typeName, "texture_"):
		return BindingImage, true
	}
	return 0, false
}

// stripComments removes both single-line (//) and block (/* */) comments from WGSL source.
// Block comments may be nested per the WGSL specification.
//
// Parameters:
//   - source: raw WGSL source string
//
// Returns:
//   - string: source with all comments removed
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source so they
// do not interfere with struct and field parsing
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments (/* ... */) from WGSL source,
// handling nested block comments per the WGSL specification
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}

// isVertexInputStruct returns true if the struct is a pure vertex input, meaning
// it has at least one @location field and zero @builtin fields. This distinguishes
// vertex input structs from vertex output structs which mix @location with @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexBufferLayout converts a parsed vertex input struct into a device.VertexBufferLayout.
// Attributes are packed sequentially and the stride is their total size. Returns false if any field
// has an unrecognized type.
//
// Parameters:
//   - ps: the parsed struct containing vertex input fields
//
// Returns:
//   - device.VertexBufferLayout: the constructed vertex buffer layout
//   - bool: false if a field type could not be mapped to a vertex format
func buildVertexBufferLayout(ps parsedStruct) (device.VertexBufferLayout, bool) {
	attrs := make([]device.VertexAttribute, 0, len(ps.fields))
	var offset uint64

	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return device.VertexBufferLayout{}, false
		}
		attrs = append(attrs, device.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}

	return device.VertexBufferLayout{ArrayStride: offset, Attributes: attrs}, true
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets.
// This correctly handles WGSL types like array<vec4f, 4> where the comma is part of
// the type syntax rather than a field separator.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
