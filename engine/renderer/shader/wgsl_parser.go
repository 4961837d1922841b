package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding device vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {device.VertexFormatFloat32, 4},
	"vec2f":     {device.VertexFormatFloat32x2, 8},
	"vec2<f32>": {device.VertexFormatFloat32x2, 8},
	"vec3f":     {device.VertexFormatFloat32x3, 12},
	"vec3<f32>": {device.VertexFormatFloat32x3, 12},
	"vec4f":     {device.VertexFormatFloat32x4, 16},
	"vec4<f32>": {device.VertexFormatFloat32x4, 16},
	"u32":       {device.VertexFormatUint32, 4},
	"vec4u":     {device.VertexFormatUint32x4, 16},
	"vec4<u32>": {device.VertexFormatUint32x4, 16},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(3) @binding(0) var<uniform> params: MaterialParams;
	// or handle types: @group(2) @binding(0) var _MainTex: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts extracts vertex buffer layouts from WGSL source code.
// It finds all structs that are pure vertex inputs (have @location attributes but no @builtin fields)
// and converts them into device.VertexBufferLayout entries in declaration order. Structs containing
// unrecognized WGSL types are skipped.
//
// Parameters:
//   - source: the WGSL source code string
//
// Returns:
//   - []device.VertexBufferLayout: one layout per vertex input struct
func parseVertexLayouts(source string) []device.VertexBufferLayout {
	var result []device.VertexBufferLayout
	structs := parseStructBlocks(stripComments(source))
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		layout, ok := buildVertexBufferLayout(ps)
		if !ok {
			continue
		}
		result = append(result, layout)
	}
	return result
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL source
// in declaration order.
//
// Parameters:
//   - source: the WGSL source code string, comments already stripped
//
// Returns:
//   - []parsedBinding: the declarations
func parseBindings(source string) []parsedBinding {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	out := make([]parsedBinding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.ParseUint(match[1], 10, 32)
		binding, _ := strconv.ParseUint(match[2], 10, 32)
		out = append(out, parsedBinding{
			group:        uint32(group),
			binding:      uint32(binding),
			addressSpace: strings.TrimSpace(match[3]),
			name:         strings.TrimSpace(match[4]),
			typeName:     strings.TrimSpace(match[5]),
		})
	}
	return out
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the WGSL source code string
//   - shaderType: the shader type to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}

	return fields
}
