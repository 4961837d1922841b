package shader

import (
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// stage is the implementation of the Stage interface.
// It holds the expanded source and compiled bytecode of one shading stage.
type stage struct {
	key           string
	path          string
	shaderType    ShaderType
	entryPoint    string
	defines       []Define
	source        string
	bytecode      []byte
	vertexLayouts []device.VertexBufferLayout
}

// Stage is one compiled shading stage of a render-state variant. It exposes the expanded
// source, the compiled bytecode and the metadata the render-state compiler needs to build
// device shader modules and pipeline vertex input.
type Stage interface {
	// Key retrieves the unique identifier of the stage, built from its path, type and defines.
	//
	// Returns:
	//   - string: the stage key
	Key() string

	// Path retrieves the source file the stage was compiled from.
	//
	// Returns:
	//   - string: the source path
	Path() string

	// ShaderType returns the programmable stage the source was compiled for.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point function name of the stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Defines returns the macros the stage was compiled with.
	//
	// Returns:
	//   - []Define: the macros in declaration order
	Defines() []Define

	// Source retrieves the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the expanded source
	Source() string

	// Bytecode retrieves the compiled SPIR-V words as bytes.
	// A stage built by a source-only compiler returns nil.
	//
	// Returns:
	//   - []byte: the SPIR-V module, or nil
	Bytecode() []byte

	// VertexLayouts returns the vertex buffer layouts declared by the vertex input structs of the source.
	// Fragment stages return nil.
	//
	// Returns:
	//   - []device.VertexBufferLayout: the vertex input layouts in declaration order
	VertexLayouts() []device.VertexBufferLayout

	// ModuleDescriptor builds the device shader module descriptor for this stage.
	//
	// Returns:
	//   - device.ShaderModuleDescriptor: the descriptor carrying source, bytecode and entry point
	ModuleDescriptor() device.ShaderModuleDescriptor
}

var _ Stage = &stage{}

// NewStage reads the stage source named by desc and compiles it with compiler.
// The entry point defaults to the first function annotated for the stage type when desc leaves it empty.
//
// Parameters:
//   - desc: the stage description parsed from a vs or fs block
//   - compiler: the compiler that expands and compiles the source
//
// Returns:
//   - Stage: the compiled stage
//   - error: ErrMissingSource if the file cannot be read, ErrCompile if compilation fails
func NewStage(desc StageDesc, compiler StageCompiler) (Stage, error) {
	data, err := os.ReadFile(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingSource, desc.Path, err)
	}
	return CompileStage(desc, string(data), compiler)
}

// CompileStage compiles an in-memory stage source.
// desc.Path is used for the stage key and to resolve includes.
//
// Parameters:
//   - desc: the stage description
//   - source: the raw WGSL source
//   - compiler: the compiler that expands and compiles the source
//
// Returns:
//   - Stage: the compiled stage
//   - error: ErrCompile if compilation fails or no entry point is found
func CompileStage(desc StageDesc, source string, compiler StageCompiler) (Stage, error) {
	res, err := compiler.Compile(desc, source)
	if err != nil {
		return nil, err
	}
	s := &stage{
		key:        StageKey(desc),
		path:       desc.Path,
		shaderType: desc.Type,
		entryPoint: desc.EntryPoint,
		defines:    desc.Defines,
		source:     res.Source,
		bytecode:   res.Bytecode,
	}
	if s.entryPoint == "" {
		s.entryPoint = parseEntryPoint(s.source, s.shaderType)
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("%w: %s: no @%s entry point", ErrCompile, desc.Path, s.shaderType.attribute())
	}
	if s.shaderType == ShaderTypeVertex {
		s.vertexLayouts = parseVertexLayouts(s.source)
	}
	return s, nil
}

// StageKey returns the identity of a stage: its path, type and defines.
// Stages with equal keys compile to identical modules.
func StageKey(desc StageDesc) string {
	var sb strings.Builder
	sb.WriteString(desc.Path)
	sb.WriteByte(':')
	sb.WriteString(desc.Type.String())
	for _, d := range desc.Defines {
		sb.WriteByte(' ')
		sb.WriteString(d.String())
	}
	return sb.String()
}

func (s *stage) Key() string {
	return s.key
}

func (s *stage) Path() string {
	return s.path
}

func (s *stage) ShaderType() ShaderType {
	return s.shaderType
}

func (s *stage) EntryPoint() string {
	return s.entryPoint
}

func (s *stage) Defines() []Define {
	return s.defines
}

func (s *stage) Source() string {
	return s.source
}

func (s *stage) Bytecode() []byte {
	return s.bytecode
}

func (s *stage) VertexLayouts() []device.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *stage) ModuleDescriptor() device.ShaderModuleDescriptor {
	return device.ShaderModuleDescriptor{
		Label:      s.key,
		Stage:      s.shaderType.Stage(),
		EntryPoint: s.entryPoint,
		Source:     s.source,
		Bytecode:   s.bytecode,
	}
}
