package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// CompileResult is the output of a StageCompiler.
type CompileResult struct {
	// Source is the pre-processed WGSL source.
	Source string

	// Bytecode is the compiled SPIR-V module, nil for source-only compilers.
	Bytecode []byte
}

// StageCompiler turns the raw source of one shading stage into compiled form.
// Implementations must be safe for concurrent use; stages of one shader compile in parallel.
type StageCompiler interface {
	// Compile pre-processes and compiles source for the stage described by desc.
	//
	// Parameters:
	//   - desc: the stage description carrying path, type, defines and entry point
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - CompileResult: the expanded source and bytecode
	//   - error: an error wrapping ErrCompile
	Compile(desc StageDesc, source string) (CompileResult, error)
}

// PreprocessCompiler expands directives and returns the WGSL source without producing bytecode.
// Pair it with WGSLReflector.
type PreprocessCompiler struct {
	PreProcessor PreProcessor
}

var _ StageCompiler = PreprocessCompiler{}

func (c PreprocessCompiler) Compile(desc StageDesc, source string) (CompileResult, error) {
	pp := c.PreProcessor
	if pp == nil {
		pp = NewPreProcessor()
	}
	expanded, err := pp.Process(desc.Path, source, desc.Defines)
	if err != nil {
		return CompileResult{}, fmt.Errorf("%w: %s: %v", ErrCompile, desc.Path, err)
	}
	return CompileResult{Source: expanded}, nil
}

// NagaCompiler expands directives and compiles the result to SPIR-V with naga.
type NagaCompiler struct {
	PreProcessor PreProcessor
}

var _ StageCompiler = NagaCompiler{}

func (c NagaCompiler) Compile(desc StageDesc, source string) (CompileResult, error) {
	res, err := PreprocessCompiler(c).Compile(desc, source)
	if err != nil {
		return CompileResult{}, err
	}
	spirv, err := naga.Compile(res.Source)
	if err != nil {
		return CompileResult{}, fmt.Errorf("%w: %s (%s): %v", ErrCompile, desc.Path, desc.Type, err)
	}
	res.Bytecode = spirv
	return res, nil
}
