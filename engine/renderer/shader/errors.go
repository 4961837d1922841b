package shader

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRenderPass is returned when a RenderPass statement names a pass the resolver does not know.
	ErrUnknownRenderPass = errors.New("unknown render pass")

	// ErrStageBeforeRenderPass is returned when a vs or fs block appears before the variant's RenderPass.
	ErrStageBeforeRenderPass = errors.New("stage block before RenderPass")

	// ErrMissingSource is returned when a stage source file cannot be read.
	ErrMissingSource = errors.New("missing shading-stage source")

	// ErrCompile wraps failures reported by a StageCompiler.
	ErrCompile = errors.New("stage compilation failed")
)

// SyntaxError is a load-time error located in a description file.
type SyntaxError struct {
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: %s: %v", loc, e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s", loc, e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
