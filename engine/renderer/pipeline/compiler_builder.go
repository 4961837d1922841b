package pipeline

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
)

// CompilerOption is a functional option used to configure a Compiler during construction.
type CompilerOption func(*compiler)

// WithStageCompiler sets the compiler every stage goes through.
//
// Parameters:
//   - sc: the stage compiler
//
// Returns:
//   - CompilerOption: a function that sets the stage compiler
func WithStageCompiler(sc shader.StageCompiler) CompilerOption {
	return func(c *compiler) {
		if sc != nil {
			c.stages = sc
		}
	}
}

// WithReflector sets the reflector that extracts resource bindings from compiled stages.
//
// Parameters:
//   - r: the reflector
//
// Returns:
//   - CompilerOption: a function that sets the reflector
func WithReflector(r shader.Reflector) CompilerOption {
	return func(c *compiler) {
		if r != nil {
			c.reflector = r
		}
	}
}

// WithWorkers bounds the number of stages compiled in parallel.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - CompilerOption: a function that sets the worker count
func WithWorkers(n int) CompilerOption {
	return func(c *compiler) {
		c.workers = n
	}
}

// WithUniformBuffer sets the frame arena buffer bound by the dynamic uniform resource sets.
//
// Parameters:
//   - buf: the frame arena buffer
//
// Returns:
//   - CompilerOption: a function that sets the uniform buffer
func WithUniformBuffer(buf device.Buffer) CompilerOption {
	return func(c *compiler) {
		c.uniformBuffer = buf
	}
}

// WithVertexFactories sets the registry VertexFactory statements are resolved against.
//
// Parameters:
//   - r: the registry
//
// Returns:
//   - CompilerOption: a function that sets the vertex factory registry
func WithVertexFactories(r *VertexFactoryRegistry) CompilerOption {
	return func(c *compiler) {
		c.factories = r
	}
}
