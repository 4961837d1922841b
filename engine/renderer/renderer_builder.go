package renderer

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/config"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/profiler"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithConfig replaces the default configuration. The configuration is validated by NewRenderer.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies the configuration to a renderer
func WithConfig(cfg config.Config) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg = cfg
	}
}

// WithRenderPasses supplies the render pass registry instead of the default Forward, DepthPrepass
// and ShadowCaster passes. The caller keeps ownership of the passes' per-frame resources.
//
// Parameters:
//   - passes: the registry
//
// Returns:
//   - RendererBuilderOption: a function that applies the registry to a renderer
func WithRenderPasses(passes render_pass.Registry) RendererBuilderOption {
	return func(r *renderer) {
		r.passes = passes
	}
}

// WithFrameArenaBytes overrides the frame uniform arena capacity of the configuration.
//
// Parameters:
//   - size: the capacity in bytes
//
// Returns:
//   - RendererBuilderOption: a function that applies the arena size to a renderer
func WithFrameArenaBytes(size uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.Renderer.FrameArenaBytes = size
	}
}

// WithCompilerOptions appends options to the render-state compiler. They are applied after the
// options derived from the configuration, so they can override the stage compiler or reflector.
//
// Parameters:
//   - options: the compiler options
//
// Returns:
//   - RendererBuilderOption: a function that applies the compiler options to a renderer
func WithCompilerOptions(options ...pipeline.CompilerOption) RendererBuilderOption {
	return func(r *renderer) {
		r.compilerOptions = append(r.compilerOptions, options...)
	}
}

// WithProfiler records frame rate and uniform arena usage at every EndFrame and logs them at Debug level.
//
// Parameters:
//   - options: profiler options
//
// Returns:
//   - RendererBuilderOption: a function that enables profiling on a renderer
func WithProfiler(options ...profiler.ProfilerOption) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = profiler.NewProfiler(options...)
	}
}
