// Package pipelinetest provides shader fixtures and a null-device environment for tests of packages
// built on compiled shader assets.
package pipelinetest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/stretchr/testify/require"
)

// LitWGSL declares per-frame data at set 0, an optional lightmap at set 1 (LIGHTMAP),
// _MainTex and its sampler at set 2 and the MaterialParams block at set 3.
// MaterialParams members: _Color at 0 (16 bytes), _Cutoff at 16 (4 bytes), _MainTex_ST at 32 (16 bytes); 48 bytes total.
const LitWGSL = `
struct VertexInput {
	@location(0) position: vec3f,
	@location(1) normal: vec3f,
	@location(2) uv: vec2f,
#ifdef SKINNED
	@location(3) joints: vec4u,
	@location(4) weights: vec4f,
#endif
};

struct VertexOutput {
	@builtin(position) clip: vec4f,
	@location(0) uv: vec2f,
};

struct PassData {
	view_proj: mat4x4f,
};

struct MaterialParams {
	_Color: vec4f,
	_Cutoff: f32,
	_MainTex_ST: vec4f,
};

@group(0) @binding(0) var<uniform> pass_data: PassData;
#ifdef LIGHTMAP
@group(1) @binding(0) var _LightmapDir: texture_2d<f32>;
@group(1) @binding(1) var _LightmapColor: texture_2d<f32>;
@group(1) @binding(2) var _LightmapSampler: sampler;
#endif
@group(2) @binding(0) var _MainTex: texture_2d<f32>;
@group(2) @binding(1) var _MainTex_sampler: sampler;
@group(3) @binding(0) var<uniform> params: MaterialParams;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
	var out: VertexOutput;
	out.clip = pass_data.view_proj * vec4f(in.position, 1.0);
	out.uv = in.uv * params._MainTex_ST.xy + params._MainTex_ST.zw;
	return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
	let c = textureSample(_MainTex, _MainTex_sampler, in.uv) * params._Color;
#ifdef ALPHA_TEST
	if (c.a < params._Cutoff) { discard; }
#endif
	return c;
}
`

// DepthWGSL is a depth-only stage pair. Alpha-tested variants (ALPHA_TEST) sample _MainTex.
const DepthWGSL = `
struct VertexInput {
	@location(0) position: vec3f,
	@location(2) uv: vec2f,
#ifdef SKINNED
	@location(3) joints: vec4u,
	@location(4) weights: vec4f,
#endif
};

struct VertexOutput {
	@builtin(position) clip: vec4f,
	@location(0) uv: vec2f,
};

struct PassData {
	view_proj: mat4x4f,
};

struct DepthParams {
	_Cutoff: f32,
};

@group(0) @binding(0) var<uniform> pass_data: PassData;
#ifdef ALPHA_TEST
@group(2) @binding(0) var _MainTex: texture_2d<f32>;
@group(2) @binding(1) var _MainTex_sampler: sampler;
#endif
@group(3) @binding(0) var<uniform> depth_params: DepthParams;

@vertex
fn vs_depth(in: VertexInput) -> VertexOutput {
	var out: VertexOutput;
	out.clip = pass_data.view_proj * vec4f(in.position, 1.0);
	out.uv = in.uv;
	return out;
}

@fragment
fn fs_depth(in: VertexOutput) {
#ifdef ALPHA_TEST
	if (textureSample(_MainTex, _MainTex_sampler, in.uv).a < depth_params._Cutoff) { discard; }
#endif
}
`

// LitShader is a two-variant shader over lit.wgsl: variant 0 opaque, variant 1 alpha-tested with a lightmap.
const LitShader = `
shader "Lit" {
	Queue Opaque;
	RenderState "opaque" {
		RenderPass "Forward";
		VertexFactory "StaticMesh";
		vs { shaderFile "lit.wgsl"; }
		fs { shaderFile "lit.wgsl"; }
		CullMode Back;
		ZTest LEqual;
		Blend One Zero;
	}
	RenderState "cutout" {
		RenderPass "Forward";
		vs { shaderFile "lit.wgsl"; defines "LIGHTMAP"; }
		fs { shaderFile "lit.wgsl"; defines "LIGHTMAP ALPHA_TEST"; }
		CullMode None;
	}
}
`

// AuxShader follows the auxiliary pass layout: static opaque, skinned opaque, static alpha-test, skinned alpha-test.
func AuxShader(name, pass string) string {
	variant := func(label, factory, defines string) string {
		return `
	RenderState "` + label + `" {
		RenderPass "` + pass + `";
		VertexFactory "` + factory + `";
		vs { shaderFile "depth.wgsl"; defines "` + defines + `"; }
		fs { shaderFile "depth.wgsl"; defines "` + defines + `"; }
		ColorMask 0;
	}`
	}
	return `shader "` + name + `" {
	Queue Opaque;` +
		variant("static", "StaticMesh", "") +
		variant("skinned", "SkinnedMesh", "") +
		variant("static_cutout", "StaticMesh", "ALPHA_TEST") +
		variant("skinned_cutout", "SkinnedMesh", "ALPHA_TEST") + `
}
`
}

// Env is a null device, a render pass registry and a directory holding the shader fixtures.
type Env struct {
	Device *device.NullDevice
	Passes render_pass.Registry
	Dir    string
}

// NewEnv creates an environment whose passes each bind a 64-byte per-frame uniform buffer at set 0,
// with lit.wgsl, depth.wgsl, lit.shader, prez.shader and shadow.shader written to a temp directory.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	e := &Env{
		Device: device.NewNullDevice(256),
		Passes: render_pass.NewRegistry(),
		Dir:    t.TempDir(),
	}
	for _, name := range []string{render_pass.PassForward, render_pass.PassDepthPrepass, render_pass.PassShadowCaster} {
		layout, set := e.perFrame(t, name)
		opts := []render_pass.RenderPassOption{render_pass.WithPerFrameResources(layout, set)}
		if name != render_pass.PassForward {
			opts = append(opts, render_pass.WithDepthOnly(device.TextureFormatDepth32Float))
		}
		require.NoError(t, e.Passes.Register(render_pass.NewRenderPass(name, opts...)))
	}
	e.WriteFile(t, "lit.wgsl", LitWGSL)
	e.WriteFile(t, "depth.wgsl", DepthWGSL)
	e.WriteFile(t, "lit.shader", LitShader)
	e.WriteFile(t, "prez.shader", AuxShader("Prez", render_pass.PassDepthPrepass))
	e.WriteFile(t, "shadow.shader", AuxShader("Shadow", render_pass.PassShadowCaster))
	return e
}

func (e *Env) perFrame(t testing.TB, name string) (device.ResourceLayout, device.ResourceSet) {
	layout, err := e.Device.CreateResourceLayout(device.ResourceLayoutDescriptor{
		Label:   name + "/per_frame",
		Entries: []device.LayoutEntry{{Binding: 0, Visibility: device.ShaderStageVertex | device.ShaderStageFragment, Kind: device.BindingUniformBuffer}},
	})
	require.NoError(t, err)
	buf, err := e.Device.CreateBuffer(device.BufferDescriptor{Label: name + "/per_frame", Size: 64, Usage: device.BufferUsageUniform | device.BufferUsageCopyDst})
	require.NoError(t, err)
	set, err := e.Device.CreateResourceSet(device.ResourceSetDescriptor{
		Label:   name + "/per_frame",
		Layout:  layout,
		Entries: []device.ResourceSetEntry{{Binding: 0, Buffer: buf, Size: 64}},
	})
	require.NoError(t, err)
	return layout, set
}

// WriteFile writes a fixture into the environment directory and returns its path.
func (e *Env) WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(e.Dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Path returns the path of a fixture in the environment directory.
func (e *Env) Path(name string) string {
	return filepath.Join(e.Dir, name)
}

// NewUniformBuffer creates a uniform buffer standing in for the frame arena.
func (e *Env) NewUniformBuffer(t testing.TB, size uint64) device.Buffer {
	t.Helper()
	buf, err := e.Device.CreateBuffer(device.BufferDescriptor{Label: "frame_arena", Size: size, Usage: device.BufferUsageUniform | device.BufferUsageCopyDst})
	require.NoError(t, err)
	return buf
}

// Compiler creates a compiler that pre-processes WGSL and reflects it at the source level.
func (e *Env) Compiler(options ...pipeline.CompilerOption) pipeline.Compiler {
	opts := append([]pipeline.CompilerOption{
		pipeline.WithStageCompiler(shader.PreprocessCompiler{}),
		pipeline.WithReflector(shader.WGSLReflector{}),
		pipeline.WithWorkers(2),
	}, options...)
	return pipeline.NewCompiler(e.Device, e.Passes, opts...)
}

// LoadShader compiles a fixture shader file from the environment directory.
func (e *Env) LoadShader(t testing.TB, name string, options ...pipeline.CompilerOption) pipeline.Shader {
	t.Helper()
	s, err := e.Compiler(options...).Load(e.Path(name))
	require.NoError(t, err)
	t.Cleanup(s.Dispose)
	return s
}
