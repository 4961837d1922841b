package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litWGSL = `
struct VertexInput {
	@location(0) position: vec3f,
	@location(1) normal: vec3f,
	@location(2) uv: vec2f,
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
	_Tint: vec3f,
	_MainTex_ST: vec4f,
};

@group(0) @binding(0) var<uniform> pass_data: PassData;
@group(2) @binding(0) var _MainTex: texture_2d<f32>;
@group(2) @binding(1) var _MainTex_sampler: sampler;
@group(3) @binding(0) var<uniform> params: MaterialParams;
@group(3) @binding(1) var<uniform> _Exposure: f32;
@group(2) @binding(5) var<storage, read> skin: array<mat4x4f>;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
	var out: VertexOutput;
	out.clip = pass_data.view_proj * vec4f(in.position, 1.0);
	out.uv = in.uv;
	return out;
}

// @fragment fn commented_out() {}
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
#ifdef ALPHA_TEST
	if (params._Cutoff > 0.0) { discard; }
#endif
	return params._Color;
}
`

func compileTestStage(t *testing.T, typ ShaderType, defines string) Stage {
	t.Helper()
	s, err := CompileStage(StageDesc{Type: typ, Path: "lit.wgsl", Defines: ParseDefines(defines)}, litWGSL, PreprocessCompiler{})
	require.NoError(t, err)
	return s
}

func TestCompileStageMetadata(t *testing.T) {
	vs := compileTestStage(t, ShaderTypeVertex, "")
	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, "lit.wgsl:vs", vs.Key())
	assert.Nil(t, vs.Bytecode())
	require.Len(t, vs.VertexLayouts(), 1)
	layout := vs.VertexLayouts()[0]
	assert.Equal(t, uint64(32), layout.ArrayStride)
	assert.Equal(t, []device.VertexAttribute{
		{Format: device.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: device.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: device.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	}, layout.Attributes)

	fs := compileTestStage(t, ShaderTypeFragment, "ALPHA_TEST")
	assert.Equal(t, "fs_main", fs.EntryPoint())
	assert.Equal(t, "lit.wgsl:fs ALPHA_TEST", fs.Key())
	assert.Contains(t, fs.Source(), "discard")
	assert.Nil(t, fs.VertexLayouts())

	md := fs.ModuleDescriptor()
	assert.Equal(t, device.ShaderStageFragment, md.Stage)
	assert.Equal(t, "fs_main", md.EntryPoint)
	assert.Equal(t, fs.Source(), md.Source)
}

func TestCompileStageExplicitEntryPoint(t *testing.T) {
	s, err := CompileStage(StageDesc{Type: ShaderTypeFragment, Path: "x.wgsl", EntryPoint: "custom"}, litWGSL, PreprocessCompiler{})
	require.NoError(t, err)
	assert.Equal(t, "custom", s.EntryPoint())
}

func TestCompileStageErrors(t *testing.T) {
	_, err := CompileStage(StageDesc{Type: ShaderTypeFragment, Path: "x.wgsl"}, "@vertex fn vs() {}", PreprocessCompiler{})
	assert.ErrorIs(t, err, ErrCompile)

	_, err = CompileStage(StageDesc{Type: ShaderTypeVertex, Path: "x.wgsl"}, "#ifdef A\n@vertex fn vs() {}", PreprocessCompiler{})
	assert.ErrorIs(t, err, ErrCompile)
}

func TestNewStageReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lit.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(litWGSL), 0o644))

	s, err := NewStage(StageDesc{Type: ShaderTypeVertex, Path: path}, PreprocessCompiler{})
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	_, err = NewStage(StageDesc{Type: ShaderTypeVertex, Path: filepath.Join(dir, "missing.wgsl")}, PreprocessCompiler{})
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestWGSLReflector(t *testing.T) {
	fs := compileTestStage(t, ShaderTypeFragment, "")
	bindings, err := WGSLReflector{}.Reflect(fs)
	require.NoError(t, err)
	require.Len(t, bindings, 5)

	byName := map[string]ResourceBinding{}
	for _, b := range bindings {
		assert.Equal(t, device.ShaderStageFragment, b.Stages)
		byName[b.Name] = b
	}

	assert.Equal(t, ResourceBinding{Name: "pass_data", Set: 0, Binding: 0, Stages: device.ShaderStageFragment, Kind: BindingUniformBlock, Size: 64,
		Members: []BlockMember{{Name: "view_proj", Offset: 0, Size: 64}}}, byName["pass_data"])
	assert.Equal(t, BindingImage, byName["_MainTex"].Kind)
	assert.Equal(t, uint32(2), byName["_MainTex"].Set)
	assert.Equal(t, BindingSampler, byName["_MainTex_sampler"].Kind)
	assert.Equal(t, uint32(1), byName["_MainTex_sampler"].Binding)

	params := byName["params"]
	assert.Equal(t, BindingUniformBlock, params.Kind)
	assert.Equal(t, uint32(3), params.Set)
	assert.Equal(t, uint32(64), params.Size)
	assert.Equal(t, []BlockMember{
		{Name: "_Color", Offset: 0, Size: 16},
		{Name: "_Cutoff", Offset: 16, Size: 4},
		{Name: "_Tint", Offset: 32, Size: 12},
		{Name: "_MainTex_ST", Offset: 48, Size: 16},
	}, params.Members)

	exposure := byName["_Exposure"]
	assert.Equal(t, uint32(4), exposure.Size)
	assert.Equal(t, []BlockMember{{Name: "_Exposure", Offset: 0, Size: 4}}, exposure.Members)
}

func TestReflectorFunc(t *testing.T) {
	called := false
	var r Reflector = ReflectorFunc(func(s Stage) ([]ResourceBinding, error) {
		called = true
		return nil, nil
	})
	_, err := r.Reflect(compileTestStage(t, ShaderTypeVertex, ""))
	require.NoError(t, err)
	assert.True(t, called)
}
