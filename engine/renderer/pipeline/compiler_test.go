package pipeline_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline/pipelinetest"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileOpaqueVariant(t *testing.T) {
	env := pipelinetest.NewEnv(t)
	buf := env.NewUniformBuffer(t, 64<<10)
	s := env.LoadShader(t, "lit.shader", pipeline.WithUniformBuffer(buf))

	assert.Equal(t, "Lit", s.Name())
	assert.Equal(t, shader.QueueOpaque, s.Queue())
	assert.Equal(t, env.Path("lit.shader"), s.Path())
	require.Len(t, s.Variants(), 2)

	rs, ok := s.Variant(0)
	require.True(t, ok)
	assert.Equal(t, "opaque", rs.Name())
	assert.Equal(t, render_pass.PassForward, rs.RenderPass().Name())
	assert.Equal(t, pipeline.VertexFactoryStaticMesh, rs.VertexFactory().Name())

	// CullMode Back; ZTest LEqual; Blend One Zero;
	packed := rs.PackedState()
	assert.False(t, packed.IsBlendEnabled())
	assert.Equal(t, state.CullBack, packed.CullMode())
	assert.True(t, packed.IsDepthTestEnabled())
	assert.Equal(t, rs.State(), state.Unpack(packed))

	names := []string{}
	for _, u := range rs.Uniforms() {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"_MainTex", "_MainTex_sampler", "params", "_Color", "_Cutoff", "_MainTex_ST"}, names)
	st, ok := rs.FindUniform("_MainTex_ST")
	require.True(t, ok)
	assert.Equal(t, pipeline.UniformFloat4, st.Type)
	assert.Equal(t, uint32(32), st.Offset)
	assert.Equal(t, uint32(16), st.Size)
	assert.Equal(t, device.ShaderStageVertex|device.ShaderStageFragment, st.Stages)
	assert.Equal(t, 1, rs.ImageCount())
	assert.Equal(t, 1, rs.SamplerCount())
	require.Len(t, rs.Blocks(), 1)
	assert.Equal(t, uint32(48), rs.Blocks()[0].Size)
	assert.Equal(t, uint32(256), rs.Blocks()[0].AlignedSize)
	assert.Empty(t, rs.Lightmap())

	pass, _ := env.Passes.FindRenderPass(render_pass.PassForward)
	assert.Same(t, pass.PerFrameResourceLayout(), rs.ResourceLayout(pipeline.SetPerFrame))
	assert.Nil(t, rs.ResourceLayout(pipeline.SetLightmap))
	require.NotNil(t, rs.ResourceLayout(pipeline.SetMaterial))
	assert.Len(t, rs.ResourceLayout(pipeline.SetMaterial).Entries(), 2)
	dynLayout := rs.ResourceLayout(pipeline.SetDynamicUniforms)
	require.NotNil(t, dynLayout)
	require.Len(t, dynLayout.Entries(), 1)
	assert.True(t, dynLayout.Entries()[0].HasDynamicOffset)

	dyn, ok := rs.DynamicResourceSet().(*device.NullResourceSet)
	require.True(t, ok)
	entry, ok := dyn.Entry(0)
	require.True(t, ok)
	assert.Same(t, buf, entry.Buffer)
	assert.Equal(t, uint64(0), entry.Offset)
	assert.Equal(t, uint64(256), entry.Size)

	p, ok := rs.Pipeline().(*device.NullPipeline)
	require.True(t, ok)
	assert.Len(t, p.Desc.Layouts, 4)
	assert.Nil(t, p.Desc.Layouts[pipeline.SetLightmap])
	assert.Equal(t, "vs_main", p.Desc.VertexEntry)
	assert.Equal(t, "fs_main", p.Desc.FragmentEntry)
	require.Len(t, p.Desc.VertexBuffers, 1)
	assert.Equal(t, uint64(32), p.Desc.VertexBuffers[0].ArrayStride)
	assert.Equal(t, []device.TextureFormat{device.TextureFormatRGBA8Unorm}, p.Desc.ColorFormats)
	assert.Equal(t, rs.State(), p.Desc.State)
}

func TestCompileOpaqueVariantFromBytecode(t *testing.T) {
	env := pipelinetest.NewEnv(t)
	c := pipeline.NewCompiler(env.Device, env.Passes, pipeline.WithUniformBuffer(env.NewUniformBuffer(t, 64<<10)))
	s, err := c.Load(env.Path("lit.shader"))
	require.NoError(t, err)
	t.Cleanup(s.Dispose)

	rs, ok := s.Variant(0)
	require.True(t, ok)
	for _, u := range rs.Uniforms() {
		assert.NotEmpty(t, u.Name, "set %d binding %d", u.Set, u.Binding)
	}

	color, ok := rs.FindUniform("_Color")
	require.True(t, ok)
	assert.Equal(t, pipeline.UniformFloat4, color.Type)
	assert.Equal(t, uint32(0), color.Offset)
	assert.Equal(t, uint32(16), color.Size)
	st, ok := rs.FindUniform("_MainTex_ST")
	require.True(t, ok)
	assert.Equal(t, uint32(32), st.Offset)
	assert.Equal(t, device.ShaderStageVertex|device.ShaderStageFragment, st.Stages)

	tex, ok := rs.FindUniform("_MainTex")
	require.True(t, ok)
	assert.Equal(t, pipeline.UniformImage, tex.Type)
	assert.Equal(t, pipeline.SetMaterial, tex.Set)
	assert.Equal(t, uint32(0), tex.Binding)
	assert.Equal(t, device.ShaderStageFragment, tex.Stages, "only fs_main samples _MainTex")
	smp, ok := rs.FindUniform("_MainTex_sampler")
	require.True(t, ok)
	assert.Equal(t, uint32(1), smp.Binding)

	require.Len(t, rs.Blocks(), 1)
	assert.Equal(t, "params", rs.Blocks()[0].Name)
	assert.Equal(t, uint32(48), rs.Blocks()[0].Size)
	assert.Equal(t, 1, rs.ImageCount())
	assert.Equal(t, 1, rs.SamplerCount())
}

func TestCompileLightmapVariant(t *testing.T) {
	env := pipelinetest.NewEnv(t)
	s := env.LoadShader(t, "lit.shader", pipeline.WithUniformBuffer(env.NewUniformBuffer(t, 4096)))

	rs, ok := s.Variant(1)
	require.True(t, ok)
	assert.Equal(t, state.CullNone, rs.PackedState().CullMode())
	require.Len(t, rs.Lightmap(), 3)
	assert.Equal(t, "_LightmapDir", rs.Lightmap()[0].Name)
	assert.Equal(t, shader.BindingSampler, rs.Lightmap()[2].Kind)
	require.NotNil(t, rs.ResourceLayout(pipeline.SetLightmap))
	assert.Len(t, rs.ResourceLayout(pipeline.SetLightmap).Entries(), 3)

	fragDefines := []string{}
	for _, d := range rs.Stage(shader.ShaderTypeFragment).Defines() {
		fragDefines = append(fragDefines, d.String())
	}
	assert.Equal(t, []string{"LIGHTMAP", "ALPHA_TEST"}, fragDefines)
	_, ok = s.Variant(2)
	assert.False(t, ok)

	// four distinct stage keys across the two variants
	assert.Equal(t, 4, env.Device.Stats().ShaderModules)
	assert.Equal(t, 2, env.Device.Stats().Pipelines)
}

func TestCompileSharesStagesBetweenVariants(t *testing.T) {
	env := pipelinetest.NewEnv(t)
	env.WriteFile(t, "twin.shader", `
shader "Twin" {
	RenderState "a" { RenderPass "Forward"; vs { shaderFile "lit.wgsl"; } fs { shaderFile "lit.wgsl"; } }
	RenderState "b" { RenderPass "Forward"; vs { shaderFile "lit.wgsl"; } fs { shaderFile "lit.wgsl"; } Blend SrcAlpha OneMinusSrcAlpha; }
}`)
	s := env.LoadShader(t, "twin.shader", pipeline.WithUniformBuffer(env.NewUniformBuffer(t, 4096)))
	require.Len(t, s.Variants(), 2)
	assert.Equal(t, 2, env.Device.Stats().ShaderModules)
	assert.True(t, s.Variants()[1].PackedState().IsBlendEnabled())
	assert.Same(t, s.Variants()[0].Stage(shader.ShaderTypeVertex), s.Variants()[1].Stage(shader.ShaderTypeVertex))
}

func TestCompileSkinnedFactory(t *testing.T) {
	env := pipelinetest.NewEnv(t)
	s := env.LoadShader(t, "prez.shader", pipeline.WithUniformBuffer(env.NewUniformBuffer(t, 4096)))
	require.Len(t, s.Variants(), 4)

	skinned := s.Variants()[1]
	assert.Equal(t, pipeline.VertexFactorySkinnedMesh, skinned.VertexFactory().Name())
	assert.Equal(t, 2, skinned.VertexFactory().PositionStreams())
	assert.Equal(t, []shader.Define{{Name: "SKINNED", Value: "1"}}, skinned.Stage(shader.ShaderTypeVertex).Defines())
	p := skinned.Pipeline().(*device.NullPipeline)
	require.Len(t, p.Desc.VertexBuffers, 1)
	assert.Len(t, p.Desc.VertexBuffers[0].Attributes, 4)
	assert.Empty(t, p.Desc.ColorFormats)
	assert.Equal(t, state.ColorWriteNone, skinned.State().ColorWriteMask)

	assert.Equal(t, 0, s.Variants()[0].ImageCount())
	assert.Nil(t, s.Variants()[0].ResourceLayout(pipeline.SetMaterial))
	assert.Equal(t, 1, s.Variants()[2].ImageCount())
	assert.Equal(t, 1, s.Variants()[3].SamplerCount())
}

func TestDisposeReleasesEverything(t *testing.T) {
	env := pipelinetest.NewEnv(t)
	buf := env.NewUniformBuffer(t, 4096)
	before := env.Device.Live()

	s, err := env.Compiler(pipeline.WithUniformBuffer(buf)).Load(env.Path("lit.shader"))
	require.NoError(t, err)
	assert.Greater(t, env.Device.Live(), before)
	s.Dispose()
	assert.Equal(t, before, env.Device.Live())
	assert.Empty(t, s.Variants())
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		noBuf  bool
		err    error
		anyErr bool
	}{
		{
			name: "missing stage source",
			files: map[string]string{"x.shader": `shader "X" { RenderState "a" { RenderPass "Forward";
				vs { shaderFile "missing.wgsl"; } } }`},
			err: shader.ErrMissingSource,
		},
		{
			name: "unknown vertex factory",
			files: map[string]string{"x.shader": `shader "X" { RenderState "a" { RenderPass "Forward"; VertexFactory "Particles";
				vs { shaderFile "lit.wgsl"; } } }`},
			err: pipeline.ErrUnknownVertexFactory,
		},
		{
			name: "conflicting bindings across stages",
			files: map[string]string{
				"a.wgsl": "@group(2) @binding(0) var _Albedo: texture_2d<f32>;\n@vertex fn vs() -> @builtin(position) vec4f { return vec4f(0.0); }",
				"b.wgsl": "@group(2) @binding(0) var _Albedo_sampler: sampler;\n@fragment fn fs() -> @location(0) vec4f { return vec4f(1.0); }",
				"x.shader": `shader "X" { RenderState "a" { RenderPass "Forward";
					vs { shaderFile "a.wgsl"; } fs { shaderFile "b.wgsl"; } } }`,
			},
			err: pipeline.ErrBindingConflict,
		},
		{
			name: "image in the dynamic uniform set",
			files: map[string]string{
				"a.wgsl":   "@group(3) @binding(0) var _Albedo: texture_2d<f32>;\n@vertex fn vs() -> @builtin(position) vec4f { return vec4f(0.0); }",
				"x.shader": `shader "X" { RenderState "a" { RenderPass "Forward"; vs { shaderFile "a.wgsl"; } } }`,
			},
			err: pipeline.ErrInvalidBindingSet,
		},
		{
			name:   "uniform blocks without a frame uniform buffer",
			files:  map[string]string{"x.shader": pipelinetest.LitShader},
			noBuf:  true,
			anyErr: true,
		},
		{
			name: "second variant fails after the first was built",
			files: map[string]string{
				"a.wgsl": "@group(3) @binding(0) var _Albedo: texture_2d<f32>;\n@vertex fn vs() -> @builtin(position) vec4f { return vec4f(0.0); }",
				"x.shader": `shader "X" {
					RenderState "ok" { RenderPass "Forward"; vs { shaderFile "lit.wgsl"; } fs { shaderFile "lit.wgsl"; } }
					RenderState "bad" { RenderPass "Forward"; vs { shaderFile "a.wgsl"; } } }`,
			},
			err: pipeline.ErrInvalidBindingSet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := pipelinetest.NewEnv(t)
			for name, content := range tt.files {
				env.WriteFile(t, name, content)
			}
			var opts []pipeline.CompilerOption
			if !tt.noBuf {
				opts = append(opts, pipeline.WithUniformBuffer(env.NewUniformBuffer(t, 4096)))
			}
			before := env.Device.Live()

			s, err := env.Compiler(opts...).Load(env.Path("x.shader"))
			require.Error(t, err)
			assert.Nil(t, s)
			if !tt.anyErr {
				assert.ErrorIs(t, err, tt.err)
			}
			assert.Equal(t, before, env.Device.Live(), "a failed load must not leak device objects")
		})
	}
}

func TestCompileInMemoryDefinition(t *testing.T) {
	env := pipelinetest.NewEnv(t)
	def, err := shader.ParseDefinition(`shader "Mem" { RenderState "a" { RenderPass "ShadowCaster";
		vs { shaderFile "depth.wgsl"; } } }`, env.Path("mem.shader"), env.Passes)
	require.NoError(t, err)

	s, err := env.Compiler(pipeline.WithUniformBuffer(env.NewUniformBuffer(t, 4096))).Compile(def)
	require.NoError(t, err)
	defer s.Dispose()
	rs := s.Variants()[0]
	assert.Nil(t, rs.Stage(shader.ShaderTypeFragment))
	p := rs.Pipeline().(*device.NullPipeline)
	assert.Nil(t, p.Desc.FragmentModule)
	assert.Equal(t, device.TextureFormatDepth32Float, p.Desc.DepthFormat)

	_, err = env.Compiler().Compile(&shader.Definition{Name: "Empty"})
	assert.Error(t, err)
}

func TestVertexFactoryRegistry(t *testing.T) {
	r := pipeline.NewVertexFactoryRegistry()
	assert.Equal(t, []string{pipeline.VertexFactorySkinnedMesh, pipeline.VertexFactoryStaticMesh}, r.Names())

	skinned, err := r.Find(pipeline.VertexFactorySkinnedMesh)
	require.NoError(t, err)
	_, err = skinned.VertexBuffers(nil)
	assert.Error(t, err)

	r.Register(pipeline.NewVertexFactory("Particles", 1, 0, shader.Define{Name: "PARTICLES"}))
	f, err := r.Find("Particles")
	require.NoError(t, err)
	layouts, err := f.VertexBuffers(nil)
	require.NoError(t, err)
	assert.Empty(t, layouts)

	_, err = r.Find("Terrain")
	assert.ErrorIs(t, err, pipeline.ErrUnknownVertexFactory)
}
