package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPasses(t *testing.T) render_pass.Registry {
	t.Helper()
	r := render_pass.NewRegistry()
	for _, name := range []string{render_pass.PassForward, render_pass.PassDepthPrepass, render_pass.PassShadowCaster} {
		require.NoError(t, r.Register(render_pass.NewRenderPass(name)))
	}
	return r
}

func TestParseOpaqueVariant(t *testing.T) {
	src := `
shader "Lit" {
	Queue Opaque;
	RenderState "lit" {
		RenderPass "Forward";
		vs { shaderFile "lit.wgsl"; }
		fs { shaderFile "lit.wgsl"; defines "ALPHA_CUTOFF=0.5 FOG"; entryPoint "fs_lit"; }
		CullMode Back;
		ZTest LEqual;
		Blend One Zero;
	}
}`
	def, err := ParseDefinition(src, "assets/shaders/lit.shader", testPasses(t))
	require.NoError(t, err)
	assert.Equal(t, "Lit", def.Name)
	assert.Equal(t, QueueOpaque, def.Queue)
	require.Len(t, def.Variants, 1)

	v := def.Variants[0]
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, "lit", v.Name)
	assert.Equal(t, render_pass.PassForward, v.PassName)
	assert.Equal(t, DefaultVertexFactory, v.VertexFactory)
	assert.False(t, v.State.IsBlendEnabled())
	assert.Equal(t, state.CullBack, v.State.CullMode)
	assert.Equal(t, state.CompareLessEqual, v.State.DepthCompare)

	packed := v.State.Pack()
	assert.False(t, packed.IsBlendEnabled())
	assert.Equal(t, state.CullBack, packed.CullMode())

	require.NotNil(t, v.Vertex)
	assert.Equal(t, filepath.Join("assets/shaders", "lit.wgsl"), v.Vertex.Path)
	require.NotNil(t, v.Fragment)
	assert.Equal(t, "fs_lit", v.Fragment.EntryPoint)
	assert.Equal(t, []Define{{Name: "ALPHA_CUTOFF", Value: "0.5"}, {Name: "FOG"}}, v.Fragment.Defines)
}

func TestParseBlendAndStencil(t *testing.T) {
	src := `shader "Glass" {
	Queue Transparent;
	RenderState "a" {
		name "blended";
		RenderPass Forward;
		VertexFactory SkinnedMesh;
		AlphaBlend One OneMinusSrcAlpha;
		Blend SrcAlpha OneMinusSrcAlpha;
		BlendOp Max;
		ZWrite off;
		ColorMask RGB;
		Stencil 3 0x0F 0xF0 Equal Replace Keep IncrSat;
		AlphaToCoverage on;
		vs { shaderFile "glass.wgsl"; }
	}
}`
	def, err := ParseDefinition(src, "", testPasses(t))
	require.NoError(t, err)
	v := def.Variants[0]
	assert.Equal(t, "blended", v.Name)
	assert.Equal(t, "SkinnedMesh", v.VertexFactory)
	assert.Equal(t, "glass.wgsl", v.Vertex.Path)

	s := v.State
	assert.True(t, s.IsBlendEnabled())
	assert.Equal(t, state.BlendComponent{Src: state.BlendSrcAlpha, Dst: state.BlendOneMinusSrcAlpha, Op: state.BlendOpMax}, s.Color)
	assert.Equal(t, state.BlendComponent{Src: state.BlendOne, Dst: state.BlendOneMinusSrcAlpha, Op: state.BlendOpMax}, s.Alpha)
	assert.False(t, s.DepthWrite)
	assert.Equal(t, state.ColorWriteRed|state.ColorWriteGreen|state.ColorWriteBlue, s.ColorWriteMask)
	assert.True(t, s.AlphaToCoverage)
	assert.True(t, s.Stencil.Enabled)
	assert.Equal(t, uint8(3), s.Stencil.Ref)
	assert.Equal(t, uint8(0x0F), s.Stencil.ReadMask)
	assert.Equal(t, uint8(0xF0), s.Stencil.WriteMask)
	assert.Equal(t, state.StencilFace{Compare: state.CompareEqual, Pass: state.StencilReplace, Fail: state.StencilKeep, DepthFail: state.StencilIncrSat}, s.Stencil.Front)
	assert.Equal(t, s.Stencil.Front, s.BackStencil())
}

func TestParseSeparateStencilBack(t *testing.T) {
	src := `shader "S" { RenderState "v" { RenderPass "Forward";
		StencilBack Always Zero Keep Keep;
		Stencil 1 255 255 Less Keep Keep Keep;
		vs { shaderFile "s.wgsl"; } } }`
	def, err := ParseDefinition(src, "", testPasses(t))
	require.NoError(t, err)
	s := def.Variants[0].State
	assert.True(t, s.Stencil.Separate)
	assert.Equal(t, state.CompareLess, s.Stencil.Front.Compare)
	assert.Equal(t, state.CompareAlways, s.BackStencil().Compare)
	assert.Equal(t, state.StencilZero, s.BackStencil().Pass)
}

func TestParseMultipleVariantsKeepOrder(t *testing.T) {
	src := `shader "Aux" {
	// static opaque
	RenderState "s" { RenderPass "DepthPrepass"; vs { shaderFile "d.wgsl"; } }
	/* skinned opaque */
	RenderState "k" { RenderPass "DepthPrepass"; VertexFactory SkinnedMesh; vs { shaderFile "d.wgsl"; defines "SKINNED"; } }
	RenderState "sa" { RenderPass "DepthPrepass"; vs { shaderFile "d.wgsl"; } fs { shaderFile "d.wgsl"; defines "ALPHA_TEST"; } }
}`
	def, err := ParseDefinition(src, "", testPasses(t))
	require.NoError(t, err)
	require.Len(t, def.Variants, 3)
	for i, name := range []string{"s", "k", "sa"} {
		assert.Equal(t, i, def.Variants[i].Index)
		assert.Equal(t, name, def.Variants[i].Name)
	}
	assert.Nil(t, def.Variants[0].Fragment)
	assert.NotNil(t, def.Variants[2].Fragment)
}

func TestParseSkipsUnknownStatements(t *testing.T) {
	src := `shader "U" {
	Properties { _Color "Color" Color; nested { a; } }
	LOD 200;
	RenderState "v" {
		RenderPass "Forward";
		Tags { "LightMode" "Always"; };
		Offset 1 1;
		vs { shaderFile "u.wgsl"; precision high; }
	}
}`
	def, err := ParseDefinition(src, "", testPasses(t))
	require.NoError(t, err)
	require.Len(t, def.Variants, 1)
	assert.Equal(t, "u.wgsl", def.Variants[0].Vertex.Path)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   error
		line int
	}{
		{
			name: "unknown pass",
			src:  "shader \"x\" {\n RenderState \"v\" {\n  RenderPass \"Deferred\";\n vs { shaderFile \"a\"; } } }",
			is:   ErrUnknownRenderPass,
			line: 3,
		},
		{
			name: "stage before pass",
			src:  "shader \"x\" {\n RenderState \"v\" {\n  vs { shaderFile \"a\"; }\n  RenderPass \"Forward\"; } }",
			is:   ErrStageBeforeRenderPass,
			line: 3,
		},
		{
			name: "stage without file",
			src:  "shader \"x\" { RenderState \"v\" { RenderPass \"Forward\"; vs { entryPoint \"main\"; } } }",
			is:   ErrMissingSource,
			line: 1,
		},
		{
			name: "bad enum",
			src:  "shader \"x\" {\n RenderState \"v\" { RenderPass \"Forward\";\n CullMode Sideways;\n vs { shaderFile \"a\"; } } }",
			line: 3,
		},
		{
			name: "wrong arity",
			src:  "shader \"x\" { RenderState \"v\" { RenderPass \"Forward\"; Blend One; vs { shaderFile \"a\"; } } }",
			line: 1,
		},
		{
			name: "missing vs",
			src:  "shader \"x\" { RenderState \"v\" { RenderPass \"Forward\"; } }",
			line: 1,
		},
		{
			name: "unterminated",
			src:  "shader \"x\" { RenderState \"v\" { RenderPass \"Forward\";",
			line: 1,
		},
		{
			name: "no variants",
			src:  "shader \"x\" { Queue Opaque; }",
			line: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDefinition(tc.src, "x.shader", testPasses(t))
			require.Error(t, err)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.line, se.Line)
			assert.Equal(t, "x.shader", se.Path)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestLoadDefinitionResolvesStagePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unlit.shader")
	require.NoError(t, os.WriteFile(path, []byte(`shader "Unlit" { RenderState "v" { RenderPass "Forward"; vs { shaderFile "stages/unlit.wgsl"; } } }`), 0o644))

	def, err := LoadDefinition(path, testPasses(t))
	require.NoError(t, err)
	assert.Equal(t, path, def.Path)
	assert.Equal(t, filepath.Join(dir, "stages", "unlit.wgsl"), def.Variants[0].Vertex.Path)

	_, err = LoadDefinition(filepath.Join(dir, "missing.shader"), testPasses(t))
	assert.Error(t, err)
}

func TestTokenStream(t *testing.T) {
	ts, err := NewTokenStream("t", "a \"b c\" { ; } // x\n/* y\n */ d")
	require.NoError(t, err)
	var kinds []TokenKind
	for tok := ts.Next(); tok.Kind != TokenEOF; tok = ts.Next() {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{TokenWord, TokenString, TokenLBrace, TokenSemicolon, TokenRBrace, TokenWord}, kinds)
	assert.Equal(t, 3, ts.Peek().Line)

	_, err = NewTokenStream("t", "\"open")
	assert.Error(t, err)
	_, err = NewTokenStream("t", "/* open")
	assert.Error(t, err)
}

func TestParseDefinesAndQueue(t *testing.T) {
	assert.Empty(t, ParseDefines("  "))
	assert.Equal(t, "A=1", Define{Name: "A", Value: "1"}.String())

	q, err := ParseQueue("AlphaTest")
	require.NoError(t, err)
	assert.True(t, q.CastsAuxiliaryPasses())
	assert.False(t, QueueTransparent.CastsAuxiliaryPasses())
	_, err = ParseQueue("Geometry")
	assert.Error(t, err)
}
