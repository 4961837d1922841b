package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapReader(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		if s, ok := files[filepath.ToSlash(path)]; ok {
			return []byte(s), nil
		}
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}

func TestPreProcessorConditionals(t *testing.T) {
	src := `a
#ifdef SKINNED
skinned
#ifndef ALPHA_TEST
opaque
#else
cutout
#endif
#else
static
#endif
z`
	pp := NewPreProcessor()

	out, err := pp.Process("", src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "static", "z"}, nonEmptyLines(out))

	out, err = pp.Process("", src, ParseDefines("SKINNED"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "skinned", "opaque", "z"}, nonEmptyLines(out))

	out, err = pp.Process("", src, ParseDefines("SKINNED ALPHA_TEST"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "skinned", "cutout", "z"}, nonEmptyLines(out))
}

func TestPreProcessorSubstitution(t *testing.T) {
	src := "#define SCALE 2.0\nlet x = CUTOFF * SCALE;\nlet CUTOFF_ST = 1;\n#undef SCALE\nlet y = SCALE;"
	out, err := NewPreProcessor().Process("", src, ParseDefines("CUTOFF=0.5"))
	require.NoError(t, err)
	assert.Equal(t, []string{"let x = 0.5 * 2.0;", "let CUTOFF_ST = 1;", "let y = SCALE;"}, nonEmptyLines(out))
}

func TestPreProcessorDefineInsideInactiveBlock(t *testing.T) {
	src := "#ifdef NOPE\n#define V 1\n#endif\n#ifdef V\nbad\n#endif\nok"
	out, err := NewPreProcessor().Process("", src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, nonEmptyLines(out))
}

func TestPreProcessorIncludeOnce(t *testing.T) {
	files := map[string]string{
		"shaders/common/math.wgsl": "fn sq(x: f32) -> f32 { return x * x; }",
		"shaders/common/lit.wgsl":  "#include \"math.wgsl\"\nfn lit() {}",
		"lib/extra.wgsl":           "fn extra() {}",
	}
	pp := NewPreProcessor(WithIncludeReader(mapReader(files)), WithIncludeDirs("lib"))
	src := "#include \"common/lit.wgsl\"\n#include \"common/math.wgsl\"\n#include \"extra.wgsl\"\nfn main() {}"

	out, err := pp.Process("shaders/main.wgsl", src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"fn sq(x: f32) -> f32 { return x * x; }",
		"fn lit() {}",
		"fn extra() {}",
		"fn main() {}",
	}, nonEmptyLines(out))
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor(WithIncludeReader(mapReader(map[string]string{
		"loop.wgsl":  "#include \"loop2.wgsl\"",
		"loop2.wgsl": "#ifdef X",
	})))
	tests := map[string]string{
		"unbalanced endif":    "#endif",
		"else without if":     "#else",
		"duplicate else":      "#ifdef A\n#else\n#else\n#endif",
		"unterminated":        "#ifdef A\nx",
		"unknown directive":   "#pragma once",
		"bad include":         "#include common.wgsl",
		"missing include":     "#include \"nope.wgsl\"",
		"bad define":          "#define 1A",
		"unterminated nested": "#include \"loop.wgsl\"",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := pp.Process("main.wgsl", src, nil)
			assert.Error(t, err)
		})
	}
}

func TestParseDirective(t *testing.T) {
	d, err := parseDirective("  #define ALPHA_CUTOFF 0.5", 4)
	require.NoError(t, err)
	assert.Equal(t, &Directive{Type: DirectiveDefine, Name: "ALPHA_CUTOFF", Value: "0.5", Line: 4}, d)

	d, err = parseDirective("let a = 1;", 1)
	require.NoError(t, err)
	assert.Nil(t, d)
}
