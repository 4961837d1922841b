package material

import "github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"

// MaterialBuilderOption is a functional option used to configure a Material during construction.
type MaterialBuilderOption func(*material)

// WithName overrides the material name, which defaults to the shader name.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: a function that sets the name
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithKeywords records the keywords of the material description.
//
// Parameters:
//   - keywords: the keywords
//
// Returns:
//   - MaterialBuilderOption: a function that sets the keywords
func WithKeywords(keywords ...string) MaterialBuilderOption {
	return func(m *material) {
		m.keywords = append(m.keywords[:0], keywords...)
	}
}

// WithPrezShader sets the depth pre-pass shader. Its variants follow the auxiliary layout:
// static opaque, skinned opaque, static alpha-test, skinned alpha-test.
//
// Parameters:
//   - s: the pre-pass shader
//
// Returns:
//   - MaterialBuilderOption: a function that sets the pre-pass shader
func WithPrezShader(s pipeline.Shader) MaterialBuilderOption {
	return func(m *material) {
		m.prez = s
	}
}

// WithShadowShader sets the shadow caster shader, laid out like the pre-pass shader.
//
// Parameters:
//   - s: the shadow caster shader
//
// Returns:
//   - MaterialBuilderOption: a function that sets the shadow caster shader
func WithShadowShader(s pipeline.Shader) MaterialBuilderOption {
	return func(m *material) {
		m.shadow = s
	}
}
