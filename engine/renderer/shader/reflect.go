package shader

import (
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// ShaderType identifies the programmable stage a shader source is compiled for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vs"
	case ShaderTypeFragment:
		return "fs"
	}
	return "unknown"
}

// attribute returns the WGSL entry point attribute name of the shader type.
func (t ShaderType) attribute() string {
	if t == ShaderTypeFragment {
		return "fragment"
	}
	return "vertex"
}

// Stage returns the device stage bit of the shader type.
func (t ShaderType) Stage() device.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return device.ShaderStageVertex
	case ShaderTypeFragment:
		return device.ShaderStageFragment
	}
	return device.ShaderStageNone
}

// BindingKind is the category of a reflected resource binding.
type BindingKind int

const (
	BindingImage BindingKind = iota
	BindingSampler
	BindingUniformBlock
)

func (k BindingKind) String() string {
	switch k {
	case BindingImage:
		return "Image"
	case BindingSampler:
		return "Sampler"
	case BindingUniformBlock:
		return "UniformBlock"
	}
	return "Unknown"
}

// BlockMember is one member of a reflected uniform block.
type BlockMember struct {
	Name   string
	Offset uint32
	Size   uint32
}

// ResourceBinding is a resource declared by a compiled stage.
type ResourceBinding struct {
	Name    string
	Set     uint32
	Binding uint32
	Stages  device.ShaderStage
	Kind    BindingKind
	// Size is the byte size of a uniform block. Zero for images and samplers.
	Size uint32
	// Members lists uniform block members in declaration order.
	Members []BlockMember
}

// Reflector extracts the resource bindings a compiled stage declares.
type Reflector interface {
	// Reflect returns every image, sampler and uniform block the stage declares.
	// Uniform blocks carry the byte offset and size of each member in declaration order.
	// The Stages mask of every binding is the stage's own bit.
	//
	// Parameters:
	//   - s: the compiled stage
	//
	// Returns:
	//   - []ResourceBinding: the declared bindings
	//   - error: error if the stage cannot be reflected
	Reflect(s Stage) ([]ResourceBinding, error)
}

// ReflectorFunc adapts a function to the Reflector interface.
type ReflectorFunc func(s Stage) ([]ResourceBinding, error)

func (f ReflectorFunc) Reflect(s Stage) ([]ResourceBinding, error) {
	return f(s)
}
