package spirv

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assembler builds little-endian SPIR-V modules for tests.
type assembler struct {
	words []uint32
}

func newAssembler() *assembler {
	return &assembler{words: []uint32{Magic, 0x00010300, 0, 100, 0}}
}

func (a *assembler) op(op uint16, operands ...uint32) *assembler {
	a.words = append(a.words, uint32(len(operands)+1)<<16|uint32(op))
	a.words = append(a.words, operands...)
	return a
}

func str(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func (a *assembler) name(id uint32, s string) *assembler {
	return a.op(OpName, append([]uint32{id}, str(s)...)...)
}

func (a *assembler) memberName(id, member uint32, s string) *assembler {
	return a.op(OpMemberName, append([]uint32{id, member}, str(s)...)...)
}

func (a *assembler) bytes() []byte {
	out := make([]byte, len(a.words)*4)
	for i, w := range a.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// materialModule declares:
//
//	set 2 binding 0: texture_2d _MainTex
//	set 2 binding 1: sampler _MainTex_sampler
//	set 3 binding 0: uniform block params { vec4 _Color; float _Cutoff; mat4 _Xform; float _Weights[4] }
//	set 3 binding 1: uniform block wrapping a single float, variable named _Exposure
//	set 1 binding 0: storage buffer (skipped)
func materialModule() []byte {
	const (
		tFloat = 1 + iota
		tVec4
		tMat4
		tUint
		cFour
		tArr
		tImage
		tSampler
		tParams
		tExposure
		tStorage
		pImage
		pSampler
		pParams
		pExposure
		pStorage
		vMainTex
		vSampler
		vParams
		vExposure
		vStorage
		fnMain
	)
	a := newAssembler()
	a.op(OpEntryPoint, append([]uint32{4, fnMain}, str("fs_main")...)...)
	a.name(vMainTex, "_MainTex").name(vSampler, "_MainTex_sampler").name(vParams, "params").name(vExposure, "_Exposure")
	a.name(tParams, "MaterialParams")
	a.memberName(tParams, 0, "_Color").memberName(tParams, 1, "_Cutoff").memberName(tParams, 2, "_Xform").memberName(tParams, 3, "_Weights")

	a.op(OpDecorate, tParams, DecorationBlock)
	a.op(OpMemberDecorate, tParams, 0, DecorationOffset, 0)
	a.op(OpMemberDecorate, tParams, 1, DecorationOffset, 16)
	a.op(OpMemberDecorate, tParams, 2, DecorationOffset, 32)
	a.op(OpMemberDecorate, tParams, 2, DecorationMatrixStride, 16)
	a.op(OpMemberDecorate, tParams, 3, DecorationOffset, 96)
	a.op(OpDecorate, tArr, DecorationArrayStride, 16)
	a.op(OpDecorate, tExposure, DecorationBlock)
	a.op(OpMemberDecorate, tExposure, 0, DecorationOffset, 0)
	a.op(OpDecorate, tStorage, DecorationBufferBlock)
	a.op(OpMemberDecorate, tStorage, 0, DecorationOffset, 0)

	for _, b := range []struct{ id, set, binding uint32 }{
		{vMainTex, 2, 0}, {vSampler, 2, 1}, {vParams, 3, 0}, {vExposure, 3, 1}, {vStorage, 1, 0},
	} {
		a.op(OpDecorate, b.id, DecorationDescriptorSet, b.set)
		a.op(OpDecorate, b.id, DecorationBinding, b.binding)
	}

	a.op(OpTypeFloat, tFloat, 32)
	a.op(OpTypeVector, tVec4, tFloat, 4)
	a.op(OpTypeMatrix, tMat4, tVec4, 4)
	a.op(OpTypeInt, tUint, 32, 0)
	a.op(OpConstant, tUint, cFour, 4)
	a.op(OpTypeArray, tArr, tFloat, cFour)
	a.op(OpTypeImage, tImage, tFloat, 1, 0, 0, 0, 1, 0)
	a.op(OpTypeSampler, tSampler)
	a.op(OpTypeStruct, tParams, tVec4, tFloat, tMat4, tArr)
	a.op(OpTypeStruct, tExposure, tFloat)
	a.op(OpTypeStruct, tStorage, tVec4)
	a.op(OpTypePointer, pImage, StorageClassUniformConstant, tImage)
	a.op(OpTypePointer, pSampler, StorageClassUniformConstant, tSampler)
	a.op(OpTypePointer, pParams, StorageClassUniform, tParams)
	a.op(OpTypePointer, pExposure, StorageClassUniform, tExposure)
	a.op(OpTypePointer, pStorage, StorageClassUniform, tStorage)
	a.op(OpVariable, pStorage, vStorage, StorageClassUniform)
	a.op(OpVariable, pParams, vParams, StorageClassUniform)
	a.op(OpVariable, pExposure, vExposure, StorageClassUniform)
	a.op(OpVariable, pImage, vMainTex, StorageClassUniformConstant)
	a.op(OpVariable, pSampler, vSampler, StorageClassUniformConstant)
	a.op(OpFunction, 0, fnMain, 0, 0)
	// function-scope variables are not bindings
	a.op(OpVariable, pImage, 999, StorageClassUniformConstant)
	return a.bytes()
}

const (
	opLoad        uint16 = 61
	opAccessChain uint16 = 65
	opLabel       uint16 = 248
	opReturn      uint16 = 253
)

// unnamedModule is laid out the way naga emits WGSL: no debug names on globals, and the
// MaterialParams uniform wrapped in a one-member block struct.
//
//	set 1 binding 0: image referenced by no entry point
//	set 2 binding 0/1: image and sampler sampled by fs_main
//	set 3 binding 0: block { MaterialParams { vec4; float; vec4 } } read by vs_main and fs_main
//	set 3 binding 1: block { float } read by a helper vs_main calls
func unnamedModule() []byte {
	const (
		tFloat = 1000 + iota
		tVec4
		tImage
		tSampler
		tParams
		tParamsBlock
		tExposureBlock
		pImage
		pSampler
		pParamsBlock
		pExposureBlock
		vLightmap
		vMainTex
		vSampler
		vParams
		vExposure
		fnVS
		fnFS
		fnHelper
		rTmp
	)
	a := newAssembler()
	a.op(OpEntryPoint, append([]uint32{ExecutionModelVertex, fnVS}, str("vs_main")...)...)
	a.op(OpEntryPoint, append([]uint32{ExecutionModelFragment, fnFS}, str("fs_main")...)...)

	a.op(OpMemberDecorate, tParams, 0, DecorationOffset, 0)
	a.op(OpMemberDecorate, tParams, 1, DecorationOffset, 16)
	a.op(OpMemberDecorate, tParams, 2, DecorationOffset, 32)
	a.op(OpDecorate, tParamsBlock, DecorationBlock)
	a.op(OpMemberDecorate, tParamsBlock, 0, DecorationOffset, 0)
	a.op(OpDecorate, tExposureBlock, DecorationBlock)
	a.op(OpMemberDecorate, tExposureBlock, 0, DecorationOffset, 0)
	for _, b := range []struct{ id, set, binding uint32 }{
		{vLightmap, 1, 0}, {vMainTex, 2, 0}, {vSampler, 2, 1}, {vParams, 3, 0}, {vExposure, 3, 1},
	} {
		a.op(OpDecorate, b.id, DecorationDescriptorSet, b.set)
		a.op(OpDecorate, b.id, DecorationBinding, b.binding)
	}

	a.op(OpTypeFloat, tFloat, 32)
	a.op(OpTypeVector, tVec4, tFloat, 4)
	a.op(OpTypeImage, tImage, tFloat, 1, 0, 0, 0, 1, 0)
	a.op(OpTypeSampler, tSampler)
	a.op(OpTypeStruct, tParams, tVec4, tFloat, tVec4)
	a.op(OpTypeStruct, tParamsBlock, tParams)
	a.op(OpTypeStruct, tExposureBlock, tFloat)
	a.op(OpTypePointer, pImage, StorageClassUniformConstant, tImage)
	a.op(OpTypePointer, pSampler, StorageClassUniformConstant, tSampler)
	a.op(OpTypePointer, pParamsBlock, StorageClassUniform, tParamsBlock)
	a.op(OpTypePointer, pExposureBlock, StorageClassUniform, tExposureBlock)
	a.op(OpVariable, pImage, vLightmap, StorageClassUniformConstant)
	a.op(OpVariable, pImage, vMainTex, StorageClassUniformConstant)
	a.op(OpVariable, pSampler, vSampler, StorageClassUniformConstant)
	a.op(OpVariable, pParamsBlock, vParams, StorageClassUniform)
	a.op(OpVariable, pExposureBlock, vExposure, StorageClassUniform)

	a.op(OpFunction, 0, fnHelper, 0, 0)
	a.op(opLabel, rTmp)
	a.op(opAccessChain, 0, rTmp+1, vExposure, 0)
	a.op(opReturn)
	a.op(OpFunctionEnd)

	a.op(OpFunction, 0, fnVS, 0, 0)
	a.op(opLabel, rTmp+2)
	a.op(opAccessChain, 0, rTmp+3, vParams, 0)
	a.op(OpFunctionCall, 0, rTmp+4, fnHelper)
	a.op(opReturn)
	a.op(OpFunctionEnd)

	a.op(OpFunction, 0, fnFS, 0, 0)
	a.op(opLabel, rTmp+5)
	a.op(opLoad, tImage, rTmp+6, vMainTex)
	a.op(opLoad, tSampler, rTmp+7, vSampler)
	a.op(opAccessChain, 0, rTmp+8, vParams, 0)
	a.op(opReturn)
	a.op(OpFunctionEnd)
	return a.bytes()
}

const unnamedModuleSource = `
struct MaterialParams {
	_Color: vec4f,
	_Cutoff: f32,
	_MainTex_ST: vec4f,
};

@group(1) @binding(0) var _LightmapDir: texture_2d<f32>;
@group(2) @binding(0) var _MainTex: texture_2d<f32>;
@group(2) @binding(1) var _MainTex_sampler: sampler;
@group(3) @binding(0) var<uniform> params: MaterialParams;
@group(3) @binding(1) var<uniform> _Exposure: f32;

@vertex
fn vs_main() -> @builtin(position) vec4f {
	return params._MainTex_ST * _Exposure;
}

@fragment
fn fs_main() -> @location(0) vec4f {
	return textureSample(_MainTex, _MainTex_sampler, vec2f(0.0)) * params._Color;
}
`

func TestReflectBytecode(t *testing.T) {
	bindings, err := ReflectBytecode(materialModule(), device.ShaderStageFragment)
	require.NoError(t, err)
	require.Len(t, bindings, 4)

	assert.Equal(t, shader.ResourceBinding{Name: "_MainTex", Set: 2, Binding: 0, Stages: device.ShaderStageFragment, Kind: shader.BindingImage}, bindings[0])
	assert.Equal(t, shader.ResourceBinding{Name: "_MainTex_sampler", Set: 2, Binding: 1, Stages: device.ShaderStageFragment, Kind: shader.BindingSampler}, bindings[1])

	params := bindings[2]
	assert.Equal(t, "params", params.Name)
	assert.Equal(t, shader.BindingUniformBlock, params.Kind)
	assert.Equal(t, uint32(160), params.Size)
	assert.Equal(t, []shader.BlockMember{
		{Name: "_Color", Offset: 0, Size: 16},
		{Name: "_Cutoff", Offset: 16, Size: 4},
		{Name: "_Xform", Offset: 32, Size: 64},
		{Name: "_Weights", Offset: 96, Size: 64},
	}, params.Members)

	exposure := bindings[3]
	assert.Equal(t, uint32(1), exposure.Binding)
	assert.Equal(t, uint32(4), exposure.Size)
	assert.Equal(t, []shader.BlockMember{{Name: "_Exposure", Offset: 0, Size: 4}}, exposure.Members)
}

func TestReflectBytecodeUnwrapsBlockStructs(t *testing.T) {
	bindings, err := ReflectBytecode(unnamedModule(), device.ShaderStageVertex)
	require.NoError(t, err)
	require.Len(t, bindings, 3)

	params := bindings[1]
	assert.Equal(t, uint32(3), params.Set)
	assert.Equal(t, uint32(0), params.Binding)
	assert.Equal(t, uint32(48), params.Size)
	assert.Equal(t, []shader.BlockMember{
		{Offset: 0, Size: 16},
		{Offset: 16, Size: 4},
		{Offset: 32, Size: 16},
	}, params.Members)

	exposure := bindings[2]
	assert.Equal(t, uint32(4), exposure.Size)
	assert.Equal(t, []shader.BlockMember{{Offset: 0, Size: 4}}, exposure.Members)
}

func TestReflectBytecodeStagesFollowEntryPoints(t *testing.T) {
	type slot struct{ set, binding uint32 }
	stagesOf := func(stage device.ShaderStage) map[slot]device.ShaderStage {
		bindings, err := ReflectBytecode(unnamedModule(), stage)
		require.NoError(t, err)
		out := make(map[slot]device.ShaderStage)
		for _, b := range bindings {
			out[slot{b.Set, b.Binding}] = b.Stages
		}
		return out
	}

	assert.Equal(t, map[slot]device.ShaderStage{
		{1, 0}: device.ShaderStageVertex,
		{3, 0}: device.ShaderStageVertex,
		{3, 1}: device.ShaderStageVertex,
	}, stagesOf(device.ShaderStageVertex), "fs_main-only resources are absent, the helper's uniform is reached through the call")

	assert.Equal(t, map[slot]device.ShaderStage{
		{1, 0}: device.ShaderStageFragment,
		{2, 0}: device.ShaderStageFragment,
		{2, 1}: device.ShaderStageFragment,
		{3, 0}: device.ShaderStageFragment,
	}, stagesOf(device.ShaderStageFragment))

	all, err := ReflectBytecode(unnamedModule(), device.ShaderStageVertex|device.ShaderStageFragment)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, device.ShaderStageVertex|device.ShaderStageFragment, all[3].Stages)
	assert.Equal(t, device.ShaderStageVertex, all[4].Stages)
}

func TestReflectorRecoversNamesFromSource(t *testing.T) {
	for _, tc := range []struct {
		typ   shader.ShaderType
		names []string
	}{
		{shader.ShaderTypeVertex, []string{"_LightmapDir", "params", "_Exposure"}},
		{shader.ShaderTypeFragment, []string{"_LightmapDir", "_MainTex", "_MainTex_sampler", "params"}},
	} {
		desc := shader.StageDesc{Type: tc.typ, Path: "lit.wgsl"}
		s, err := shader.CompileStage(desc, unnamedModuleSource, bytecodeCompiler{code: unnamedModule()})
		require.NoError(t, err)

		bindings, err := Reflector{}.Reflect(s)
		require.NoError(t, err)
		names := []string{}
		for _, b := range bindings {
			names = append(names, b.Name)
		}
		assert.Equal(t, tc.names, names, "%s", tc.typ)

		for _, b := range bindings {
			if b.Name != "params" {
				continue
			}
			assert.Equal(t, []shader.BlockMember{
				{Name: "_Color", Offset: 0, Size: 16},
				{Name: "_Cutoff", Offset: 16, Size: 4},
				{Name: "_MainTex_ST", Offset: 32, Size: 16},
			}, b.Members)
		}
	}

	vs, err := shader.CompileStage(shader.StageDesc{Type: shader.ShaderTypeVertex, Path: "lit.wgsl"}, unnamedModuleSource, bytecodeCompiler{code: unnamedModule()})
	require.NoError(t, err)
	bindings, err := Reflector{}.Reflect(vs)
	require.NoError(t, err)
	assert.Equal(t, []shader.BlockMember{{Name: "_Exposure", Offset: 0, Size: 4}}, bindings[2].Members)
}

func TestReflectBytecodeRejectsMalformedModules(t *testing.T) {
	_, err := ReflectBytecode([]byte{1, 2, 3}, device.ShaderStageVertex)
	assert.ErrorIs(t, err, ErrInvalidModule)

	bad := newAssembler()
	bad.words[0] = 0xdeadbeef
	_, err = ReflectBytecode(bad.bytes(), device.ShaderStageVertex)
	assert.ErrorIs(t, err, ErrInvalidModule)

	truncated := newAssembler().op(OpTypeFloat, 1, 32)
	truncated.words = truncated.words[:len(truncated.words)-1]
	_, err = ReflectBytecode(truncated.bytes(), device.ShaderStageVertex)
	assert.ErrorIs(t, err, ErrInvalidModule)
}

type bytecodeCompiler struct {
	code []byte
}

func (c bytecodeCompiler) Compile(desc shader.StageDesc, source string) (shader.CompileResult, error) {
	return shader.CompileResult{Source: source, Bytecode: c.code}, nil
}

func TestReflectorUsesStageBytecode(t *testing.T) {
	desc := shader.StageDesc{Type: shader.ShaderTypeFragment, Path: "m.wgsl"}
	s, err := shader.CompileStage(desc, "@fragment fn fs_main() {}", bytecodeCompiler{code: materialModule()})
	require.NoError(t, err)

	bindings, err := Reflector{}.Reflect(s)
	require.NoError(t, err)
	assert.Len(t, bindings, 4)

	empty, err := shader.CompileStage(desc, "@fragment fn fs_main() {}", shader.PreprocessCompiler{})
	require.NoError(t, err)
	_, err = Reflector{}.Reflect(empty)
	assert.Error(t, err)
}

func TestDecodeString(t *testing.T) {
	assert.Equal(t, "abcd", decodeString(str("abcd")))
	assert.Equal(t, "", decodeString(str("")))
	assert.Equal(t, "x", decodeString(str("x")))
}
