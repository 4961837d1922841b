// Package spirv reflects resource bindings out of SPIR-V bytecode.
//
// Only the instructions that describe descriptor bindings are decoded: debug names, decorations,
// type declarations, constants used as array lengths, global variables and entry points. Function
// bodies are scanned for the globals they reference and the functions they call, nothing more.
package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// Magic is the first word of every SPIR-V module.
const Magic uint32 = 0x07230203

const headerWords = 5

// Opcodes decoded by the reflector.
const (
	OpName             uint16 = 5
	OpMemberName       uint16 = 6
	OpEntryPoint       uint16 = 15
	OpTypeBool         uint16 = 20
	OpTypeInt          uint16 = 21
	OpTypeFloat        uint16 = 22
	OpTypeVector       uint16 = 23
	OpTypeMatrix       uint16 = 24
	OpTypeImage        uint16 = 25
	OpTypeSampler      uint16 = 26
	OpTypeSampledImage uint16 = 27
	OpTypeArray        uint16 = 28
	OpTypeRuntimeArray uint16 = 29
	OpTypeStruct       uint16 = 30
	OpTypePointer      uint16 = 32
	OpConstant         uint16 = 43
	OpFunction         uint16 = 54
	OpFunctionEnd      uint16 = 56
	OpFunctionCall     uint16 = 57
	OpVariable         uint16 = 59
	OpDecorate         uint16 = 71
	OpMemberDecorate   uint16 = 72
)

// Decorations decoded by the reflector.
const (
	DecorationBlock         uint32 = 2
	DecorationBufferBlock   uint32 = 3
	DecorationArrayStride   uint32 = 6
	DecorationMatrixStride  uint32 = 7
	DecorationBinding       uint32 = 33
	DecorationDescriptorSet uint32 = 34
	DecorationOffset        uint32 = 35
)

// Execution models of the stages a binding can be visible to.
const (
	ExecutionModelVertex   uint32 = 0
	ExecutionModelFragment uint32 = 4
)

// Storage classes decoded by the reflector.
const (
	StorageClassUniformConstant uint32 = 0
	StorageClassUniform         uint32 = 2
	StorageClassStorageBuffer   uint32 = 12
)

// ErrInvalidModule is returned for bytecode that is not a well-formed SPIR-V module.
var ErrInvalidModule = errors.New("invalid SPIR-V module")

// typeInfo is one decoded type declaration.
type typeInfo struct {
	op uint16
	// scalar bit width for int/float
	width uint32
	// component/column/element type
	elem uint32
	// component count for vectors, column count for matrices
	count uint32
	// array length constant id
	lengthID uint32
	// member type ids for structs
	members []uint32
	// storage class and pointee for pointers
	storage uint32
	pointee uint32
}

// variable is one OpVariable at module scope.
type variable struct {
	id      uint32
	typeID  uint32
	storage uint32
}

type entryPoint struct {
	model    uint32
	function uint32
	name     string
}

// function records what one function body touches.
type function struct {
	// global variable ids referenced by any instruction
	uses map[uint32]bool
	// callee function ids
	calls []uint32
}

type memberKey struct {
	id     uint32
	member uint32
}

// module holds the decoded subset of a SPIR-V module.
type module struct {
	names         map[uint32]string
	memberNames   map[memberKey]string
	decorations   map[uint32]map[uint32]uint32
	memberOffsets map[memberKey]uint32
	matrixStrides map[memberKey]uint32
	types         map[uint32]*typeInfo
	constants     map[uint32]uint32
	variables     []variable
	entryPoints   []entryPoint
	functions     map[uint32]*function
}

// parseModule decodes the binding-relevant instructions of a little-endian SPIR-V module.
//
// Parameters:
//   - code: the module bytes
//
// Returns:
//   - *module: the decoded module
//   - error: ErrInvalidModule on a bad header or truncated instruction
func parseModule(code []byte) (*module, error) {
	if len(code)%4 != 0 || len(code) < headerWords*4 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidModule, len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidModule, words[0])
	}

	m := &module{
		names:         make(map[uint32]string),
		memberNames:   make(map[memberKey]string),
		decorations:   make(map[uint32]map[uint32]uint32),
		memberOffsets: make(map[memberKey]uint32),
		matrixStrides: make(map[memberKey]uint32),
		types:         make(map[uint32]*typeInfo),
		constants:     make(map[uint32]uint32),
		functions:     make(map[uint32]*function),
	}

	var (
		globals map[uint32]bool
		current *function
	)
	for pos := headerWords; pos < len(words); {
		count := int(words[pos] >> 16)
		op := uint16(words[pos])
		if count == 0 || pos+count > len(words) {
			return nil, fmt.Errorf("%w: truncated instruction at word %d", ErrInvalidModule, pos)
		}
		operands := words[pos+1 : pos+count]
		pos += count

		switch {
		case op == OpFunction:
			if err := need(op, operands, 2); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
			}
			if globals == nil {
				// global declarations precede every function body
				globals = make(map[uint32]bool, len(m.variables))
				for _, v := range m.variables {
					globals[v.id] = true
				}
			}
			current = &function{uses: make(map[uint32]bool)}
			m.functions[operands[1]] = current
			continue
		case op == OpFunctionEnd:
			current = nil
			continue
		case current != nil:
			current.scan(op, operands, globals)
			continue
		}
		if err := m.decode(op, operands); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
	}
	return m, nil
}

func need(op uint16, operands []uint32, n int) error {
	if len(operands) < n {
		return fmt.Errorf("opcode %d expects %d operands, got %d", op, n, len(operands))
	}
	return nil
}

func (m *module) decode(op uint16, ops []uint32) error {
	switch op {
	case OpName:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		m.names[ops[0]] = decodeString(ops[1:])
	case OpMemberName:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		m.memberNames[memberKey{ops[0], ops[1]}] = decodeString(ops[2:])
	case OpEntryPoint:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		m.entryPoints = append(m.entryPoints, entryPoint{model: ops[0], function: ops[1], name: decodeString(ops[2:])})
	case OpDecorate:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		var value uint32
		if len(ops) > 2 {
			value = ops[2]
		}
		if m.decorations[ops[0]] == nil {
			m.decorations[ops[0]] = make(map[uint32]uint32)
		}
		m.decorations[ops[0]][ops[1]] = value
	case OpMemberDecorate:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		key := memberKey{ops[0], ops[1]}
		switch ops[2] {
		case DecorationOffset:
			if err := need(op, ops, 4); err != nil {
				return err
			}
			m.memberOffsets[key] = ops[3]
		case DecorationMatrixStride:
			if err := need(op, ops, 4); err != nil {
				return err
			}
			m.matrixStrides[key] = ops[3]
		}
	case OpTypeBool, OpTypeSampler:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		m.types[ops[0]] = &typeInfo{op: op, width: 32}
	case OpTypeInt, OpTypeFloat:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		m.types[ops[0]] = &typeInfo{op: op, width: ops[1]}
	case OpTypeVector, OpTypeMatrix:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		m.types[ops[0]] = &typeInfo{op: op, elem: ops[1], count: ops[2]}
	case OpTypeImage, OpTypeSampledImage, OpTypeRuntimeArray:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		m.types[ops[0]] = &typeInfo{op: op, elem: ops[1]}
	case OpTypeArray:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		m.types[ops[0]] = &typeInfo{op: op, elem: ops[1], lengthID: ops[2]}
	case OpTypeStruct:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		m.types[ops[0]] = &typeInfo{op: op, members: append([]uint32(nil), ops[1:]...)}
	case OpTypePointer:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		m.types[ops[0]] = &typeInfo{op: op, storage: ops[1], pointee: ops[2]}
	case OpConstant:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		m.constants[ops[1]] = ops[2]
	case OpVariable:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		m.variables = append(m.variables, variable{typeID: ops[0], id: ops[1], storage: ops[2]})
	}
	return nil
}

func (f *function) scan(op uint16, ops []uint32, globals map[uint32]bool) {
	if op == OpFunctionCall && len(ops) >= 3 {
		f.calls = append(f.calls, ops[2])
	}
	// literals can collide with ids; a false match only widens a stage mask
	for _, id := range ops {
		if globals[id] {
			f.uses[id] = true
		}
	}
}

// stageOf maps an execution model to its shader stage bit.
func stageOf(model uint32) device.ShaderStage {
	switch model {
	case ExecutionModelVertex:
		return device.ShaderStageVertex
	case ExecutionModelFragment:
		return device.ShaderStageFragment
	}
	return device.ShaderStageNone
}

// globalStages returns, per global variable id, the stages whose entry points reach it through
// their call graph. Globals no entry point references are absent.
func (m *module) globalStages() map[uint32]device.ShaderStage {
	out := make(map[uint32]device.ShaderStage)
	for _, ep := range m.entryPoints {
		stage := stageOf(ep.model)
		visited := make(map[uint32]bool)
		pending := []uint32{ep.function}
		for len(pending) > 0 {
			id := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			if visited[id] {
				continue
			}
			visited[id] = true
			f, ok := m.functions[id]
			if !ok {
				continue
			}
			for g := range f.uses {
				out[g] |= stage
			}
			pending = append(pending, f.calls...)
		}
	}
	return out
}

// decodeString decodes a nul-terminated literal string packed little-endian into words.
func decodeString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for i := 0; i < 4; i++ {
			c := byte(w >> (8 * i))
			if c == 0 {
				return string(buf)
			}
			buf = append(buf, c)
		}
	}
	return string(buf)
}

func (m *module) decoration(id, dec uint32) (uint32, bool) {
	v, ok := m.decorations[id][dec]
	return v, ok
}

// sizeOf returns the byte size of a type inside a uniform block. matrixStride is the
// MatrixStride decoration of the enclosing member, zero when absent.
func (m *module) sizeOf(id, matrixStride uint32) (uint32, error) {
	t, ok := m.types[id]
	if !ok {
		return 0, fmt.Errorf("unknown type id %d", id)
	}
	switch t.op {
	case OpTypeBool, OpTypeInt, OpTypeFloat:
		return t.width / 8, nil
	case OpTypeVector:
		c, err := m.sizeOf(t.elem, 0)
		return c * t.count, err
	case OpTypeMatrix:
		col, err := m.sizeOf(t.elem, 0)
		if err != nil {
			return 0, err
		}
		stride := matrixStride
		if stride == 0 {
			stride = (col + 15) &^ 15
		}
		return stride * t.count, nil
	case OpTypeArray:
		length, ok := m.constants[t.lengthID]
		if !ok {
			return 0, fmt.Errorf("array type %d has non-constant length", id)
		}
		stride, ok := m.decoration(id, DecorationArrayStride)
		if !ok {
			elem, err := m.sizeOf(t.elem, matrixStride)
			if err != nil {
				return 0, err
			}
			stride = elem
		}
		return stride * length, nil
	case OpTypeStruct:
		var end uint32
		for i, member := range t.members {
			key := memberKey{id, uint32(i)}
			size, err := m.sizeOf(member, m.matrixStrides[key])
			if err != nil {
				return 0, err
			}
			end = max(end, m.memberOffsets[key]+size)
		}
		return end, nil
	}
	return 0, fmt.Errorf("type id %d (opcode %d) has no uniform layout", id, t.op)
}
