package spirv

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
)

// Reflector reflects the bytecode of compiled stages.
type Reflector struct{}

var _ shader.Reflector = Reflector{}

func (Reflector) Reflect(s shader.Stage) ([]shader.ResourceBinding, error) {
	code := s.Bytecode()
	if len(code) == 0 {
		return nil, fmt.Errorf("spirv: stage %s has no bytecode", s.Key())
	}
	bindings, err := ReflectBytecode(code, s.ShaderType().Stage())
	if err != nil {
		return nil, fmt.Errorf("spirv: stage %s: %w", s.Key(), err)
	}
	if s.Source() == "" {
		return bindings, nil
	}
	if err := recoverNames(s, bindings); err != nil {
		return nil, fmt.Errorf("spirv: stage %s: %w", s.Key(), err)
	}
	return bindings, nil
}

// recoverNames takes binding and member names from the WGSL source the bytecode was compiled from.
// Compilers such as naga emit no debug names for globals, so the source declaration at the same
// group and binding names the resource. Member names already present in the bytecode are kept.
func recoverNames(s shader.Stage, bindings []shader.ResourceBinding) error {
	declared, err := shader.WGSLReflector{}.Reflect(s)
	if err != nil {
		if !unnamed(bindings) {
			common.Logger().Debug("skipping WGSL name recovery", "stage", s.Key(), "error", err)
			return nil
		}
		return fmt.Errorf("recovering binding names: %w", err)
	}
	type slot struct{ set, binding uint32 }
	bySlot := make(map[slot]shader.ResourceBinding, len(declared))
	for _, d := range declared {
		bySlot[slot{d.Set, d.Binding}] = d
	}

	for i := range bindings {
		b := &bindings[i]
		d, ok := bySlot[slot{b.Set, b.Binding}]
		if !ok {
			continue
		}
		b.Name = d.Name
		for j := range b.Members {
			if b.Members[j].Name != "" {
				continue
			}
			for _, dm := range d.Members {
				if dm.Offset == b.Members[j].Offset {
					b.Members[j].Name = dm.Name
					break
				}
			}
		}
	}
	return nil
}

func unnamed(bindings []shader.ResourceBinding) bool {
	for _, b := range bindings {
		if b.Name == "" {
			return true
		}
		for _, m := range b.Members {
			if m.Name == "" {
				return true
			}
		}
	}
	return false
}

// ReflectBytecode returns the images, samplers and uniform blocks declared by a SPIR-V module.
// Storage buffers are not material resources and are skipped. Bindings are ordered by set, then binding.
//
// A binding referenced by entry points carries the stages of those entry points within stages, and is
// dropped when only entry points of other stages reference it. A binding no entry point references
// is reported with stages unchanged.
//
// Parameters:
//   - code: the SPIR-V module bytes
//   - stages: the stage mask of the stage being reflected
//
// Returns:
//   - []shader.ResourceBinding: the declared bindings
//   - error: ErrInvalidModule for malformed bytecode, or an error if a uniform block layout cannot be resolved
func ReflectBytecode(code []byte, stages device.ShaderStage) ([]shader.ResourceBinding, error) {
	m, err := parseModule(code)
	if err != nil {
		return nil, err
	}

	reached := m.globalStages()
	var out []shader.ResourceBinding
	for _, v := range m.variables {
		set, hasSet := m.decoration(v.id, DecorationDescriptorSet)
		binding, hasBinding := m.decoration(v.id, DecorationBinding)
		if !hasSet || !hasBinding {
			continue
		}
		visible := stages
		if reach := reached[v.id]; reach != device.ShaderStageNone {
			visible = reach & stages
			if visible == device.ShaderStageNone {
				continue
			}
		}
		ptr, ok := m.types[v.typeID]
		if !ok || ptr.op != OpTypePointer {
			return nil, fmt.Errorf("%w: variable %d has non-pointer type", ErrInvalidModule, v.id)
		}
		pointee := m.unwrapArrays(ptr.pointee)
		t, ok := m.types[pointee]
		if !ok {
			return nil, fmt.Errorf("%w: variable %d points at unknown type %d", ErrInvalidModule, v.id, pointee)
		}

		rb := shader.ResourceBinding{
			Name:    m.names[v.id],
			Set:     set,
			Binding: binding,
			Stages:  visible,
		}
		switch {
		case t.op == OpTypeImage || t.op == OpTypeSampledImage:
			rb.Kind = shader.BindingImage
		case t.op == OpTypeSampler:
			rb.Kind = shader.BindingSampler
		case t.op == OpTypeStruct && v.storage == StorageClassUniform && m.isBlock(pointee):
			rb.Kind = shader.BindingUniformBlock
			if err := m.fillBlock(&rb, pointee); err != nil {
				return nil, err
			}
		default:
			common.Logger().Debug("ignoring unsupported SPIR-V binding", "name", rb.Name, "set", set, "binding", binding, "storage", v.storage)
			continue
		}
		out = append(out, rb)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Set != out[j].Set {
			return out[i].Set < out[j].Set
		}
		return out[i].Binding < out[j].Binding
	})
	return out, nil
}

// unwrapArrays strips binding arrays around a resource type.
func (m *module) unwrapArrays(id uint32) uint32 {
	for {
		t, ok := m.types[id]
		if !ok || (t.op != OpTypeArray && t.op != OpTypeRuntimeArray) {
			return id
		}
		id = t.elem
	}
}

// isBlock reports whether a struct is a uniform block rather than a storage buffer.
func (m *module) isBlock(structID uint32) bool {
	_, block := m.decoration(structID, DecorationBlock)
	_, buffer := m.decoration(structID, DecorationBufferBlock)
	return block && !buffer
}

// unwrapBlock descends through block structs whose only member is an unnamed struct at offset zero.
// naga wraps every uniform struct this way; the inner struct carries the real members.
func (m *module) unwrapBlock(structID uint32) uint32 {
	for {
		t := m.types[structID]
		if len(t.members) != 1 {
			return structID
		}
		key := memberKey{structID, 0}
		inner, ok := m.types[t.members[0]]
		if !ok || inner.op != OpTypeStruct || m.memberOffsets[key] != 0 || m.memberNames[key] != "" {
			return structID
		}
		structID = t.members[0]
	}
}

func (m *module) fillBlock(rb *shader.ResourceBinding, structID uint32) error {
	size, err := m.sizeOf(structID, 0)
	if err != nil {
		return fmt.Errorf("uniform block %s: %w", rb.Name, err)
	}
	rb.Size = size
	varName := rb.Name
	if rb.Name == "" {
		rb.Name = m.names[structID]
	}
	structID = m.unwrapBlock(structID)
	t := m.types[structID]

	rb.Members = make([]shader.BlockMember, 0, len(t.members))
	for i, member := range t.members {
		key := memberKey{structID, uint32(i)}
		msize, err := m.sizeOf(member, m.matrixStrides[key])
		if err != nil {
			return fmt.Errorf("uniform block %s member %d: %w", rb.Name, i, err)
		}
		name := m.memberNames[key]
		if name == "" && len(t.members) == 1 {
			// a wrapped non-struct uniform takes the variable name
			name = varName
		}
		rb.Members = append(rb.Members, shader.BlockMember{Name: name, Offset: m.memberOffsets[key], Size: msize})
	}
	return nil
}
