package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
)

// Binding-set numbers shared by every shader asset.
const (
	SetPerFrame uint32 = iota
	SetLightmap
	SetMaterial
	SetDynamicUniforms

	setCount = 4
)

var (
	// ErrBindingConflict is returned when two stages of a variant declare incompatible resources
	// under one name or one set/binding slot.
	ErrBindingConflict = errors.New("binding conflict")

	// ErrInvalidBindingSet is returned when a resource is declared in a set that cannot hold it.
	ErrInvalidBindingSet = errors.New("invalid binding set")
)

// UniformType is the kind of a material-settable uniform.
type UniformType int

const (
	UniformImage UniformType = iota
	UniformSampler
	UniformFloat4
	UniformBuffer
)

func (t UniformType) String() string {
	switch t {
	case UniformImage:
		return "Image"
	case UniformSampler:
		return "Sampler"
	case UniformFloat4:
		return "Float4"
	case UniformBuffer:
		return "UniformBuffer"
	}
	return "Unknown"
}

// ShaderUniform is one material-settable entry of a variant's uniform table.
type ShaderUniform struct {
	Name string
	Type UniformType
	// UniformIndex is the position of the entry in the variant's table.
	UniformIndex int
	// Index is the dense per-type index: image, sampler, float4 or block index.
	Index   int
	Set     uint32
	Binding uint32
	Stages  device.ShaderStage
	// Block is the owning block index of a Float4 and the block's own index for a UniformBuffer. -1 otherwise.
	Block int
	// Offset and Size locate a Float4 inside its block. For a UniformBuffer Size is the block size.
	Offset uint32
	Size   uint32
}

// UniformBlock is one dynamic uniform block of a variant.
type UniformBlock struct {
	Name    string
	Set     uint32
	Binding uint32
	Stages  device.ShaderStage
	// Size is the reflected byte size; AlignedSize rounds it up to the device's dynamic offset alignment.
	Size        uint32
	AlignedSize uint32
}

// LightmapSlot is one set 1 binding of a variant.
type LightmapSlot struct {
	Name    string
	Binding uint32
	Stages  device.ShaderStage
	Kind    shader.BindingKind
}

type slotKey struct {
	set, binding uint32
}

// uniformTable merges the reflected bindings of every stage of a variant.
type uniformTable struct {
	uniforms []ShaderUniform
	byName   map[string]int
	bySlot   map[slotKey]int
	blocks   []UniformBlock
	blockBy  map[slotKey]int

	images, samplers, floats int

	perFrame []shader.ResourceBinding
	lightmap []LightmapSlot
}

func newUniformTable() *uniformTable {
	return &uniformTable{
		byName:  make(map[string]int),
		bySlot:  make(map[slotKey]int),
		blockBy: make(map[slotKey]int),
	}
}

// merge adds the bindings of one stage. Stages must be merged vertex first, then fragment.
func (t *uniformTable) merge(bindings []shader.ResourceBinding) error {
	for _, b := range bindings {
		if err := t.add(b); err != nil {
			return err
		}
	}
	return nil
}

func (t *uniformTable) add(b shader.ResourceBinding) error {
	switch {
	case b.Set >= setCount:
		return fmt.Errorf("%w: %s %q uses set %d (sets 0-%d are defined)", ErrInvalidBindingSet, b.Kind, b.Name, b.Set, setCount-1)
	case b.Set == SetPerFrame:
		t.perFrame = append(t.perFrame, b)
		return nil
	case b.Set == SetLightmap:
		return t.addLightmap(b)
	case b.Set == SetMaterial && b.Kind == shader.BindingUniformBlock:
		return fmt.Errorf("%w: uniform block %q in material set %d", ErrInvalidBindingSet, b.Name, b.Set)
	case b.Set == SetDynamicUniforms && b.Kind != shader.BindingUniformBlock:
		return fmt.Errorf("%w: %s %q in dynamic uniform set %d", ErrInvalidBindingSet, b.Kind, b.Name, b.Set)
	}

	key := slotKey{b.Set, b.Binding}
	if b.Kind == shader.BindingUniformBlock {
		return t.addBlock(key, b)
	}
	if i, ok := t.bySlot[key]; ok {
		u := &t.uniforms[i]
		if u.Name != b.Name || u.Type != uniformType(b.Kind) {
			return fmt.Errorf("%w: set %d binding %d declared as %s %q and %s %q", ErrBindingConflict, b.Set, b.Binding, u.Type, u.Name, b.Kind, b.Name)
		}
		u.Stages |= b.Stages
		return nil
	}

	u := ShaderUniform{
		Name:    b.Name,
		Type:    uniformType(b.Kind),
		Set:     b.Set,
		Binding: b.Binding,
		Stages:  b.Stages,
		Block:   -1,
	}
	if u.Type == UniformImage {
		u.Index = t.images
		t.images++
	} else {
		u.Index = t.samplers
		t.samplers++
	}
	if err := t.register(u); err != nil {
		return err
	}
	t.bySlot[key] = len(t.uniforms) - 1
	return nil
}

func (t *uniformTable) addBlock(key slotKey, b shader.ResourceBinding) error {
	if i, ok := t.blockBy[key]; ok {
		blk := &t.blocks[i]
		if blk.Name != b.Name || blk.Size != b.Size {
			return fmt.Errorf("%w: set %d binding %d declared as block %q (%d bytes) and %q (%d bytes)", ErrBindingConflict, b.Set, b.Binding, blk.Name, blk.Size, b.Name, b.Size)
		}
		blk.Stages |= b.Stages
		for j := range t.uniforms {
			if t.uniforms[j].Block == i {
				t.uniforms[j].Stages |= b.Stages
			}
		}
		return nil
	}
	if _, ok := t.bySlot[key]; ok {
		return fmt.Errorf("%w: set %d binding %d declared as block %q and another resource", ErrBindingConflict, b.Set, b.Binding, b.Name)
	}

	index := len(t.blocks)
	t.blocks = append(t.blocks, UniformBlock{Name: b.Name, Set: b.Set, Binding: b.Binding, Stages: b.Stages, Size: b.Size})
	t.blockBy[key] = index

	// a bare scalar uniform is reflected as a one-member block carrying the variable name
	wrapped := len(b.Members) == 1 && b.Members[0].Name == b.Name
	if !wrapped {
		u := ShaderUniform{Name: b.Name, Type: UniformBuffer, Index: index, Set: b.Set, Binding: b.Binding, Stages: b.Stages, Block: index, Size: b.Size}
		if err := t.register(u); err != nil {
			return err
		}
	}
	for _, m := range b.Members {
		if m.Name == "" {
			continue
		}
		u := ShaderUniform{
			Name:    m.Name,
			Type:    UniformFloat4,
			Index:   t.floats,
			Set:     b.Set,
			Binding: b.Binding,
			Stages:  b.Stages,
			Block:   index,
			Offset:  m.Offset,
			Size:    m.Size,
		}
		if err := t.register(u); err != nil {
			return err
		}
		t.floats++
	}
	return nil
}

func (t *uniformTable) addLightmap(b shader.ResourceBinding) error {
	if b.Kind == shader.BindingUniformBlock {
		return fmt.Errorf("%w: uniform block %q in lightmap set %d", ErrInvalidBindingSet, b.Name, b.Set)
	}
	for i := range t.lightmap {
		if t.lightmap[i].Binding == b.Binding {
			if t.lightmap[i].Kind != b.Kind {
				return fmt.Errorf("%w: lightmap binding %d declared as %s and %s", ErrBindingConflict, b.Binding, t.lightmap[i].Kind, b.Kind)
			}
			t.lightmap[i].Stages |= b.Stages
			return nil
		}
	}
	t.lightmap = append(t.lightmap, LightmapSlot{Name: b.Name, Binding: b.Binding, Stages: b.Stages, Kind: b.Kind})
	return nil
}

func (t *uniformTable) register(u ShaderUniform) error {
	if prev, ok := t.byName[u.Name]; ok {
		p := t.uniforms[prev]
		return fmt.Errorf("%w: %q declared as %s (set %d binding %d) and %s (set %d binding %d)", ErrBindingConflict, u.Name, p.Type, p.Set, p.Binding, u.Type, u.Set, u.Binding)
	}
	u.UniformIndex = len(t.uniforms)
	t.byName[u.Name] = u.UniformIndex
	t.uniforms = append(t.uniforms, u)
	return nil
}

// align fills in the aligned block sizes and orders lightmap slots by binding.
func (t *uniformTable) align(alignment uint32) {
	for i := range t.blocks {
		t.blocks[i].AlignedSize = common.AlignUp(max(t.blocks[i].Size, 1), alignment)
	}
	sort.Slice(t.lightmap, func(i, j int) bool { return t.lightmap[i].Binding < t.lightmap[j].Binding })
}

func (t *uniformTable) materialEntries() []device.LayoutEntry {
	var entries []device.LayoutEntry
	for _, u := range t.uniforms {
		switch u.Type {
		case UniformImage:
			entries = append(entries, device.LayoutEntry{Binding: u.Binding, Visibility: u.Stages, Kind: device.BindingTexture})
		case UniformSampler:
			entries = append(entries, device.LayoutEntry{Binding: u.Binding, Visibility: u.Stages, Kind: device.BindingSampler})
		}
	}
	sortEntries(entries)
	return entries
}

func (t *uniformTable) dynamicEntries() []device.LayoutEntry {
	entries := make([]device.LayoutEntry, 0, len(t.blocks))
	for _, b := range t.blocks {
		entries = append(entries, device.LayoutEntry{
			Binding:          b.Binding,
			Visibility:       b.Stages,
			Kind:             device.BindingUniformBuffer,
			HasDynamicOffset: true,
			MinBindingSize:   uint64(b.Size),
		})
	}
	sortEntries(entries)
	return entries
}

func (t *uniformTable) lightmapEntries() []device.LayoutEntry {
	entries := make([]device.LayoutEntry, 0, len(t.lightmap))
	for _, l := range t.lightmap {
		kind := device.BindingTexture
		if l.Kind == shader.BindingSampler {
			kind = device.BindingSampler
		}
		entries = append(entries, device.LayoutEntry{Binding: l.Binding, Visibility: l.Stages, Kind: kind})
	}
	return entries
}

// blockOrder returns block indices sorted by binding, the order dynamic offsets are supplied in.
func (t *uniformTable) blockOrder() []int {
	order := make([]int, len(t.blocks))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return t.blocks[order[i]].Binding < t.blocks[order[j]].Binding })
	return order
}

func sortEntries(entries []device.LayoutEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
}

func uniformType(k shader.BindingKind) UniformType {
	switch k {
	case shader.BindingImage:
		return UniformImage
	case shader.BindingSampler:
		return UniformSampler
	}
	return UniformBuffer
}
