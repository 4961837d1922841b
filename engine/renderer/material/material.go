// Package material implements material instances: per-variant parameter storage over a compiled
// shader asset and the cached render proxies that bind that storage for the forward, depth
// pre-pass and shadow passes.
package material

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/uniform_arena"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ErrInvalidRenderState is returned when selecting a variant index the shader does not have.
var ErrInvalidRenderState = errors.New("invalid render state index")

// Auxiliary shader variant layout: static and skinned for opaque, then static and skinned for alpha-test.
const (
	auxStatic = iota
	auxSkinned
	auxStaticAlphaTest
	auxSkinnedAlphaTest
)

// Defaults are the resources bound in place of unset material slots.
type Defaults struct {
	// Image is bound for unset textures, usually a 1x1 black image.
	Image device.Image
	// Sampler is bound for unset samplers and for lightmap samplers.
	Sampler device.Sampler
}

// Generation is a snapshot of a material's change counters.
type Generation struct {
	Images   uint64
	Samplers uint64
	Blocks   uint64
	// Variant advances on every SetRenderState.
	Variant uint64
}

// material is the implementation of the Material interface.
type material struct {
	id       uuid.UUID
	name     string
	dev      device.Device
	shader   pipeline.Shader
	prez     pipeline.Shader
	shadow   pipeline.Shader
	defaults Defaults
	keywords []string

	active int
	gen    Generation
	serial uint64

	images   map[string]device.Image
	samplers map[string]device.Sampler
	floats   map[string]mgl32.Vec4

	storage map[pipeline.RenderState]*variantStorage

	lighting      proxyCache
	lightmapSet   bind_group_provider.BindGroupProvider
	lightmapInput proxyCache
	aux           map[auxKey]*proxyCache
}

type auxKey struct {
	shadow  bool
	skinned bool
}

// Material is an instance of a shader asset: a chosen variant plus the images, samplers and
// float4 constants bound to it, exposed as render proxies.
//
// Values are looked up by name in the active variant. Writes to names the active variant does not
// declare, or of the wrong kind, are dropped with a warning. Accepted values are remembered and
// applied to every variant the material later binds, including those of its auxiliary shaders.
//
// A Material is not safe for concurrent use.
type Material interface {
	// ID returns the unique identifier of the material instance.
	//
	// Returns:
	//   - uuid.UUID: the identifier
	ID() uuid.UUID

	// Name returns the material name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Shader returns the shader asset the material instantiates.
	//
	// Returns:
	//   - pipeline.Shader: the shader
	Shader() pipeline.Shader

	// Queue returns the render queue of the material's shader.
	//
	// Returns:
	//   - shader.Queue: the queue
	Queue() shader.Queue

	// Keywords returns the keywords declared by the material description.
	//
	// Returns:
	//   - []string: the keywords
	Keywords() []string

	// RenderStateIndex returns the index of the active variant.
	//
	// Returns:
	//   - int: the variant index
	RenderStateIndex() int

	// RenderState returns the active variant.
	//
	// Returns:
	//   - pipeline.RenderState: the variant
	RenderState() pipeline.RenderState

	// SetRenderState switches the active variant. Every cached proxy is invalidated.
	//
	// Parameters:
	//   - index: the variant index
	//
	// Returns:
	//   - error: ErrInvalidRenderState if the shader has no such variant
	SetRenderState(index int) error

	// SetFloat4 sets a float4 constant of a uniform block.
	//
	// Parameters:
	//   - name: the constant name
	//   - v: the value
	SetFloat4(name string, v mgl32.Vec4)

	// SetImage sets a texture. A nil image restores the placeholder.
	//
	// Parameters:
	//   - name: the texture name
	//   - img: the image
	SetImage(name string, img device.Image)

	// SetSampler sets a sampler. A nil sampler restores the default sampler.
	//
	// Parameters:
	//   - name: the sampler name
	//   - smp: the sampler
	SetSampler(name string, smp device.Sampler)

	// Float4 returns the value last accepted for a float4 constant.
	//
	// Returns:
	//   - mgl32.Vec4: the value
	//   - bool: false if the constant was never set
	Float4(name string) (mgl32.Vec4, bool)

	// Image returns the image last accepted for a texture.
	//
	// Returns:
	//   - device.Image: the image, or nil if unset
	Image(name string) device.Image

	// Generation returns the current change counters.
	//
	// Returns:
	//   - Generation: the counters
	Generation() Generation

	// MakeLightingProxy returns the forward pass proxy of the active variant. The lightmap set is bound
	// only when the variant declares lightmap slots and both lightmap images are supplied.
	// The proxy is cached until a value, the variant, the lightmap images or the arena frame change.
	//
	// Parameters:
	//   - arena: the frame arena the uniform blocks are staged in
	//   - dir: the directional lightmap, may be nil
	//   - color: the color lightmap, may be nil
	//
	// Returns:
	//   - RenderProxy: the proxy
	//   - error: error if the arena is exhausted or closed, or a resource set cannot be built
	MakeLightingProxy(arena uniform_arena.Arena, dir, color device.Image) (RenderProxy, error)

	// MakeStaticModelPrezProxy returns the depth pre-pass proxy for a static mesh.
	// Materials outside the opaque and alpha-test queues, or without a pre-pass shader, return an empty proxy.
	//
	// Parameters:
	//   - arena: the frame arena
	//   - streams: the number of position streams of the mesh
	//
	// Returns:
	//   - RenderProxy: the proxy, possibly empty
	//   - error: error if the proxy cannot be built
	MakeStaticModelPrezProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error)

	// MakeDynamicModelPrezProxy is MakeStaticModelPrezProxy for skinned meshes.
	MakeDynamicModelPrezProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error)

	// MakeStaticModelShadowCastingProxy returns the shadow pass proxy for a static mesh.
	// Materials outside the opaque and alpha-test queues, or without a shadow shader, return an empty proxy.
	//
	// Parameters:
	//   - arena: the frame arena
	//   - streams: the number of position streams of the mesh
	//
	// Returns:
	//   - RenderProxy: the proxy, possibly empty
	//   - error: error if the proxy cannot be built
	MakeStaticModelShadowCastingProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error)

	// MakeDynamicModelShadowCastingProxy is MakeStaticModelShadowCastingProxy for skinned meshes.
	MakeDynamicModelShadowCastingProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error)

	// Dispose releases the material's resource sets. The shaders are not released.
	Dispose()
}

var _ Material = &material{}

// NewMaterial creates a material instance of s using variant 0.
// It panics if dev or s is nil, or if s has no variants.
//
// Parameters:
//   - dev: the device resource sets are created on
//   - s: the shader asset
//   - defaults: the placeholder image and default sampler
//   - options: a variadic list of options
//
// Returns:
//   - Material: the material
func NewMaterial(dev device.Device, s pipeline.Shader, defaults Defaults, options ...MaterialBuilderOption) Material {
	if dev == nil || s == nil {
		panic("material: device and shader are required")
	}
	if len(s.Variants()) == 0 {
		panic(fmt.Sprintf("material: shader %q has no variants", s.Name()))
	}
	m := &material{
		id:       uuid.New(),
		name:     s.Name(),
		dev:      dev,
		shader:   s,
		defaults: defaults,
		images:   make(map[string]device.Image),
		samplers: make(map[string]device.Sampler),
		floats:   make(map[string]mgl32.Vec4),
		storage:  make(map[pipeline.RenderState]*variantStorage),
		aux:      make(map[auxKey]*proxyCache),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uuid.UUID {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Shader() pipeline.Shader {
	return m.shader
}

func (m *material) Queue() shader.Queue {
	return m.shader.Queue()
}

func (m *material) Keywords() []string {
	return m.keywords
}

func (m *material) RenderStateIndex() int {
	return m.active
}

func (m *material) RenderState() pipeline.RenderState {
	rs, _ := m.shader.Variant(m.active)
	return rs
}

func (m *material) SetRenderState(index int) error {
	if _, ok := m.shader.Variant(index); !ok {
		return fmt.Errorf("%w: %d, shader %q has %d", ErrInvalidRenderState, index, m.shader.Name(), len(m.shader.Variants()))
	}
	m.active = index
	m.gen.Variant++
	return nil
}

// lookup resolves name in the active variant and checks its kind.
func (m *material) lookup(name string, want pipeline.UniformType) bool {
	u, ok := m.RenderState().FindUniform(name)
	if !ok {
		common.Logger().Warn("material value not declared by render state", "material", m.name, "render_state", m.RenderState().Name(), "name", name)
		return false
	}
	if u.Type != want {
		common.Logger().Warn("material value has the wrong type", "material", m.name, "name", name, "declared", u.Type, "set", want)
		return false
	}
	return true
}

// each calls fn for every materialised storage declaring name with the given kind.
func (m *material) each(name string, want pipeline.UniformType, fn func(*variantStorage, pipeline.ShaderUniform)) {
	for _, s := range m.storage {
		if u, ok := s.rs.FindUniform(name); ok && u.Type == want {
			fn(s, u)
		}
	}
}

func (m *material) SetFloat4(name string, v mgl32.Vec4) {
	if !m.lookup(name, pipeline.UniformFloat4) {
		return
	}
	m.floats[name] = v
	m.each(name, pipeline.UniformFloat4, func(s *variantStorage, u pipeline.ShaderUniform) { s.setFloat4(u, v) })
	m.gen.Blocks++
}

func (m *material) SetImage(name string, img device.Image) {
	if !m.lookup(name, pipeline.UniformImage) {
		return
	}
	if img == nil {
		delete(m.images, name)
	} else {
		m.images[name] = img
	}
	m.each(name, pipeline.UniformImage, func(s *variantStorage, u pipeline.ShaderUniform) { s.setImage(u, img) })
	m.gen.Images++
}

func (m *material) SetSampler(name string, smp device.Sampler) {
	if !m.lookup(name, pipeline.UniformSampler) {
		return
	}
	if smp == nil {
		delete(m.samplers, name)
	} else {
		m.samplers[name] = smp
	}
	m.each(name, pipeline.UniformSampler, func(s *variantStorage, u pipeline.ShaderUniform) { s.setSampler(u, smp) })
	m.gen.Samplers++
}

func (m *material) Float4(name string) (mgl32.Vec4, bool) {
	v, ok := m.floats[name]
	return v, ok
}

func (m *material) Image(name string) device.Image {
	return m.images[name]
}

func (m *material) Generation() Generation {
	return m.gen
}

// storageFor returns the storage of rs, creating it from the remembered values on first use.
func (m *material) storageFor(rs pipeline.RenderState) *variantStorage {
	if s, ok := m.storage[rs]; ok {
		return s
	}
	s := newVariantStorage(m.name, rs)
	for _, u := range rs.Uniforms() {
		switch u.Type {
		case pipeline.UniformImage:
			s.setImage(u, m.images[u.Name])
		case pipeline.UniformSampler:
			s.setSampler(u, m.samplers[u.Name])
		case pipeline.UniformFloat4:
			if v, ok := m.floats[u.Name]; ok {
				s.setFloat4(u, v)
			}
		}
	}
	m.storage[rs] = s
	return s
}

func (m *material) cacheKey(rs pipeline.RenderState, arena uniform_arena.Arena, streams int, dir, color device.Image) proxyCache {
	return proxyCache{
		variant:  rs,
		epoch:    m.gen.Variant,
		images:   m.gen.Images,
		samplers: m.gen.Samplers,
		blocks:   m.gen.Blocks,
		frame:    arena.FrameIndex(),
		streams:  streams,
		dir:      dir,
		color:    color,
	}
}

// buildProxy stages the uniform blocks of rs and assembles a proxy over the given lightmap set.
func (m *material) buildProxy(arena uniform_arena.Arena, rs pipeline.RenderState, lightmap device.ResourceSet, streams int) (RenderProxy, error) {
	s := m.storageFor(rs)
	matSet, err := s.materialSet(m.dev, m.defaults, m.gen.Images, m.gen.Samplers)
	if err != nil {
		return RenderProxy{}, fmt.Errorf("material %s: %w", m.name, err)
	}

	blocks := rs.Blocks()
	spans := make([]UniformSpan, len(blocks))
	for i, b := range blocks {
		data, offset, err := arena.AllocConstants(b.AlignedSize)
		if err != nil {
			return RenderProxy{}, fmt.Errorf("material %s: staging %s: %w", m.name, b.Name, err)
		}
		copy(data, s.blocks[i])
		spans[i] = UniformSpan{Block: i, Offset: offset, Size: b.AlignedSize, Data: data}
	}
	offsets := make([]uint32, 0, len(blocks))
	for _, i := range rs.BlockOrder() {
		offsets = append(offsets, spans[i].Offset)
	}

	m.serial++
	p := RenderProxy{
		PositionStreams: streams,
		RenderState:     rs,
		Pipeline:        rs.Pipeline(),
		Dynamic:         rs.DynamicResourceSet(),
		Uniforms:        spans,
		DynamicOffsets:  offsets,
		Frame:           arena.FrameIndex(),
		Serial:          m.serial,
	}
	if pass := rs.RenderPass(); pass != nil {
		p.Sets[pipeline.SetPerFrame] = pass.PerFrameResourceSet()
	}
	p.Sets[pipeline.SetLightmap] = lightmap
	p.Sets[pipeline.SetMaterial] = matSet
	if st := rs.State().Stencil; st.Enabled {
		p.UseStencil = true
		p.StencilRef = uint32(st.Ref)
	}
	return p, nil
}

func (m *material) MakeLightingProxy(arena uniform_arena.Arena, dir, color device.Image) (RenderProxy, error) {
	rs := m.RenderState()
	if len(rs.Lightmap()) == 0 || dir == nil || color == nil {
		dir, color = nil, nil
	}
	key := m.cacheKey(rs, arena, 1, dir, color)
	if m.lighting.matches(key) {
		return m.lighting.proxy, nil
	}

	lightmap, err := m.lightmapResourceSet(rs, dir, color)
	if err != nil {
		return RenderProxy{}, err
	}
	p, err := m.buildProxy(arena, rs, lightmap, 1)
	if err != nil {
		return RenderProxy{}, err
	}
	m.lighting.store(key, p)
	return p, nil
}

// lightmapResourceSet builds the set 1 resources of rs: textures in binding order take the
// directional then the color lightmap, samplers take the default sampler.
func (m *material) lightmapResourceSet(rs pipeline.RenderState, dir, color device.Image) (device.ResourceSet, error) {
	if dir == nil || color == nil {
		return nil, nil
	}
	if m.lightmapSet != nil && m.lightmapInput.variant == rs && m.lightmapInput.dir == dir && m.lightmapInput.color == color {
		return m.lightmapSet.ResourceSet(), nil
	}
	if m.lightmapSet != nil {
		m.lightmapSet.Release()
		m.lightmapSet = nil
	}

	provider := bind_group_provider.NewBindGroupProvider(
		fmt.Sprintf("%s/%s/lightmap", m.name, rs.Name()),
		bind_group_provider.WithResourceLayout(rs.ResourceLayout(pipeline.SetLightmap)),
	)
	textures := []device.Image{dir, color}
	for _, slot := range rs.Lightmap() {
		switch slot.Kind {
		case shader.BindingImage:
			img := m.defaults.Image
			if len(textures) > 0 {
				img, textures = textures[0], textures[1:]
			}
			provider.SetImage(slot.Binding, img)
		case shader.BindingSampler:
			provider.SetSampler(slot.Binding, m.defaults.Sampler)
		}
	}
	set, err := provider.Build(m.dev)
	if err != nil {
		provider.Release()
		return nil, fmt.Errorf("material %s: lightmap: %w", m.name, err)
	}
	m.lightmapSet = provider
	m.lightmapInput = proxyCache{variant: rs, dir: dir, color: color}
	return set, nil
}

func (m *material) MakeStaticModelPrezProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error) {
	return m.auxProxy(arena, false, false, streams)
}

func (m *material) MakeDynamicModelPrezProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error) {
	return m.auxProxy(arena, false, true, streams)
}

func (m *material) MakeStaticModelShadowCastingProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error) {
	return m.auxProxy(arena, true, false, streams)
}

func (m *material) MakeDynamicModelShadowCastingProxy(arena uniform_arena.Arena, streams int) (RenderProxy, error) {
	return m.auxProxy(arena, true, true, streams)
}

// auxVariant picks the auxiliary shader variant for the material's queue and the mesh kind.
func (m *material) auxVariant(aux pipeline.Shader, skinned bool) (pipeline.RenderState, bool) {
	if aux == nil || !m.Queue().CastsAuxiliaryPasses() {
		return nil, false
	}
	index := auxStatic
	if skinned {
		index = auxSkinned
	}
	if m.Queue() == shader.QueueAlphaTest {
		index += auxStaticAlphaTest
	}
	rs, ok := aux.Variant(index)
	if !ok {
		common.Logger().Debug("auxiliary shader lacks variant", "material", m.name, "shader", aux.Name(), "index", index)
	}
	return rs, ok
}

func (m *material) auxProxy(arena uniform_arena.Arena, shadow, skinned bool, streams int) (RenderProxy, error) {
	aux := m.prez
	if shadow {
		aux = m.shadow
	}
	rs, ok := m.auxVariant(aux, skinned)
	if !ok {
		return RenderProxy{}, nil
	}

	k := auxKey{shadow: shadow, skinned: skinned}
	cache, ok := m.aux[k]
	if !ok {
		cache = &proxyCache{}
		m.aux[k] = cache
	}
	key := m.cacheKey(rs, arena, streams, nil, nil)
	if cache.matches(key) {
		return cache.proxy, nil
	}
	p, err := m.buildProxy(arena, rs, nil, streams)
	if err != nil {
		return RenderProxy{}, err
	}
	cache.store(key, p)
	return p, nil
}

func (m *material) Dispose() {
	for rs, s := range m.storage {
		s.release()
		delete(m.storage, rs)
	}
	if m.lightmapSet != nil {
		m.lightmapSet.Release()
		m.lightmapSet = nil
	}
	m.lighting = proxyCache{}
	m.lightmapInput = proxyCache{}
	clear(m.aux)
}
