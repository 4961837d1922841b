package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/config"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/profiler"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/uniform_arena"
)

// PerFrameBufferSize is the size of the set 0 uniform buffer of each default render pass.
const PerFrameBufferSize = 256

// ErrReleased is returned by loads issued after Release.
var ErrReleased = errors.New("renderer: released")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	dev    device.Device
	cfg    config.Config
	passes render_pass.Registry

	arena    uniform_arena.Arena
	compiler pipeline.Compiler
	defaults material.Defaults

	shaderCache  map[string]pipeline.Shader
	textureCache map[string]device.Image
	materials    []material.Material

	// profiler is nil unless WithProfiler was given.
	profiler *profiler.Profiler

	// perFrame holds the set 0 providers of the default passes, keyed by pass name.
	perFrame map[string]bind_group_provider.BindGroupProvider

	// Pre-creation config collected from builder options
	compilerOptions []pipeline.CompilerOption
	released        bool
}

// Renderer ties a device, a render pass registry, the frame uniform arena and the render-state compiler together.
//
// The Renderer owns every shader, texture and material it loads and releases them in Release.
// Shader assets are cached by path so the prez and shadow-caster shaders of many materials are compiled once.
type Renderer interface {
	// Device returns the device every resource is created on.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device

	// Config returns the configuration the renderer was built with.
	//
	// Returns:
	//   - config.Config: the configuration
	Config() config.Config

	// RenderPasses returns the registry shader descriptions resolve their passes through.
	//
	// Returns:
	//   - render_pass.Registry: the registry
	RenderPasses() render_pass.Registry

	// Arena returns the frame uniform arena proxies stage their uniform blocks in.
	//
	// Returns:
	//   - uniform_arena.Arena: the arena
	Arena() uniform_arena.Arena

	// Defaults returns the placeholder image and sampler bound to unset material slots.
	//
	// Returns:
	//   - material.Defaults: the placeholders
	Defaults() material.Defaults

	// LoadShader compiles a shader description, returning the cached asset when the path was loaded before.
	// Relative paths that do not exist are resolved against the configured shader root.
	//
	// Parameters:
	//   - path: the description file
	//
	// Returns:
	//   - pipeline.Shader: the compiled asset
	//   - error: a parse or load error
	LoadShader(path string) (pipeline.Shader, error)

	// LoadTexture decodes an image file into a device image, returning the cached image when the path was loaded before.
	// Relative paths that do not exist are resolved against the configured texture root.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - device.Image: the image
	//   - error: error if the file cannot be decoded or uploaded
	LoadTexture(path string) (device.Image, error)

	// LoadMaterial reads a material description, loads its shaders and textures and applies its constants.
	//
	// Parameters:
	//   - path: the description file
	//
	// Returns:
	//   - material.Material: the material
	//   - error: error if the description, a shader or a texture fails to load, or the render state index is invalid
	LoadMaterial(path string) (material.Material, error)

	// NewMaterial creates a material for an already loaded shader bound to the renderer placeholders.
	//
	// Parameters:
	//   - s: the shader
	//   - options: material builder options
	//
	// Returns:
	//   - material.Material: the material
	NewMaterial(s pipeline.Shader, options ...material.MaterialBuilderOption) material.Material

	// WritePerFrame uploads data into the set 0 uniform buffer of a default render pass.
	//
	// Parameters:
	//   - pass: the pass name
	//   - offset: the byte offset into the per-frame buffer
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: error if the pass has no renderer-owned per-frame buffer or the write overflows it
	WritePerFrame(pass string, offset uint64, data []byte) error

	// BeginFrame opens a new frame on the uniform arena. Proxies from earlier frames become stale.
	BeginFrame()

	// EndFrame closes the frame and uploads the staged uniform bytes.
	// With a profiler the frame's arena usage is recorded.
	//
	// Returns:
	//   - error: error if no frame is open or the upload fails
	EndFrame() error

	// Release disposes every material and shader, releases the textures, placeholders,
	// per-frame resources and the arena. The renderer is unusable afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on dev.
// Without WithRenderPasses the renderer registers the Forward, DepthPrepass and ShadowCaster passes,
// each with a renderer-owned per-frame uniform buffer at set 0 binding 0.
//
// Parameters:
//   - dev: the device
//   - options: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: error if the arena, placeholders or default passes cannot be created
func NewRenderer(dev device.Device, options ...RendererBuilderOption) (Renderer, error) {
	if dev == nil {
		panic("renderer: device must not be nil")
	}
	r := &renderer{
		mu:           &sync.Mutex{},
		dev:          dev,
		cfg:          config.Default(),
		shaderCache:  make(map[string]pipeline.Shader),
		textureCache: make(map[string]device.Image),
		perFrame:     make(map[string]bind_group_provider.BindGroupProvider),
	}
	for _, opt := range options {
		opt(r)
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid renderer config: %w", err)
	}

	if r.passes == nil {
		r.passes = render_pass.NewRegistry()
		if err := r.registerDefaultPasses(); err != nil {
			r.Release()
			return nil, err
		}
	}

	arena, err := uniform_arena.NewArena(dev, r.cfg.Renderer.FrameArenaBytes, uniform_arena.WithAlignment(r.cfg.Renderer.MinUniformAlignment))
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create frame arena: %w", err)
	}
	r.arena = arena

	if err := r.createPlaceholders(); err != nil {
		r.Release()
		return nil, err
	}

	opts := []pipeline.CompilerOption{
		pipeline.WithUniformBuffer(arena.Buffer()),
		pipeline.WithWorkers(r.cfg.Renderer.CompileWorkers),
	}
	if r.cfg.Renderer.Reflector == config.ReflectorWGSL {
		opts = append(opts, pipeline.WithStageCompiler(shader.PreprocessCompiler{}), pipeline.WithReflector(shader.WGSLReflector{}))
	}
	r.compiler = pipeline.NewCompiler(dev, r.passes, append(opts, r.compilerOptions...)...)
	return r, nil
}

func (r *renderer) registerDefaultPasses() error {
	for _, name := range []string{render_pass.PassForward, render_pass.PassDepthPrepass, render_pass.PassShadowCaster} {
		p, err := r.perFrameProvider(name)
		if err != nil {
			return err
		}
		opts := []render_pass.RenderPassOption{render_pass.WithPerFrameResources(p.ResourceLayout(), p.ResourceSet())}
		if name != render_pass.PassForward {
			opts = append(opts, render_pass.WithDepthOnly(device.TextureFormatDepth32Float))
		}
		if err := r.passes.Register(render_pass.NewRenderPass(name, opts...)); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) perFrameProvider(pass string) (bind_group_provider.BindGroupProvider, error) {
	label := pass + "/per_frame"
	layout, err := r.dev.CreateResourceLayout(device.ResourceLayoutDescriptor{
		Label: label,
		Entries: []device.LayoutEntry{{
			Binding:    0,
			Visibility: device.ShaderStageVertex | device.ShaderStageFragment,
			Kind:       device.BindingUniformBuffer,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create per-frame layout for %s: %w", pass, err)
	}
	buf, err := r.dev.CreateBuffer(device.BufferDescriptor{Label: label, Size: PerFrameBufferSize, Usage: device.BufferUsageUniform | device.BufferUsageCopyDst})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create per-frame buffer for %s: %w", pass, err)
	}
	p := bind_group_provider.NewBindGroupProvider(label,
		bind_group_provider.WithOwnedResourceLayout(layout),
		bind_group_provider.WithBuffer(0, buf, 0, PerFrameBufferSize),
	)
	p.Own(buf)
	r.perFrame[pass] = p
	if _, err := p.Build(r.dev); err != nil {
		return nil, fmt.Errorf("failed to create per-frame set for %s: %w", pass, err)
	}
	return p, nil
}

func (r *renderer) createPlaceholders() error {
	black := common.SolidTexture("placeholder/black", 0, 0, 0, 255)
	img, err := r.uploadTexture(black)
	if err != nil {
		return fmt.Errorf("failed to create placeholder image: %w", err)
	}
	smp, err := r.dev.CreateSampler(device.SamplerDescriptor{
		Label:     "placeholder/sampler",
		AddressU:  device.AddressRepeat,
		AddressV:  device.AddressRepeat,
		AddressW:  device.AddressRepeat,
		MagFilter: device.FilterLinear,
		MinFilter: device.FilterLinear,
	})
	if err != nil {
		img.Release()
		return fmt.Errorf("failed to create placeholder sampler: %w", err)
	}
	r.defaults = material.Defaults{Image: img, Sampler: smp}
	return nil
}

func (r *renderer) uploadTexture(data common.TextureStagingData) (device.Image, error) {
	return r.dev.CreateImage(device.ImageDescriptor{
		Label:  data.Label,
		Width:  data.Width,
		Height: data.Height,
		Format: device.TextureFormatRGBA8Unorm,
	}, data.Pixels)
}

// resolve returns path unchanged when it is absolute or exists, and joins it to root otherwise.
func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(root, path)
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (r *renderer) Device() device.Device {
	return r.dev
}

func (r *renderer) Config() config.Config {
	return r.cfg
}

func (r *renderer) RenderPasses() render_pass.Registry {
	return r.passes
}

func (r *renderer) Arena() uniform_arena.Arena {
	return r.arena
}

func (r *renderer) Defaults() material.Defaults {
	return r.defaults
}

func (r *renderer) LoadShader(path string) (pipeline.Shader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadShader(path)
}

func (r *renderer) loadShader(path string) (pipeline.Shader, error) {
	if r.released {
		return nil, ErrReleased
	}
	path = resolve(r.cfg.Assets.ShaderRoot, path)
	key := cacheKey(path)
	if s, ok := r.shaderCache[key]; ok {
		return s, nil
	}
	s, err := r.compiler.Load(path)
	if err != nil {
		return nil, err
	}
	r.shaderCache[key] = s
	common.Logger().Info("shader loaded", "shader", s.Name(), "path", path, "variants", len(s.Variants()))
	return s, nil
}

func (r *renderer) LoadTexture(path string) (device.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadTexture("", path)
}

func (r *renderer) loadTexture(name, path string) (device.Image, error) {
	if r.released {
		return nil, ErrReleased
	}
	path = resolve(r.cfg.Assets.TextureRoot, path)
	key := cacheKey(path)
	if img, ok := r.textureCache[key]; ok {
		return img, nil
	}
	tex := &common.ImportedTexture{Name: name, Path: path}
	data, err := tex.Decode()
	if err != nil {
		return nil, err
	}
	data.Label = path
	img, err := r.uploadTexture(data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload texture %s: %w", path, err)
	}
	r.textureCache[key] = img
	common.Logger().Info("texture loaded", "path", path, "width", data.Width, "height", data.Height)
	return img, nil
}

func (r *renderer) LoadMaterial(path string) (material.Material, error) {
	desc, err := material.LoadDescription(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.loadShader(desc.Shader)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", desc.Name, err)
	}
	opts := []material.MaterialBuilderOption{material.WithName(desc.Name), material.WithKeywords(desc.Keywords...)}
	if desc.Prez != "" {
		prez, err := r.loadShader(desc.Prez)
		if err != nil {
			return nil, fmt.Errorf("material %s: prez: %w", desc.Name, err)
		}
		opts = append(opts, material.WithPrezShader(prez))
	}
	if desc.ShadowCaster != "" {
		shadow, err := r.loadShader(desc.ShadowCaster)
		if err != nil {
			return nil, fmt.Errorf("material %s: shadow caster: %w", desc.Name, err)
		}
		opts = append(opts, material.WithShadowShader(shadow))
	}

	m := material.NewMaterial(r.dev, s, r.defaults, opts...)
	if err := m.SetRenderState(desc.RenderState); err != nil {
		m.Dispose()
		return nil, fmt.Errorf("material %s: %w", desc.Name, err)
	}
	for _, t := range desc.Textures {
		img, err := r.loadTexture(t.Name, t.Path)
		if err != nil {
			m.Dispose()
			return nil, fmt.Errorf("material %s: %w", desc.Name, err)
		}
		m.SetImage(t.Name, img)
	}
	desc.Apply(m)
	r.materials = append(r.materials, m)
	common.Logger().Info("material loaded", "material", desc.Name, "shader", s.Name(), "renderState", desc.RenderState)
	return m, nil
}

func (r *renderer) NewMaterial(s pipeline.Shader, options ...material.MaterialBuilderOption) material.Material {
	m := material.NewMaterial(r.dev, s, r.defaults, options...)
	r.mu.Lock()
	r.materials = append(r.materials, m)
	r.mu.Unlock()
	return m
}

func (r *renderer) WritePerFrame(pass string, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	p, ok := r.perFrame[pass]
	if !ok {
		return fmt.Errorf("render pass %q has no renderer-owned per-frame buffer", pass)
	}
	return bind_group_provider.BufferWrite{Provider: p, Binding: 0, Offset: offset, Data: data}.Apply(r.dev)
}

func (r *renderer) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.arena != nil {
		r.arena.BeginFrame()
	}
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.arena == nil {
		return ErrReleased
	}
	used := r.arena.Used()
	if err := r.arena.EndFrame(); err != nil {
		return err
	}
	if r.profiler != nil {
		r.profiler.Tick(used, r.arena.Capacity())
	}
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true

	for _, m := range r.materials {
		m.Dispose()
	}
	r.materials = nil
	for key, s := range r.shaderCache {
		s.Dispose()
		delete(r.shaderCache, key)
	}
	for key, img := range r.textureCache {
		img.Release()
		delete(r.textureCache, key)
	}
	if r.defaults.Image != nil {
		r.defaults.Image.Release()
	}
	if r.defaults.Sampler != nil {
		r.defaults.Sampler.Release()
	}
	r.defaults = material.Defaults{}
	for pass, p := range r.perFrame {
		p.Release()
		delete(r.perFrame, pass)
	}
	if r.arena != nil {
		r.arena.Release()
		r.arena = nil
	}
}
