package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/spirv"
)

// compiler is the implementation of the Compiler interface.
type compiler struct {
	dev       device.Device
	passes    shader.RenderPassResolver
	stages    shader.StageCompiler
	reflector shader.Reflector
	factories *VertexFactoryRegistry

	// uniformBuffer is the frame arena buffer bound by every dynamic uniform resource set.
	uniformBuffer device.Buffer

	workers int
	pool    worker.DynamicWorkerPool
}

// Compiler turns parsed shader descriptions into compiled Shader assets.
//
// For every variant it compiles and reflects each stage, merges the reflected bindings into one
// uniform table (vertex stage first), builds the lightmap, material and dynamic-uniform layouts,
// reuses the render pass's per-frame layout, creates the device pipeline and binds the frame
// arena buffer into the dynamic-uniform resource set. Stages shared between variants are compiled
// once. Compilation fans out over a worker pool but every call blocks until the asset is complete.
type Compiler interface {
	// Compile builds a Shader asset from a parsed description.
	//
	// Parameters:
	//   - def: the parsed description
	//
	// Returns:
	//   - Shader: the compiled asset
	//   - error: a load error; nothing created for the asset survives it
	Compile(def *shader.Definition) (Shader, error)

	// Load parses a description file and compiles it.
	//
	// Parameters:
	//   - path: the description file
	//
	// Returns:
	//   - Shader: the compiled asset
	//   - error: a parse or load error
	Load(path string) (Shader, error)
}

var _ Compiler = &compiler{}

// NewCompiler creates a Compiler creating device objects on dev and resolving passes through passes.
// Stages default to shader.NagaCompiler and reflection to spirv.Reflector.
//
// Parameters:
//   - dev: the device
//   - passes: the render pass resolver
//   - options: a variadic list of options
//
// Returns:
//   - Compiler: the compiler
func NewCompiler(dev device.Device, passes shader.RenderPassResolver, options ...CompilerOption) Compiler {
	if dev == nil || passes == nil {
		panic("pipeline: compiler needs a device and a render pass resolver")
	}
	c := &compiler{
		dev:       dev,
		passes:    passes,
		stages:    shader.NagaCompiler{},
		reflector: spirv.Reflector{},
		workers:   4,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.factories == nil {
		c.factories = NewVertexFactoryRegistry()
	}
	c.pool = worker.NewDynamicWorkerPool(max(c.workers, 1), 256, 1*time.Second)
	return c
}

func (c *compiler) Load(path string) (Shader, error) {
	def, err := shader.LoadDefinition(path, c.passes)
	if err != nil {
		return nil, err
	}
	return c.Compile(def)
}

// stageResult is the output of one compile-and-reflect task.
type stageResult struct {
	stage    shader.Stage
	bindings []shader.ResourceBinding
	err      error
}

func (c *compiler) Compile(def *shader.Definition) (Shader, error) {
	if def == nil || len(def.Variants) == 0 {
		return nil, errors.New("shader description has no variants")
	}

	type variantPlan struct {
		desc    shader.VariantDesc
		factory VertexFactory
		vs, fs  string
		hasFrag bool
	}
	plans := make([]variantPlan, len(def.Variants))
	var descs []shader.StageDesc
	index := make(map[string]int)
	addStage := func(desc shader.StageDesc, factory VertexFactory) string {
		desc.Defines = append(append([]shader.Define(nil), factory.Defines()...), desc.Defines...)
		key := shader.StageKey(desc)
		if _, ok := index[key]; !ok {
			index[key] = len(descs)
			descs = append(descs, desc)
		}
		return key
	}
	for i, v := range def.Variants {
		factory, err := c.factories.Find(v.VertexFactory)
		if err != nil {
			return nil, fmt.Errorf("shader %s variant %q: %w", def.Name, v.Name, err)
		}
		if v.Vertex == nil {
			return nil, fmt.Errorf("shader %s variant %q: no vertex stage", def.Name, v.Name)
		}
		plans[i] = variantPlan{desc: v, factory: factory, vs: addStage(*v.Vertex, factory)}
		if v.Fragment != nil {
			plans[i].fs = addStage(*v.Fragment, factory)
			plans[i].hasFrag = true
		}
	}

	results := c.compileStages(descs)
	for i, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("shader %s stage %s: %w", def.Name, shader.StageKey(descs[i]), r.err)
		}
	}

	asset := &shaderAsset{
		name:    def.Name,
		path:    def.Path,
		queue:   def.Queue,
		modules: make(map[string]device.ShaderModule),
	}
	for _, p := range plans {
		vs := results[index[p.vs]]
		var fs *stageResult
		if p.hasFrag {
			fs = &results[index[p.fs]]
		}
		rs, err := c.buildVariant(asset, def, p.desc, p.factory, vs, fs)
		if err != nil {
			asset.Dispose()
			return nil, fmt.Errorf("shader %s variant %q: %w", def.Name, p.desc.Name, err)
		}
		asset.variants = append(asset.variants, rs)
	}
	common.Logger().Debug("compiled shader", "shader", def.Name, "variants", len(asset.variants), "stages", len(descs))
	return asset, nil
}

// compileStages compiles and reflects every stage on the worker pool and waits for all of them.
func (c *compiler) compileStages(descs []shader.StageDesc) []stageResult {
	results := make([]stageResult, len(descs))
	var wg sync.WaitGroup
	for i := range descs {
		wg.Add(1)
		id := i
		c.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				s, err := shader.NewStage(descs[id], c.stages)
				if err != nil {
					results[id].err = err
					return nil, err
				}
				bindings, err := c.reflector.Reflect(s)
				if err != nil {
					results[id].err = fmt.Errorf("reflection failed: %w", err)
					return nil, results[id].err
				}
				results[id] = stageResult{stage: s, bindings: bindings}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return results
}

func (c *compiler) buildVariant(asset *shaderAsset, def *shader.Definition, v shader.VariantDesc, factory VertexFactory, vs stageResult, fs *stageResult) (RenderState, error) {
	rs := &renderState{
		index:         v.Index,
		name:          v.Name,
		renderPass:    v.RenderPass,
		vertexFactory: factory,
		state:         v.State,
		packed:        v.State.Pack(),
		vertexStage:   vs.stage,
	}
	stages := [][]shader.ResourceBinding{vs.bindings}
	if fs != nil {
		rs.fragmentStage = fs.stage
		stages = append(stages, fs.bindings)
	}
	if err := rs.mergeBindings(c.dev.MinUniformBufferOffsetAlignment(), stages...); err != nil {
		return nil, err
	}

	label := def.Name + "/" + v.Name
	if err := c.buildLayouts(rs, label); err != nil {
		rs.Release()
		return nil, err
	}
	if err := c.buildDynamicSet(rs, label); err != nil {
		rs.Release()
		return nil, err
	}

	vsModule, err := c.module(asset, vs.stage)
	if err != nil {
		rs.Release()
		return nil, err
	}
	desc := device.PipelineDescriptor{
		Label:        label,
		Layouts:      rs.pipelineLayouts(),
		VertexModule: vsModule,
		VertexEntry:  vs.stage.EntryPoint(),
		State:        rs.state,
	}
	if fs != nil {
		if desc.FragmentModule, err = c.module(asset, fs.stage); err != nil {
			rs.Release()
			return nil, err
		}
		desc.FragmentEntry = fs.stage.EntryPoint()
	}
	if desc.VertexBuffers, err = factory.VertexBuffers(vs.stage.VertexLayouts()); err != nil {
		rs.Release()
		return nil, err
	}
	if rs.renderPass != nil {
		t := rs.renderPass.Targets()
		desc.ColorFormats, desc.DepthFormat, desc.SampleCount = t.ColorFormats, t.DepthFormat, t.SampleCount
	}
	if rs.pipeline, err = c.dev.CreatePipeline(desc); err != nil {
		rs.Release()
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return rs, nil
}

func (c *compiler) buildLayouts(rs *renderState, label string) error {
	if rs.renderPass != nil {
		rs.layouts[SetPerFrame] = rs.renderPass.PerFrameResourceLayout()
	}
	if len(rs.table.perFrame) > 0 && rs.layouts[SetPerFrame] == nil {
		return fmt.Errorf("stages declare per-frame bindings but render pass %s has no per-frame layout", passName(rs))
	}

	create := func(set uint32, suffix string, entries []device.LayoutEntry) error {
		if len(entries) == 0 {
			return nil
		}
		layout, err := c.dev.CreateResourceLayout(device.ResourceLayoutDescriptor{Label: label + suffix, Entries: entries})
		if err != nil {
			return fmt.Errorf("failed to create %s layout: %w", suffix[1:], err)
		}
		rs.layouts[set] = layout
		return nil
	}
	if err := create(SetLightmap, "/lightmap", rs.table.lightmapEntries()); err != nil {
		return err
	}
	if err := create(SetMaterial, "/material", rs.table.materialEntries()); err != nil {
		return err
	}
	return create(SetDynamicUniforms, "/dynamic", rs.table.dynamicEntries())
}

func (c *compiler) buildDynamicSet(rs *renderState, label string) error {
	if len(rs.table.blocks) == 0 {
		return nil
	}
	if c.uniformBuffer == nil {
		return errors.New("variant declares uniform blocks but no frame uniform buffer is configured")
	}
	opts := []bind_group_provider.BindGroupProviderOption{bind_group_provider.WithResourceLayout(rs.layouts[SetDynamicUniforms])}
	for _, b := range rs.table.blocks {
		if uint64(b.AlignedSize) > c.uniformBuffer.Size() {
			return fmt.Errorf("uniform block %s (%d bytes) exceeds the frame uniform buffer (%d bytes)", b.Name, b.AlignedSize, c.uniformBuffer.Size())
		}
		opts = append(opts, bind_group_provider.WithBuffer(b.Binding, c.uniformBuffer, 0, uint64(b.AlignedSize)))
	}
	p := bind_group_provider.NewBindGroupProvider(label+"/dynamic", opts...)
	if _, err := p.Build(c.dev); err != nil {
		return err
	}
	rs.dynamic = p
	return nil
}

// module returns the device module of a stage, creating it on first use.
func (c *compiler) module(asset *shaderAsset, s shader.Stage) (device.ShaderModule, error) {
	if m, ok := asset.modules[s.Key()]; ok {
		return m, nil
	}
	m, err := c.dev.CreateShaderModule(s.ModuleDescriptor())
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %s: %w", s.Key(), err)
	}
	asset.modules[s.Key()] = m
	return m, nil
}

// pipelineLayouts returns the layouts indexed by set, trimmed after the last set in use.
func (r *renderState) pipelineLayouts() []device.ResourceLayout {
	n := 0
	for set := range r.layouts {
		if r.layouts[set] != nil {
			n = set + 1
		}
	}
	return append([]device.ResourceLayout(nil), r.layouts[:n]...)
}

func passName(rs *renderState) string {
	if rs.renderPass == nil {
		return "<none>"
	}
	return rs.renderPass.Name()
}
