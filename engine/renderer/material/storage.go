package material

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// variantStorage holds a material's values laid out for one variant: images and samplers by
// dense index and one zero-initialised byte block per uniform block.
type variantStorage struct {
	rs       pipeline.RenderState
	images   []device.Image
	samplers []device.Sampler
	blocks   [][]byte

	set        bind_group_provider.BindGroupProvider
	built      bool
	builtImage uint64
	builtSmp   uint64
}

func newVariantStorage(name string, rs pipeline.RenderState) *variantStorage {
	s := &variantStorage{
		rs:       rs,
		images:   make([]device.Image, rs.ImageCount()),
		samplers: make([]device.Sampler, rs.SamplerCount()),
		blocks:   make([][]byte, len(rs.Blocks())),
	}
	for i, b := range rs.Blocks() {
		s.blocks[i] = make([]byte, b.AlignedSize)
	}
	if layout := rs.ResourceLayout(pipeline.SetMaterial); layout != nil {
		s.set = bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("%s/%s/material", name, rs.Name()),
			bind_group_provider.WithResourceLayout(layout),
		)
	}
	return s
}

func (s *variantStorage) setImage(u pipeline.ShaderUniform, img device.Image) {
	s.images[u.Index] = img
}

func (s *variantStorage) setSampler(u pipeline.ShaderUniform, smp device.Sampler) {
	s.samplers[u.Index] = smp
}

func (s *variantStorage) setFloat4(u pipeline.ShaderUniform, v mgl32.Vec4) {
	block := s.blocks[u.Block]
	end := min(u.Offset+u.Size, uint32(len(block)))
	common.PutFloat32s(block[u.Offset:end], v[:]...)
}

// materialSet returns the set 2 resource set, rebuilding it when the image or sampler generation
// moved since the last build. Unset slots fall back to the placeholders.
func (s *variantStorage) materialSet(dev device.Device, defaults Defaults, imageGen, samplerGen uint64) (device.ResourceSet, error) {
	if s.set == nil {
		return nil, nil
	}
	if s.built && s.builtImage == imageGen && s.builtSmp == samplerGen {
		return s.set.ResourceSet(), nil
	}
	for _, u := range s.rs.Uniforms() {
		if u.Set != pipeline.SetMaterial {
			continue
		}
		switch u.Type {
		case pipeline.UniformImage:
			s.set.SetImage(u.Binding, common.Coalesce(s.images[u.Index], defaults.Image))
		case pipeline.UniformSampler:
			s.set.SetSampler(u.Binding, common.Coalesce(s.samplers[u.Index], defaults.Sampler))
		}
	}
	set, err := s.set.Build(dev)
	if err != nil {
		return nil, err
	}
	s.built, s.builtImage, s.builtSmp = true, imageGen, samplerGen
	return set, nil
}

func (s *variantStorage) release() {
	if s.set != nil {
		s.set.Release()
		s.set = nil
	}
	s.built = false
}
