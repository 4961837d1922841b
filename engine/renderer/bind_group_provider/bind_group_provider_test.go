package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func materialLayout(t *testing.T, d *device.NullDevice) device.ResourceLayout {
	t.Helper()
	layout, err := d.CreateResourceLayout(device.ResourceLayoutDescriptor{Label: "material", Entries: []device.LayoutEntry{
		{Binding: 0, Kind: device.BindingTexture, Visibility: device.ShaderStageFragment},
		{Binding: 1, Kind: device.BindingSampler, Visibility: device.ShaderStageFragment},
		{Binding: 2, Kind: device.BindingUniformBuffer, Visibility: device.ShaderStageFragment},
	}})
	require.NoError(t, err)
	return layout
}

func TestBuildBindsEveryLayoutEntry(t *testing.T) {
	d := device.NewNullDevice(256)
	layout := materialLayout(t, d)
	img, err := d.CreateImage(device.ImageDescriptor{Width: 1, Height: 1}, []byte{0, 0, 0, 255})
	require.NoError(t, err)
	smp, err := d.CreateSampler(device.SamplerDescriptor{})
	require.NoError(t, err)
	buf, err := d.CreateBuffer(device.BufferDescriptor{Size: 512})
	require.NoError(t, err)

	p := NewBindGroupProvider("mat", WithResourceLayout(layout), WithImage(0, img), WithSampler(1, smp), WithBuffer(2, buf, 256, 0))
	assert.Nil(t, p.ResourceSet())
	assert.Equal(t, uint64(0), p.Serial())

	set, err := p.Build(d)
	require.NoError(t, err)
	assert.Same(t, set, p.ResourceSet())
	assert.Equal(t, uint64(1), p.Serial())

	ns := set.(*device.NullResourceSet)
	e, ok := ns.Entry(2)
	require.True(t, ok)
	assert.Equal(t, uint64(256), e.Offset)
	assert.Equal(t, uint64(256), e.Size, "a zero size binds the rest of the buffer")
	e, _ = ns.Entry(0)
	assert.Same(t, img, e.Image)

	// rebuilding replaces and releases the previous set
	other, err := d.CreateImage(device.ImageDescriptor{Width: 1, Height: 1}, nil)
	require.NoError(t, err)
	p.SetImage(0, other)
	next, err := p.Build(d)
	require.NoError(t, err)
	assert.NotSame(t, set, next)
	assert.True(t, ns.Released())
	assert.Equal(t, uint64(2), p.Serial())
	assert.Same(t, other, p.Image(0))
}

func TestBuildErrors(t *testing.T) {
	d := device.NewNullDevice(256)
	_, err := NewBindGroupProvider("empty").Build(d)
	assert.Error(t, err)

	p := NewBindGroupProvider("partial", WithResourceLayout(materialLayout(t, d)))
	_, err = p.Build(d)
	assert.ErrorContains(t, err, "no image bound at binding 0")
	assert.Nil(t, p.ResourceSet())
	assert.Equal(t, uint64(0), p.Serial())
}

func TestReleaseOwnership(t *testing.T) {
	d := device.NewNullDevice(256)
	borrowed := materialLayout(t, d)
	owned := materialLayout(t, d)
	img, _ := d.CreateImage(device.ImageDescriptor{Width: 1, Height: 1}, nil)
	smp, _ := d.CreateSampler(device.SamplerDescriptor{})
	buf, _ := d.CreateBuffer(device.BufferDescriptor{Size: 16})

	a := NewBindGroupProvider("a", WithResourceLayout(borrowed), WithImage(0, img), WithSampler(1, smp), WithBuffer(2, buf, 0, 16))
	_, err := a.Build(d)
	require.NoError(t, err)
	a.Release()
	assert.False(t, borrowed.(*device.NullResourceLayout).Released())
	assert.False(t, img.(*device.NullImage).Released())
	assert.Nil(t, a.ResourceSet())
	assert.Nil(t, a.Image(0))

	b := NewBindGroupProvider("b", WithOwnedResourceLayout(owned))
	b.Own(img, nil, smp)
	b.Release()
	assert.True(t, owned.(*device.NullResourceLayout).Released())
	assert.True(t, img.(*device.NullImage).Released())
	assert.True(t, smp.(*device.NullSampler).Released())
	assert.False(t, buf.(*device.NullBuffer).Released())
}

func TestBufferWriteApply(t *testing.T) {
	d := device.NewNullDevice(256)
	buf, err := d.CreateBuffer(device.BufferDescriptor{Size: 64})
	require.NoError(t, err)
	p := NewBindGroupProvider("frame", WithBuffer(0, buf, 32, 16))

	require.NoError(t, BufferWrite{Provider: p, Binding: 0, Offset: 4, Data: []byte{1, 2, 3, 4}}.Apply(d))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.(*device.NullBuffer).Data[36:40])

	assert.Error(t, BufferWrite{Provider: p, Binding: 0, Offset: 14, Data: []byte{1, 2, 3, 4}}.Apply(d))
	assert.Error(t, BufferWrite{Provider: p, Binding: 3, Data: []byte{1}}.Apply(d))
}
