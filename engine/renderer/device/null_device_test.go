package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullDeviceBufferWrites(t *testing.T) {
	d := NewNullDevice(0)
	assert.Equal(t, uint32(256), d.MinUniformBufferOffsetAlignment())

	buf, err := d.CreateBuffer(BufferDescriptor{Label: "arena", Size: 16, Usage: BufferUsageUniform | BufferUsageCopyDst})
	require.NoError(t, err)
	require.NoError(t, d.WriteBuffer(buf, 4, []byte{1, 2, 3}))
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 0}, buf.(*NullBuffer).Data[:8])

	assert.Error(t, d.WriteBuffer(buf, 14, []byte{1, 2, 3}), "write past the end")
	assert.Len(t, d.Writes(), 1)

	_, err = d.CreateBuffer(BufferDescriptor{Label: "empty"})
	assert.Error(t, err)
}

func TestNullDeviceResourceSetValidation(t *testing.T) {
	d := NewNullDevice(256)
	layout, err := d.CreateResourceLayout(ResourceLayoutDescriptor{
		Label: "material",
		Entries: []LayoutEntry{
			{Binding: 0, Kind: BindingTexture, Visibility: ShaderStageFragment},
			{Binding: 1, Kind: BindingSampler, Visibility: ShaderStageFragment},
		},
	})
	require.NoError(t, err)

	img, err := d.CreateImage(ImageDescriptor{Label: "black", Width: 1, Height: 1}, []byte{0, 0, 0, 255})
	require.NoError(t, err)
	smp, err := d.CreateSampler(SamplerDescriptor{Label: "linear"})
	require.NoError(t, err)

	set, err := d.CreateResourceSet(ResourceSetDescriptor{
		Label:   "material",
		Layout:  layout,
		Entries: []ResourceSetEntry{{Binding: 0, Image: img}, {Binding: 1, Sampler: smp}},
	})
	require.NoError(t, err)
	entry, ok := set.(*NullResourceSet).Entry(0)
	require.True(t, ok)
	assert.Same(t, img, entry.Image)

	_, err = d.CreateResourceSet(ResourceSetDescriptor{
		Label:   "swapped",
		Layout:  layout,
		Entries: []ResourceSetEntry{{Binding: 0, Sampler: smp}, {Binding: 1, Image: img}},
	})
	assert.Error(t, err)

	_, err = d.CreateResourceSet(ResourceSetDescriptor{
		Label:   "short",
		Layout:  layout,
		Entries: []ResourceSetEntry{{Binding: 0, Image: img}},
	})
	assert.Error(t, err)
}

func TestNullDeviceLayoutValidation(t *testing.T) {
	d := NewNullDevice(256)
	_, err := d.CreateResourceLayout(ResourceLayoutDescriptor{Entries: []LayoutEntry{
		{Binding: 0, Kind: BindingUniformBuffer},
		{Binding: 0, Kind: BindingUniformBuffer},
	}})
	assert.Error(t, err, "duplicate binding")

	_, err = d.CreateResourceLayout(ResourceLayoutDescriptor{Entries: []LayoutEntry{
		{Binding: 0, Kind: BindingTexture, HasDynamicOffset: true},
	}})
	assert.Error(t, err, "dynamic offset on texture")
}

func TestNullDeviceReleaseTracksLiveObjects(t *testing.T) {
	d := NewNullDevice(256)
	img, err := d.CreateImage(ImageDescriptor{Width: 2, Height: 2}, nil)
	require.NoError(t, err)
	_, err = d.CreateImage(ImageDescriptor{Width: 2, Height: 2}, []byte{1})
	assert.Error(t, err, "pixel count mismatch")

	assert.Equal(t, 1, d.Live())
	img.Release()
	img.Release()
	assert.Equal(t, 0, d.Live())
	assert.True(t, img.(*NullImage).Released())
	assert.Equal(t, 1, d.Stats().Images)
}

func TestNullEncoderRecords(t *testing.T) {
	var enc NullEncoder
	enc.SetPipeline(nil)
	enc.SetResourceSet(3, nil, []uint32{256, 512})
	enc.SetStencilReference(7)
	require.Len(t, enc.Commands, 3)
	assert.Equal(t, []uint32{256, 512}, enc.Commands[1].DynamicOffsets)
	assert.Equal(t, uint32(7), enc.Commands[2].StencilRef)
}
