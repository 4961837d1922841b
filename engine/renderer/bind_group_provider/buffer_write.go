package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a byte offset relative to the bound range.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  uint32
	Offset   uint64
	Data     []byte
}

// Apply uploads the write through dev.
//
// Parameters:
//   - dev: the device performing the upload
//
// Returns:
//   - error: error if no buffer is bound at the binding or the upload fails
func (w BufferWrite) Apply(dev device.Device) error {
	p, ok := w.Provider.(*bindGroupProvider)
	if !ok {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			return fmt.Errorf("buffer write: no buffer at binding %d of %s", w.Binding, w.Provider.Label())
		}
		return dev.WriteBuffer(buf, w.Offset, w.Data)
	}
	b, ok := p.buffers[w.Binding]
	if !ok || b.buffer == nil {
		return fmt.Errorf("buffer write: no buffer at binding %d of %s", w.Binding, p.label)
	}
	if b.size != 0 && w.Offset+uint64(len(w.Data)) > b.size {
		return fmt.Errorf("buffer write: %d bytes at %d overflow binding %d of %s (%d bytes)", len(w.Data), w.Offset, w.Binding, p.label, b.size)
	}
	return dev.WriteBuffer(b.buffer, b.offset+w.Offset, w.Data)
}
