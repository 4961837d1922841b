package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
)

// Built-in vertex factory names.
const (
	VertexFactoryStaticMesh  = "StaticMesh"
	VertexFactorySkinnedMesh = "SkinnedMesh"
)

// ErrUnknownVertexFactory is returned when a variant names a vertex factory that is not registered.
var ErrUnknownVertexFactory = errors.New("unknown vertex factory")

// VertexFactory describes how a geometry type feeds a variant's vertex stage.
type VertexFactory interface {
	// Name returns the name VertexFactory statements refer to.
	//
	// Returns:
	//   - string: the factory name
	Name() string

	// Defines returns the macros added to every stage compiled for this factory.
	//
	// Returns:
	//   - []shader.Define: the macros
	Defines() []shader.Define

	// PositionStreams returns the number of position streams geometry of this type binds.
	//
	// Returns:
	//   - int: the stream count
	PositionStreams() int

	// VertexBuffers returns the pipeline vertex input for the layouts reflected from the vertex stage.
	//
	// Parameters:
	//   - reflected: the vertex buffer layouts declared by the vertex stage
	//
	// Returns:
	//   - []device.VertexBufferLayout: the layouts to build the pipeline with
	//   - error: error if the stage input does not fit the factory
	VertexBuffers(reflected []device.VertexBufferLayout) ([]device.VertexBufferLayout, error)
}

type vertexFactory struct {
	name    string
	defines []shader.Define
	streams int
	// minAttributes is the fewest vertex attributes the stage must declare.
	minAttributes int
}

var _ VertexFactory = &vertexFactory{}

// NewVertexFactory creates a vertex factory that passes reflected layouts through once the stage
// declares at least minAttributes attributes.
//
// Parameters:
//   - name: the factory name
//   - streams: the number of position streams the geometry binds
//   - minAttributes: the fewest vertex attributes the vertex stage must declare
//   - defines: macros added to every stage compiled for this factory
//
// Returns:
//   - VertexFactory: the factory
func NewVertexFactory(name string, streams, minAttributes int, defines ...shader.Define) VertexFactory {
	return &vertexFactory{name: name, defines: defines, streams: streams, minAttributes: minAttributes}
}

func (f *vertexFactory) Name() string {
	return f.name
}

func (f *vertexFactory) Defines() []shader.Define {
	return f.defines
}

func (f *vertexFactory) PositionStreams() int {
	return f.streams
}

func (f *vertexFactory) VertexBuffers(reflected []device.VertexBufferLayout) ([]device.VertexBufferLayout, error) {
	n := 0
	for _, l := range reflected {
		n += len(l.Attributes)
	}
	if n < f.minAttributes {
		return nil, fmt.Errorf("vertex factory %s needs %d vertex attributes, stage declares %d", f.name, f.minAttributes, n)
	}
	return reflected, nil
}

// VertexFactoryRegistry maps names to vertex factories.
type VertexFactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]VertexFactory
}

// NewVertexFactoryRegistry creates a registry holding the built-in StaticMesh and SkinnedMesh factories.
//
// Returns:
//   - *VertexFactoryRegistry: the registry
func NewVertexFactoryRegistry() *VertexFactoryRegistry {
	r := &VertexFactoryRegistry{factories: make(map[string]VertexFactory)}
	r.Register(NewVertexFactory(VertexFactoryStaticMesh, 1, 0))
	r.Register(NewVertexFactory(VertexFactorySkinnedMesh, 2, 1, shader.Define{Name: "SKINNED", Value: "1"}))
	return r
}

// Register adds or replaces a factory.
func (r *VertexFactoryRegistry) Register(f VertexFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Name()] = f
}

// Find looks a factory up by name.
//
// Parameters:
//   - name: the factory name
//
// Returns:
//   - VertexFactory: the factory
//   - error: ErrUnknownVertexFactory if no factory has that name
func (r *VertexFactoryRegistry) Find(name string) (VertexFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVertexFactory, name)
	}
	return f, nil
}

// Names returns the registered names in sorted order.
func (r *VertexFactoryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
