package render_pass

import (
	"fmt"
	"sort"
	"sync"
)

// registry is the implementation of the Registry interface.
type registry struct {
	mu     sync.RWMutex
	passes map[string]RenderPass
}

// Registry maps pass names to render passes.
type Registry interface {
	// Register adds a pass. Registering a second pass under an existing name is an error.
	//
	// Parameters:
	//   - p: the pass to add
	//
	// Returns:
	//   - error: error if the name is already taken
	Register(p RenderPass) error

	// FindRenderPass looks a pass up by name.
	//
	// Parameters:
	//   - name: the pass name
	//
	// Returns:
	//   - RenderPass: the pass, or nil if not registered
	//   - bool: true if the pass was found
	FindRenderPass(name string) (RenderPass, bool)

	// RenderPasses returns every registered pass sorted by name.
	//
	// Returns:
	//   - []RenderPass: the registered passes
	RenderPasses() []RenderPass
}

var _ Registry = &registry{}

// NewRegistry creates an empty registry.
//
// Returns:
//   - Registry: the registry
func NewRegistry() Registry {
	return &registry{passes: make(map[string]RenderPass)}
}

func (r *registry) Register(p RenderPass) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.passes[p.Name()]; ok {
		return fmt.Errorf("render pass %q already registered", p.Name())
	}
	r.passes[p.Name()] = p
	return nil
}

func (r *registry) FindRenderPass(name string) (RenderPass, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.passes[name]
	return p, ok
}

func (r *registry) RenderPasses() []RenderPass {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RenderPass, 0, len(r.passes))
	for _, p := range r.passes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
