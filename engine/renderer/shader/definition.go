package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
)

// Queue is the coarse render queue of a shader asset. It decides which auxiliary passes
// (depth pre-pass, shadow cast) a material using the shader takes part in.
type Queue int

const (
	QueueBackground Queue = iota
	QueueOpaque
	QueueAlphaTest
	QueueTransparent
	QueueOverlay
)

var queueNames = []string{"Background", "Opaque", "AlphaTest", "Transparent", "Overlay"}

func (q Queue) String() string {
	if int(q) >= 0 && int(q) < len(queueNames) {
		return queueNames[q]
	}
	return fmt.Sprintf("Queue(%d)", int(q))
}

// ParseQueue parses a queue spelling.
func ParseQueue(s string) (Queue, error) {
	for i, n := range queueNames {
		if n == s {
			return Queue(i), nil
		}
	}
	return 0, fmt.Errorf("invalid queue %q (expected one of %s)", s, strings.Join(queueNames, ", "))
}

// CastsAuxiliaryPasses reports whether materials in this queue take part in the depth pre-pass and shadow pass.
func (q Queue) CastsAuxiliaryPasses() bool {
	return q == QueueOpaque || q == QueueAlphaTest
}

// Define is one pre-processor macro handed to a stage compiler.
type Define struct {
	Name  string
	Value string
}

func (d Define) String() string {
	if d.Value == "" {
		return d.Name
	}
	return d.Name + "=" + d.Value
}

// ParseDefines splits a space separated macro list such as "SKINNED ALPHA_CUTOFF=0.5".
//
// Parameters:
//   - s: the macro list
//
// Returns:
//   - []Define: the macros in list order
func ParseDefines(s string) []Define {
	fields := strings.Fields(s)
	out := make([]Define, 0, len(fields))
	for _, f := range fields {
		name, value, _ := strings.Cut(f, "=")
		out = append(out, Define{Name: name, Value: value})
	}
	return out
}

// StageDesc references the source of one shading stage.
type StageDesc struct {
	Type       ShaderType
	Path       string
	Defines    []Define
	EntryPoint string
}

// VariantDesc is one parsed RenderState block.
type VariantDesc struct {
	// Index is the position of the variant in declaration order, its permanent identity.
	Index         int
	Name          string
	PassName      string
	RenderPass    render_pass.RenderPass
	VertexFactory string
	State         state.State
	Vertex        *StageDesc
	Fragment      *StageDesc
}

// Definition is a parsed shader description.
type Definition struct {
	Name     string
	Queue    Queue
	Path     string
	Variants []VariantDesc
}

// RenderPassResolver resolves the pass names referenced by RenderPass statements.
// render_pass.Registry satisfies it.
type RenderPassResolver interface {
	FindRenderPass(name string) (render_pass.RenderPass, bool)
}
