package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
)

// WGSLReflector reflects bindings out of the pre-processed WGSL source of a stage.
// It serves stages compiled without bytecode and backends that consume WGSL directly.
type WGSLReflector struct{}

var _ Reflector = WGSLReflector{}

func (WGSLReflector) Reflect(s Stage) ([]ResourceBinding, error) {
	cleaned := stripComments(s.Source())
	layouts, members := computeStructSizes(parseStructBlocks(cleaned))
	stageBit := s.ShaderType().Stage()

	decls := parseBindings(cleaned)
	out := make([]ResourceBinding, 0, len(decls))
	for _, d := range decls {
		kind, ok := classifyResource(d.addressSpace, d.typeName)
		if !ok {
			common.Logger().Debug("ignoring unsupported binding", "stage", s.Key(), "name", d.name, "type", d.typeName)
			continue
		}
		rb := ResourceBinding{
			Name:    d.name,
			Set:     d.group,
			Binding: d.binding,
			Stages:  stageBit,
			Kind:    kind,
		}
		if kind == BindingUniformBlock {
			layout, ok := resolveTypeLayout(d.typeName, layouts)
			if !ok {
				return nil, fmt.Errorf("%s: cannot resolve layout of uniform %s: %s", s.Path(), d.name, d.typeName)
			}
			rb.Size = uint32(layout.size)
			if m, isStruct := members[d.typeName]; isStruct {
				rb.Members = m
			} else {
				rb.Members = []BlockMember{{Name: d.name, Offset: 0, Size: rb.Size}}
			}
		}
		out = append(out, rb)
	}
	return out, nil
}
