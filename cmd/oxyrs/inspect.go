package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/pipeline"
	"github.com/spf13/cobra"
)

func newInspectShaderCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-shader <file>",
		Short: "Compile a shader description and print its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.newRenderer()
			if err != nil {
				return err
			}
			defer r.Release()
			s, err := r.LoadShader(args[0])
			if err != nil {
				return err
			}
			printShader(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newInspectMaterialCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-material <file>",
		Short: "Load a material description and print its active variant and values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.newRenderer()
			if err != nil {
				return err
			}
			defer r.Release()
			m, err := r.LoadMaterial(args[0])
			if err != nil {
				return err
			}
			printMaterial(cmd.OutOrStdout(), m, r.Defaults())
			return nil
		},
	}
}

func stageNames(s device.ShaderStage) string {
	var names []string
	if s&device.ShaderStageVertex != 0 {
		names = append(names, "vs")
	}
	if s&device.ShaderStageFragment != 0 {
		names = append(names, "fs")
	}
	return strings.Join(names, "|")
}

func printShader(w io.Writer, s pipeline.Shader) {
	fmt.Fprintf(w, "shader %q queue=%s variants=%d\n", s.Name(), s.Queue(), len(s.Variants()))
	for _, rs := range s.Variants() {
		fmt.Fprintln(w)
		printVariant(w, rs)
	}
}

func printVariant(w io.Writer, rs pipeline.RenderState) {
	pass := "<none>"
	if rs.RenderPass() != nil {
		pass = rs.RenderPass().Name()
	}
	fmt.Fprintf(w, "[%d] %q pass=%s factory=%s\n", rs.Index(), rs.Name(), pass, rs.VertexFactory().Name())
	fmt.Fprintf(w, "    state: %s\n", rs.PackedState())
	if slots := rs.Lightmap(); len(slots) > 0 {
		names := make([]string, 0, len(slots))
		for _, slot := range slots {
			names = append(names, fmt.Sprintf("%s@%d", slot.Name, slot.Binding))
		}
		fmt.Fprintf(w, "    lightmap: %s\n", strings.Join(names, " "))
	}
	for _, b := range rs.Blocks() {
		fmt.Fprintf(w, "    block %s set=%d binding=%d size=%d aligned=%d\n", b.Name, b.Set, b.Binding, b.Size, b.AlignedSize)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "    NAME\tTYPE\tSET\tBINDING\tSTAGES\tOFFSET\tSIZE")
	for _, u := range rs.Uniforms() {
		offset, size := "-", "-"
		if u.Type == pipeline.UniformFloat4 {
			offset, size = fmt.Sprint(u.Offset), fmt.Sprint(u.Size)
		}
		fmt.Fprintf(tw, "    %s\t%s\t%d\t%d\t%s\t%s\t%s\n", u.Name, u.Type, u.Set, u.Binding, stageNames(u.Stages), offset, size)
	}
	tw.Flush()
}

func printMaterial(w io.Writer, m material.Material, defaults material.Defaults) {
	fmt.Fprintf(w, "material %q id=%s shader=%q queue=%s renderState=%d\n", m.Name(), m.ID(), m.Shader().Name(), m.Queue(), m.RenderStateIndex())
	if kw := m.Keywords(); len(kw) > 0 {
		fmt.Fprintf(w, "keywords: %s\n", strings.Join(kw, " "))
	}
	rs := m.RenderState()
	printVariant(w, rs)

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VALUE\tTYPE\tBOUND")
	for _, u := range rs.Uniforms() {
		switch u.Type {
		case pipeline.UniformFloat4:
			v, ok := m.Float4(u.Name)
			bound := "<unset>"
			if ok {
				bound = fmt.Sprintf("%g %g %g %g", v[0], v[1], v[2], v[3])
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Name, u.Type, bound)
		case pipeline.UniformImage:
			bound := "<placeholder>"
			if img := m.Image(u.Name); img != nil && img != defaults.Image {
				bound = fmt.Sprintf("%s (%dx%d)", img.Label(), img.Width(), img.Height())
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Name, u.Type, bound)
		}
	}
	tw.Flush()
}
