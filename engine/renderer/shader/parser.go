package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/state"
)

// DefaultVertexFactory is used by variants without a VertexFactory statement.
const DefaultVertexFactory = "StaticMesh"

// LoadDefinition reads and parses a shader description file.
// Stage source paths are resolved relative to the directory of the description.
//
// Parameters:
//   - path: the description file
//   - resolver: resolves RenderPass names
//
// Returns:
//   - *Definition: the parsed description
//   - error: error if the file cannot be read or parsed
func LoadDefinition(path string, resolver RenderPassResolver) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader description %s: %w", path, err)
	}
	return ParseDefinition(string(data), path, resolver)
}

// ParseDefinition parses a shader description.
//
// Parameters:
//   - src: the description text
//   - path: the description path, used for error locations and to resolve stage paths; may be empty
//   - resolver: resolves RenderPass names
//
// Returns:
//   - *Definition: the parsed description with variants in declaration order
//   - error: a *SyntaxError, wrapping ErrUnknownRenderPass or ErrStageBeforeRenderPass where applicable
func ParseDefinition(src, path string, resolver RenderPassResolver) (*Definition, error) {
	ts, err := NewTokenStream(path, src)
	if err != nil {
		return nil, err
	}
	p := &definitionParser{ts: ts, resolver: resolver, dir: filepath.Dir(path)}
	if path == "" {
		p.dir = ""
	}
	return p.parse()
}

type definitionParser struct {
	ts       *TokenStream
	resolver RenderPassResolver
	dir      string
}

func (p *definitionParser) parse() (*Definition, error) {
	kw, err := p.ts.Expect(TokenWord)
	if err != nil {
		return nil, err
	}
	if kw.Text != "shader" {
		return nil, p.ts.Errorf(kw.Line, "expected 'shader', found %s", kw)
	}
	name, err := p.ts.Expect(TokenString)
	if err != nil {
		return nil, err
	}
	if _, err := p.ts.Expect(TokenLBrace); err != nil {
		return nil, err
	}

	def := &Definition{Name: name.Text, Queue: QueueOpaque, Path: p.ts.Path()}
	for {
		t := p.ts.Peek()
		if t.Kind == TokenRBrace {
			p.ts.Next()
			break
		}
		if t.Kind != TokenWord {
			return nil, p.ts.Errorf(t.Line, "unexpected %s in shader block", t)
		}
		switch t.Text {
		case "Queue":
			p.ts.Next()
			args, err := p.ts.Args()
			if err != nil {
				return nil, err
			}
			if len(args) != 1 {
				return nil, p.ts.Errorf(t.Line, "Queue takes one argument")
			}
			q, err := ParseQueue(args[0].Text)
			if err != nil {
				return nil, &SyntaxError{Path: p.ts.Path(), Line: t.Line, Msg: "Queue", Err: err}
			}
			def.Queue = q
		case "RenderState":
			p.ts.Next()
			v, err := p.parseRenderState(len(def.Variants))
			if err != nil {
				return nil, err
			}
			def.Variants = append(def.Variants, v)
		default:
			common.Logger().Debug("skipping unknown shader statement", "shader", def.Name, "keyword", t.Text, "line", t.Line)
			if err := p.ts.SkipStatement(); err != nil {
				return nil, err
			}
		}
	}
	if end := p.ts.Peek(); end.Kind != TokenEOF {
		return nil, p.ts.Errorf(end.Line, "unexpected %s after shader block", end)
	}
	if len(def.Variants) == 0 {
		return nil, p.ts.Errorf(name.Line, "shader %q declares no RenderState", def.Name)
	}
	return def, nil
}

// blendTracker remembers whether the alpha equation was set explicitly, so a later
// Blend/BlendOp statement does not overwrite an earlier AlphaBlend/AlphaBlendOp.
type blendTracker struct {
	alphaFactors bool
	alphaOp      bool
}

func (p *definitionParser) parseRenderState(index int) (VariantDesc, error) {
	name, err := p.ts.ExpectText()
	if err != nil {
		return VariantDesc{}, err
	}
	open, err := p.ts.Expect(TokenLBrace)
	if err != nil {
		return VariantDesc{}, err
	}

	v := VariantDesc{
		Index:         index,
		Name:          name.Text,
		VertexFactory: DefaultVertexFactory,
		State:         state.Default(),
	}
	var blend blendTracker

	for {
		t := p.ts.Peek()
		if t.Kind == TokenRBrace {
			p.ts.Next()
			break
		}
		if t.Kind == TokenEOF {
			return VariantDesc{}, p.ts.Errorf(open.Line, "unterminated RenderState %q", v.Name)
		}
		if t.Kind != TokenWord {
			return VariantDesc{}, p.ts.Errorf(t.Line, "unexpected %s in RenderState", t)
		}
		p.ts.Next()
		switch t.Text {
		case "name":
			args, err := p.ts.Args()
			if err != nil {
				return VariantDesc{}, err
			}
			if len(args) > 0 {
				v.Name = args[0].Text
			}
		case "RenderPass":
			args, err := p.argsN(t, 1)
			if err != nil {
				return VariantDesc{}, err
			}
			rp, ok := p.resolver.FindRenderPass(args[0].Text)
			if !ok {
				return VariantDesc{}, &SyntaxError{Path: p.ts.Path(), Line: t.Line, Msg: fmt.Sprintf("RenderPass %q", args[0].Text), Err: ErrUnknownRenderPass}
			}
			v.PassName = args[0].Text
			v.RenderPass = rp
		case "VertexFactory":
			args, err := p.argsN(t, 1)
			if err != nil {
				return VariantDesc{}, err
			}
			v.VertexFactory = args[0].Text
		case "vs", "fs":
			if v.RenderPass == nil {
				return VariantDesc{}, &SyntaxError{Path: p.ts.Path(), Line: t.Line, Msg: t.Text + " block", Err: ErrStageBeforeRenderPass}
			}
			typ := ShaderTypeVertex
			if t.Text == "fs" {
				typ = ShaderTypeFragment
			}
			stage, err := p.parseStage(typ)
			if err != nil {
				return VariantDesc{}, err
			}
			if typ == ShaderTypeVertex {
				v.Vertex = stage
			} else {
				v.Fragment = stage
			}
		default:
			handled, err := p.parseStateKeyword(t, &v.State, &blend)
			if err != nil {
				return VariantDesc{}, err
			}
			if !handled {
				common.Logger().Debug("skipping unknown render state statement", "variant", v.Name, "keyword", t.Text, "line", t.Line)
				if err := p.ts.SkipStatement(); err != nil {
					return VariantDesc{}, err
				}
			}
		}
	}

	if v.RenderPass == nil {
		return VariantDesc{}, p.ts.Errorf(open.Line, "RenderState %q has no RenderPass", v.Name)
	}
	if v.Vertex == nil {
		return VariantDesc{}, p.ts.Errorf(open.Line, "RenderState %q has no vs block", v.Name)
	}
	return v, nil
}

func (p *definitionParser) argsN(kw Token, n int) ([]Token, error) {
	args, err := p.ts.Args()
	if err != nil {
		return nil, err
	}
	if len(args) != n {
		return nil, p.ts.Errorf(kw.Line, "%s takes %d argument(s), got %d", kw.Text, n, len(args))
	}
	return args, nil
}

func (p *definitionParser) parseStage(typ ShaderType) (*StageDesc, error) {
	open, err := p.ts.Expect(TokenLBrace)
	if err != nil {
		return nil, err
	}
	stage := &StageDesc{Type: typ}
	for {
		t := p.ts.Next()
		switch t.Kind {
		case TokenRBrace:
			if stage.Path == "" {
				return nil, &SyntaxError{Path: p.ts.Path(), Line: open.Line, Msg: typ.String() + " block has no shaderFile", Err: ErrMissingSource}
			}
			if p.ts.Peek().Kind == TokenSemicolon {
				p.ts.Next()
			}
			return stage, nil
		case TokenWord:
		default:
			return nil, p.ts.Errorf(t.Line, "unexpected %s in %s block", t, typ)
		}
		switch t.Text {
		case "shaderFile":
			args, err := p.argsN(t, 1)
			if err != nil {
				return nil, err
			}
			stage.Path = args[0].Text
			if p.dir != "" && !filepath.IsAbs(stage.Path) {
				stage.Path = filepath.Join(p.dir, stage.Path)
			}
		case "defines":
			args, err := p.ts.Args()
			if err != nil {
				return nil, err
			}
			for _, a := range args {
				stage.Defines = append(stage.Defines, ParseDefines(a.Text)...)
			}
		case "entryPoint":
			args, err := p.argsN(t, 1)
			if err != nil {
				return nil, err
			}
			stage.EntryPoint = args[0].Text
		default:
			if err := p.ts.SkipStatement(); err != nil {
				return nil, err
			}
		}
	}
}

// parseStateKeyword applies one fixed-function statement to s.
// It returns false when the keyword is not a state keyword; nothing is consumed in that case.
func (p *definitionParser) parseStateKeyword(kw Token, s *state.State, blend *blendTracker) (bool, error) {
	var arity int
	switch kw.Text {
	case "CullMode", "FillMode", "FrontFace", "ZTest", "ZWrite", "ZClip", "Topology",
		"BlendOp", "AlphaBlendOp", "ColorMask", "AlphaToCoverage", "Scissor":
		arity = 1
	case "Blend", "AlphaBlend":
		arity = 2
	case "StencilBack":
		arity = 4
	case "Stencil":
		arity = 7
	default:
		return false, nil
	}
	args, err := p.argsN(kw, arity)
	if err != nil {
		return true, err
	}
	a := make([]string, len(args))
	for i, t := range args {
		a[i] = t.Text
	}
	if err := applyStateKeyword(kw.Text, a, s, blend); err != nil {
		return true, &SyntaxError{Path: p.ts.Path(), Line: kw.Line, Msg: kw.Text, Err: err}
	}
	return true, nil
}

func applyStateKeyword(kw string, a []string, s *state.State, blend *blendTracker) error {
	var err error
	switch kw {
	case "CullMode":
		s.CullMode, err = state.ParseCullMode(a[0])
	case "FillMode":
		s.FillMode, err = state.ParseFillMode(a[0])
	case "FrontFace":
		s.FrontFace, err = state.ParseFrontFace(a[0])
	case "Topology":
		s.Topology, err = state.ParseTopology(a[0])
	case "ZTest":
		s.DepthCompare, err = state.ParseCompareFunc(a[0])
	case "ZWrite":
		s.DepthWrite, err = state.ParseBool(a[0])
	case "ZClip":
		s.DepthClip, err = state.ParseBool(a[0])
	case "Scissor":
		s.Scissor, err = state.ParseBool(a[0])
	case "AlphaToCoverage":
		s.AlphaToCoverage, err = state.ParseBool(a[0])
	case "ColorMask":
		s.ColorWriteMask, err = state.ParseColorWriteMask(a[0])
	case "Blend":
		var src, dst state.BlendFactor
		if src, err = state.ParseBlendFactor(a[0]); err != nil {
			return err
		}
		if dst, err = state.ParseBlendFactor(a[1]); err != nil {
			return err
		}
		s.Color.Src, s.Color.Dst = src, dst
		if !blend.alphaFactors {
			s.Alpha.Src, s.Alpha.Dst = src, dst
		}
	case "AlphaBlend":
		var src, dst state.BlendFactor
		if src, err = state.ParseBlendFactor(a[0]); err != nil {
			return err
		}
		if dst, err = state.ParseBlendFactor(a[1]); err != nil {
			return err
		}
		s.Alpha.Src, s.Alpha.Dst = src, dst
		blend.alphaFactors = true
	case "BlendOp":
		var op state.BlendOp
		if op, err = state.ParseBlendOp(a[0]); err != nil {
			return err
		}
		s.Color.Op = op
		if !blend.alphaOp {
			s.Alpha.Op = op
		}
	case "AlphaBlendOp":
		if s.Alpha.Op, err = state.ParseBlendOp(a[0]); err != nil {
			return err
		}
		blend.alphaOp = true
	case "Stencil":
		return applyStencil(a, s)
	case "StencilBack":
		face, ferr := parseStencilFace(a)
		if ferr != nil {
			return ferr
		}
		s.Stencil.Enabled = true
		s.Stencil.Separate = true
		s.Stencil.Back = face
	}
	return err
}

// applyStencil handles "Stencil <ref> <readMask> <writeMask> <compare> <pass> <fail> <zfail>".
func applyStencil(a []string, s *state.State) error {
	var vals [3]uint8
	for i := range vals {
		n, err := strconv.ParseUint(a[i], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid stencil value %q: %w", a[i], err)
		}
		vals[i] = uint8(n)
	}
	face, err := parseStencilFace(a[3:])
	if err != nil {
		return err
	}
	s.Stencil.Enabled = true
	s.Stencil.Ref, s.Stencil.ReadMask, s.Stencil.WriteMask = vals[0], vals[1], vals[2]
	s.Stencil.Front = face
	if !s.Stencil.Separate {
		s.Stencil.Back = face
	}
	return nil
}

func parseStencilFace(a []string) (state.StencilFace, error) {
	var f state.StencilFace
	var err error
	if f.Compare, err = state.ParseCompareFunc(a[0]); err != nil {
		return f, err
	}
	if f.Pass, err = state.ParseStencilOp(a[1]); err != nil {
		return f, err
	}
	if f.Fail, err = state.ParseStencilOp(a[2]); err != nil {
		return f, err
	}
	if f.DepthFail, err = state.ParseStencilOp(a[3]); err != nil {
		return f, err
	}
	return f, nil
}
