package material

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// TextureRef is one texture entry of a material description.
type TextureRef struct {
	Name string
	Path string
	// ScaleOffset is the tiling and offset of the texture, nil when not declared.
	ScaleOffset *mgl32.Vec4
}

// Constant is one float4 entry of a material description.
type Constant struct {
	Name  string
	Value mgl32.Vec4
}

// Description is a parsed material description. Paths are resolved relative to the description file.
type Description struct {
	Name         string
	Path         string
	Version      int
	Shader       string
	RenderState  int
	Prez         string
	ShadowCaster string
	Keywords     []string
	Textures     []TextureRef
	Constants    []Constant
}

// Apply writes the description's constants to m. Textures are loaded by the caller.
//
// Parameters:
//   - m: the material
func (d *Description) Apply(m Material) {
	for _, c := range d.Constants {
		m.SetFloat4(c.Name, c.Value)
	}
}

func (d *Description) setTexture(t TextureRef) {
	for i := range d.Textures {
		if d.Textures[i].Name == t.Name {
			d.Textures[i] = t
			return
		}
	}
	d.Textures = append(d.Textures, t)
}

func (d *Description) setConstant(c Constant) {
	for i := range d.Constants {
		if d.Constants[i].Name == c.Name {
			d.Constants[i] = c
			return
		}
	}
	d.Constants = append(d.Constants, c)
}

// LoadDescription reads and parses a material description file.
//
// Parameters:
//   - path: the description file
//
// Returns:
//   - *Description: the parsed description
//   - error: error if the file cannot be read or parsed
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read material description %s: %w", path, err)
	}
	return ParseDescription(string(data), path)
}

// ParseDescription parses a material description. Entries of the constants block are
// order-independent and a repeated name overwrites the earlier entry.
//
// Parameters:
//   - src: the description text
//   - path: the description path, used for error locations and to resolve relative paths; may be empty
//
// Returns:
//   - *Description: the parsed description
//   - error: a *shader.SyntaxError on malformed input
func ParseDescription(src, path string) (*Description, error) {
	ts, err := shader.NewTokenStream(path, src)
	if err != nil {
		return nil, err
	}
	p := &descriptionParser{ts: ts}
	if path != "" {
		p.dir = filepath.Dir(path)
	}
	return p.parse()
}

type descriptionParser struct {
	ts  *shader.TokenStream
	dir string
}

func (p *descriptionParser) resolve(path string) string {
	if p.dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.dir, path)
}

func (p *descriptionParser) parse() (*Description, error) {
	kw, err := p.ts.Expect(shader.TokenWord)
	if err != nil {
		return nil, err
	}
	if kw.Text != "material" {
		return nil, p.ts.Errorf(kw.Line, "expected 'material', found %s", kw)
	}
	name, err := p.ts.ExpectText()
	if err != nil {
		return nil, err
	}
	if _, err := p.ts.Expect(shader.TokenLBrace); err != nil {
		return nil, err
	}

	d := &Description{Name: name.Text, Path: p.ts.Path(), Version: 1}
	for {
		t := p.ts.Peek()
		if t.Kind == shader.TokenRBrace {
			p.ts.Next()
			break
		}
		if t.Kind != shader.TokenWord {
			return nil, p.ts.Errorf(t.Line, "unexpected %s in material block", t)
		}
		p.ts.Next()
		switch t.Text {
		case "constants":
			if err := p.parseConstants(d); err != nil {
				return nil, err
			}
			continue
		case "version", "renderState":
			v, err := p.intArg(t)
			if err != nil {
				return nil, err
			}
			if t.Text == "version" {
				d.Version = v
			} else {
				d.RenderState = v
			}
		case "shader", "prez", "shadowCaster":
			s, err := p.textArg(t)
			if err != nil {
				return nil, err
			}
			switch t.Text {
			case "shader":
				d.Shader = p.resolve(s)
			case "prez":
				d.Prez = p.resolve(s)
			default:
				d.ShadowCaster = p.resolve(s)
			}
		case "keywords":
			args, err := p.ts.Args()
			if err != nil {
				return nil, err
			}
			d.Keywords = d.Keywords[:0]
			for _, a := range args {
				d.Keywords = append(d.Keywords, strings.Fields(a.Text)...)
			}
		default:
			common.Logger().Debug("skipping unknown material statement", "material", d.Name, "keyword", t.Text, "line", t.Line)
			if err := p.ts.SkipStatement(); err != nil {
				return nil, err
			}
		}
	}
	if end := p.ts.Peek(); end.Kind != shader.TokenEOF {
		return nil, p.ts.Errorf(end.Line, "unexpected %s after material block", end)
	}
	if d.Shader == "" {
		return nil, p.ts.Errorf(name.Line, "material %q names no shader", d.Name)
	}
	if d.RenderState < 0 {
		return nil, p.ts.Errorf(name.Line, "material %q selects negative renderState %d", d.Name, d.RenderState)
	}
	return d, nil
}

func (p *descriptionParser) textArg(kw shader.Token) (string, error) {
	args, err := p.ts.Args()
	if err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", p.ts.Errorf(kw.Line, "%s takes one argument", kw.Text)
	}
	return args[0].Text, nil
}

func (p *descriptionParser) intArg(kw shader.Token) (int, error) {
	s, err := p.textArg(kw)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, p.ts.Errorf(kw.Line, "%s: invalid integer %q", kw.Text, s)
	}
	return v, nil
}

func (p *descriptionParser) parseConstants(d *Description) error {
	if _, err := p.ts.Expect(shader.TokenLBrace); err != nil {
		return err
	}
	for {
		t := p.ts.Peek()
		switch t.Kind {
		case shader.TokenRBrace:
			p.ts.Next()
			if p.ts.Peek().Kind == shader.TokenSemicolon {
				p.ts.Next()
			}
			return nil
		case shader.TokenWord, shader.TokenString:
		default:
			return p.ts.Errorf(t.Line, "unexpected %s in constants block", t)
		}
		p.ts.Next()
		args, err := p.ts.Args()
		if err != nil {
			return err
		}
		if t.Kind == shader.TokenWord && t.Text == "texture" {
			ref, err := p.parseTexture(t, args)
			if err != nil {
				return err
			}
			d.setTexture(ref)
			if ref.ScaleOffset != nil {
				d.setConstant(Constant{Name: ref.Name + "_ST", Value: *ref.ScaleOffset})
			}
			continue
		}
		v, err := p.parseVec4(t, args)
		if err != nil {
			return err
		}
		d.setConstant(Constant{Name: t.Text, Value: v})
	}
}

// parseTexture parses `texture <name> <path> [ScaleOffset x y z w]`.
func (p *descriptionParser) parseTexture(kw shader.Token, args []shader.Token) (TextureRef, error) {
	if len(args) != 2 && len(args) != 7 {
		return TextureRef{}, p.ts.Errorf(kw.Line, "texture takes a name, a path and an optional ScaleOffset")
	}
	ref := TextureRef{Name: args[0].Text, Path: p.resolve(args[1].Text)}
	if len(args) == 7 {
		if args[2].Text != "ScaleOffset" {
			return TextureRef{}, p.ts.Errorf(args[2].Line, "expected ScaleOffset, found %s", args[2])
		}
		v, err := p.parseVec4(args[2], args[3:])
		if err != nil {
			return TextureRef{}, err
		}
		ref.ScaleOffset = &v
	}
	return ref, nil
}

// parseVec4 parses one to four floats. Missing components are zero.
func (p *descriptionParser) parseVec4(kw shader.Token, args []shader.Token) (mgl32.Vec4, error) {
	var v mgl32.Vec4
	if len(args) == 0 || len(args) > 4 {
		return v, p.ts.Errorf(kw.Line, "%s takes one to four numbers, found %d", kw.Text, len(args))
	}
	for i, a := range args {
		f, err := strconv.ParseFloat(a.Text, 32)
		if err != nil {
			return v, p.ts.Errorf(a.Line, "%s: invalid number %q", kw.Text, a.Text)
		}
		v[i] = float32(f)
	}
	return v, nil
}
