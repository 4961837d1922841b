// pre_processor.go implements the WGSL pre-processor that applies the macro list of a vs or fs
// block before stage compilation. It understands #define, #undef, #ifdef, #ifndef, #else,
// #endif and #include. Valued macros are substituted as whole words in the kept lines.
package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// maxIncludeDepth bounds nested #include expansion.
const maxIncludeDepth = 16

// preProcessor is the implementation of the PreProcessor interface.
// It carries only configuration; all expansion state lives in a per-call expansion value.
type preProcessor struct {
	includeDirs []string
	readFile    func(path string) ([]byte, error)
}

// PreProcessorOption configures a PreProcessor.
type PreProcessorOption func(*preProcessor)

// WithIncludeDirs adds directories searched by #include after the including file's own directory.
//
// Parameters:
//   - dirs: the directories in search order
//
// Returns:
//   - PreProcessorOption: the option
func WithIncludeDirs(dirs ...string) PreProcessorOption {
	return func(p *preProcessor) {
		p.includeDirs = append(p.includeDirs, dirs...)
	}
}

// WithIncludeReader replaces the function used to read included files.
//
// Parameters:
//   - read: returns the contents of a resolved include path
//
// Returns:
//   - PreProcessorOption: the option
func WithIncludeReader(read func(path string) ([]byte, error)) PreProcessorOption {
	return func(p *preProcessor) {
		p.readFile = read
	}
}

// PreProcessor expands the directives of a WGSL source against a macro list.
// Implementations are safe for concurrent use.
type PreProcessor interface {
	// Process expands source. Conditional blocks are kept or dropped according to the macros
	// defined so far, #include splices each file once, and valued macros are substituted as whole words.
	//
	// Parameters:
	//   - path: the path of the source, used to resolve relative includes and in errors; may be empty
	//   - source: the raw WGSL source
	//   - defines: the initial macros, applied in order
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error if a directive is malformed, a conditional is unbalanced, or an include cannot be read
	Process(path, source string, defines []Define) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with all provided options applied.
//
// Parameters:
//   - opts: variadic list of PreProcessorOption functions
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(opts ...PreProcessorOption) PreProcessor {
	p := &preProcessor{readFile: os.ReadFile}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// expansion is the mutable state of a single Process call.
type expansion struct {
	pp       *preProcessor
	macros   map[string]string
	included map[string]bool
	out      []string
}

// condFrame is one open #ifdef/#ifndef block.
type condFrame struct {
	parentActive bool
	taken        bool
	sawElse      bool
	line         int
}

func (p *preProcessor) Process(path, source string, defines []Define) (string, error) {
	e := &expansion{
		pp:       p,
		macros:   make(map[string]string, len(defines)),
		included: make(map[string]bool),
	}
	for _, d := range defines {
		e.macros[d.Name] = d.Value
	}
	if path != "" {
		e.included[filepath.Clean(path)] = true
	}
	if err := e.expand(path, source, 0); err != nil {
		return "", err
	}
	return strings.Join(e.out, "\n"), nil
}

func (e *expansion) expand(path, source string, depth int) error {
	var stack []condFrame
	active := true
	loc := func(line int) string {
		if path == "" {
			return fmt.Sprintf("line %d", line)
		}
		return fmt.Sprintf("%s:%d", path, line)
	}

	for i, line := range strings.Split(source, "\n") {
		d, err := parseDirective(line, i+1)
		if err != nil {
			if path != "" {
				return fmt.Errorf("%s: %w", path, err)
			}
			return err
		}
		if d == nil {
			if active {
				e.out = append(e.out, e.substitute(line))
			}
			continue
		}

		switch d.Type {
		case DirectiveIfdef, DirectiveIfndef:
			_, defined := e.macros[d.Name]
			cond := defined == (d.Type == DirectiveIfdef)
			stack = append(stack, condFrame{parentActive: active, taken: cond, line: d.Line})
			active = active && cond
		case DirectiveElse:
			if len(stack) == 0 {
				return fmt.Errorf("%s: #else without #ifdef", loc(d.Line))
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return fmt.Errorf("%s: duplicate #else", loc(d.Line))
			}
			top.sawElse = true
			active = top.parentActive && !top.taken
		case DirectiveEndif:
			if len(stack) == 0 {
				return fmt.Errorf("%s: #endif without #ifdef", loc(d.Line))
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		default:
			if !active {
				continue
			}
			if err := e.apply(path, d, depth); err != nil {
				return err
			}
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("%s: unterminated conditional block", loc(stack[len(stack)-1].line))
	}
	return nil
}

func (e *expansion) apply(path string, d *Directive, depth int) error {
	switch d.Type {
	case DirectiveDefine:
		e.macros[d.Name] = d.Value
	case DirectiveUndef:
		delete(e.macros, d.Name)
	case DirectiveInclude:
		if depth >= maxIncludeDepth {
			return fmt.Errorf("line %d: #include nested deeper than %d", d.Line, maxIncludeDepth)
		}
		resolved, data, err := e.pp.resolveInclude(path, d.Name)
		if err != nil {
			return fmt.Errorf("line %d: %w", d.Line, err)
		}
		if e.included[resolved] {
			return nil
		}
		e.included[resolved] = true
		return e.expand(resolved, string(data), depth+1)
	}
	return nil
}

// resolveInclude looks the include name up next to the including file first, then in the include dirs.
func (p *preProcessor) resolveInclude(from, name string) (string, []byte, error) {
	var candidates []string
	if filepath.IsAbs(name) {
		candidates = []string{name}
	} else {
		if from != "" {
			candidates = append(candidates, filepath.Join(filepath.Dir(from), name))
		}
		for _, dir := range p.includeDirs {
			candidates = append(candidates, filepath.Join(dir, name))
		}
		if from == "" && len(p.includeDirs) == 0 {
			candidates = append(candidates, name)
		}
	}
	var firstErr error
	for _, c := range candidates {
		c = filepath.Clean(c)
		data, err := p.readFile(c)
		if err == nil {
			return c, data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", nil, fmt.Errorf("cannot resolve #include %q: %w", name, firstErr)
}

// substitute replaces valued macros appearing as whole words. Flag macros are left untouched.
func (e *expansion) substitute(line string) string {
	if len(e.macros) == 0 || strings.TrimSpace(line) == "" {
		return line
	}
	names := make([]string, 0, len(e.macros))
	for name, value := range e.macros {
		if value != "" && strings.Contains(line, name) {
			names = append(names, regexp.QuoteMeta(name))
		}
	}
	if len(names) == 0 {
		return line
	}
	// longest first so overlapping names prefer the longer match
	slices.SortFunc(names, func(a, b string) int { return len(b) - len(a) })
	re := regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\b`)
	return re.ReplaceAllStringFunc(line, func(m string) string {
		return e.macros[m]
	})
}
