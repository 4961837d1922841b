package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// directivePrefix marks a pre-processor line. Only leading whitespace may precede it.
const directivePrefix = "#"

// DirectiveType identifies the kind of pre-processor directive parsed from a source line.
type DirectiveType string

const (
	// DirectiveDefine declares a macro, optionally with a replacement value.
	//
	// Syntax: #define NAME [VALUE]
	DirectiveDefine DirectiveType = "define"

	// DirectiveUndef removes a macro.
	//
	// Syntax: #undef NAME
	DirectiveUndef DirectiveType = "undef"

	// DirectiveIfdef opens a conditional block kept only when NAME is defined.
	//
	// Syntax: #ifdef NAME
	DirectiveIfdef DirectiveType = "ifdef"

	// DirectiveIfndef opens a conditional block kept only when NAME is not defined.
	//
	// Syntax: #ifndef NAME
	DirectiveIfndef DirectiveType = "ifndef"

	// DirectiveElse flips the innermost conditional block.
	DirectiveElse DirectiveType = "else"

	// DirectiveEndif closes the innermost conditional block.
	DirectiveEndif DirectiveType = "endif"

	// DirectiveInclude splices another source file in place, once per expansion.
	//
	// Syntax: #include "common/lighting.wgsl"
	DirectiveInclude DirectiveType = "include"
)

// macroNameRegex matches a valid macro identifier.
var macroNameRegex = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// Directive is one parsed pre-processor line.
type Directive struct {
	// Type identifies the directive.
	Type DirectiveType

	// Name is the macro name for define/undef/ifdef/ifndef, or the include path.
	Name string

	// Value is the replacement text of a #define, empty for flag macros.
	Value string

	// Line is the 1-based source line of the directive.
	Line int
}

// parseDirective parses a single source line. Lines that do not start with '#' after
// leading whitespace are not directives and yield nil.
//
// Parameters:
//   - line: the source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Directive: the parsed directive, or nil if the line is not a directive
//   - error: a descriptive error if the directive is malformed
func parseDirective(line string, lineNum int) (*Directive, error) {
	after, ok := strings.CutPrefix(strings.TrimSpace(line), directivePrefix)
	if !ok {
		return nil, nil
	}
	kw, rest, _ := strings.Cut(strings.TrimSpace(after), " ")
	rest = strings.TrimSpace(rest)
	d := &Directive{Type: DirectiveType(kw), Line: lineNum}

	switch d.Type {
	case DirectiveDefine:
		name, value, _ := strings.Cut(rest, " ")
		d.Name = name
		d.Value = strings.TrimSpace(value)
		if !macroNameRegex.MatchString(d.Name) {
			return nil, fmt.Errorf("line %d: invalid macro name %q in #define", lineNum, d.Name)
		}
	case DirectiveUndef, DirectiveIfdef, DirectiveIfndef:
		d.Name = rest
		if !macroNameRegex.MatchString(d.Name) {
			return nil, fmt.Errorf("line %d: #%s requires one macro name, got %q", lineNum, kw, rest)
		}
	case DirectiveElse, DirectiveEndif:
		if rest != "" {
			return nil, fmt.Errorf("line %d: #%s takes no arguments", lineNum, kw)
		}
	case DirectiveInclude:
		path, err := strconv.Unquote(rest)
		if err != nil || path == "" {
			return nil, fmt.Errorf("line %d: #include requires a quoted path, got %q", lineNum, rest)
		}
		d.Name = path
	default:
		return nil, fmt.Errorf("line %d: unknown directive #%s", lineNum, kw)
	}
	return d, nil
}
