package shader

import (
	"fmt"
	"strings"
)

// TokenKind classifies a Token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenWord
	TokenString
	TokenLBrace
	TokenRBrace
	TokenSemicolon
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of file"
	case TokenWord:
		return "word"
	case TokenString:
		return "string"
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenSemicolon:
		return "';'"
	}
	return "token"
}

// Token is one lexical element of a description.
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

func (t Token) String() string {
	switch t.Kind {
	case TokenWord:
		return t.Text
	case TokenString:
		return fmt.Sprintf("%q", t.Text)
	}
	return t.Kind.String()
}

// tokenize splits a description into words, quoted strings and the punctuation { } ;.
// Line (//) and block (/* */) comments are dropped. The same tokenizer serves shader and
// material descriptions.
//
// Parameters:
//   - path: the file name used in error messages
//   - src: the description text
//
// Returns:
//   - []Token: the tokens, terminated by an EOF Token
//   - error: a *SyntaxError for unterminated strings or comments
func tokenize(path, src string) ([]Token, error) {
	var toks []Token
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			start := line
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, &SyntaxError{Path: path, Line: start, Msg: "unterminated block comment"}
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
		case c == '"':
			start := line
			j := i + 1
			var sb strings.Builder
			for j < len(src) && src[j] != '"' {
				if src[j] == '\n' {
					return nil, &SyntaxError{Path: path, Line: start, Msg: "unterminated string"}
				}
				if src[j] == '\\' && j+1 < len(src) {
					j++
				}
				sb.WriteByte(src[j])
				j++
			}
			if j >= len(src) {
				return nil, &SyntaxError{Path: path, Line: start, Msg: "unterminated string"}
			}
			toks = append(toks, Token{Kind: TokenString, Text: sb.String(), Line: line})
			i = j + 1
		case c == '{':
			toks = append(toks, Token{Kind: TokenLBrace, Text: "{", Line: line})
			i++
		case c == '}':
			toks = append(toks, Token{Kind: TokenRBrace, Text: "}", Line: line})
			i++
		case c == ';':
			toks = append(toks, Token{Kind: TokenSemicolon, Text: ";", Line: line})
			i++
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t\r\n{};\"", rune(src[j])) && !strings.HasPrefix(src[j:], "//") && !strings.HasPrefix(src[j:], "/*") {
				j++
			}
			toks = append(toks, Token{Kind: TokenWord, Text: src[i:j], Line: line})
			i = j
		}
	}
	toks = append(toks, Token{Kind: TokenEOF, Line: line})
	return toks, nil
}

// TokenStream is a cursor over the tokens of one description, shared by the shader and material parsers.
type TokenStream struct {
	path string
	toks []Token
	pos  int
}

// NewTokenStream tokenizes src and returns a cursor over the result.
func NewTokenStream(path, src string) (*TokenStream, error) {
	toks, err := tokenize(path, src)
	if err != nil {
		return nil, err
	}
	return &TokenStream{path: path, toks: toks}, nil
}

// Peek returns the current token without consuming it.
func (s *TokenStream) Peek() Token {
	return s.toks[s.pos]
}

// Next consumes and returns the current token. EOF is never consumed.
func (s *TokenStream) Next() Token {
	t := s.toks[s.pos]
	if t.Kind != TokenEOF {
		s.pos++
	}
	return t
}

// Errorf builds a *SyntaxError located at line.
func (s *TokenStream) Errorf(line int, format string, args ...any) error {
	return &SyntaxError{Path: s.path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Expect consumes a token of the given kind.
func (s *TokenStream) Expect(kind TokenKind) (Token, error) {
	t := s.Next()
	if t.Kind != kind {
		return t, s.Errorf(t.Line, "expected %s, found %s", kind, t)
	}
	return t, nil
}

// ExpectText accepts a word or a quoted string.
func (s *TokenStream) ExpectText() (Token, error) {
	t := s.Next()
	if t.Kind != TokenWord && t.Kind != TokenString {
		return t, s.Errorf(t.Line, "expected a value, found %s", t)
	}
	return t, nil
}

// Path returns the file name used in error messages.
func (s *TokenStream) Path() string {
	return s.path
}

// Args collects the words and strings of a statement up to its terminating ';'.
// A closing '}' also ends the statement and is left unconsumed.
func (s *TokenStream) Args() ([]Token, error) {
	var out []Token
	for {
		t := s.Peek()
		switch t.Kind {
		case TokenSemicolon:
			s.Next()
			return out, nil
		case TokenRBrace:
			return out, nil
		case TokenEOF:
			return nil, s.Errorf(t.Line, "unexpected end of file in statement")
		case TokenLBrace:
			return nil, s.Errorf(t.Line, "unexpected '{' in statement")
		}
		out = append(out, s.Next())
	}
}

// SkipStatement discards tokens up to and including the next ';' at depth zero,
// or a complete balanced {...} block.
func (s *TokenStream) SkipStatement() error {
	depth := 0
	for {
		t := s.Next()
		switch t.Kind {
		case TokenEOF:
			return s.Errorf(t.Line, "unexpected end of file while skipping statement")
		case TokenLBrace:
			depth++
		case TokenRBrace:
			if depth == 0 {
				s.pos--
				return nil
			}
			depth--
			if depth == 0 {
				if s.Peek().Kind == TokenSemicolon {
					s.Next()
				}
				return nil
			}
		case TokenSemicolon:
			if depth == 0 {
				return nil
			}
		}
	}
}
