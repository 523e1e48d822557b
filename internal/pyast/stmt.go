package pyast

import (
	"nosemig/internal/source"
	"nosemig/internal/token"
)

// Kind classifies a statement.
type Kind uint8

const (
	// Simple is any single logical line that is not one of the kinds below.
	Simple Kind = iota
	FuncDef
	ClassDef
	// Import is "import a.b [as c], ...".
	Import
	// FromImport is "from m import a [as b], ...".
	FromImport
	// Compound is any other statement with a suite: if/elif/else, for, while,
	// with, try/except/finally, match/case.
	Compound
)

var kindNames = [...]string{
	Simple:     "simple",
	FuncDef:    "def",
	ClassDef:   "class",
	Import:     "import",
	FromImport: "from-import",
	Compound:   "compound",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Decorator is one "@expr" line.
type Decorator struct {
	At   token.Token
	Expr []token.Token
}

// Span covers the '@' through the last token of the expression.
func (d *Decorator) Span() source.Span {
	sp := d.At.Span
	if n := len(d.Expr); n > 0 {
		sp.End = d.Expr[n-1].Span.End
	}
	return sp
}

// Stmt is one statement. Simple statements keep their whole logical line in
// Header; statements with a suite keep the header through ':' in Header and
// either an indented Body or, for one-line suites, the trailing tokens in Inline.
type Stmt struct {
	Kind       Kind
	Keyword    string
	Header     []token.Token
	Inline     []token.Token
	Body       []*Stmt
	Decorators []*Decorator

	// def/class only
	Async  bool
	Name   token.Token
	LParen token.Token
	RParen token.Token
	Params []token.Token

	Span source.Span
}

// First returns the first token of the statement, decorators included.
func (s *Stmt) First() token.Token {
	if len(s.Decorators) > 0 {
		return s.Decorators[0].At
	}
	return s.Header[0]
}

// HeaderFirst returns the first token of the header, skipping decorators.
func (s *Stmt) HeaderFirst() token.Token {
	return s.Header[0]
}

// Colon returns the header-terminating ':' for statements with a suite.
func (s *Stmt) Colon() (token.Token, bool) {
	if s.Kind == Simple || s.Kind == Import || s.Kind == FromImport {
		return token.Token{}, false
	}
	last := s.Header[len(s.Header)-1]
	return last, last.Kind == token.Colon
}

// HasSuite reports whether the statement owns a block or a one-line suite.
func (s *Stmt) HasSuite() bool {
	return len(s.Body) > 0 || len(s.Inline) > 0
}

// IsDef reports whether s is a def or class.
func (s *Stmt) IsDef() bool {
	return s.Kind == FuncDef || s.Kind == ClassDef
}

// Docstring returns the leading string-literal statement of a body, if any.
func (s *Stmt) Docstring() *Stmt {
	return docstring(s.Body)
}

// Statements returns Body without a leading docstring.
func (s *Stmt) Statements() []*Stmt {
	if docstring(s.Body) != nil {
		return s.Body[1:]
	}
	return s.Body
}

func docstring(body []*Stmt) *Stmt {
	if len(body) == 0 {
		return nil
	}
	first := body[0]
	if first.Kind != Simple || len(first.Header) == 0 {
		return nil
	}
	for _, tok := range first.Header {
		if tok.Kind != token.String {
			return nil
		}
	}
	return first
}

// Tokens returns every token of the statement in source order: decorators,
// header, inline suite and the nested body.
func (s *Stmt) Tokens() []token.Token {
	out := make([]token.Token, 0, len(s.Header)+len(s.Inline))
	return s.appendTokens(out)
}

func (s *Stmt) appendTokens(out []token.Token) []token.Token {
	for _, d := range s.Decorators {
		out = append(out, d.At)
		out = append(out, d.Expr...)
	}
	out = append(out, s.Header...)
	out = append(out, s.Inline...)
	for _, child := range s.Body {
		out = child.appendTokens(out)
	}
	return out
}

// OwnTokens returns the tokens of the statement and its body, excluding the
// bodies of nested def/class statements (their headers and decorators stay).
func (s *Stmt) OwnTokens() []token.Token {
	out := make([]token.Token, 0, len(s.Header)+len(s.Inline))
	out = append(out, s.Header...)
	out = append(out, s.Inline...)
	var walk func(stmts []*Stmt)
	walk = func(stmts []*Stmt) {
		for _, child := range stmts {
			for _, d := range child.Decorators {
				out = append(out, d.At)
				out = append(out, d.Expr...)
			}
			out = append(out, child.Header...)
			if child.IsDef() {
				continue
			}
			out = append(out, child.Inline...)
			walk(child.Body)
		}
	}
	walk(s.Body)
	return out
}

// Module is a parsed file.
type Module struct {
	File *source.File
	Body []*Stmt
	// Trailing holds trivia after the last statement.
	Trailing []token.Trivia
}

// Docstring returns the module docstring statement, if any.
func (m *Module) Docstring() *Stmt {
	return docstring(m.Body)
}

// Walk visits statements depth-first in source order. Returning false from fn
// skips the children of that statement.
func Walk(stmts []*Stmt, fn func(*Stmt) bool) {
	for _, s := range stmts {
		if fn(s) {
			Walk(s.Body, fn)
		}
	}
}
