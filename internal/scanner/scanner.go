// Package scanner finds legacy test constructs in parsed Python files and
// assigns each one a stable identity.
package scanner

import (
	"fmt"
	"iter"
	"path/filepath"

	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/lexer"
	"nosemig/internal/parser"
	"nosemig/internal/pyast"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

// Unit is a def or class the catalog is tested against.
type Unit struct {
	Stmt    *pyast.Stmt
	Scope   string
	Ordinal int
	// Class is the enclosing class of a method, nil at module level.
	Class *pyast.Stmt
}

// Module is a parsed file plus the context matchers and rewrites share.
type Module struct {
	Path    string
	File    *source.File
	AST     *pyast.Module
	Imports *Imports
	Units   []Unit
	// Defined maps module-level names to the offset of their first binding.
	Defined map[string]uint32
}

// Fragment is one matched unit. Owned by the scanner; read-only elsewhere.
type Fragment struct {
	ID      Identity
	Pattern catalog.Pattern
	Span    source.Span
	Unit    Unit
	Module  *Module
	Meta    Meta
}

// Fragments is a finite, restartable sequence: ranging twice over the same
// module yields identical fragments.
type Fragments = iter.Seq[Fragment]

// ParseError is returned for files that cannot be parsed. It is fatal for
// the file only.
type ParseError struct {
	Path string
	Line uint32
	Col  uint32
	Code diag.Code
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s (%s)", e.Path, e.Line, e.Col, e.Msg, e.Code.ID())
}

type Options struct {
	// Root is the directory identity paths are relative to.
	Root string
	// Patterns overrides the catalog (tests only); nil means catalog.Patterns().
	Patterns []catalog.Pattern
}

type Scanner struct {
	root     string
	patterns []catalog.Pattern
}

func New(opts Options) *Scanner {
	pats := opts.Patterns
	if pats == nil {
		pats = catalog.Patterns()
	}
	return &Scanner{root: opts.Root, patterns: pats}
}

// RelPath returns the identity path of file.
func (s *Scanner) RelPath(path string) string {
	if s.root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := source.RelativePath(path, s.root)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return rel
}

// Parse builds the module context for file or returns a *ParseError.
func (s *Scanner) Parse(file *source.File) (*Module, error) {
	rel := s.RelPath(file.Path)
	first := &diag.FirstError{}
	ast := parser.ParseFile(file, parser.Options{Reporter: first, MaxErrors: 1})
	if first.Diag != nil {
		lc := lineCol(file, first.Diag.Primary.Start)
		return nil, &ParseError{Path: rel, Line: lc.Line, Col: lc.Col, Code: first.Diag.Code, Msg: first.Diag.Message}
	}
	mod := &Module{
		Path:    rel,
		File:    file,
		AST:     ast,
		Imports: collectImports(ast),
		Defined: collectDefined(ast),
	}
	collectUnits(ast.Body, "", nil, map[string]int{}, &mod.Units)
	return mod, nil
}

// Scan parses file and returns its fragments.
func (s *Scanner) Scan(file *source.File) (Fragments, error) {
	mod, err := s.Parse(file)
	if err != nil {
		return nil, err
	}
	return s.Fragments(mod), nil
}

// Fragments yields every matched unit of mod in source order, then the
// file-phase fragment. Each unit is tested against the patterns in catalog
// order and the first match wins.
func (s *Scanner) Fragments(mod *Module) Fragments {
	return func(yield func(Fragment) bool) {
		for _, u := range mod.Units {
			mask := catalog.UnitFunc
			if u.Stmt.Kind == pyast.ClassDef {
				mask = catalog.UnitClass
			}
			for _, p := range s.patterns {
				if p.Phase != catalog.PhaseUnit || !p.Applies(mask) {
					continue
				}
				meta, ok := match(p.Kind, mod, u)
				if !ok {
					continue
				}
				frag := Fragment{
					ID: Identity{
						Path:    mod.Path,
						Scope:   u.Scope,
						Ordinal: u.Ordinal,
						Shape:   ShapeOf(u.Stmt.Tokens()),
					},
					Pattern: p,
					Span:    u.Stmt.Span,
					Unit:    u,
					Module:  mod,
					Meta:    meta,
				}
				if !yield(frag) {
					return
				}
				break
			}
		}
		for _, p := range s.patterns {
			if p.Phase != catalog.PhaseFile || !p.Applies(catalog.UnitImports) {
				continue
			}
			meta, ok := matchFile(p.Kind, mod)
			if !ok {
				continue
			}
			im := meta.(*ImportMeta)
			var toks []token.Token
			for _, st := range im.Stmts {
				toks = append(toks, st.Tokens()...)
			}
			frag := Fragment{
				ID:      Identity{Path: mod.Path, Scope: ImportsScope, Shape: ShapeOf(toks)},
				Pattern: p,
				Span:    pyast.SpanOf(toks),
				Module:  mod,
				Meta:    meta,
			}
			if !yield(frag) {
				return
			}
		}
	}
}

func collectUnits(body []*pyast.Stmt, prefix string, class *pyast.Stmt, counts map[string]int, out *[]Unit) {
	for _, s := range body {
		if !s.IsDef() || s.Name.Kind != token.Name {
			continue
		}
		scope := prefix + lexer.NormalizeName(s.Name.Text)
		ord := counts[scope]
		counts[scope]++
		*out = append(*out, Unit{Stmt: s, Scope: scope, Ordinal: ord, Class: class})
		if s.Kind == pyast.ClassDef {
			collectUnits(s.Body, scope+".", s, counts, out)
		}
	}
}

func collectDefined(mod *pyast.Module) map[string]uint32 {
	defined := make(map[string]uint32)
	bind := func(tok token.Token) {
		name := lexer.NormalizeName(tok.Text)
		if _, ok := defined[name]; !ok {
			defined[name] = tok.Span.Start
		}
	}
	for _, s := range mod.Body {
		switch s.Kind {
		case pyast.FuncDef, pyast.ClassDef:
			if s.Name.Kind == token.Name {
				bind(s.Name)
			}
		case pyast.Import:
			for _, part := range pyast.Split(s.Header[1:], token.Comma) {
				if len(part) >= 3 && part[len(part)-2].Kind == token.KwAs {
					bind(part[len(part)-1])
				} else if len(part) > 0 && part[0].Kind == token.Name {
					bind(part[0])
				}
			}
		case pyast.FromImport:
			for i, tok := range s.Header {
				if tok.Kind != token.KwImport {
					continue
				}
				names := s.Header[i+1:]
				if len(names) > 0 && names[0].Kind == token.LParen {
					names = names[1 : len(names)-1]
				}
				for _, part := range pyast.Split(names, token.Comma) {
					if len(part) > 0 {
						bind(part[len(part)-1])
					}
				}
				break
			}
		case pyast.Simple:
			for i, tok := range s.Header {
				if tok.Kind == token.Assign {
					for _, ref := range pyast.NameRefs(s.Header[:i]) {
						bind(ref)
					}
				}
			}
		}
	}
	return defined
}

func lineCol(file *source.File, off uint32) source.LineCol {
	line := file.LineOf(off)
	return source.LineCol{Line: line, Col: off - file.LineStart(off) + 1}
}
