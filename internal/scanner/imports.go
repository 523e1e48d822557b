package scanner

import (
	"cmp"
	"slices"
	"strings"

	"nosemig/internal/lexer"
	"nosemig/internal/pyast"
	"nosemig/internal/token"
)

// Binding is one name bound by a module-level import of nose, unittest or pytest.
type Binding struct {
	Local  string
	Target string // canonical dotted name of the bound object
	Stmt   *pyast.Stmt
}

// Imports indexes the module-level imports the matchers care about.
type Imports struct {
	Bindings map[string]Binding
	// Nose lists the module-level statements importing nose or its submodules.
	Nose []*pyast.Stmt
	// Pytest is set when the name "pytest" is bound to the module.
	Pytest bool
}

var trackedRoots = []string{"nose", "unittest", "pytest"}

func collectImports(mod *pyast.Module) *Imports {
	im := &Imports{Bindings: make(map[string]Binding)}
	for _, s := range mod.Body {
		switch s.Kind {
		case pyast.Import:
			im.addImport(s)
		case pyast.FromImport:
			im.addFromImport(s)
		}
	}
	return im
}

// import a.b.c [as x], d
func (im *Imports) addImport(s *pyast.Stmt) {
	nose := false
	for _, part := range pyast.Split(s.Header[1:], token.Comma) {
		name, n := pyast.DottedName(part)
		if n == 0 || !tracked(name) {
			continue
		}
		if root(name) == "nose" {
			nose = true
		}
		if n+1 < len(part) && part[n].Kind == token.KwAs {
			local := lexer.NormalizeName(part[n+1].Text)
			im.Bindings[local] = Binding{Local: local, Target: name, Stmt: s}
			continue
		}
		r := root(name)
		if r == "pytest" {
			im.Pytest = true
		}
		im.Bindings[r] = Binding{Local: r, Target: r, Stmt: s}
	}
	if nose {
		im.Nose = append(im.Nose, s)
	}
}

// from a.b import c [as d], (e, f)
func (im *Imports) addFromImport(s *pyast.Stmt) {
	h := s.Header
	if len(h) < 2 || h[1].Kind == token.Dot {
		return
	}
	mod, n := pyast.DottedName(h[1:])
	if n == 0 || !tracked(mod) {
		return
	}
	if root(mod) == "nose" {
		im.Nose = append(im.Nose, s)
	}
	i := 1 + n
	if i >= len(h) || h[i].Kind != token.KwImport {
		return
	}
	names := pyast.Unparen(h[i+1:])
	if len(names) > 0 && names[0].Kind == token.LParen {
		names = names[1 : len(names)-1]
	}
	for _, part := range pyast.Split(names, token.Comma) {
		if len(part) == 0 || part[0].Kind != token.Name {
			continue
		}
		local := lexer.NormalizeName(part[0].Text)
		if len(part) == 3 && part[1].Kind == token.KwAs {
			local = lexer.NormalizeName(part[2].Text)
		}
		im.Bindings[local] = Binding{Local: local, Target: mod + "." + part[0].Text, Stmt: s}
	}
}

// Resolve maps a dotted name used in the module to the canonical name of a
// tracked import, or "" when the first segment is not bound by one.
func (im *Imports) Resolve(dotted string) string {
	head, rest, _ := strings.Cut(dotted, ".")
	b, ok := im.Bindings[lexer.NormalizeName(head)]
	if !ok {
		return ""
	}
	if rest == "" {
		return b.Target
	}
	return b.Target + "." + rest
}

// NoseTool returns the helper name when dotted resolves into nose.tools.
func (im *Imports) NoseTool(dotted string) (string, bool) {
	canon := im.Resolve(dotted)
	if !strings.HasPrefix(canon, "nose.tools.") {
		return "", false
	}
	return canon[strings.LastIndexByte(canon, '.')+1:], true
}

// IsTestCase reports whether dotted resolves to unittest.TestCase.
func (im *Imports) IsTestCase(dotted string) bool {
	switch im.Resolve(dotted) {
	case "unittest.TestCase", "unittest.case.TestCase":
		return true
	}
	return false
}

// NoseBindings returns the bindings introduced by nose import statements.
func (im *Imports) NoseBindings() []Binding {
	var out []Binding
	for _, b := range im.Bindings {
		if root(b.Target) == "nose" {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b Binding) int { return cmp.Compare(a.Local, b.Local) })
	return out
}

func tracked(name string) bool {
	r := root(name)
	for _, t := range trackedRoots {
		if r == t {
			return true
		}
	}
	return false
}

func root(name string) string {
	head, _, _ := strings.Cut(name, ".")
	return head
}
