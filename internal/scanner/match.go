package scanner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/pyast"
	"nosemig/internal/token"
)

// testName is nose's default testMatch.
var testName = regexp.MustCompile(`(?:^|[_./-])[Tt]est`)

// IsTestName reports whether nose would collect a function or class named name.
func IsTestName(name string) bool {
	return testName.MatchString(name)
}

type unitMatcher func(m *Module, u Unit) (Meta, bool)

var unitMatchers = map[catalog.Kind]unitMatcher{
	catalog.GeneratorTest:          matchGenerator,
	catalog.RaisesDecorator:        decoratorMatcher("raises"),
	catalog.WithSetupDecorator:     decoratorMatcher("with_setup"),
	catalog.TestCaseClass:          matchTestCase,
	catalog.ClassSetupTeardownPair: classHookMatcher(true),
	catalog.ClassSetupHook:         classHookMatcher(false),
	catalog.ModuleSetupHook:        matchModuleHook,
	catalog.NoseAssertCalls:        matchAsserts,
}

func match(k catalog.Kind, m *Module, u Unit) (Meta, bool) {
	fn, ok := unitMatchers[k]
	if !ok {
		return nil, false
	}
	return fn(m, u)
}

func matchFile(k catalog.Kind, m *Module) (Meta, bool) {
	if k != catalog.NoseImport || len(m.Imports.Nose) == 0 {
		return nil, false
	}
	return &ImportMeta{Stmts: m.Imports.Nose, Bindings: m.Imports.NoseBindings()}, true
}

func problem(code diag.Code, format string, args ...any) *Problem {
	return &Problem{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// generator tests

func matchGenerator(m *Module, u Unit) (Meta, bool) {
	fn := u.Stmt
	if fn.Kind != pyast.FuncDef || !IsTestName(fn.Name.Text) || isFixture(m, fn) || !hasYield(fn) {
		return nil, false
	}
	meta := &GeneratorMeta{}
	meta.Problem = generatorShape(m, u, meta)
	return meta, true
}

func isFixture(m *Module, fn *pyast.Stmt) bool {
	for _, d := range fn.Decorators {
		name, _ := pyast.DottedName(d.Expr)
		if name == "pytest.fixture" || m.Imports.Resolve(name) == "pytest.fixture" {
			return true
		}
	}
	return false
}

func hasYield(fn *pyast.Stmt) bool {
	for _, tok := range fn.OwnTokens() {
		if tok.Kind == token.KwYield {
			return true
		}
	}
	return false
}

func generatorShape(m *Module, u Unit, meta *GeneratorMeta) *Problem {
	fn := u.Stmt
	if fn.Async {
		return problem(diag.MigAsyncUnsupported, "async generator tests are not collected as sub-case generators")
	}
	if len(fn.Inline) > 0 {
		return problem(diag.MigNonLiteralCases, "one-line generator bodies are not supported")
	}
	if len(ExtraParams(u)) > 0 {
		return problem(diag.MigCaseArityMismatch, "generator test already declares parameters")
	}
	stmts := fn.Statements()
	if len(stmts) == 1 && stmts[0].Kind == pyast.Compound && stmts[0].Keyword == "for" {
		return loopShape(m, stmts[0], meta)
	}
	for _, st := range stmts {
		if st.Kind != pyast.Simple || st.Keyword != "yield" {
			return problem(diag.MigNonLiteralCases, "sub-cases are produced by control flow that cannot be enumerated statically (line %d)",
				m.File.LineOf(st.Span.Start))
		}
	}
	return sequenceShape(m, fn, stmts, meta)
}

// ExtraParams returns the parameters of a unit beyond the receiver of a method.
func ExtraParams(u Unit) [][]token.Token {
	params := pyast.Split(u.Stmt.Params, token.Comma)
	if u.Class != nil && len(params) > 0 && !isStaticMethod(u.Stmt) {
		params = params[1:]
	}
	return params
}

func isStaticMethod(fn *pyast.Stmt) bool {
	for _, d := range fn.Decorators {
		if len(d.Expr) == 1 && d.Expr[0].Text == "staticmethod" {
			return true
		}
	}
	return false
}

func loopShape(m *Module, loop *pyast.Stmt, meta *GeneratorMeta) *Problem {
	if loop.Async {
		return problem(diag.MigAsyncUnsupported, "'async for' cannot be parametrized")
	}
	h := loop.Header[1 : len(loop.Header)-1]
	in := topLevelIndex(h, token.KwIn)
	if in < 0 {
		return problem(diag.MigNonLiteralCases, "malformed for-loop header")
	}
	targetToks, iterable := pyast.Unparen(h[:in]), h[in+1:]
	targets, ok := pyast.Elements(targetToks)
	if !ok {
		targets = [][]token.Token{targetToks}
	}
	for _, t := range targets {
		if len(t) != 1 || t[0].Kind != token.Name {
			return problem(diag.MigNonLiteralCases, "loop target %q is not a plain name", joinTokens(t))
		}
	}
	meta.Form, meta.Loop, meta.Targets, meta.Iterable = GenLoop, loop, targets, iterable

	if p := literalIterable(m, iterable, len(targets)); p != nil {
		return p
	}

	var body *pyast.Stmt
	switch {
	case len(loop.Inline) > 0:
		if pyast.HasTopLevel(loop.Inline, token.Semicolon) || loop.Inline[0].Kind != token.KwYield {
			return problem(diag.MigNonLiteralCases, "loop body must be a single yield")
		}
		body = &pyast.Stmt{Kind: pyast.Simple, Keyword: "yield", Header: loop.Inline, Span: pyast.SpanOf(loop.Inline)}
	case len(loop.Body) == 1 && loop.Body[0].Kind == pyast.Simple && loop.Body[0].Keyword == "yield":
		body = loop.Body[0]
	default:
		return problem(diag.MigNonLiteralCases, "loop body must be a single yield")
	}
	sub, p := parseYield(body)
	if p != nil {
		return p
	}
	for _, ref := range pyast.NameRefs(sub.Callable) {
		for _, t := range targets {
			if ref.Text == t[0].Text {
				return problem(diag.MigMixedYieldShapes, "yielded callable depends on loop variable %q", ref.Text)
			}
		}
	}
	meta.Cases = []SubCase{sub}
	return nil
}

// literalIterable accepts tuple/list displays of literals and range() over
// integer literals.
func literalIterable(m *Module, iterable []token.Token, arity int) *Problem {
	if call, ok := pyast.ParseCall(iterable); ok && call.Callee == "range" {
		if _, shadowed := m.Defined["range"]; shadowed {
			return problem(diag.MigNonLiteralCases, "range is rebound at module level")
		}
		if arity != 1 {
			return problem(diag.MigCaseArityMismatch, "range() yields single values but the loop unpacks %d targets", arity)
		}
		n, ok := rangeLen(call)
		if !ok {
			return problem(diag.MigNonLiteralCases, "range() arguments are not integer literals")
		}
		if n == 0 {
			return problem(diag.MigNonLiteralCases, "generator yields no sub-cases")
		}
		return nil
	}
	elems, ok := pyast.Elements(iterable)
	if !ok || !pyast.IsLiteral(iterable) {
		return problem(diag.MigNonLiteralCases, "loop iterates over %q, which is not a literal sequence", joinTokens(iterable))
	}
	if len(elems) == 0 {
		return problem(diag.MigNonLiteralCases, "generator yields no sub-cases")
	}
	if arity == 1 {
		return nil
	}
	for _, el := range elems {
		items, ok := pyast.Elements(el)
		if !ok || len(items) != arity {
			return problem(diag.MigCaseArityMismatch, "element %q does not unpack into %d targets", joinTokens(el), arity)
		}
	}
	return nil
}

func rangeLen(call *pyast.Call) (int64, bool) {
	if len(call.Args) == 0 || len(call.Args) > 3 {
		return 0, false
	}
	vals := make([]int64, len(call.Args))
	for i, a := range call.Args {
		if !a.Positional() {
			return 0, false
		}
		v, err := strconv.ParseInt(strings.ReplaceAll(joinTokens(a.Value), "_", ""), 0, 64)
		if err != nil {
			return 0, false
		}
		vals[i] = v
	}
	start, stop, step := int64(0), vals[0], int64(1)
	if len(vals) >= 2 {
		start, stop = vals[0], vals[1]
	}
	if len(vals) == 3 {
		step = vals[2]
	}
	switch {
	case step == 0:
		return 0, false
	case step > 0 && stop > start:
		return (stop - start + step - 1) / step, true
	case step < 0 && stop < start:
		return (start - stop - step - 1) / -step, true
	}
	return 0, true
}

func sequenceShape(m *Module, fn *pyast.Stmt, stmts []*pyast.Stmt, meta *GeneratorMeta) *Problem {
	meta.Form = GenSequence
	if len(stmts) == 0 {
		return problem(diag.MigNonLiteralCases, "generator yields no sub-cases")
	}
	for _, st := range stmts {
		sub, p := parseYield(st)
		if p != nil {
			return p
		}
		for _, a := range sub.Args {
			if !pyast.IsLiteral(a) {
				return problem(diag.MigNonLiteralCases, "sub-case argument %q is not a literal (line %d)",
					joinTokens(a), m.File.LineOf(st.Span.Start))
			}
		}
		if len(meta.Cases) > 0 && len(sub.Args) != len(meta.Cases[0].Args) {
			return problem(diag.MigMixedYieldShapes, "sub-cases yield %d and %d arguments", len(meta.Cases[0].Args), len(sub.Args))
		}
		meta.Cases = append(meta.Cases, sub)
	}
	if !SameCallable(meta.Cases) {
		for _, c := range meta.Cases {
			name, n := pyast.DottedName(c.Callable)
			if n != len(c.Callable) || strings.Contains(name, ".") {
				return problem(diag.MigMixedYieldShapes, "yielded callable %q is not a plain name", joinTokens(c.Callable))
			}
			off, ok := m.Defined[name]
			if !ok || off >= fn.Span.Start {
				return problem(diag.MigMixedYieldShapes, "yielded callable %q is not defined at module level before the test", name)
			}
		}
	} else if len(meta.Cases[0].Args) == 0 {
		return problem(diag.MigCaseArityMismatch, "sub-cases pass no arguments to distinguish them")
	}
	return nil
}

// SameCallable reports whether every sub-case yields the same callable expression.
func SameCallable(cases []SubCase) bool {
	for _, c := range cases[1:] {
		if joinTokens(c.Callable) != joinTokens(cases[0].Callable) {
			return false
		}
	}
	return true
}

func parseYield(st *pyast.Stmt) (SubCase, *Problem) {
	rest := st.Header[1:]
	switch {
	case len(rest) == 0:
		return SubCase{}, problem(diag.MigNonLiteralCases, "bare yield has no sub-case")
	case rest[0].Kind == token.KwFrom:
		return SubCase{}, problem(diag.MigNonLiteralCases, "'yield from' delegates sub-cases to another generator")
	case rest[0].Kind == token.LBracket:
		return SubCase{}, problem(diag.MigMixedYieldShapes, "sub-case is yielded as a list, not a tuple")
	}
	elems, ok := pyast.Elements(rest)
	if !ok {
		elems = [][]token.Token{pyast.Unparen(rest)}
	}
	if len(elems) == 0 || len(elems[0]) == 0 || pyast.IsLiteral(elems[0]) {
		return SubCase{}, problem(diag.MigMixedYieldShapes, "yielded value %q does not start with a callable", joinTokens(rest))
	}
	return SubCase{Stmt: st, Callable: elems[0], Args: elems[1:]}, nil
}

// decorators

func decoratorMatcher(helper string) unitMatcher {
	return func(m *Module, u Unit) (Meta, bool) {
		for i, d := range u.Stmt.Decorators {
			name, n := pyast.DottedName(d.Expr)
			if n == 0 {
				continue
			}
			tool, ok := m.Imports.NoseTool(name)
			if !ok || tool != helper {
				continue
			}
			if n == len(d.Expr) {
				return &DecoratorMeta{Index: i}, true
			}
			if call, ok := pyast.ParseCall(d.Expr); ok {
				return &DecoratorMeta{Index: i, Call: call}, true
			}
		}
		return nil, false
	}
}

// classes

func matchTestCase(m *Module, u Unit) (Meta, bool) {
	bases := pyast.Split(u.Stmt.Params, token.Comma)
	for i, b := range bases {
		name, n := pyast.DottedName(b)
		if n > 0 && n == len(b) && m.Imports.IsTestCase(name) {
			return &TestCaseMeta{BaseIndex: i, Bases: bases}, true
		}
	}
	return nil, false
}

// ClassHooks returns the legacy hook methods defined directly in cls.
func ClassHooks(cls *pyast.Stmt) []HookDef {
	var out []HookDef
	for _, s := range cls.Body {
		if s.Kind != pyast.FuncDef {
			continue
		}
		if h, ok := catalog.ClassHook(s.Name.Text); ok {
			out = append(out, HookDef{Stmt: s, Hook: h})
		}
	}
	return out
}

func classHookMatcher(pair bool) unitMatcher {
	return func(m *Module, u Unit) (Meta, bool) {
		if !IsTestName(u.Stmt.Name.Text) {
			return nil, false
		}
		hooks := ClassHooks(u.Stmt)
		if len(hooks) == 0 {
			return nil, false
		}
		var setup, teardown bool
		for _, h := range hooks {
			if h.Hook.Side == catalog.SideSetup {
				setup = true
			} else {
				teardown = true
			}
		}
		if (setup && teardown) != pair {
			return nil, false
		}
		return &HooksMeta{Hooks: hooks}, true
	}
}

func matchModuleHook(m *Module, u Unit) (Meta, bool) {
	if u.Class != nil {
		return nil, false
	}
	h, ok := catalog.ModuleHook(u.Stmt.Name.Text)
	if !ok {
		return nil, false
	}
	return &HooksMeta{Hooks: []HookDef{{Stmt: u.Stmt, Hook: h}}}, true
}

// assertions

func matchAsserts(m *Module, u Unit) (Meta, bool) {
	if len(m.Imports.Bindings) == 0 {
		return nil, false
	}
	meta := &AssertMeta{}
	callees := make(map[uint32]bool)
	pyast.Walk(u.Stmt.Body, func(s *pyast.Stmt) bool {
		switch {
		case s.Kind == pyast.Simple:
			if site, ok := assertSite(m, s, s.Header); ok {
				meta.Sites = append(meta.Sites, site)
				callees[site.Call.CalleeTokens[0].Span.Start] = true
			}
		case s.Kind == pyast.Compound && s.Keyword == "with" && !s.Async:
			items := pyast.Split(s.Header[1:len(s.Header)-1], token.Comma)
			if len(items) != 1 {
				break
			}
			if site, ok := assertSite(m, s, items[0]); ok && site.Assertion.Form == catalog.FormRaises {
				site.With = true
				meta.Sites = append(meta.Sites, site)
				callees[site.Call.CalleeTokens[0].Span.Start] = true
			}
		}
		return true
	})
	meta.Other = helperRefs(m, u.Stmt.Tokens(), callees)
	if len(meta.Sites) == 0 && len(meta.Other) == 0 {
		return nil, false
	}
	return meta, true
}

func assertSite(m *Module, s *pyast.Stmt, toks []token.Token) (AssertSite, bool) {
	call, ok := pyast.ParseCall(toks)
	if !ok {
		return AssertSite{}, false
	}
	name, ok := m.Imports.NoseTool(call.Callee)
	if !ok {
		return AssertSite{}, false
	}
	a, ok := catalog.NoseAssertion(name)
	if !ok {
		return AssertSite{}, false
	}
	return AssertSite{Stmt: s, Call: call, Assertion: a}, true
}

// helperRefs returns references to nose assertion helpers whose first token
// is not in skip.
func helperRefs(m *Module, toks []token.Token, skip map[uint32]bool) []token.Token {
	refs := make(map[uint32]bool)
	for _, r := range pyast.NameRefs(toks) {
		refs[r.Span.Start] = true
	}
	var out []token.Token
	for i, tok := range toks {
		if !refs[tok.Span.Start] || skip[tok.Span.Start] {
			continue
		}
		name, n := pyast.DottedName(toks[i:])
		if n == 0 {
			continue
		}
		parts := strings.Split(name, ".")
		for k := 1; k <= len(parts); k++ {
			tool, ok := m.Imports.NoseTool(strings.Join(parts[:k], "."))
			if !ok {
				continue
			}
			if _, ok := catalog.NoseAssertion(tool); ok {
				out = append(out, tok)
				break
			}
		}
	}
	return out
}

func topLevelIndex(toks []token.Token, k token.Kind) int {
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.Kind.IsOpen():
			depth++
		case tok.Kind.IsClose():
			depth--
		case tok.Kind == k && depth == 0:
			return i
		}
	}
	return -1
}

// joinTokens renders toks with single spaces where the source had any.
func joinTokens(toks []token.Token) string {
	var b strings.Builder
	for i, tok := range toks {
		if i > 0 && tok.Span.Start > toks[i-1].Span.End {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}
