package transform

import (
	"strings"

	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/pyast"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

// testCaseAPI lists TestCase attributes besides assert*/fail* that have no
// meaning on a plain class.
var testCaseAPI = map[string]bool{
	"skipTest":            true,
	"subTest":             true,
	"addCleanup":          true,
	"doCleanups":          true,
	"enterContext":        true,
	"maxDiff":             true,
	"longMessage":         true,
	"id":                  true,
	"shortDescription":    true,
	"run":                 true,
	"debug":               true,
	"countTestCases":      true,
	"defaultTestResult":   true,
	"addTypeEqualityFunc": true,
	"failureException":    true,
}

func isTestCaseAPI(name string) bool {
	return strings.HasPrefix(name, "assert") || strings.HasPrefix(name, "fail") || testCaseAPI[name]
}

var selfCalls = map[string]string{
	"fail":     "pytest.fail",
	"skipTest": "pytest.skip",
}

func rewriteTestCase(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.TestCaseMeta)
	cls := frag.Unit.Stmt
	file := frag.Module.File
	name := cls.Name.Text
	if !strings.HasPrefix(name, "Test") {
		return Replacement{}, failf(diag.MigNotCollected, frag.Span, "class %s does not start with Test and would not be collected", name)
	}
	members := classMembers(cls)
	if members["__init__"] {
		return Replacement{}, failf(diag.MigNotCollected, frag.Span, "class %s defines __init__ and would not be collected", name)
	}
	for _, tok := range cls.Tokens() {
		if tok.Kind == token.Name && tok.Text == "super" {
			return Replacement{}, failf(diag.MigUnsupportedSetup, tok.Span, "super() at line %d depends on the TestCase base", file.LineOf(tok.Span.Start))
		}
	}

	e := newEditor(frag)
	removeBase(e, cls, meta)

	var hooks []scanner.HookDef
	for _, s := range cls.Body {
		if s.Kind != pyast.FuncDef {
			continue
		}
		h, ok := catalog.TestCaseHook(s.Name.Text)
		if !ok {
			continue
		}
		if why := dynamicScope(s); why != "" {
			return Replacement{}, failf(diag.MigDynamicScope, s.Span, "%s uses %s; it would run as %s", s.Name.Text, why, h.Target)
		}
		hooks = append(hooks, scanner.HookDef{Stmt: s, Hook: h})
	}
	if err := renameClassHooks(e, cls, hooks); err != nil {
		return Replacement{}, err
	}

	var covered []source.Span
	var walkErr error
	pyast.Walk(cls.Body, func(s *pyast.Stmt) bool {
		if walkErr != nil {
			return false
		}
		switch {
		case s.Kind == pyast.Simple:
			call, ok := pyast.ParseCall(s.Header)
			if !ok {
				return true
			}
			method, ok := selfMethod(call, members)
			if !ok {
				return true
			}
			if target, ok := selfCalls[method]; ok {
				replaceCallee(e, call, target)
				covered = append(covered, pyast.SpanOf(call.CalleeTokens))
				return true
			}
			a, ok := catalog.TestCaseAssertion(method)
			if !ok {
				return true
			}
			if a.Form == catalog.FormRaises {
				if len(call.Args) == 0 {
					walkErr = failf(diag.MigUnsupportedAssert, s.Span, "assertRaises without exception type")
					return false
				}
				replaceCallee(e, call, "pytest.raises")
				covered = append(covered, pyast.SpanOf(call.CalleeTokens))
				return true
			}
			if err := replaceAssert(e, s, a, call); err != nil {
				walkErr = err
				return false
			}
			covered = append(covered, s.Span)
		case s.Kind == pyast.Compound && s.Keyword == "with" && !s.Async:
			items := pyast.Split(s.Header[1:len(s.Header)-1], token.Comma)
			if len(items) != 1 {
				return true
			}
			call, ok := pyast.ParseCall(items[0])
			if !ok {
				return true
			}
			if method, ok := selfMethod(call, members); ok && method == "assertRaises" && len(call.Args) > 0 {
				replaceCallee(e, call, "pytest.raises")
				covered = append(covered, pyast.SpanOf(call.CalleeTokens))
			}
		}
		return true
	})
	if walkErr != nil {
		return Replacement{}, walkErr
	}

	toks := cls.Tokens()
	for i := 0; i+2 < len(toks); i++ {
		if toks[i].Kind != token.Name || toks[i].Text != "self" || toks[i+1].Kind != token.Dot {
			continue
		}
		attr := toks[i+2]
		if attr.Kind != token.Name || members[attr.Text] || !isTestCaseAPI(attr.Text) || insideAny(toks[i].Span.Start, covered) {
			continue
		}
		return Replacement{}, failf(diag.MigUnsupportedAssert, attr.Span, "self.%s at line %d has no pytest equivalent", attr.Text, file.LineOf(attr.Span.Start))
	}
	r, err := e.done(frag)
	if err != nil {
		return r, err
	}
	if base, _ := pyast.DottedName(meta.Bases[meta.BaseIndex]); base != "" {
		head, _, _ := strings.Cut(base, ".")
		r.Releases = []string{head}
	}
	return r, nil
}

// selfMethod returns the method name of a "self.name(...)" call on a
// TestCase API the class does not define itself.
func selfMethod(call *pyast.Call, members map[string]bool) (string, bool) {
	recv, method, ok := strings.Cut(call.Callee, ".")
	if !ok || recv != "self" || strings.Contains(method, ".") || members[method] {
		return "", false
	}
	return method, true
}

// removeBase drops the TestCase base, and the parentheses when it was the
// only one.
func removeBase(e *editor, cls *pyast.Stmt, meta *scanner.TestCaseMeta) {
	bases, i := meta.Bases, meta.BaseIndex
	switch {
	case len(bases) == 1:
		e.delete(e.span(cls.LParen.Span.Start, cls.RParen.Span.End))
	case i < len(bases)-1:
		e.delete(e.span(bases[i][0].Span.Start, bases[i+1][0].Span.Start))
	default:
		prev := bases[i-1]
		e.delete(e.span(prev[len(prev)-1].Span.End, pyast.SpanOf(bases[i]).End))
	}
}
