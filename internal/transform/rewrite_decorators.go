package transform

import (
	"fmt"
	"strconv"
	"strings"

	"nosemig/internal/diag"
	"nosemig/internal/pyast"
	"nosemig/internal/scanner"
)

// removeDecorator deletes decorator d. The line goes with it unless a
// comment follows, which is kept.
func removeDecorator(e *editor, d *pyast.Decorator) error {
	file := e.file
	sp := d.Span()
	if !spaceBefore(file, sp.Start) {
		return failf(diag.MigUnsupportedRaises, sp, "decorator shares its line with other code")
	}
	start := file.LineStart(sp.Start)
	tail := tailAfter(file, sp.End)
	if strings.TrimSpace(tail) == "" {
		e.delete(e.span(start, nextLine(file, sp.End)))
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(tail), "#") {
		return failf(diag.MigUnsupportedRaises, sp, "decorator shares its line with other code")
	}
	e.delete(e.span(sp.Start, sp.End+uint32(len(tail)-len(strings.TrimLeft(tail, " \t")))))
	return nil
}

func rewriteRaises(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.DecoratorMeta)
	fn := frag.Unit.Stmt
	file := frag.Module.File
	deco := fn.Decorators[meta.Index]
	if meta.Call == nil || len(meta.Call.Args) == 0 {
		return Replacement{}, failf(diag.MigUnsupportedRaises, deco.Span(), "@raises without exception types")
	}
	excs := make([]string, 0, len(meta.Call.Args))
	for _, a := range meta.Call.Args {
		if !a.Positional() {
			return Replacement{}, failf(diag.MigUnsupportedRaises, deco.Span(), "@raises argument %q is not a plain exception", textOf(file, a.Tokens))
		}
		excs = append(excs, expression(file, a.Value))
	}
	if len(fn.Inline) > 0 {
		return Replacement{}, failf(diag.MigUnsupportedRaises, frag.Span, "one-line function body cannot be wrapped")
	}
	start, end, ok := blockRange(file, fn, true)
	if !ok {
		return Replacement{}, failf(diag.MigUnsupportedRaises, frag.Span, "function has no statements to wrap")
	}

	e := newEditor(frag)
	e.usesPytest()
	if err := removeDecorator(e, deco); err != nil {
		return Replacement{}, err
	}
	bodyIndent := indentAt(file, fn.Statements()[0].Span.Start)
	add := step(indentAt(file, fn.HeaderFirst().Span.Start), bodyIndent)
	arg := excs[0]
	if len(excs) > 1 {
		arg = "(" + strings.Join(excs, ", ") + ")"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%swith pytest.raises(%s):\n", bodyIndent, arg)
	b.WriteString(indentLines(file, start, end, add, multilineStrings(fn.Tokens())))
	e.replace(e.span(start, end), b.String())
	return e.done(frag)
}

// setupCallee renders a with_setup argument; only plain and dotted names
// are accepted.
func setupCallee(a pyast.Arg) (string, bool) {
	name, n := pyast.DottedName(a.Value)
	if n == 0 || n != len(a.Value) {
		return "", false
	}
	return name, true
}

func rewriteWithSetup(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.DecoratorMeta)
	fn := frag.Unit.Stmt
	mod := frag.Module
	file := mod.File
	deco := fn.Decorators[meta.Index]
	if frag.Unit.Class != nil {
		return Replacement{}, failf(diag.MigUnsupportedSetup, deco.Span(), "@with_setup on a method")
	}
	if meta.Call == nil || len(meta.Call.Args) == 0 {
		return Replacement{}, failf(diag.MigUnsupportedSetup, deco.Span(), "@with_setup without setup or teardown")
	}

	var setup, teardown string
	for i, a := range meta.Call.Args {
		name, ok := setupCallee(a)
		if !ok || a.Star != "" {
			return Replacement{}, failf(diag.MigUnsupportedSetup, deco.Span(), "with_setup argument %q is not a function name", textOf(file, a.Tokens))
		}
		switch {
		case a.Keyword == "setup" || (a.Keyword == "" && i == 0):
			setup = name
		case a.Keyword == "teardown" || (a.Keyword == "" && i == 1):
			teardown = name
		default:
			return Replacement{}, failf(diag.MigUnsupportedSetup, deco.Span(), "unsupported with_setup argument %q", textOf(file, a.Tokens))
		}
	}
	for _, name := range []string{setup, teardown} {
		if name == "" {
			continue
		}
		if def := moduleDef(mod, name); def != nil {
			if why := dynamicScope(def); why != "" {
				return Replacement{}, failf(diag.MigDynamicScope, def.Span, "%s uses %s; running it from a fixture changes its scope", name, why)
			}
		}
	}

	fixture := "_with_setup_" + fn.Name.Text
	if _, taken := mod.Defined[fixture]; taken {
		return Replacement{}, failf(diag.MigNameCollision, frag.Span, "name %q is already defined", fixture)
	}

	e := newEditor(frag)
	e.usesPytest()
	var b strings.Builder
	b.WriteString("@pytest.fixture\n")
	fmt.Fprintf(&b, "def %s():\n", fixture)
	if setup != "" {
		fmt.Fprintf(&b, "%s%s()\n", defaultStep, setup)
	}
	fmt.Fprintf(&b, "%syield\n", defaultStep)
	if teardown != "" {
		fmt.Fprintf(&b, "%s%s()\n", defaultStep, teardown)
	}
	b.WriteString("\n\n")
	e.insert(file.LineStart(fn.First().Span.Start), b.String())
	e.replace(deco.Span(), "@pytest.mark.usefixtures("+strconv.Quote(fixture)+")")
	return e.done(frag)
}

// moduleDef returns the last module-level def named name.
func moduleDef(mod *scanner.Module, name string) *pyast.Stmt {
	var found *pyast.Stmt
	for _, s := range mod.AST.Body {
		if s.Kind == pyast.FuncDef && s.Name.Text == name {
			found = s
		}
	}
	return found
}
