package transform

import (
	"fmt"
	"strconv"
	"strings"

	"nosemig/internal/diag"
	"nosemig/internal/pyast"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

func rewriteGenerator(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.GeneratorMeta)
	if meta.Problem != nil {
		return Replacement{}, failf(meta.Problem.Code, frag.Span, "%s", meta.Problem.Reason)
	}
	fn := frag.Unit.Stmt
	file := frag.Module.File
	e := newEditor(frag)
	e.usesPytest()

	var (
		names      []string
		argvalues  string
		call       string
		region     []token.Token
		regionSpan = fn.Span
	)
	switch meta.Form {
	case scanner.GenLoop:
		for _, t := range meta.Targets {
			names = append(names, t[0].Text)
		}
		argvalues = textOf(file, meta.Iterable)
		sub := meta.Cases[0]
		call = renderCall(file, sub.Callable, sub.Args)
		region = meta.Loop.Tokens()
		regionSpan = meta.Loop.Span
	case scanner.GenSequence:
		var ok bool
		names, argvalues, ok = sequenceCases(file, meta, indentAt(file, fn.HeaderFirst().Span.Start))
		if !ok {
			return Replacement{}, failf(diag.MigCaseArityMismatch, frag.Span, "sub-cases take no arguments")
		}
		callee := meta.Cases[0].Callable
		args := make([]string, 0, len(names))
		for _, n := range names {
			if n != "func" {
				args = append(args, n)
			}
		}
		if scanner.SameCallable(meta.Cases) {
			call = calleeText(file, callee) + "(" + strings.Join(args, ", ") + ")"
		} else {
			call = "func(" + strings.Join(args, ", ") + ")"
		}
		first, last := meta.Cases[0].Stmt, meta.Cases[len(meta.Cases)-1].Stmt
		for _, c := range meta.Cases {
			region = append(region, c.Stmt.Tokens()...)
		}
		regionSpan = first.Span.Cover(last.Span)
	}

	if err := checkParamNames(frag, names, meta); err != nil {
		return Replacement{}, err
	}

	// decorator directly above the def line
	indent := indentAt(file, fn.HeaderFirst().Span.Start)
	deco := fmt.Sprintf("%s@pytest.mark.parametrize(%s, %s)\n", indent, strconv.Quote(strings.Join(names, ", ")), argvalues)
	e.insert(file.LineStart(fn.HeaderFirst().Span.Start), deco)

	// parameters after the receiver
	list := strings.Join(names, ", ")
	switch params := fn.Params; {
	case len(params) == 0:
		e.insert(fn.RParen.Span.Start, list)
	case params[len(params)-1].Kind == token.Comma:
		e.insert(params[len(params)-1].Span.End, " "+list)
	default:
		e.insert(params[len(params)-1].Span.End, ", "+list)
	}

	// body: the yields become one call; comments in between are kept
	bodyIndent := indentAt(file, regionSpan.Start)
	comments := gapComments(file, region, nil)
	e.replace(regionSpan, commentBlock(comments, bodyIndent)+call)
	return e.done(frag)
}

// sequenceCases names the parameters and renders the argvalues list for a
// run of literal yields, one case per line.
func sequenceCases(file *source.File, meta *scanner.GeneratorMeta, indent string) ([]string, string, bool) {
	sameCallable := scanner.SameCallable(meta.Cases)
	arity := len(meta.Cases[0].Args)
	var names []string
	if !sameCallable {
		names = append(names, "func")
	}
	for i := range arity {
		names = append(names, fmt.Sprintf("arg%d", i))
	}
	if len(names) == 0 {
		return nil, "", false
	}
	var b strings.Builder
	b.WriteString("[\n")
	for _, c := range meta.Cases {
		var items []string
		if !sameCallable {
			items = append(items, textOf(file, c.Callable))
		}
		for _, a := range c.Args {
			items = append(items, textOf(file, a))
		}
		b.WriteString(indent + defaultStep)
		if len(items) == 1 {
			b.WriteString(items[0])
		} else {
			b.WriteString("(" + strings.Join(items, ", ") + ")")
		}
		b.WriteString(",\n")
	}
	b.WriteString(indent + "]")
	return names, b.String(), true
}

func renderCall(file *source.File, callable []token.Token, args [][]token.Token) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, textOf(file, a))
	}
	return calleeText(file, callable) + "(" + strings.Join(parts, ", ") + ")"
}

func calleeText(file *source.File, callable []token.Token) string {
	return operand(file, callable)
}

// checkParamNames rejects parameter names that would collide with existing
// parameters or shadow names the yielded callable refers to.
func checkParamNames(frag scanner.Fragment, names []string, meta *scanner.GeneratorMeta) error {
	taken := make(map[string]bool)
	for _, p := range pyast.Split(frag.Unit.Stmt.Params, token.Comma) {
		for _, ref := range pyast.NameRefs(p) {
			taken[ref.Text] = true
			break
		}
	}
	for _, n := range names {
		if taken[n] {
			return failf(diag.MigNameCollision, frag.Span, "parameter %q already exists", n)
		}
	}
	if meta.Form == scanner.GenSequence {
		for _, c := range meta.Cases {
			for _, ref := range pyast.NameRefs(c.Callable) {
				for _, n := range names {
					if ref.Text == n {
						return failf(diag.MigNameCollision, frag.Span, "generated parameter %q shadows %q used by the callable", n, ref.Text)
					}
				}
			}
		}
	}
	return nil
}
