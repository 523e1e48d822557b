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

// assertText renders a helper call as an assert statement. kept receives
// the spans copied verbatim from the call.
func assertText(file *source.File, a catalog.Assertion, call *pyast.Call) (text string, kept []source.Span, err error) {
	sp := pyast.SpanOf(call.CalleeTokens).Cover(call.RParen.Span)
	var ops [][]token.Token
	var msg []token.Token
	for _, arg := range call.Args {
		switch {
		case arg.Positional():
			ops = append(ops, arg.Value)
		case arg.Keyword == "msg":
			msg = arg.Value
		default:
			return "", nil, failf(diag.MigUnsupportedAssert, sp, "%s: unsupported argument %q", call.Callee, textOf(file, arg.Tokens))
		}
	}
	if len(ops) == a.Arity+1 && msg == nil {
		msg, ops = ops[a.Arity], ops[:a.Arity]
	}
	if len(ops) != a.Arity {
		return "", nil, failf(diag.MigUnsupportedAssert, sp, "%s expects %d operands, got %d", call.Callee, a.Arity, len(ops))
	}
	for _, op := range ops {
		kept = append(kept, pyast.SpanOf(op))
	}

	var b strings.Builder
	b.WriteString("assert ")
	switch a.Form {
	case catalog.FormBinary:
		b.WriteString(operand(file, ops[0]) + " " + a.Op + " " + operand(file, ops[1]))
	case catalog.FormTruth:
		if a.Negate {
			b.WriteString("not " + operand(file, ops[0]))
		} else {
			b.WriteString(expression(file, ops[0]))
		}
	case catalog.FormUnaryOp:
		b.WriteString(operand(file, ops[0]) + " " + a.Op)
	case catalog.FormCall:
		if a.Negate {
			b.WriteString("not ")
		}
		b.WriteString(a.Op + "(" + textOf(file, ops[0]) + ", " + textOf(file, ops[1]) + ")")
	default:
		return "", nil, failf(diag.MigUnsupportedAssert, sp, "%s has no assert form", call.Callee)
	}
	if msg != nil {
		b.WriteString(", " + expression(file, msg))
		kept = append(kept, pyast.SpanOf(msg))
	}
	return b.String(), kept, nil
}

// replaceAssert rewrites the statement st holding call, keeping comments
// that sat between the arguments.
func replaceAssert(e *editor, st *pyast.Stmt, a catalog.Assertion, call *pyast.Call) error {
	text, kept, err := assertText(e.file, a, call)
	if err != nil {
		return err
	}
	comments := gapComments(e.file, st.Header, kept)
	e.replace(st.Span, commentBlock(comments, indentAt(e.file, st.Span.Start))+text)
	return nil
}

// replaceCallee swaps the callee of call for name, keeping the arguments.
func replaceCallee(e *editor, call *pyast.Call, name string) {
	e.replace(pyast.SpanOf(call.CalleeTokens), name)
	if strings.HasPrefix(name, "pytest.") {
		e.usesPytest()
	}
}

func rewriteAsserts(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.AssertMeta)
	file := frag.Module.File
	if len(meta.Other) > 0 {
		ref := meta.Other[0]
		return Replacement{}, failf(diag.MigUnsupportedAssert, ref.Span, "%s is used as a value at line %d", ref.Text, file.LineOf(ref.Span.Start))
	}
	e := newEditor(frag)
	for _, site := range meta.Sites {
		if site.Assertion.Form == catalog.FormRaises {
			if len(site.Call.Args) == 0 {
				return Replacement{}, failf(diag.MigUnsupportedAssert, site.Stmt.Span, "%s without exception type", site.Call.Callee)
			}
			replaceCallee(e, site.Call, "pytest.raises")
			continue
		}
		if err := replaceAssert(e, site.Stmt, site.Assertion, site.Call); err != nil {
			return Replacement{}, err
		}
	}
	return e.done(frag)
}
