package pyast_test

import (
	"testing"

	"nosemig/internal/lexer"
	"nosemig/internal/pyast"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

// exprTokens lexes src and returns the tokens of its first logical line.
func exprTokens(t *testing.T, src string) []token.Token {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("expr.py", []byte(src))
	var out []token.Token
	for _, tok := range lexer.Tokenize(fs.Get(id), lexer.Options{}) {
		if tok.Kind == token.Newline || tok.Kind == token.EOF {
			break
		}
		out = append(out, tok)
	}
	return out
}

func TestIsLiteral(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"1", true},
		{"-1.5", true},
		{"'a' 'b'", true},
		{"(1, 'x', None)", true},
		{"[(0, 0), (2, 4)]", true},
		{"{'a': [1, 2], 'b': ()}", true},
		{"1, 2", true},
		{"...", true},
		{"x", false},
		{"f(1)", false},
		{"[i for i in y]", false},
		{"f'{x}'", false},
		{"(1, x)", false},
		{"a[1:2]", false},
	}
	for _, tt := range tests {
		if got := pyast.IsLiteral(exprTokens(t, tt.src)); got != tt.want {
			t.Errorf("IsLiteral(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestIsAtom(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"x", true},
		{"self.x.y", true},
		{"f(a, b)[0].z", true},
		{"(a + b)", true},
		{"[1, 2]", true},
		{"'a' 'b'", true},
		{"a + b", false},
		{"not x", false},
		{"-1", false},
		{"a if b else c", false},
		{"lambda: 1", false},
	}
	for _, tt := range tests {
		if got := pyast.IsAtom(exprTokens(t, tt.src)); got != tt.want {
			t.Errorf("IsAtom(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestParseCall(t *testing.T) {
	call, ok := pyast.ParseCall(exprTokens(t, "nose.tools.eq_(a(1, 2), [b], msg='m', *rest, **kw)"))
	if !ok {
		t.Fatal("ParseCall failed")
	}
	if call.Callee != "nose.tools.eq_" || len(call.Args) != 5 {
		t.Fatalf("call = %q with %d args", call.Callee, len(call.Args))
	}
	if !call.Args[0].Positional() || call.Args[2].Keyword != "msg" || call.Args[3].Star != "*" || call.Args[4].Star != "**" {
		t.Fatalf("unexpected args: %+v", call.Args)
	}
	if _, ok := call.Keyword("msg"); !ok {
		t.Fatal("Keyword(msg) not found")
	}
	if _, ok := pyast.ParseCall(exprTokens(t, "f(1) + 2")); ok {
		t.Fatal("ParseCall must reject trailing tokens")
	}
	if _, ok := pyast.ParseCall(exprTokens(t, "f(1)(2)")); ok {
		t.Fatal("ParseCall must reject chained calls")
	}
}

func TestElementsAndUnparen(t *testing.T) {
	elems, ok := pyast.Elements(exprTokens(t, "[(0, 0), (2, 4),]"))
	if !ok || len(elems) != 2 {
		t.Fatalf("Elements(list) = %d, %v", len(elems), ok)
	}
	inner, ok := pyast.Elements(elems[1])
	if !ok || len(inner) != 2 || inner[0][0].Text != "2" {
		t.Fatalf("Elements(tuple) = %v, %v", inner, ok)
	}
	if _, ok := pyast.Elements(exprTokens(t, "(x)")); ok {
		t.Fatal("parenthesized expression is not a tuple")
	}
	if elems, ok := pyast.Elements(exprTokens(t, "()")); !ok || len(elems) != 0 {
		t.Fatal("empty tuple must have zero elements")
	}
	if got := pyast.Unparen(exprTokens(t, "((x))")); len(got) != 1 || got[0].Text != "x" {
		t.Fatalf("Unparen = %v", got)
	}
	if got := pyast.Unparen(exprTokens(t, "(x, y)")); len(got) != 5 {
		t.Fatalf("Unparen must keep tuple parens, got %d tokens", len(got))
	}
}

func TestNameRefsSkipsAttributesAndKeywords(t *testing.T) {
	refs := pyast.NameRefs(exprTokens(t, "eq_(nt.ok_, msg=value)"))
	var names []string
	for _, r := range refs {
		names = append(names, r.Text)
	}
	want := []string{"eq_", "nt", "value"}
	if len(names) != len(want) {
		t.Fatalf("NameRefs = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("NameRefs = %v, want %v", names, want)
		}
	}
}
