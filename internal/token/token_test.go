package token_test

import (
	"testing"

	"nosemig/internal/source"
	"nosemig/internal/token"
)

func TestLookupKeyword(t *testing.T) {
	cases := map[string]token.Kind{
		"def":   token.KwDef,
		"yield": token.KwYield,
		"None":  token.KwNone,
		"with":  token.KwWith,
		"async": token.KwAsync,
	}
	for lexeme, want := range cases {
		got, ok := token.LookupKeyword(lexeme)
		if !ok || got != want {
			t.Fatalf("LookupKeyword(%q) = %v, %v; want %v", lexeme, got, ok, want)
		}
	}
	for _, soft := range []string{"match", "case", "type", "print", "none"} {
		if _, ok := token.LookupKeyword(soft); ok {
			t.Errorf("%q must not be a hard keyword", soft)
		}
	}
}

func TestKindPredicates(t *testing.T) {
	if !token.KwYield.IsKeyword() || token.Name.IsKeyword() {
		t.Fatalf("IsKeyword mismatch")
	}
	if token.LBracket.Closer() != token.RBracket || token.Comma.Closer() != token.Invalid {
		t.Fatalf("Closer mismatch")
	}
	if token.KwDef.String() != "def" || token.LParen.String() != "(" {
		t.Fatalf("String mismatch")
	}
}

func TestTokenComments(t *testing.T) {
	tok := token.Token{
		Kind: token.KwDef,
		Span: source.Span{Start: 20, End: 23},
		Text: "def",
		Leading: []token.Trivia{
			{Kind: token.TriviaComment, Text: "# legacy"},
			{Kind: token.TriviaNewline, Text: "\n"},
			{Kind: token.TriviaSpace, Text: "    "},
		},
	}
	if c := tok.Comments(); len(c) != 1 || c[0].Text != "# legacy" {
		t.Fatalf("Comments() = %+v", c)
	}
	lit := token.Token{Kind: token.String, Text: `"x"`}
	if !lit.IsLiteral() {
		t.Fatalf("string must be literal")
	}
}
