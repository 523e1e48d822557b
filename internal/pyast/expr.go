package pyast

import (
	"strings"

	"nosemig/internal/source"
	"nosemig/internal/token"
)

// MatchClose returns the index of the bracket closing toks[open], or -1.
func MatchClose(toks []token.Token, open int) int {
	if open < 0 || open >= len(toks) || !toks[open].Kind.IsOpen() {
		return -1
	}
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].Kind.IsOpen():
			depth++
		case toks[i].Kind.IsClose():
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Split splits toks at separators of kind sep that are not nested in brackets.
// A trailing separator does not produce an empty part.
func Split(toks []token.Token, sep token.Kind) [][]token.Token {
	if len(toks) == 0 {
		return nil
	}
	var parts [][]token.Token
	depth, start := 0, 0
	for i, tok := range toks {
		switch {
		case tok.Kind.IsOpen():
			depth++
		case tok.Kind.IsClose():
			depth--
		case tok.Kind == sep && depth == 0:
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	if start < len(toks) {
		parts = append(parts, toks[start:])
	}
	return parts
}

// HasTopLevel reports whether toks contains a token of kind k outside brackets.
func HasTopLevel(toks []token.Token, k token.Kind) bool {
	depth := 0
	for _, tok := range toks {
		switch {
		case tok.Kind.IsOpen():
			depth++
		case tok.Kind.IsClose():
			depth--
		case tok.Kind == k && depth == 0:
			return true
		}
	}
	return false
}

// DottedName reads Name(.Name)* from the start of toks and returns the joined
// name and the number of tokens consumed.
func DottedName(toks []token.Token) (string, int) {
	if len(toks) == 0 || toks[0].Kind != token.Name {
		return "", 0
	}
	var b strings.Builder
	b.WriteString(toks[0].Text)
	n := 1
	for n+1 < len(toks) && toks[n].Kind == token.Dot && toks[n+1].Kind == token.Name {
		b.WriteByte('.')
		b.WriteString(toks[n+1].Text)
		n += 2
	}
	return b.String(), n
}

// Arg is one call argument.
type Arg struct {
	Keyword string
	Star    string // "", "*" or "**"
	Value   []token.Token
	Tokens  []token.Token
}

// Positional reports whether the argument is a plain positional one.
func (a Arg) Positional() bool {
	return a.Keyword == "" && a.Star == ""
}

// Call is a call expression whose callee is a dotted name.
type Call struct {
	Callee       string
	CalleeTokens []token.Token
	LParen       token.Token
	RParen       token.Token
	Args         []Arg
}

// ParseCall reads toks as exactly one call "dotted.name(args)".
func ParseCall(toks []token.Token) (*Call, bool) {
	name, n := DottedName(toks)
	if n == 0 || n >= len(toks) || toks[n].Kind != token.LParen {
		return nil, false
	}
	closeIdx := MatchClose(toks, n)
	if closeIdx != len(toks)-1 {
		return nil, false
	}
	call := &Call{
		Callee:       name,
		CalleeTokens: toks[:n],
		LParen:       toks[n],
		RParen:       toks[closeIdx],
	}
	for _, part := range Split(toks[n+1:closeIdx], token.Comma) {
		if len(part) == 0 {
			return nil, false
		}
		arg := Arg{Tokens: part, Value: part}
		switch {
		case part[0].Kind == token.Star:
			arg.Star, arg.Value = "*", part[1:]
		case part[0].Kind == token.DoubleStar:
			arg.Star, arg.Value = "**", part[1:]
		case len(part) > 2 && part[0].Kind == token.Name && part[1].Kind == token.Assign:
			arg.Keyword, arg.Value = part[0].Text, part[2:]
		}
		if len(arg.Value) == 0 {
			return nil, false
		}
		call.Args = append(call.Args, arg)
	}
	return call, true
}

// Keyword returns the keyword argument named kw.
func (c *Call) Keyword(kw string) (Arg, bool) {
	for _, a := range c.Args {
		if a.Keyword == kw {
			return a, true
		}
	}
	return Arg{}, false
}

// SpanOf covers toks. It returns an empty span for an empty slice.
func SpanOf(toks []token.Token) source.Span {
	if len(toks) == 0 {
		return source.Span{}
	}
	return toks[0].Span.Cover(toks[len(toks)-1].Span)
}

// Unparen strips redundant outer parentheses: "((x))" -> "x". Tuples keep theirs.
func Unparen(toks []token.Token) []token.Token {
	for len(toks) >= 2 && toks[0].Kind == token.LParen && MatchClose(toks, 0) == len(toks)-1 {
		inner := toks[1 : len(toks)-1]
		if len(inner) == 0 || HasTopLevel(inner, token.Comma) {
			return toks
		}
		toks = inner
	}
	return toks
}

// Elements returns the items of a tuple or list display. Bare top-level
// commas ("a, b") form a tuple as well. ok is false for anything else,
// including a parenthesized single expression.
func Elements(toks []token.Token) (elems [][]token.Token, ok bool) {
	if len(toks) == 0 {
		return nil, false
	}
	if HasTopLevel(toks, token.Comma) {
		return Split(toks, token.Comma), true
	}
	if (toks[0].Kind == token.LParen || toks[0].Kind == token.LBracket) && MatchClose(toks, 0) == len(toks)-1 {
		inner := toks[1 : len(toks)-1]
		if len(inner) == 0 {
			return nil, true
		}
		if toks[0].Kind == token.LBracket || HasTopLevel(inner, token.Comma) {
			return Split(inner, token.Comma), true
		}
	}
	return nil, false
}

// IsLiteral reports whether toks is a constant expression that can be
// evaluated without running code: numbers, non-f strings, True/False/None,
// Ellipsis, signs, and tuple/list/set/dict displays of those.
func IsLiteral(toks []token.Token) bool {
	if len(toks) == 0 {
		return false
	}
	depth := 0
	var open []token.Kind
	for _, tok := range toks {
		switch tok.Kind {
		case token.Number, token.KwTrue, token.KwFalse, token.KwNone:
		case token.String:
			if isFString(tok.Text) {
				return false
			}
		case token.LParen, token.LBracket, token.LBrace:
			depth++
			open = append(open, tok.Kind)
		case token.RParen, token.RBracket, token.RBrace:
			depth--
			if depth < 0 {
				return false
			}
			open = open[:len(open)-1]
		case token.Comma:
			if depth == 0 {
				// bare tuple
				continue
			}
		case token.Colon:
			if depth == 0 || open[len(open)-1] != token.LBrace {
				return false
			}
		case token.Op:
			if tok.Text != "-" && tok.Text != "+" && tok.Text != "..." {
				return false
			}
		default:
			return false
		}
	}
	return depth == 0
}

func isFString(text string) bool {
	for i := 0; i < len(text) && i < 3; i++ {
		switch text[i] {
		case 'f', 'F':
			return true
		case '"', '\'':
			return false
		}
	}
	return false
}

// IsAtom reports whether toks binds tighter than any binary operator, so it
// can be placed next to one without parentheses: names, literals, displays,
// and postfix chains of attribute access, calls and subscripts.
func IsAtom(toks []token.Token) bool {
	if len(toks) == 0 {
		return false
	}
	i := 0
	switch first := toks[0]; {
	case first.Kind == token.Name, first.Kind == token.Number,
		first.Kind == token.KwTrue, first.Kind == token.KwFalse, first.Kind == token.KwNone:
		i = 1
	case first.Kind == token.String:
		for i < len(toks) && toks[i].Kind == token.String {
			i++
		}
	case first.Kind.IsOpen():
		i = MatchClose(toks, 0) + 1
		if i == 0 {
			return false
		}
	default:
		return false
	}
	for i < len(toks) {
		switch toks[i].Kind {
		case token.Dot:
			if i+1 >= len(toks) || toks[i+1].Kind != token.Name {
				return false
			}
			i += 2
		case token.LParen, token.LBracket:
			end := MatchClose(toks, i)
			if end < 0 {
				return false
			}
			i = end + 1
		default:
			return false
		}
	}
	return true
}

// NameRefs returns the Name tokens of toks that are not attribute names
// (the "b" in "a.b") and not keyword-argument names.
func NameRefs(toks []token.Token) []token.Token {
	var out []token.Token
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.Kind.IsOpen():
			depth++
		case tok.Kind.IsClose():
			depth--
		}
		if tok.Kind != token.Name {
			continue
		}
		if i > 0 && toks[i-1].Kind == token.Dot {
			continue
		}
		if depth > 0 && i+1 < len(toks) && toks[i+1].Kind == token.Assign &&
			i > 0 && (toks[i-1].Kind == token.Comma || toks[i-1].Kind == token.LParen) {
			continue
		}
		out = append(out, tok)
	}
	return out
}
