package lexer

import (
	"nosemig/internal/diag"
	"nosemig/internal/token"
)

// scanString scans a string literal whose prefix (if any) starts at start and
// whose opening quote is under the cursor. Backslashes always protect the next
// byte from closing the literal, raw or not.
func (lx *Lexer) scanString(start Mark) token.Token {
	q := lx.cursor.Bump()
	triple := false
	if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == q && b1 == q {
		lx.cursor.Bump()
		lx.cursor.Bump()
		triple = true
	} else if lx.cursor.Peek() == q && lx.cursor.PeekAt(1) != q {
		// empty string ""
		lx.cursor.Bump()
		return lx.stringToken(start)
	}

	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		switch {
		case b == '\\':
			lx.cursor.Bump()
			lx.cursor.Bump()
		case b == q && !triple:
			lx.cursor.Bump()
			return lx.stringToken(start)
		case b == q && triple:
			if lx.try3(q, q, q) {
				return lx.stringToken(start)
			}
			lx.cursor.Bump()
		case b == '\n' && !triple:
			sp := lx.cursor.SpanFrom(start)
			lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.file.Text(sp)}
		default:
			lx.cursor.Bump()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	msg := "unterminated string literal"
	if triple {
		msg = "unterminated triple-quoted string literal"
	}
	lx.errLex(diag.LexUnterminatedString, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.file.Text(sp)}
}

func (lx *Lexer) stringToken(start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: token.String, Span: sp, Text: lx.file.Text(sp)}
}

// StringBody returns the contents between the quotes of a string token text,
// the prefix letters, and whether the literal is triple-quoted.
func StringBody(text string) (body, prefix string, triple bool) {
	i := 0
	for i < len(text) && text[i] != '"' && text[i] != '\'' {
		i++
	}
	prefix = text[:i]
	rest := text[i:]
	if len(rest) >= 6 && (rest[:3] == `"""` || rest[:3] == `'''`) {
		return rest[3 : len(rest)-3], prefix, true
	}
	if len(rest) >= 2 {
		return rest[1 : len(rest)-1], prefix, false
	}
	return "", prefix, false
}
