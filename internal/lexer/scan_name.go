package lexer

import (
	"strings"

	"nosemig/internal/diag"
	"nosemig/internal/token"

	"golang.org/x/text/unicode/norm"
)

// scanNameOrString scans an identifier or keyword. A string prefix (r, b, u, f
// and their two-letter combinations) directly followed by a quote starts a string.
func (lx *Lexer) scanNameOrString() token.Token {
	start := lx.cursor.Mark()
	if n := lx.stringPrefixLen(); n > 0 {
		lx.cursor.Off += n
		return lx.scanString(start)
	}

	r, sz := lx.peekRune()
	if sz == 0 {
		return token.Token{Kind: token.Invalid, Span: lx.cursor.SpanFrom(start)}
	}
	if r < utf8RuneSelf {
		lx.cursor.Bump()
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
	} else if !isIdentStartRune(r) {
		lx.bumpRune()
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "invalid character in identifier")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.file.Text(sp)}
	} else {
		lx.bumpRune()
	}
	for {
		b := lx.cursor.Peek()
		if b < utf8RuneSelf {
			if !isIdentContinueByte(b) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		r2, sz2 := lx.peekRune()
		if sz2 == 0 || !isIdentContinueRune(r2) {
			break
		}
		lx.bumpRune()
	}

	sp := lx.cursor.SpanFrom(start)
	text := lx.file.Text(sp)
	if k, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: k, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Name, Span: sp, Text: text}
}

const utf8RuneSelf = 0x80

func (lx *Lexer) stringPrefixLen() uint32 {
	var n uint32
	for n < 3 {
		b := lx.cursor.PeekAt(n)
		if b == '"' || b == '\'' {
			break
		}
		if !isPrefixByte(b) {
			return 0
		}
		n++
	}
	if n == 0 || n > 2 {
		return 0
	}
	q := lx.cursor.PeekAt(n)
	if q != '"' && q != '\'' {
		return 0
	}
	prefix := strings.ToLower(string(lx.file.Content[lx.cursor.Off : lx.cursor.Off+n]))
	switch prefix {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return n
	}
	return 0
}

func isPrefixByte(b byte) bool {
	switch b {
	case 'r', 'R', 'u', 'U', 'b', 'B', 'f', 'F':
		return true
	}
	return false
}

// NormalizeName returns the NFKC form Python uses to compare identifiers.
func NormalizeName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8RuneSelf {
			return norm.NFKC.String(name)
		}
	}
	return name
}
