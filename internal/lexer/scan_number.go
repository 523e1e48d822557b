package lexer

import (
	"nosemig/internal/diag"
	"nosemig/internal/token"
)

// scanNumber accepts decimal, 0x/0o/0b integers, floats with exponents and
// the imaginary suffix. Underscores are allowed between digits.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	bad := false

	if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '0' && isRadix(b1) {
		lx.cursor.Bump()
		radix := lx.cursor.Bump() | 0x20
		digits := 0
		for {
			b := lx.cursor.Peek()
			if b == '_' {
				lx.cursor.Bump()
				continue
			}
			if !radixDigit(radix, b) {
				break
			}
			lx.cursor.Bump()
			digits++
		}
		if digits == 0 {
			bad = true
		}
	} else {
		lx.scanDigits()
		if lx.cursor.Peek() == '.' {
			lx.cursor.Bump()
			lx.scanDigits()
		}
		if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
			lx.cursor.Bump()
			if s := lx.cursor.Peek(); s == '+' || s == '-' {
				lx.cursor.Bump()
			}
			if !isDec(lx.cursor.Peek()) {
				bad = true
			}
			lx.scanDigits()
		}
		if b := lx.cursor.Peek(); b == 'j' || b == 'J' {
			lx.cursor.Bump()
		}
	}

	for isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
		bad = true
	}

	sp := lx.cursor.SpanFrom(start)
	text := lx.file.Text(sp)
	if bad {
		lx.errLex(diag.LexBadNumber, sp, "invalid number literal "+text)
		return token.Token{Kind: token.Invalid, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Number, Span: sp, Text: text}
}

func (lx *Lexer) scanDigits() {
	for b := lx.cursor.Peek(); isDec(b) || b == '_'; b = lx.cursor.Peek() {
		lx.cursor.Bump()
	}
}

func isRadix(b byte) bool {
	switch b | 0x20 {
	case 'x', 'o', 'b':
		return true
	}
	return false
}

func radixDigit(radix, b byte) bool {
	switch radix {
	case 'x':
		return isHex(b)
	case 'o':
		return b >= '0' && b <= '7'
	default:
		return b == '0' || b == '1'
	}
}
