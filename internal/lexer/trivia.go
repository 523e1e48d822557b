package lexer

import (
	"nosemig/internal/diag"
	"nosemig/internal/token"
)

// collectLeadingTrivia gathers trivia in front of the next token:
//   - runs of ' ', '\t', '\f' coalesce into one TriviaSpace
//   - '#' up to the line break is a TriviaComment
//   - '\' directly followed by a line break is a TriviaContinuation
//
// Line breaks are left to the caller, which decides between Newline and trivia.
func (lx *Lexer) collectLeadingTrivia() {
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		switch b := lx.cursor.Peek(); b {
		case ' ', '\t', '\f', '\r':
			for isSpace(lx.cursor.Peek()) {
				lx.cursor.Bump()
			}
			sp := lx.cursor.SpanFrom(start)
			lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaSpace, Span: sp, Text: lx.file.Text(sp)})
		case '#':
			lx.scanComment()
		case '\\':
			if _, b1, ok := lx.cursor.Peek2(); ok && b1 == '\n' {
				lx.cursor.Bump()
				lx.cursor.Bump()
				sp := lx.cursor.SpanFrom(start)
				lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaContinuation, Span: sp, Text: "\\\n"})
				continue
			}
			lx.cursor.Bump()
			sp := lx.cursor.SpanFrom(start)
			if lx.cursor.EOF() {
				lx.errLex(diag.LexUnknownChar, sp, "unexpected end of file after line continuation")
			} else {
				lx.errLex(diag.LexUnknownChar, sp, "unexpected character after line continuation")
			}
		default:
			return
		}
	}
}

func (lx *Lexer) scanComment() {
	start := lx.cursor.Mark()
	for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
		lx.cursor.Bump()
	}
	sp := lx.cursor.SpanFrom(start)
	lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaComment, Span: sp, Text: lx.file.Text(sp)})
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\f' || b == '\r'
}
