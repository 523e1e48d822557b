package lexer

import (
	"nosemig/internal/diag"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

// scanIndentation runs at the start of a physical line outside brackets. Blank
// and comment-only lines become trivia; the first line with code is measured
// against the indent stack and Indent/Dedent tokens are queued.
func (lx *Lexer) scanIndentation() {
	for {
		start := lx.cursor.Mark()
		col, raw := 0, 0
	measure:
		for !lx.cursor.EOF() {
			switch lx.cursor.Peek() {
			case ' ':
				col++
				raw++
			case '\t':
				col = (col/lx.opts.TabSize + 1) * lx.opts.TabSize
				raw++
			case '\f':
				col, raw = 0, 0
			default:
				break measure
			}
			lx.cursor.Bump()
		}
		ws := lx.cursor.SpanFrom(start)
		if !ws.Empty() {
			lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaSpace, Span: ws, Text: lx.file.Text(ws)})
		}

		if lx.cursor.EOF() {
			return
		}
		switch lx.cursor.Peek() {
		case '#':
			lx.scanComment()
			if lx.cursor.Peek() == '\n' {
				lx.bumpNewlineTrivia()
			}
			continue
		case '\n':
			lx.bumpNewlineTrivia()
			continue
		}

		lx.applyIndent(indentLevel{col: col, raw: raw, text: lx.file.Text(ws)}, ws)
		return
	}
}

func (lx *Lexer) applyIndent(level indentLevel, ws source.Span) {
	top := lx.indents[len(lx.indents)-1]
	at := lx.emptySpan()
	switch {
	case level.col == top.col:
		if level.raw != top.raw {
			lx.errLex(diag.LexTabSpaceMix, ws, "inconsistent use of tabs and spaces in indentation")
		}
	case level.col > top.col:
		if level.raw <= top.raw {
			lx.errLex(diag.LexTabSpaceMix, ws, "inconsistent use of tabs and spaces in indentation")
		}
		lx.indents = append(lx.indents, level)
		lx.queue = append(lx.queue, token.Token{Kind: token.Indent, Span: at})
	default:
		for len(lx.indents) > 1 && level.col < lx.indents[len(lx.indents)-1].col {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.queue = append(lx.queue, token.Token{Kind: token.Dedent, Span: at})
		}
		if cur := lx.indents[len(lx.indents)-1]; cur.col != level.col {
			lx.errLex(diag.LexInconsistentDedent, ws, "unindent does not match any outer indentation level")
		} else if cur.raw != level.raw {
			lx.errLex(diag.LexTabSpaceMix, ws, "inconsistent use of tabs and spaces in indentation")
		}
	}
}

func (lx *Lexer) bumpNewlineTrivia() {
	start := lx.cursor.Mark()
	lx.cursor.Bump()
	sp := lx.cursor.SpanFrom(start)
	lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaNewline, Span: sp, Text: "\n"})
}
