package lexer

import (
	"unicode/utf8"

	"nosemig/internal/diag"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

type indentLevel struct {
	col  int // column with tabs expanded to TabSize
	raw  int // column with every tab counted as one
	text string
}

type openBracket struct {
	kind token.Kind
	span source.Span
}

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token   // single-token lookahead
	hold   []token.Trivia // leading trivia collected so far
	queue  []token.Token  // produced but not yet returned

	indents     []indentLevel
	brackets    []openBracket
	atLineStart bool
	lineHasCode bool
	done        bool
}

func New(file *source.File, opts Options) *Lexer {
	if opts.TabSize <= 0 {
		opts.TabSize = 8
	}
	lx := &Lexer{
		file:        file,
		cursor:      NewCursor(file),
		opts:        opts,
		indents:     []indentLevel{{}},
		atLineStart: true,
	}
	lx.validateEncoding()
	return lx
}

// Tokenize returns every token of file up to and including EOF.
func Tokenize(file *source.File, opts Options) []token.Token {
	lx := New(file, opts)
	out := make([]token.Token, 0, len(file.Content)/4+1)
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// Next returns the next significant token with its Leading trivia attached.
// After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	for {
		if len(lx.queue) > 0 {
			tok := lx.queue[0]
			lx.queue = lx.queue[1:]
			return tok
		}
		if lx.done {
			return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
		}
		lx.advance()
	}
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

func (lx *Lexer) advance() {
	if lx.atLineStart && len(lx.brackets) == 0 {
		lx.atLineStart = false
		lx.scanIndentation()
		if len(lx.queue) > 0 {
			return
		}
	}

	lx.collectLeadingTrivia()

	if lx.cursor.EOF() {
		lx.finish()
		return
	}

	ch := lx.cursor.Peek()
	if ch == '\n' {
		start := lx.cursor.Mark()
		lx.cursor.Bump()
		sp := lx.cursor.SpanFrom(start)
		if len(lx.brackets) > 0 || !lx.lineHasCode {
			lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaNewline, Span: sp, Text: "\n"})
			if len(lx.brackets) == 0 {
				lx.atLineStart = true
			}
			return
		}
		lx.push(token.Token{Kind: token.Newline, Span: sp, Text: "\n"})
		lx.lineHasCode = false
		lx.atLineStart = true
		return
	}

	var tok token.Token
	switch {
	case isIdentStartByte(ch) || ch >= utf8.RuneSelf:
		tok = lx.scanNameOrString()
	case isDec(ch) || ch == '.' && lx.isNumberAfterDot():
		tok = lx.scanNumber()
	case ch == '"' || ch == '\'':
		tok = lx.scanString(lx.cursor.Mark())
	default:
		tok = lx.scanOperatorOrPunct()
	}
	lx.trackBrackets(tok)
	lx.push(tok)
	lx.lineHasCode = true
}

// push queues tok with the held trivia as its Leading.
func (lx *Lexer) push(tok token.Token) {
	tok.Leading = lx.hold
	lx.hold = nil
	lx.queue = append(lx.queue, tok)
}

func (lx *Lexer) trackBrackets(tok token.Token) {
	switch {
	case tok.Kind.IsOpen():
		lx.brackets = append(lx.brackets, openBracket{kind: tok.Kind, span: tok.Span})
	case tok.Kind.IsClose():
		n := len(lx.brackets)
		if n == 0 {
			lx.errLex(diag.LexUnbalancedBracket, tok.Span, "unmatched '"+tok.Text+"'")
			return
		}
		top := lx.brackets[n-1]
		if top.kind.Closer() != tok.Kind {
			lx.errLex(diag.LexUnbalancedBracket, tok.Span,
				"closing '"+tok.Text+"' does not match opening '"+top.kind.String()+"'")
		}
		lx.brackets = lx.brackets[:n-1]
	}
}

// finish flushes the pending logical line, unclosed blocks and EOF.
func (lx *Lexer) finish() {
	end := lx.emptySpan()
	for _, br := range lx.brackets {
		lx.errLex(diag.LexUnbalancedBracket, br.span, "'"+br.kind.String()+"' was never closed")
	}
	lx.brackets = nil
	if lx.lineHasCode {
		lx.queue = append(lx.queue, token.Token{Kind: token.Newline, Span: end})
		lx.lineHasCode = false
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.queue = append(lx.queue, token.Token{Kind: token.Dedent, Span: end})
	}
	lx.queue = append(lx.queue, token.Token{Kind: token.EOF, Span: end, Leading: lx.hold})
	lx.hold = nil
	lx.done = true
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

// validateEncoding reports invalid UTF-8 and NUL bytes up front; the token
// stream is still produced so callers can collect every diagnostic.
func (lx *Lexer) validateEncoding() {
	content := lx.file.Content
	for off := 0; off < len(content); {
		b := content[off]
		if b == 0 {
			lx.errLex(diag.LexNulByte, lx.spanAt(off, off+1), "source contains a NUL byte")
			off++
			continue
		}
		if b < utf8.RuneSelf {
			off++
			continue
		}
		r, sz := utf8.DecodeRune(content[off:])
		if r == utf8.RuneError && sz <= 1 {
			lx.errLex(diag.LexInvalidUTF8, lx.spanAt(off, off+1), "invalid UTF-8 sequence")
			off++
			continue
		}
		off += sz
	}
}

func (lx *Lexer) spanAt(start, end int) source.Span {
	return source.Span{File: lx.file.ID, Start: uint32(start), End: uint32(end)} //nolint:gosec // bounded by Cursor.Limit
}
