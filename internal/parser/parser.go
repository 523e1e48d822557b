package parser

import (
	"slices"

	"nosemig/internal/diag"
	"nosemig/internal/lexer"
	"nosemig/internal/pyast"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough reports whether the error budget is spent.
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

// Parser holds the state for one file.
type Parser struct {
	file *source.File
	toks []token.Token
	pos  int
	opts Options
}

// ParseFile tokenizes and parses file. Lexical and structural errors go to
// opts.Reporter; the returned module is best effort when errors were reported.
func ParseFile(file *source.File, opts Options) *pyast.Module {
	p := Parser{file: file, opts: opts}
	counting := &countingReporter{next: opts.Reporter, opts: &p.opts}
	p.opts.Reporter = counting
	p.toks = lexer.Tokenize(file, lexer.Options{Reporter: counting})
	mod := &pyast.Module{File: file}
	mod.Body = p.parseBlock(false)
	mod.Trailing = p.peek().Leading
	return mod
}

// IsError reports whether any error was reported while parsing.
func (p *Parser) IsError() bool {
	return p.opts.CurrentErrors != 0
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

// line consumes one logical line and returns its tokens without the Newline.
func (p *Parser) line() []token.Token {
	start := p.pos
	for !p.atOr(token.Newline, token.EOF, token.Indent, token.Dedent) {
		p.advance()
	}
	out := p.toks[start:p.pos]
	if p.at(token.Newline) {
		p.advance()
	}
	return out
}

func (p *Parser) err(code diag.Code, sp source.Span, msg string) {
	if p.opts.Enough() {
		return
	}
	diag.ReportError(p.opts.Reporter, code, sp, msg).Emit()
}

type countingReporter struct {
	next diag.Reporter
	opts *Options
}

func (r *countingReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixes []diag.Fix) {
	if sev >= diag.SevError {
		r.opts.CurrentErrors++
	}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes, fixes)
	}
}
