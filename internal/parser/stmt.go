package parser

import (
	"nosemig/internal/diag"
	"nosemig/internal/pyast"
	"nosemig/internal/token"
)

func (p *Parser) parseBlock(nested bool) []*pyast.Stmt {
	var stmts []*pyast.Stmt
	for {
		switch tok := p.peek(); tok.Kind {
		case token.EOF:
			return stmts
		case token.Dedent:
			p.advance()
			if nested {
				return stmts
			}
		case token.Indent:
			p.err(diag.SynStrayIndent, p.advance().Span, "unexpected indent")
			stmts = append(stmts, p.parseBlock(true)...)
		case token.Newline:
			p.advance()
		default:
			stmts = append(stmts, p.parseStatement()...)
		}
	}
}

// parseStatement parses decorators plus one logical line (and its suite).
// A simple line holding several ';'-separated statements yields one Stmt each.
func (p *Parser) parseStatement() []*pyast.Stmt {
	var decos []*pyast.Decorator
	for p.at(token.At) {
		line := p.line()
		decos = append(decos, &pyast.Decorator{At: line[0], Expr: line[1:]})
	}
	if p.atOr(token.EOF, token.Dedent, token.Indent) {
		if len(decos) > 0 {
			p.err(diag.SynDanglingDecor, decos[len(decos)-1].Span(), "decorator is not followed by a definition")
		}
		return nil
	}

	line := p.line()
	kind, keyword, async := classify(line)
	if kind == pyast.Simple && len(line) > 0 && line[len(line)-1].Kind == token.Colon && p.at(token.Indent) {
		kind = pyast.Compound
	}

	if len(decos) > 0 && kind != pyast.FuncDef && kind != pyast.ClassDef {
		p.err(diag.SynDanglingDecor, decos[len(decos)-1].Span(), "decorator is not followed by a definition")
		decos = nil
	}

	switch kind {
	case pyast.Simple, pyast.Import, pyast.FromImport:
		return p.simpleStatements(line, kind, keyword)
	}

	s := &pyast.Stmt{Kind: kind, Keyword: keyword, Decorators: decos, Async: async}
	colon := headerColon(line)
	if colon < 0 {
		p.err(diag.SynExpectColon, pyast.SpanOf(line), "expected ':' after "+keyword+" header")
		s.Header = line
	} else {
		s.Header = line[:colon+1]
		s.Inline = line[colon+1:]
	}
	if kind == pyast.FuncDef || kind == pyast.ClassDef {
		p.parseDefHeader(s)
	}
	if colon >= 0 && len(s.Inline) == 0 {
		if p.at(token.Indent) {
			p.advance()
			s.Body = p.parseBlock(true)
		} else {
			p.err(diag.SynExpectBlock, line[colon].Span, "expected an indented block after '"+keyword+"'")
		}
	}
	s.Span = s.First().Span
	s.Span.End = stmtEnd(s)
	return []*pyast.Stmt{s}
}

func (p *Parser) simpleStatements(line []token.Token, kind pyast.Kind, keyword string) []*pyast.Stmt {
	parts := pyast.Split(line, token.Semicolon)
	out := make([]*pyast.Stmt, 0, len(parts))
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		k, kw := kind, keyword
		if i > 0 {
			k, kw, _ = classify(part)
			if k != pyast.Import && k != pyast.FromImport {
				k = pyast.Simple
			}
		}
		out = append(out, &pyast.Stmt{
			Kind:    k,
			Keyword: kw,
			Header:  part,
			Span:    pyast.SpanOf(part),
		})
	}
	return out
}

func (p *Parser) parseDefHeader(s *pyast.Stmt) {
	h := s.Header
	i := 0
	if s.Async {
		i++
	}
	i++ // def / class
	if i >= len(h) || h[i].Kind != token.Name {
		sp := s.Header[0].Span
		if i < len(h) {
			sp = h[i].Span
		}
		p.err(diag.SynExpectName, sp, "expected a name after '"+s.Keyword+"'")
		return
	}
	s.Name = h[i]
	i++
	if i < len(h) && h[i].Kind == token.LParen {
		end := pyast.MatchClose(h, i)
		if end < 0 {
			return
		}
		s.LParen, s.RParen = h[i], h[end]
		s.Params = h[i+1 : end]
		return
	}
	if s.Kind == pyast.FuncDef {
		p.err(diag.SynUnexpectedToken, s.Name.Span, "expected '(' after function name")
	}
}

func stmtEnd(s *pyast.Stmt) uint32 {
	switch {
	case len(s.Body) > 0:
		return s.Body[len(s.Body)-1].Span.End
	case len(s.Inline) > 0:
		return s.Inline[len(s.Inline)-1].Span.End
	default:
		return s.Header[len(s.Header)-1].Span.End
	}
}

func classify(line []token.Token) (kind pyast.Kind, keyword string, async bool) {
	if len(line) == 0 {
		return pyast.Simple, "", false
	}
	first := line[0]
	if first.Kind == token.KwAsync && len(line) > 1 {
		switch line[1].Kind {
		case token.KwDef:
			return pyast.FuncDef, "def", true
		case token.KwFor:
			return pyast.Compound, "for", true
		case token.KwWith:
			return pyast.Compound, "with", true
		}
	}
	switch first.Kind {
	case token.KwDef:
		return pyast.FuncDef, "def", false
	case token.KwClass:
		return pyast.ClassDef, "class", false
	case token.KwImport:
		return pyast.Import, "import", false
	case token.KwFrom:
		return pyast.FromImport, "from", false
	case token.KwIf, token.KwElif, token.KwElse, token.KwFor, token.KwWhile,
		token.KwWith, token.KwTry, token.KwExcept, token.KwFinally:
		return pyast.Compound, first.Text, false
	}
	if first.Kind.IsKeyword() {
		return pyast.Simple, first.Text, false
	}
	if first.Kind == token.Name && (first.Text == "match" || first.Text == "case") {
		return pyast.Simple, first.Text, false
	}
	return pyast.Simple, "", false
}

// headerColon finds the ':' ending a compound header, skipping lambda bodies,
// annotations, slices and dict displays.
func headerColon(line []token.Token) int {
	depth, lambdas := 0, 0
	for i, tok := range line {
		switch {
		case tok.Kind.IsOpen():
			depth++
		case tok.Kind.IsClose():
			depth--
		case depth != 0:
		case tok.Kind == token.KwLambda:
			lambdas++
		case tok.Kind == token.Colon:
			if lambdas > 0 {
				lambdas--
				continue
			}
			return i
		}
	}
	return -1
}
