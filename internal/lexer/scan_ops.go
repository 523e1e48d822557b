package lexer

import (
	"nosemig/internal/diag"
	"nosemig/internal/token"
)

// scanOperatorOrPunct is greedy: three-byte operators first, then two-byte,
// then single bytes. Operators the structural parser does not need keep the
// generic Op kind.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	emit := func(k token.Kind) token.Token {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: k, Span: sp, Text: lx.file.Text(sp)}
	}

	switch {
	case lx.try3('*', '*', '='), lx.try3('/', '/', '='), lx.try3('>', '>', '='),
		lx.try3('<', '<', '='), lx.try3('.', '.', '.'):
		return emit(token.Op)
	case lx.try2('*', '*'):
		return emit(token.DoubleStar)
	case lx.try2('-', '>'):
		return emit(token.Arrow)
	case lx.try2(':', '='):
		return emit(token.Walrus)
	case lx.try2('=', '='), lx.try2('!', '='), lx.try2('<', '='), lx.try2('>', '='),
		lx.try2('<', '<'), lx.try2('>', '>'), lx.try2('/', '/'),
		lx.try2('+', '='), lx.try2('-', '='), lx.try2('*', '='), lx.try2('/', '='),
		lx.try2('%', '='), lx.try2('&', '='), lx.try2('|', '='), lx.try2('^', '='),
		lx.try2('@', '='):
		return emit(token.Op)
	}

	switch lx.cursor.Bump() {
	case '(':
		return emit(token.LParen)
	case ')':
		return emit(token.RParen)
	case '[':
		return emit(token.LBracket)
	case ']':
		return emit(token.RBracket)
	case '{':
		return emit(token.LBrace)
	case '}':
		return emit(token.RBrace)
	case ':':
		return emit(token.Colon)
	case ',':
		return emit(token.Comma)
	case ';':
		return emit(token.Semicolon)
	case '.':
		return emit(token.Dot)
	case '@':
		return emit(token.At)
	case '=':
		return emit(token.Assign)
	case '*':
		return emit(token.Star)
	case '+', '-', '/', '%', '&', '|', '^', '~', '<', '>':
		return emit(token.Op)
	}

	tok := emit(token.Invalid)
	lx.errLex(diag.LexUnknownChar, tok.Span, "unknown character "+quoteByte(tok.Text))
	return tok
}

func quoteByte(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + s + "'"
}
