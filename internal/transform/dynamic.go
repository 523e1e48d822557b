package transform

import (
	"nosemig/internal/pyast"
	"nosemig/internal/token"
)

var dynamicCalls = map[string]bool{
	"exec":       true,
	"eval":       true,
	"__import__": true,
}

// dynamicScope returns a description of the first construct in s whose
// effect depends on how and where s is invoked, or "" when there is none.
func dynamicScope(s *pyast.Stmt) string {
	toks := s.Tokens()
	for i, tok := range toks {
		switch tok.Kind {
		case token.KwGlobal:
			return "global statement"
		case token.KwNonlocal:
			return "nonlocal statement"
		case token.Name:
			if i > 0 && toks[i-1].Kind == token.Dot {
				continue
			}
			next := func(k int) token.Token {
				if i+k < len(toks) {
					return toks[i+k]
				}
				return token.Token{}
			}
			switch {
			case dynamicCalls[tok.Text] && next(1).Kind == token.LParen:
				return tok.Text + "() call"
			case tok.Text == "importlib":
				return "importlib use"
			case tok.Text == "sys" && next(1).Kind == token.Dot &&
				(next(2).Text == "modules" || next(2).Text == "path"):
				return "sys." + next(2).Text + " access"
			}
		}
	}
	return ""
}
