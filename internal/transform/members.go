package transform

import (
	"nosemig/internal/pyast"
	"nosemig/internal/token"
)

// classMembers returns the names bound directly in a class body.
func classMembers(cls *pyast.Stmt) map[string]bool {
	out := make(map[string]bool)
	for _, s := range cls.Body {
		switch {
		case s.IsDef():
			out[s.Name.Text] = true
		case s.Kind == pyast.Simple:
			for i, tok := range s.Header {
				if tok.Kind == token.Assign {
					for _, ref := range pyast.NameRefs(s.Header[:i]) {
						out[ref.Text] = true
					}
				}
			}
		}
	}
	return out
}

// attrRef returns the first "<self|cls|Class|super()>.name" reference in cls.
func attrRef(cls *pyast.Stmt, name string) (token.Token, bool) {
	toks := cls.Tokens()
	for i := 2; i < len(toks); i++ {
		if toks[i].Kind != token.Name || toks[i].Text != name || toks[i-1].Kind != token.Dot {
			continue
		}
		recv := toks[i-2]
		if recv.Kind == token.RParen || (recv.Kind == token.Name &&
			(recv.Text == "self" || recv.Text == "cls" || recv.Text == cls.Name.Text)) {
			return toks[i], true
		}
	}
	return token.Token{}, false
}

// moduleNameRef returns the first reference to name in the module outside
// the token at skip.
func moduleNameRef(mod *pyast.Module, name string, skip token.Token) (token.Token, bool) {
	for _, s := range mod.Body {
		for _, ref := range pyast.NameRefs(s.Tokens()) {
			if ref.Text == name && ref.Span != skip.Span {
				return ref, true
			}
		}
	}
	return token.Token{}, false
}
