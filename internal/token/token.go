package token

import (
	"nosemig/internal/source"
)

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// IsLiteral reports whether the token is a literal constant.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case Number, String, KwTrue, KwFalse, KwNone:
		return true
	default:
		return false
	}
}

// IsName reports whether the token is an identifier.
func (t Token) IsName() bool { return t.Kind == Name }

// Is reports whether the token is a Name or Op with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == Name || t.Kind == Op) && t.Text == text
}

// Comments returns the comment trivia attached in front of the token.
func (t Token) Comments() []Trivia {
	var out []Trivia
	for _, tv := range t.Leading {
		if tv.Kind == TriviaComment {
			out = append(out, tv)
		}
	}
	return out
}
