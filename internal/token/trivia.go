package token

import "nosemig/internal/source"

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	// TriviaNewline is a non-logical line break (blank line, comment-only line).
	TriviaNewline
	TriviaComment
	// TriviaContinuation is a backslash followed by a line break.
	TriviaContinuation
)

type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}
