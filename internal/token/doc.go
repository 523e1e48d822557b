// Package token defines lexical token kinds and trivia for Python test sources.
// Invariants:
//   - Token.Text is a slice of the original source.
//   - Token.Span matches Text exactly (Start..End); Indent, Dedent and Newline
//     tokens may carry empty spans.
//   - Comments, blank lines, spaces and backslash continuations are Trivia,
//     attached to the next significant token as Leading.
//   - Names that are soft keywords (match, case, type) stay Name tokens.
package token
