package transform

import (
	"bytes"
	"strings"

	"fortio.org/safecast"

	"nosemig/internal/pyast"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

const defaultStep = "    "

func contentLen(file *source.File) uint32 {
	n, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		panic(err)
	}
	return n
}

// lineEnd returns the offset of the newline ending the line of off, or the
// end of the file.
func lineEnd(file *source.File, off uint32) uint32 {
	if i := bytes.IndexByte(file.Content[off:], '\n'); i >= 0 {
		return off + uint32(i)
	}
	return contentLen(file)
}

// nextLine returns the start of the line after the one containing off.
func nextLine(file *source.File, off uint32) uint32 {
	return min(lineEnd(file, off)+1, contentLen(file))
}

// indentAt returns the leading whitespace of the line containing off.
func indentAt(file *source.File, off uint32) string {
	ls := file.LineStart(off)
	i := ls
	for i < contentLen(file) && (file.Content[i] == ' ' || file.Content[i] == '\t') {
		i++
	}
	return string(file.Content[ls:i])
}

// spaceBefore reports whether only whitespace precedes off on its line.
func spaceBefore(file *source.File, off uint32) bool {
	return strings.TrimSpace(string(file.Content[file.LineStart(off):off])) == ""
}

// atFileStart reports whether only whitespace precedes the line of off.
func atFileStart(file *source.File, off uint32) bool {
	return len(bytes.TrimSpace(file.Content[:file.LineStart(off)])) == 0
}

// tailAfter returns the rest of the line after off, without the newline.
func tailAfter(file *source.File, off uint32) string {
	return string(file.Content[off:lineEnd(file, off)])
}

func textOf(file *source.File, toks []token.Token) string {
	return file.Text(pyast.SpanOf(toks))
}

// step returns the indentation unit used between outer and inner.
func step(outer, inner string) string {
	if len(inner) > len(outer) && strings.HasPrefix(inner, outer) {
		return inner[len(outer):]
	}
	return defaultStep
}

// multilineStrings returns the spans of string tokens that cross a line break.
func multilineStrings(toks []token.Token) []source.Span {
	var out []source.Span
	for _, tok := range toks {
		if tok.Kind == token.String && strings.Contains(tok.Text, "\n") {
			out = append(out, tok.Span)
		}
	}
	return out
}

// indentLines prefixes every non-blank line in [start, end) with add, except
// lines that begin inside a protected span. start must be a line start.
func indentLines(file *source.File, start, end uint32, add string, protect []source.Span) string {
	var b strings.Builder
	for ls := start; ls < end; {
		le := min(lineEnd(file, ls), end)
		line := file.Content[ls:le]
		inside := false
		for _, sp := range protect {
			if sp.Start < ls && ls < sp.End {
				inside = true
				break
			}
		}
		if !inside && len(bytes.TrimSpace(line)) > 0 {
			b.WriteString(add)
		}
		b.Write(line)
		if le < end {
			b.WriteByte('\n')
		}
		ls = le + 1
	}
	return b.String()
}

// gapComments returns the comments between consecutive tokens of toks that
// are not inside any of the kept spans.
func gapComments(file *source.File, toks []token.Token, kept []source.Span) []string {
	var out []string
	for i := 1; i < len(toks); i++ {
		start, end := toks[i-1].Span.End, toks[i].Span.Start
		if start >= end || insideAny(start, kept) {
			continue
		}
		gap := string(file.Content[start:end])
		for {
			h := strings.IndexByte(gap, '#')
			if h < 0 {
				break
			}
			gap = gap[h:]
			nl := strings.IndexByte(gap, '\n')
			if nl < 0 {
				out = append(out, strings.TrimRight(gap, " \t"))
				break
			}
			out = append(out, strings.TrimRight(gap[:nl], " \t"))
			gap = gap[nl:]
		}
	}
	return out
}

func insideAny(off uint32, spans []source.Span) bool {
	for _, sp := range spans {
		if sp.Start <= off && off < sp.End {
			return true
		}
	}
	return false
}

// commentBlock renders comments as lines at indent, ending with a newline
// followed by indent so the caller can append the next statement.
func commentBlock(comments []string, indent string) string {
	var b strings.Builder
	for _, c := range comments {
		b.WriteString(c)
		b.WriteByte('\n')
		b.WriteString(indent)
	}
	return b.String()
}

// operand renders toks for use next to a binary operator.
func operand(file *source.File, toks []token.Token) string {
	s := textOf(file, toks)
	if pyast.IsAtom(toks) {
		return s
	}
	return "(" + s + ")"
}

// expression renders toks as a standalone expression; text that spans
// lines outside brackets gets wrapped.
func expression(file *source.File, toks []token.Token) string {
	s := textOf(file, toks)
	if strings.Contains(s, "\n") && !pyast.IsAtom(toks) {
		return "(" + s + ")"
	}
	return s
}

// blockRange returns the region holding the statements of a suite: from the
// line after the header (or after the docstring when skipDoc is set) through
// the end of the line of the last statement.
func blockRange(file *source.File, s *pyast.Stmt, skipDoc bool) (start, end uint32, ok bool) {
	colon, has := s.Colon()
	if !has || len(s.Body) == 0 {
		return 0, 0, false
	}
	start = nextLine(file, colon.Span.End)
	stmts := s.Body
	if skipDoc {
		if doc := s.Docstring(); doc != nil {
			start = nextLine(file, doc.Span.End)
			stmts = s.Statements()
		}
	}
	if len(stmts) == 0 || stmts[0].Span.Start < start {
		return 0, 0, false
	}
	end = lineEnd(file, stmts[len(stmts)-1].Span.End)
	return start, end, true
}
