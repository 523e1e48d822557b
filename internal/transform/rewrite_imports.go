package transform

import (
	"slices"
	"strings"

	"nosemig/internal/diag"
	"nosemig/internal/fix"
	"nosemig/internal/lexer"
	"nosemig/internal/pyast"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
	"nosemig/internal/token"
)

func rewriteNoseImport(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.ImportMeta)
	mod := frag.Module
	file := mod.File

	imports := make(map[*pyast.Stmt]bool, len(meta.Stmts))
	for _, st := range meta.Stmts {
		imports[st] = true
		if st.Kind == pyast.FromImport && pyast.HasTopLevel(st.Header, token.Star) {
			return Replacement{}, failf(diag.MigImportStillUsed, st.Span, "star import at line %d hides which nose names are used", file.LineOf(st.Span.Start))
		}
	}
	locals := make(map[string]bool, len(meta.Bindings))
	for _, b := range meta.Bindings {
		locals[b.Local] = true
	}
	for _, s := range mod.AST.Body {
		if imports[s] {
			continue
		}
		for _, ref := range pyast.NameRefs(s.Tokens()) {
			if locals[ref.Text] {
				return Replacement{}, failf(diag.MigImportStillUsed, ref.Span, "%s is still referenced at line %d", ref.Text, file.LineOf(ref.Span.Start))
			}
		}
	}

	e := newEditor(frag)
	for _, st := range meta.Stmts {
		tail := strings.TrimSpace(tailAfter(file, st.Span.End))
		if !spaceBefore(file, st.Span.Start) || (tail != "" && !strings.HasPrefix(tail, "#")) {
			return Replacement{}, failf(diag.MigImportStillUsed, st.Span, "import at line %d shares its line with other statements", file.LineOf(st.Span.Start))
		}
		if st.Kind == pyast.Import {
			var keep []string
			for _, part := range pyast.Split(st.Header[1:], token.Comma) {
				name, _ := pyast.DottedName(part)
				if name != "nose" && !strings.HasPrefix(name, "nose.") {
					keep = append(keep, textOf(file, part))
				}
			}
			if len(keep) > 0 {
				e.replace(st.Span, "import "+strings.Join(keep, ", "))
				continue
			}
		}
		removeLine(e, st.Span)
	}
	return e.done(frag)
}

// removeLine deletes sp together with its line, or up to a trailing comment
// which is kept.
func removeLine(e *editor, sp source.Span) {
	file := e.file
	tail := tailAfter(file, sp.End)
	if strings.TrimSpace(tail) == "" {
		e.delete(e.span(file.LineStart(sp.Start), nextLine(file, sp.End)))
		return
	}
	e.delete(e.span(sp.Start, sp.End+uint32(len(tail)-len(strings.TrimLeft(tail, " \t")))))
}

// PytestImport returns the fix adding "import pytest" to mod. It is placed
// after the module docstring and __future__ imports.
func PytestImport(mod *scanner.Module) (diag.Fix, bool) {
	if mod.Imports.Pytest {
		return diag.Fix{}, false
	}
	file := mod.File
	var (
		anchor *pyast.Stmt
		after  uint32
	)
	for i, s := range mod.AST.Body {
		if i == 0 && mod.AST.Docstring() == s {
			after = nextLine(file, s.Span.End)
			continue
		}
		if s.Kind == pyast.FromImport {
			if name, _ := pyast.DottedName(s.Header[1:]); name == "__future__" {
				after = nextLine(file, s.Span.End)
				continue
			}
		}
		anchor = s
		break
	}

	text := "import pytest\n"
	var off uint32
	if anchor == nil {
		off = contentLen(file)
		if off > 0 && file.Content[off-1] != '\n' {
			text = "\n" + text
		}
	} else {
		off = max(file.LineStart(anchor.First().Span.Start), after)
		if anchor.IsDef() {
			text += "\n\n"
		}
	}
	at := source.Span{File: file.ID, Start: off, End: off}
	return fix.InsertText("import pytest", at, text, "", fix.WithID("import-pytest:"+mod.Path)), true
}

// UnusedImport returns the fix removing the module-level import that binds
// local, provided nothing else in mod refers to the name. Imports sharing a
// line with other statements and parenthesized from-imports that keep other
// names are left alone.
func UnusedImport(mod *scanner.Module, local string) (diag.Fix, bool) {
	local = lexer.NormalizeName(local)
	b, ok := mod.Imports.Bindings[local]
	if !ok {
		return diag.Fix{}, false
	}
	st := b.Stmt
	for _, s := range mod.AST.Body {
		if s == st {
			continue
		}
		for _, ref := range pyast.NameRefs(s.Tokens()) {
			if lexer.NormalizeName(ref.Text) == local {
				return diag.Fix{}, false
			}
		}
	}
	file := mod.File
	tail := strings.TrimSpace(tailAfter(file, st.Span.End))
	if !spaceBefore(file, st.Span.Start) || (tail != "" && !strings.HasPrefix(tail, "#")) {
		return diag.Fix{}, false
	}

	var parts [][]token.Token
	prefix := ""
	switch st.Kind {
	case pyast.Import:
		parts = pyast.Split(st.Header[1:], token.Comma)
		prefix = "import "
	case pyast.FromImport:
		h := st.Header
		i := slices.IndexFunc(h, func(t token.Token) bool { return t.Kind == token.KwImport })
		if i < 0 {
			return diag.Fix{}, false
		}
		names := h[i+1:]
		if len(names) > 0 && names[0].Kind == token.LParen {
			// a parenthesized import is only removed whole
			names = names[1 : len(names)-1]
			if len(pyast.Split(names, token.Comma)) != 1 {
				return diag.Fix{}, false
			}
		}
		parts = pyast.Split(names, token.Comma)
		prefix = textOf(file, h[:i+1]) + " "
	default:
		return diag.Fix{}, false
	}

	var keep []string
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		if boundName(part, st.Kind) != local {
			keep = append(keep, textOf(file, part))
		}
	}
	e := &editor{file: file}
	switch {
	case len(keep) == len(parts):
		return diag.Fix{}, false
	case len(keep) == 0 && tail == "" && atFileStart(file, st.Span.Start):
		// no blank lines left at the top of the file
		end := nextLine(file, st.Span.End)
		for end < contentLen(file) && strings.TrimSpace(tailAfter(file, end)) == "" {
			end = nextLine(file, end)
		}
		e.delete(e.span(file.LineStart(st.Span.Start), end))
	case len(keep) == 0:
		removeLine(e, st.Span)
	default:
		e.replace(st.Span, prefix+strings.Join(keep, ", "))
	}
	return fix.Merge("drop unused import "+local, e.parts, fix.WithID("drop-import:"+local+":"+mod.Path)), true
}

// boundName returns the name one import clause binds in the module.
func boundName(part []token.Token, kind pyast.Kind) string {
	if len(part) >= 3 && part[len(part)-2].Kind == token.KwAs {
		return lexer.NormalizeName(part[len(part)-1].Text)
	}
	name, _ := pyast.DottedName(part)
	if kind == pyast.Import {
		name, _, _ = strings.Cut(name, ".")
	}
	return lexer.NormalizeName(name)
}
