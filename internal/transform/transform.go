// Package transform turns scanned fragments into guarded text edits.
//
// Each catalog kind has one rewriter. Rewriters never touch the file; they
// return a Replacement whose edits carry the original text as a guard, or a
// *Failure explaining why the fragment needs a human.
package transform

import (
	"fmt"

	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/fix"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
)

// Failure is returned when a fragment cannot be rewritten safely.
type Failure struct {
	Code   diag.Code
	Reason string
	Span   source.Span
}

func (f *Failure) Error() string {
	return f.Reason
}

func failf(code diag.Code, sp source.Span, format string, args ...any) *Failure {
	return &Failure{Code: code, Span: sp, Reason: fmt.Sprintf(format, args...)}
}

// Replacement is the rewrite of one fragment. Fix.ID is the fragment
// identity key and Fix.Title the pattern id.
type Replacement struct {
	Fix diag.Fix
	// Requires lists modules the new text references.
	Requires []string
	// Releases lists import bindings the rewrite stopped using.
	Releases []string
}

type rewriter func(frag scanner.Fragment) (Replacement, error)

var rewriters map[catalog.Kind]rewriter

func init() {
	rewriters = map[catalog.Kind]rewriter{
		catalog.GeneratorTest:          rewriteGenerator,
		catalog.RaisesDecorator:        rewriteRaises,
		catalog.WithSetupDecorator:     rewriteWithSetup,
		catalog.TestCaseClass:          rewriteTestCase,
		catalog.ClassSetupTeardownPair: rewriteClassHooks,
		catalog.ClassSetupHook:         rewriteClassHooks,
		catalog.ModuleSetupHook:        rewriteModuleHook,
		catalog.NoseAssertCalls:        rewriteAsserts,
		catalog.NoseImport:             rewriteNoseImport,
	}
}

// Apply rewrites frag. The error, when non-nil, is always a *Failure.
func Apply(frag scanner.Fragment) (Replacement, error) {
	rw, ok := rewriters[frag.Pattern.Kind]
	if !ok {
		return Replacement{}, failf(diag.MigInfo, frag.Span, "no rewrite for pattern %q", frag.Pattern.ID)
	}
	return rw(frag)
}

// editor accumulates the edits of one rewrite.
type editor struct {
	file   *source.File
	parts  []diag.Fix
	pytest bool
}

func newEditor(frag scanner.Fragment) *editor {
	return &editor{file: frag.Module.File}
}

func (e *editor) span(start, end uint32) source.Span {
	return source.Span{File: e.file.ID, Start: start, End: end}
}

func (e *editor) replace(sp source.Span, text string) {
	e.parts = append(e.parts, fix.ReplaceSpan("", sp, text, e.file.Text(sp)))
}

func (e *editor) insert(off uint32, text string) {
	e.parts = append(e.parts, fix.InsertText("", e.span(off, off), text, ""))
}

func (e *editor) delete(sp source.Span) {
	e.parts = append(e.parts, fix.DeleteSpan("", sp, e.file.Text(sp)))
}

func (e *editor) usesPytest() {
	e.pytest = true
}

func (e *editor) done(frag scanner.Fragment) (Replacement, error) {
	if len(e.parts) == 0 {
		return Replacement{}, failf(diag.MigInfo, frag.Span, "rewrite produced no edits")
	}
	r := Replacement{Fix: fix.Merge(frag.Pattern.ID, e.parts, fix.WithID(frag.ID.Key()))}
	if e.pytest {
		r.Requires = []string{"pytest"}
	}
	return r, nil
}
