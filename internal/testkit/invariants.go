// Package testkit holds checks shared by package tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"nosemig/internal/pyast"
	"nosemig/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed file:
// 1) every statement span is non-empty and within file content bounds
// 2) sibling statements are ordered and do not overlap
// 3) a statement span covers the spans of its body
func CheckSpanInvariants(mod *pyast.Module, sf *source.File) error {
	if mod == nil || sf == nil {
		return fmt.Errorf("nil module or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	return checkBlock(mod.Body, source.Span{File: sf.ID, End: lenContent})
}

func checkBlock(body []*pyast.Stmt, parent source.Span) error {
	var prev source.Span
	for i, st := range body {
		sp := st.Span
		if sp.End <= sp.Start {
			return fmt.Errorf("empty %s span: %v", st.Kind, sp)
		}
		if sp.File != parent.File {
			return fmt.Errorf("%s span file mismatch: got=%d want=%d", st.Kind, sp.File, parent.File)
		}
		if !parent.Contains(sp) {
			return fmt.Errorf("%s span %v is outside enclosing span %v", st.Kind, sp, parent)
		}
		if i > 0 && sp.Start < prev.End {
			return fmt.Errorf("%s span %v overlaps previous statement %v", st.Kind, sp, prev)
		}
		if err := checkBlock(st.Body, sp); err != nil {
			return err
		}
		prev = sp
	}
	return nil
}
