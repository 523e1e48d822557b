package fix

import (
	"errors"
	"fmt"
	"sort"

	"nosemig/internal/diag"
	"nosemig/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeAll ApplyMode = iota
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID        string
	Title     string
	EditCount int
}

// SkipReason classifies why a fix was not applied.
type SkipReason uint8

const (
	SkipInvalid SkipReason = iota
	// SkipConflict: the fix overlaps a fix applied before it.
	SkipConflict
	// SkipStale: an OldText guard did not match.
	SkipStale
	SkipNotSelected
)

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Kind   SkipReason
	Reason string
}

// ApplyResult holds the rewritten buffer and what happened to each fix.
type ApplyResult struct {
	Content   []byte
	Applied   []AppliedFix
	Skipped   []SkippedFix
	EditCount int
}

type candidate struct {
	fix   diag.Fix
	order int
}

// Apply applies fixes to an in-memory copy of file and returns the result.
// Fixes are taken in deterministic order (first edit position, then input
// order); a fix is applied whole or not at all. file itself is not modified.
func Apply(file *source.File, fixes []diag.Fix, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied: make([]AppliedFix, 0),
		Skipped: make([]SkippedFix, 0),
	}
	if file == nil {
		return result, fmt.Errorf("fix: file is nil")
	}
	result.Content = file.Content

	candidates, buildSkips := gatherCandidates(file, fixes)
	result.Skipped = append(result.Skipped, buildSkips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}

	sortCandidates(candidates)

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	content, applied, skipped, edits := applyCandidates(file.Content, selected)
	result.Content = content
	result.Applied = append(result.Applied, applied...)
	result.Skipped = append(result.Skipped, skipped...)
	result.EditCount = edits
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

// gatherCandidates drops fixes that can never apply: no edits, edits aimed at
// another file, self-overlapping edits, or an id seen before.
func gatherCandidates(file *source.File, fixes []diag.Fix) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0, len(fixes))
	skips := make([]SkippedFix, 0)
	seen := make(map[string]struct{})

	for idx, f := range fixes {
		skip := func(reason string) {
			skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Kind: SkipInvalid, Reason: reason})
		}
		if len(f.Edits) == 0 {
			skip("fix has no edits")
			continue
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("fix-%d-%d", file.ID, idx)
		}
		if _, dup := seen[f.ID]; dup {
			skip("duplicate fix id")
			continue
		}
		if !editsTarget(f.Edits, file.ID) {
			skip("edit targets another file")
			continue
		}
		if selfOverlapping(f.Edits) {
			skip("fix contains overlapping edits")
			continue
		}
		seen[f.ID] = struct{}{}
		cands = append(cands, candidate{fix: f, order: idx})
	}
	return cands, skips
}

func editsTarget(edits []diag.TextEdit, id source.FileID) bool {
	for _, e := range edits {
		if e.Span.File != id {
			return false
		}
	}
	return true
}

func selfOverlapping(edits []diag.TextEdit) bool {
	for i := range edits {
		for j := i + 1; j < len(edits); j++ {
			if spansConflict(edits[i], edits[j]) {
				return true
			}
		}
	}
	return false
}

// sortCandidates orders fixes by the earliest edit they make, then by input order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := firstStart(candidates[i].fix), firstStart(candidates[j].fix)
		if si != sj {
			return si < sj
		}
		return candidates[i].order < candidates[j].order
	})
}

func firstStart(f diag.Fix) uint32 {
	start := f.Edits[0].Span.Start
	for _, e := range f.Edits[1:] {
		start = min(start, e.Span.Start)
	}
	return start
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		var selected []candidate
		skipped := make([]SkippedFix, 0)
		for _, cand := range candidates {
			if cand.fix.ID == opts.TargetID {
				selected = append(selected, cand)
				continue
			}
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Kind:   SkipNotSelected,
				Reason: "not selected",
			})
		}
		if len(selected) == 0 {
			skipped = append(skipped, SkippedFix{ID: opts.TargetID, Kind: SkipNotSelected, Reason: "fix id not found"})
		}
		return selected, skipped
	default:
		return candidates, nil
	}
}

func applyCandidates(content []byte, selected []candidate) ([]byte, []AppliedFix, []SkippedFix, int) {
	buffer := append([]byte(nil), content...)
	var appliedEdits []diag.TextEdit
	applied := make([]AppliedFix, 0, len(selected))
	skipped := make([]SkippedFix, 0)
	total := 0

	for _, cand := range selected {
		edits := append([]diag.TextEdit(nil), cand.fix.Edits...)
		if conflictsWithExisting(appliedEdits, edits) {
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Kind:   SkipConflict,
				Reason: "conflicts with previously applied edits",
			})
			continue
		}

		sort.SliceStable(edits, func(i, j int) bool {
			if edits[i].Span.Start == edits[j].Span.Start {
				return edits[i].Span.End > edits[j].Span.End
			}
			return edits[i].Span.Start > edits[j].Span.Start
		})

		working := append([]byte(nil), buffer...)
		existingApplied := append([]diag.TextEdit(nil), appliedEdits...)
		var skipReason string
		kind := SkipInvalid
		for _, edit := range edits {
			start := int(edit.Span.Start) + cumulativeDelta(existingApplied, int(edit.Span.Start))
			end := int(edit.Span.End) + cumulativeDelta(existingApplied, int(edit.Span.End))
			if start < 0 || end < start || end > len(working) {
				skipReason = "edit span out of range"
				break
			}
			if edit.OldText != "" && string(working[start:end]) != edit.OldText {
				skipReason, kind = "existing text does not match expected content", SkipStale
				break
			}
			suffix := append([]byte(nil), working[end:]...)
			working = append(append(working[:start], []byte(edit.NewText)...), suffix...)
			existingApplied = insertEditSorted(existingApplied, edit)
		}
		if skipReason != "" {
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Kind:   kind,
				Reason: skipReason,
			})
			continue
		}

		buffer = working
		appliedEdits = existingApplied
		total += len(edits)
		applied = append(applied, AppliedFix{
			ID:        cand.fix.ID,
			Title:     cand.fix.Title,
			EditCount: len(edits),
		})
	}
	return buffer, applied, skipped, total
}

func conflictsWithExisting(existing []diag.TextEdit, edits []diag.TextEdit) bool {
	for _, prev := range existing {
		for _, cand := range edits {
			if spansConflict(prev, cand) {
				return true
			}
		}
	}
	return false
}

// spansConflict reports whether two text edits' spans overlap.
// Spans are treated as half-open intervals [Start, End). Two zero-length edits
// (Start == End) never conflict. A zero-length edit conflicts with a non-zero
// span if its position is strictly inside that span (Start < pos < End). For
// two non-zero spans, any overlap yields a conflict.
func spansConflict(a, b diag.TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart < aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart < bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

func cumulativeDelta(edits []diag.TextEdit, pos int) int {
	delta := 0
	for _, e := range edits {
		eStart := int(e.Span.Start)
		if eStart > pos {
			break
		}
		eEnd := int(e.Span.End)
		length := eEnd - eStart
		change := len(e.NewText) - length
		if eEnd <= pos {
			delta += change
		}
	}
	return delta
}

func insertEditSorted(edits []diag.TextEdit, edit diag.TextEdit) []diag.TextEdit {
	insertIdx := sort.Search(len(edits), func(i int) bool {
		if edits[i].Span.Start == edit.Span.Start {
			return edits[i].Span.End >= edit.Span.End
		}
		return edits[i].Span.Start > edit.Span.Start
	})
	edits = append(edits, diag.TextEdit{})
	copy(edits[insertIdx+1:], edits[insertIdx:])
	edits[insertIdx] = edit
	return edits
}
