package fix

import (
	"errors"
	"testing"

	"nosemig/internal/diag"
	"nosemig/internal/source"
)

func addFile(t *testing.T, content string) *source.File {
	t.Helper()
	fs := source.NewFileSet()
	return fs.Get(fs.AddVirtual("test_a.py", []byte(content)))
}

func TestGatherCandidatesSkipsDuplicateFixIDs(t *testing.T) {
	file := addFile(t, "")
	span := source.Span{File: file.ID}

	fixes := []diag.Fix{
		{ID: "fix-duplicate", Title: "insert", Edits: []diag.TextEdit{{Span: span, NewText: "a"}}},
		{ID: "fix-duplicate", Title: "insert again", Edits: []diag.TextEdit{{Span: span, NewText: "b"}}},
	}
	candidates, skips := gatherCandidates(file, fixes)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if len(skips) != 1 || skips[0].Reason != "duplicate fix id" {
		t.Fatalf("expected duplicate fix skip, got %+v", skips)
	}
}

func TestApplyInsertsAndReplaces(t *testing.T) {
	file := addFile(t, "def setup():\n    pass\n")
	fixes := []diag.Fix{
		ReplaceSpan("rename", source.Span{File: file.ID, Start: 4, End: 9}, "setup_module", "setup", WithID("r")),
		InsertText("import", source.Span{File: file.ID}, "import pytest\n", "", WithID("i")),
	}
	res, err := Apply(file, fixes, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := "import pytest\ndef setup_module():\n    pass\n"
	if string(res.Content) != want {
		t.Fatalf("content mismatch\nwant %q\ngot  %q", want, res.Content)
	}
	if len(res.Applied) != 2 || res.EditCount != 2 {
		t.Fatalf("expected 2 applied fixes, got %+v", res)
	}
	if string(file.Content) != "def setup():\n    pass\n" {
		t.Fatalf("source file was modified")
	}
}

func TestApplySkipsConflicts(t *testing.T) {
	file := addFile(t, "abcdef")
	fixes := []diag.Fix{
		ReplaceSpan("first", source.Span{File: file.ID, Start: 1, End: 4}, "X", "", WithID("a")),
		ReplaceSpan("second", source.Span{File: file.ID, Start: 3, End: 5}, "Y", "", WithID("b")),
	}
	res, err := Apply(file, fixes, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(res.Content) != "aXef" {
		t.Fatalf("unexpected content %q", res.Content)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].ID != "b" || res.Skipped[0].Kind != SkipConflict {
		t.Fatalf("expected b to be skipped as conflict, got %+v", res.Skipped)
	}
}

func TestApplyStaleGuard(t *testing.T) {
	file := addFile(t, "abc")
	fixes := []diag.Fix{
		DeleteSpan("delete", source.Span{File: file.ID, Start: 0, End: 1}, "z", WithID("a")),
	}
	res, err := Apply(file, fixes, ApplyOptions{})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Kind != SkipStale {
		t.Fatalf("expected stale skip, got %+v", res.Skipped)
	}
	if string(res.Content) != "abc" {
		t.Fatalf("content changed: %q", res.Content)
	}
}

func TestApplyKeepsInsertionOrderAtSamePosition(t *testing.T) {
	file := addFile(t, "x\n")
	at := source.Span{File: file.ID}
	fixes := []diag.Fix{
		Merge("two", []diag.Fix{
			InsertText("", at, "a\n", ""),
			InsertText("", at, "b\n", ""),
		}, WithID("m")),
		InsertText("c", at, "c\n", "", WithID("c")),
	}
	res, err := Apply(file, fixes, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(res.Content) != "a\nb\nc\nx\n" {
		t.Fatalf("unexpected content %q", res.Content)
	}
}

func TestApplyRejectsForeignAndOverlappingEdits(t *testing.T) {
	file := addFile(t, "abc")
	fixes := []diag.Fix{
		{ID: "foreign", Edits: []diag.TextEdit{{Span: source.Span{File: file.ID + 1}, NewText: "x"}}},
		{ID: "self", Edits: []diag.TextEdit{
			{Span: source.Span{File: file.ID, Start: 0, End: 2}, NewText: "x"},
			{Span: source.Span{File: file.ID, Start: 1, End: 3}, NewText: "y"},
		}},
		{ID: "empty"},
	}
	_, skips := gatherCandidates(file, fixes)
	if len(skips) != 3 {
		t.Fatalf("expected 3 skips, got %+v", skips)
	}
}

func TestApplyModeID(t *testing.T) {
	file := addFile(t, "abc")
	fixes := []diag.Fix{
		DeleteSpan("a", source.Span{File: file.ID, Start: 0, End: 1}, "a", WithID("a")),
		DeleteSpan("c", source.Span{File: file.ID, Start: 2, End: 3}, "c", WithID("c")),
	}
	res, err := Apply(file, fixes, ApplyOptions{Mode: ApplyModeID, TargetID: "c"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(res.Content) != "ab" {
		t.Fatalf("unexpected content %q", res.Content)
	}
}
