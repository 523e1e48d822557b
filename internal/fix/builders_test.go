package fix

import (
	"testing"

	"nosemig/internal/diag"
	"nosemig/internal/source"
)

func TestInsertText(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test_a.py", []byte("x = 1\n"))

	span := source.Span{File: fileID, Start: 0, End: 0}
	fix := InsertText("Insert import", span, "import pytest\n", "", WithID("ins"))

	if fix.ID != "ins" {
		t.Errorf("expected id 'ins', got %q", fix.ID)
	}
	if len(fix.Edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(fix.Edits))
	}
	if fix.Edits[0].NewText != "import pytest\n" {
		t.Errorf("unexpected NewText %q", fix.Edits[0].NewText)
	}
}

func TestDeleteSpan(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test_a.py", []byte("import nose\nx = 1\n"))

	span := source.Span{File: fileID, Start: 0, End: 12}
	fix := DeleteSpan("Remove import", span, "import nose\n")

	edit := fix.Edits[0]
	if edit.NewText != "" {
		t.Errorf("expected empty NewText for deletion, got %q", edit.NewText)
	}
	if edit.OldText != "import nose\n" {
		t.Errorf("expected OldText guard, got %q", edit.OldText)
	}
}

func TestReplaceSpan(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test_a.py", []byte("def setup():\n    pass\n"))

	span := source.Span{File: fileID, Start: 4, End: 9}
	fix := ReplaceSpan("Rename hook", span, "setup_module", "setup")

	edit := fix.Edits[0]
	if edit.NewText != "setup_module" {
		t.Errorf("expected NewText 'setup_module', got %q", edit.NewText)
	}
	if edit.OldText != "setup" {
		t.Errorf("expected OldText 'setup', got %q", edit.OldText)
	}
}

func TestWrapWith(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test_a.py", []byte("a == b"))

	span := source.Span{File: fileID, Start: 0, End: 6}
	fix := WrapWith("Parenthesize", span, "(", ")")

	if len(fix.Edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(fix.Edits))
	}
	if fix.Edits[0].Span.Start != 0 || fix.Edits[0].Span.End != 0 {
		t.Errorf("prefix edit should be zero-length at start, got %v", fix.Edits[0].Span)
	}
	if fix.Edits[1].Span.Start != 6 || fix.Edits[1].Span.End != 6 {
		t.Errorf("suffix edit should be zero-length at end, got %v", fix.Edits[1].Span)
	}
}

func TestMerge(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test_a.py", []byte("abc"))

	a := InsertText("a", source.Span{File: fileID}, "x", "")
	b := DeleteSpan("b", source.Span{File: fileID, Start: 1, End: 2}, "b")
	fix := Merge("both", nil, WithID("m"))
	if len(fix.Edits) != 0 {
		t.Fatalf("expected no edits, got %d", len(fix.Edits))
	}
	fix = Merge("both", []diag.Fix{a, b}, WithID("m"))
	if fix.ID != "m" || fix.Title != "both" {
		t.Fatalf("unexpected header %q/%q", fix.ID, fix.Title)
	}
	if len(fix.Edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(fix.Edits))
	}
}

func TestNilOption(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test_a.py", []byte("x"))

	fix := InsertText("Test fix", source.Span{File: fileID}, "y", "", nil, WithID("id"))
	if fix.ID != "id" {
		t.Errorf("expected options after nil to apply, got id %q", fix.ID)
	}
}
