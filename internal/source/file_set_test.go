package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetRevisions(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("test_a.py", []byte("x = 1\n"), 0)
	id2 := fs.AddRevision(fs.Get(id1), []byte("x = 2\n"))
	if id1 == id2 {
		t.Fatalf("expected a new FileID for the revision")
	}

	latest, ok := fs.GetLatest("test_a.py")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d, %v; want %d", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "x = 1\n" {
		t.Errorf("first revision content changed: %q", got)
	}
	if fs.Get(FileID(99)) != nil {
		t.Errorf("expected nil for unknown id")
	}
}

func TestLoadNormalizesAndEncodeRestores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_crlf.py")
	raw := []byte("\xEF\xBB\xBFdef test_a():\r\n    pass\r\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "def test_a():\n    pass\n" {
		t.Fatalf("content not normalized: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected BOM and CRLF flags, got %b", f.Flags)
	}
	if got := f.Encode(f.Content); string(got) != string(raw) {
		t.Errorf("Encode = %q, want %q", got, raw)
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.py", []byte("ab\ncd\n\nef"))
	f := fs.Get(id)

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{4, LineCol{2, 2}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if start != tt.want {
			t.Errorf("Resolve(%d) = %+v, want %+v", tt.off, start, tt.want)
		}
	}
	if got := f.GetLine(2); got != "cd" {
		t.Errorf("GetLine(2) = %q", got)
	}
	if got := f.GetLine(4); got != "ef" {
		t.Errorf("GetLine(4) = %q", got)
	}
	if got := f.LineStart(4); got != 3 {
		t.Errorf("LineStart(4) = %d, want 3", got)
	}
}

func TestSpanCoverAndOverlap(t *testing.T) {
	a := Span{File: 1, Start: 2, End: 5}
	b := Span{File: 1, Start: 4, End: 9}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 9}) {
		t.Errorf("Cover = %v", got)
	}
	if !a.Overlaps(b) {
		t.Errorf("expected overlap")
	}
	if a.Overlaps(Span{File: 1, Start: 5, End: 6}) {
		t.Errorf("adjacent spans must not overlap")
	}
	if !a.Cover(b).Contains(a) {
		t.Errorf("cover must contain its parts")
	}
}

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()
	baseDir := filepath.Join(tmp, "base")
	target := filepath.Join(tmp, "other", "test_x.py")

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if got != normalizePath(target) {
		t.Errorf("got %q, want %q", got, normalizePath(target))
	}

	inside, err := RelativePath(filepath.Join(baseDir, "pkg", "test_y.py"), baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if inside != "pkg/test_y.py" {
		t.Errorf("got %q", inside)
	}
}
