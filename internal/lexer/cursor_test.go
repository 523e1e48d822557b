package lexer

import (
	"testing"

	"nosemig/internal/source"
)

func createFile(content string) *source.File {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.py", []byte(content))
	return fs.Get(id)
}

func TestCursorSequentialReading(t *testing.T) {
	cursor := NewCursor(createFile("a\nb"))
	for _, want := range []byte("a\nb") {
		if cursor.EOF() {
			t.Fatalf("unexpected EOF before %q", want)
		}
		if got := cursor.Bump(); got != want {
			t.Fatalf("Bump = %q, want %q", got, want)
		}
	}
	if !cursor.EOF() || cursor.Peek() != 0 || cursor.Bump() != 0 {
		t.Fatal("expected EOF state at the end")
	}
}

func TestCursorPeekAhead(t *testing.T) {
	cursor := NewCursor(createFile("abc"))
	if b0, b1, ok := cursor.Peek2(); !ok || b0 != 'a' || b1 != 'b' {
		t.Fatalf("Peek2 = %q %q %v", b0, b1, ok)
	}
	if b0, b1, b2, ok := cursor.Peek3(); !ok || b0 != 'a' || b1 != 'b' || b2 != 'c' {
		t.Fatalf("Peek3 = %q %q %q %v", b0, b1, b2, ok)
	}
	if cursor.PeekAt(2) != 'c' || cursor.PeekAt(3) != 0 {
		t.Fatal("PeekAt mismatch")
	}
	cursor.Bump()
	cursor.Bump()
	if _, _, ok := cursor.Peek2(); ok {
		t.Fatal("Peek2 past the end must fail")
	}
}

func TestCursorMarkResetSpan(t *testing.T) {
	file := createFile("hello world")
	cursor := NewCursor(file)
	m := cursor.Mark()
	for range 5 {
		cursor.Bump()
	}
	sp := cursor.SpanFrom(m)
	if file.Text(sp) != "hello" {
		t.Fatalf("SpanFrom text = %q", file.Text(sp))
	}
	cursor.Reset(m)
	if !cursor.Eat('h') || cursor.Eat('x') {
		t.Fatal("Eat mismatch after Reset")
	}
}
