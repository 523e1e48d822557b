package transform

import (
	"testing"

	"nosemig/internal/parser"
	"nosemig/internal/pyast"
	"nosemig/internal/source"
)

func parseStmt(t *testing.T, src string) (*source.File, *pyast.Stmt) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test_t.py", []byte(src)))
	mod := parser.ParseFile(file, parser.Options{})
	if len(mod.Body) == 0 {
		t.Fatalf("no statements parsed from %q", src)
	}
	return file, mod.Body[0]
}

func TestIndentLinesSkipsStringContinuations(t *testing.T) {
	src := "def f():\n    s = '''\nkeep\n'''\n\n    return s\n"
	file, fn := parseStmt(t, src)
	start, end, ok := blockRange(file, fn, true)
	if !ok {
		t.Fatal("blockRange failed")
	}
	got := indentLines(file, start, end, "    ", multilineStrings(fn.Tokens()))
	want := "        s = '''\nkeep\n'''\n\n        return s"
	if got != want {
		t.Fatalf("indentLines:\nwant %q\ngot  %q", want, got)
	}
}

func TestGapComments(t *testing.T) {
	src := "x = f(a,  # first\n      # second\n      b)\n"
	file, st := parseStmt(t, src)
	got := gapComments(file, st.Header, nil)
	if len(got) != 2 || got[0] != "# first" || got[1] != "# second" {
		t.Fatalf("unexpected comments %q", got)
	}
}

func TestDynamicScope(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"def f():\n    global X\n", "global statement"},
		{"def f():\n    exec('x = 1')\n", "exec() call"},
		{"def f():\n    sys.path.insert(0, 'x')\n", "sys.path access"},
		{"def f():\n    importlib.reload(m)\n", "importlib use"},
		{"def f():\n    self.eval(1)\n", ""},
		{"def f():\n    x = 1\n", ""},
	}
	for _, tt := range tests {
		_, fn := parseStmt(t, tt.src)
		if got := dynamicScope(fn); got != tt.want {
			t.Errorf("dynamicScope(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestStep(t *testing.T) {
	if got := step("    ", "\t"); got != defaultStep {
		t.Errorf("step with unrelated indents = %q", got)
	}
	if got := step("  ", "    "); got != "  " {
		t.Errorf("step = %q, want two spaces", got)
	}
}
