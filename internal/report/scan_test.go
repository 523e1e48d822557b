package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"nosemig/internal/diag"
)

func TestWriteScanText(t *testing.T) {
	color.NoColor = true
	s := &Scan{
		Scanned: 3,
		Files: []ScanFile{{
			Path:       "tests/test_a.py",
			Fragments:  3,
			Patterns:   []PatternCount{{Pattern: "generator-test", Count: 2}, {Pattern: "nose-import", Count: 1}},
			Complexity: Simple,
			Notes:      []string{"unittest.TestCase"},
		}},
		Errors: []FileError{{Path: "tests/test_bad.py", Error: "unterminated string"}},
	}
	var buf bytes.Buffer
	if err := WriteScan(&buf, s, FormatText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"3 files scanned, 1 need migration, 3 fragments", "generator-test", "notes: unittest.TestCase", "unreadable (1)", "unterminated string"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteScanYAML(t *testing.T) {
	s := &Scan{Root: "/r", Scanned: 1, Files: []ScanFile{{Path: "test_a.py", Fragments: 1, Complexity: Complex}}}
	var buf bytes.Buffer
	if err := WriteScan(&buf, s, FormatYAML); err != nil {
		t.Fatal(err)
	}
	var back Scan
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Files[0].Complexity != Complex || back.Root != "/r" {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestWriteVerification(t *testing.T) {
	color.NoColor = true
	v := &Verification{
		Checked: []string{"test_a.py", "test_b.py"},
		Issues: []Issue{
			{Path: "test_a.py", Code: "MIG3101", Severity: diag.SevWarning, Line: 1, Message: "nose import remains"},
			{Path: "test_a.py", Code: "SYN2001", Severity: diag.SevError, Line: 9, Message: "does not parse: unexpected token"},
		},
	}
	if v.OK() {
		t.Fatal("verification with issues reported OK")
	}
	var buf bytes.Buffer
	if err := WriteVerification(&buf, v, FormatText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 files checked, 1 with issues") || !strings.Contains(out, "error SYN2001 test_a.py:9") ||
		!strings.Contains(out, "warning MIG3101 test_a.py:1") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := WriteVerification(&buf, v, FormatYAML); err != nil {
		t.Fatal(err)
	}
	var back Verification
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "severity: warning") || back.Issues[1].Severity != diag.SevError {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteVerification(&buf, &Verification{Checked: []string{"test_a.py"}}, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "all files verified") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
