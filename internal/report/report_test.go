package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"nosemig/internal/ledger"
)

func sampleSnapshot() ledger.Snapshot {
	return ledger.Snapshot{Entries: []ledger.Entry{
		{ID: "a/test_x.py::test_g#0@1", Path: "a/test_x.py", Pattern: "generator-test", Status: ledger.Transformed},
		{ID: "a/test_x.py::test_r#0@2", Path: "a/test_x.py", Pattern: "raises-decorator", Status: ledger.Failed, Reason: "inline body"},
		{ID: "a/test_x.py::test_r#0@3", Path: "a/test_x.py", Pattern: "raises-decorator", Status: ledger.Failed, Reason: "old", Superseded: true},
		{ID: "b/test_y.py::<module>#0@4", Path: "b/test_y.py", Pattern: "parse-error", Status: ledger.Failed, Reason: "bad"},
		{ID: "b/test_z.py::<imports>#0@5", Path: "b/test_z.py", Pattern: "nose-import", Status: ledger.Skipped, Reason: "skip list"},
	}}
}

func TestFromSnapshotCounts(t *testing.T) {
	r := FromSnapshot(sampleSnapshot(), Options{})
	if got := r.Totals; got != (Counts{Transformed: 1, Skipped: 1, Failed: 2}) {
		t.Fatalf("totals = %+v", got)
	}
	var order []string
	for _, p := range r.Patterns {
		order = append(order, p.Pattern)
	}
	want := "generator-test raises-decorator nose-import parse-error"
	if strings.Join(order, " ") != want {
		t.Fatalf("pattern order = %v, want %s", order, want)
	}
	if len(r.Files) != 3 || r.Files[0].Path != "a/test_x.py" || r.Files[0].Failed != 1 {
		t.Fatalf("files = %+v", r.Files)
	}
	if r.Clean() {
		t.Fatal("report with failures must not be clean")
	}
	if r.Details != nil {
		t.Fatal("details included without being requested")
	}
}

func TestFromSnapshotFilterAndDetails(t *testing.T) {
	r := FromSnapshot(sampleSnapshot(), Options{
		Include: func(p string) bool { return strings.HasPrefix(p, "b/") },
		Details: true,
	})
	if r.Totals.Total() != 2 || len(r.Details) != 2 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Details[0].Reason != "bad" || r.Details[0].Status != "failed" {
		t.Fatalf("detail = %+v", r.Details[0])
	}
}

func TestDirectories(t *testing.T) {
	r := FromSnapshot(sampleSnapshot(), Options{})
	dirs := r.Directories()
	if len(dirs) != 2 || dirs[0].Dir != "a" || dirs[1].Files != 2 {
		t.Fatalf("dirs = %+v", dirs)
	}
	if p := dirs[0].Percent(); p != 50 {
		t.Fatalf("percent = %v, want 50", p)
	}
	if p := (DirCounts{}).Percent(); p != 100 {
		t.Fatalf("empty percent = %v", p)
	}
}

func TestWriteFormats(t *testing.T) {
	color.NoColor = true
	r := FromSnapshot(sampleSnapshot(), Options{Details: true})
	r.Unknown = 1
	r.Unprocessed = []string{"c/test_w.py"}

	var buf bytes.Buffer
	if err := Write(&buf, r, FormatText); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	for _, want := range []string{"migration summary", "1 unknown", "inline body", "c/test_w.py", "raises-decorator"} {
		if !strings.Contains(text, want) {
			t.Errorf("text output lacks %q:\n%s", want, text)
		}
	}

	buf.Reset()
	if err := Write(&buf, r, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	totals := decoded["totals"].(map[string]any)
	if totals["failed"].(float64) != 2 {
		t.Fatalf("json totals = %v", totals)
	}
	patterns := decoded["patterns"].([]any)
	if patterns[0].(map[string]any)["transformed"].(float64) != 1 {
		t.Fatalf("json pattern counts not inlined: %v", patterns[0])
	}

	buf.Reset()
	if err := Write(&buf, r, FormatYAML); err != nil {
		t.Fatal(err)
	}
	var y struct {
		Unknown int `yaml:"unknown"`
		Files   []struct {
			Path   string `yaml:"path"`
			Failed int    `yaml:"failed"`
		} `yaml:"files"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &y); err != nil {
		t.Fatal(err)
	}
	if y.Unknown != 1 || len(y.Files) != 3 || y.Files[1].Failed != 1 {
		t.Fatalf("yaml = %+v", y)
	}
}

func TestWriteStatus(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	if err := WriteStatus(&buf, FromSnapshot(sampleSnapshot(), Options{})); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "overall") || !strings.Contains(out, " 50.0%") {
		t.Fatalf("status output:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("xml accepted")
	}
}
