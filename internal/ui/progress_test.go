package ui

import (
	"strings"
	"testing"

	"nosemig/internal/driver"
)

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("migrate", []string{"test_a.py", "test_b.py"}, events).(*progressModel)

	m.applyEvent(driver.Event{File: "test_a.py", Stage: driver.StageTransform, Status: driver.StatusWorking})
	if got := m.items[0].status; got != "rewriting" {
		t.Fatalf("status = %q, want rewriting", got)
	}
	m.applyEvent(driver.Event{File: "test_a.py", Stage: driver.StageWrite, Status: driver.StatusDone, Changed: true})
	m.applyEvent(driver.Event{File: "test_b.py", Stage: driver.StageWrite, Status: driver.StatusError})
	// late events for a finished file are ignored
	m.applyEvent(driver.Event{File: "test_b.py", Stage: driver.StageScan, Status: driver.StatusWorking})
	m.applyEvent(driver.Event{File: "unknown.py", Status: driver.StatusDone})

	if m.finished != 2 || m.changed != 1 || m.failed != 1 {
		t.Fatalf("finished=%d changed=%d failed=%d", m.finished, m.changed, m.failed)
	}
	if got := m.items[1].status; got != "error" {
		t.Fatalf("status = %q, want error", got)
	}
	view := m.View()
	for _, want := range []string{"2/2 files", "1 rewritten", "1 with errors", "test_a.py"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelVisibleRows(t *testing.T) {
	files := make([]string, 20)
	for i := range files {
		files[i] = "test_" + string(rune('a'+i)) + ".py"
	}
	m := NewProgressModel("migrate", files, nil).(*progressModel)
	m.applyEvent(driver.Event{File: files[19], Stage: driver.StageScan, Status: driver.StatusWorking})

	rows := m.visible()
	if len(rows) != maxRows {
		t.Fatalf("rows = %d, want %d", len(rows), maxRows)
	}
	if rows[0].path != files[19] {
		t.Fatalf("first row = %q, want the active file", rows[0].path)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("tests/unit/test_long_name.py", 12); got != "tests/..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short.py", 12); got != "short.py" {
		t.Fatalf("truncate = %q", got)
	}
}
