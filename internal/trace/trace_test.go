package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopeDriver, true},
		{LevelPhase, ScopeFile, false},
		{LevelDetail, ScopeFile, true},
		{LevelDetail, ScopeFragment, false},
		{LevelDebug, ScopeFragment, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	span := Begin(tr, ScopeFile, "file:a.py", 0)
	Point(tr, ScopeFile, "round", "1", span.ID(), "fragments", "3")
	Point(tr, ScopeFragment, "hidden", "", span.ID())
	span.WithExtra("written", "true").End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d events, want 3:\n%s", len(lines), buf.String())
	}
	var ev struct {
		Kind     string            `json:"kind"`
		Scope    string            `json:"scope"`
		ParentID uint64            `json:"parent_id"`
		Extra    map[string]string `json:"extra"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "point" || ev.Scope != "file" || ev.ParentID != span.ID() || ev.Extra["fragments"] != "3" {
		t.Fatalf("unexpected point event %+v", ev)
	}
}

func TestRingTracerKeepsLatest(t *testing.T) {
	tr := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopeDriver, name, "", 0)
	}
	events := tr.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("snapshot = %+v", events)
	}
	var buf bytes.Buffer
	if err := tr.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "driver c") {
		t.Fatalf("dump:\n%s", buf.String())
	}
}

func TestDumpRingFindsNestedRing(t *testing.T) {
	ring := NewRingTracer(4, LevelDebug)
	var streamOut bytes.Buffer
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&streamOut, LevelDebug, FormatText), ring)
	Point(multi, ScopeFile, "round", "0", 0)

	var buf bytes.Buffer
	found, err := DumpRing(multi, &buf, FormatText)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if !strings.Contains(buf.String(), "round") {
		t.Fatalf("dump:\n%s", buf.String())
	}
	if found, _ := DumpRing(Nop, &buf, FormatText); found {
		t.Fatal("nop tracer has no ring")
	}
}

func TestContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatal("background context must carry the nop tracer")
	}
	tr := NewRingTracer(4, LevelPhase)
	if FromContext(WithTracer(context.Background(), tr)) != tr {
		t.Fatal("tracer not propagated")
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	if l, err := ParseLevel("Detail"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("invalid level accepted")
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}

func TestSpanContextNesting(t *testing.T) {
	tr := NewRingTracer(8, LevelDebug)
	root := Begin(tr, ScopeDriver, "cmd:migrate", 0)
	ctx := WithSpan(context.Background(), root)
	if got := CurrentSpan(ctx).SpanID; got != root.ID() {
		t.Fatalf("CurrentSpan = %d, want %d", got, root.ID())
	}
	file := BeginFile(tr, "tests/test_a.py", CurrentSpan(ctx).SpanID)
	file.Fail(errors.New("disk full")).Fail(nil).End("error")

	events := tr.Snapshot()
	end := events[len(events)-1]
	if end.Name != "file:tests/test_a.py" || end.ParentID != root.ID() || end.Extra["error"] != "disk full" {
		t.Fatalf("file span end = %+v", end)
	}

	off := Begin(NewRingTracer(8, LevelPhase), ScopeFile, "file:b.py", 0)
	if off.ID() != 0 || WithSpan(ctx, off) != ctx {
		t.Fatal("filtered span must stay disabled")
	}
}

func TestInFlightStats(t *testing.T) {
	f := NewInFlight()
	leaveA := f.Enter("a.py")
	leaveB := f.Enter("b.py")
	f.mu.Lock()
	f.files["a.py"] = f.files["b.py"].Add(-time.Second)
	f.mu.Unlock()

	st := f.Stats(time.Now())
	if st.Running != 2 || st.Done != 0 || st.Oldest != "a.py" || st.Age < time.Second {
		t.Fatalf("stats = %+v", st)
	}
	leaveA()
	leaveA()
	leaveB()
	if st := f.Stats(time.Now()); st.Running != 0 || st.Done != 2 || st.Oldest != "" {
		t.Fatalf("stats after leave = %+v", st)
	}

	var none *InFlight
	none.Enter("c.py")()
	if none.Stats(time.Now()) != (Stats{}) {
		t.Fatal("nil set must report nothing")
	}
}

func TestHeartbeatReportsOldestFile(t *testing.T) {
	ring := NewRingTracer(8, LevelPhase)
	f := NewInFlight()
	defer f.Enter("tests/test_slow.py")()

	h := &Heartbeat{tracer: ring, flight: f}
	h.beat(3, time.Now())
	events := ring.Snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	ev := events[0]
	if ev.Kind != KindHeartbeat || ev.Detail != "#3" || ev.Extra["oldest"] != "tests/test_slow.py" || ev.Extra["running"] != "1" {
		t.Fatalf("heartbeat = %+v", ev)
	}

	if StartHeartbeat(Nop, time.Millisecond, f) != nil {
		t.Fatal("nop tracer must not beat")
	}
	running := StartHeartbeat(ring, time.Millisecond, f)
	running.Stop()
	running.Stop()
}
