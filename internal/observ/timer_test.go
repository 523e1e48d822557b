package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerTracksPhases(t *testing.T) {
	tm := NewTimer()
	if err := tm.Track("discover", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := tm.Track("migrate", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Track returned %v", err)
	}
	idx := tm.Begin("report")
	tm.End(idx, "text")
	tm.End(42, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 3 || rep.Phases[1].Note != "error" || rep.Phases[2].Note != "text" {
		t.Fatalf("report = %+v", rep)
	}
	sum := tm.Summary()
	for _, want := range []string{"discover", "migrate", "// error", "total"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary lacks %q:\n%s", want, sum)
		}
	}
}

func TestEmptyTimer(t *testing.T) {
	if rep := NewTimer().Report(); rep.TotalMS != 0 || rep.Phases != nil {
		t.Fatalf("report = %+v", rep)
	}
}
