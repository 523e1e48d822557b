package trace

import (
	"bufio"
	"io"
	"sync"
)

const defaultRingSize = 4096

// RingTracer keeps the most recent events in memory. The CLI dumps it to
// stderr when a command panics, so --trace-mode=ring costs nothing until a
// run goes wrong.
type RingTracer struct {
	level Level

	mu    sync.Mutex
	buf   []Event
	next  int // slot of the next event
	count int // stored events, at most len(buf)
}

// NewRingTracer keeps the last capacity events; a non-positive capacity
// selects the default.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{level: level, buf: make([]Event, capacity)}
}

func (t *RingTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	stored := *ev
	stored.Seq = NextSeq()
	t.buf[t.next] = stored
	t.next = (t.next + 1) % len(t.buf)
	t.count = min(t.count+1, len(t.buf))
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, t.count)
	start := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := range out {
		out[i] = t.buf[(start+i)%len(t.buf)]
	}
	return out
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	bw := bufio.NewWriter(w)
	for _, ev := range t.Snapshot() {
		if _, err := bw.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

// DumpRing writes the events buffered by the ring tracer inside t, if any,
// and reports whether one was found.
func DumpRing(t Tracer, w io.Writer, format Format) (bool, error) {
	switch t := t.(type) {
	case *RingTracer:
		return true, t.Dump(w, format)
	case *MultiTracer:
		for _, inner := range t.tracers {
			if found, err := DumpRing(inner, w, format); found {
				return true, err
			}
		}
	}
	return false, nil
}
