package trace

import (
	"strconv"
	"sync"
	"time"
)

// InFlight is the set of files being migrated right now. Heartbeats report
// the longest running one, which names the file when a run hangs.
type InFlight struct {
	mu    sync.Mutex
	files map[string]time.Time
	done  int
}

// NewInFlight returns an empty set.
func NewInFlight() *InFlight {
	return &InFlight{files: make(map[string]time.Time)}
}

// Enter adds file to the set; calling the returned func removes it again.
func (f *InFlight) Enter(file string) (leave func()) {
	if f == nil {
		return func() {}
	}
	f.mu.Lock()
	f.files[file] = time.Now()
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		if _, ok := f.files[file]; ok {
			delete(f.files, file)
			f.done++
		}
		f.mu.Unlock()
	}
}

// Stats describes an InFlight set at one instant.
type Stats struct {
	Running int
	Done    int
	// Oldest is the file running longest and Age how long it has run.
	Oldest string
	Age    time.Duration
}

// Stats returns the current counts. Ties on start time go to the smaller
// file name.
func (f *InFlight) Stats(now time.Time) Stats {
	if f == nil {
		return Stats{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st := Stats{Running: len(f.files), Done: f.done}
	var first time.Time
	for file, start := range f.files {
		if st.Oldest == "" || start.Before(first) || (start.Equal(first) && file < st.Oldest) {
			st.Oldest, first = file, start
		}
	}
	if st.Oldest != "" {
		st.Age = now.Sub(first)
	}
	return st
}

// Heartbeat emits a KindHeartbeat event every interval until stopped. Each
// beat carries the in-flight statistics, so a trace that keeps beating
// without file spans ending points at the file that is stuck.
type Heartbeat struct {
	tracer   Tracer
	flight   *InFlight
	interval time.Duration
	stop     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// StartHeartbeat starts beating on t. It returns nil when t is disabled or
// interval is not positive; Stop accepts nil.
func StartHeartbeat(t Tracer, interval time.Duration, flight *InFlight) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   t,
		flight:   flight,
		interval: interval,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Heartbeat) loop() {
	defer close(h.stopped)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for seq := uint64(1); ; seq++ {
		select {
		case now := <-ticker.C:
			h.beat(seq, now)
		case <-h.stop:
			return
		}
	}
}

func (h *Heartbeat) beat(seq uint64, now time.Time) {
	st := h.flight.Stats(now)
	extra := map[string]string{
		"running": strconv.Itoa(st.Running),
		"done":    strconv.Itoa(st.Done),
	}
	if st.Oldest != "" {
		extra["oldest"] = st.Oldest
		extra["oldest_age"] = st.Age.Round(time.Millisecond).String()
	}
	h.tracer.Emit(&Event{
		Time:   now,
		Seq:    NextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeDriver,
		GID:    goroutineID(),
		Name:   "heartbeat",
		Detail: "#" + strconv.FormatUint(seq, 10),
		Extra:  extra,
	})
}

// Stop ends the beats and waits for the goroutine to exit. It is safe to
// call more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.stopped
}
