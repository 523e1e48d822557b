package ledger

// Snapshot is a point-in-time copy of the ledger index.
type Snapshot struct {
	Entries []Entry
}

// Active returns the entries that are not superseded.
func (s Snapshot) Active() []Entry {
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Active() {
			out = append(out, e)
		}
	}
	return out
}

// ForPath returns the active entries recorded for path.
func (s Snapshot) ForPath(path string) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Active() && e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// Paths lists the distinct paths with at least one active entry, in order.
func (s Snapshot) Paths() []string {
	var out []string
	for _, e := range s.Entries {
		if !e.Active() {
			continue
		}
		if n := len(out); n == 0 || out[n-1] != e.Path {
			out = append(out, e.Path)
		}
	}
	return out
}

// Count returns the number of active entries in status st.
func (s Snapshot) Count(st Status) int {
	n := 0
	for _, e := range s.Entries {
		if e.Active() && e.Status == st {
			n++
		}
	}
	return n
}
