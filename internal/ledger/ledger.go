// Package ledger persists the migration status of every fragment identity in
// an append-only log that is replayed into an in-memory index on open.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// DirName is the ledger directory created under the migration root.
	DirName = ".nosemig"
	logName = "ledger.log"
)

// Option configures a Ledger.
type Option func(*options)

type options struct {
	now    func() time.Time
	shards int
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithShards sets the number of identity lock shards.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// Ledger is safe for concurrent use. Record calls for the same identity are
// serialized; distinct identities only share the append of their frame.
type Ledger struct {
	path string
	opts options

	locks *lockTable

	fileMu sync.Mutex
	file   *os.File // nil for in-memory overlays

	mu     sync.RWMutex
	index  map[string]Entry
	slots  map[string][]string
	closed bool

	torn int64
}

// Open replays the ledger under dir, creating it when absent. A torn tail
// left by an interrupted append is truncated.
func Open(dir string, opts ...Option) (*Ledger, error) {
	l := newLedger(filepath.Join(dir, logName), opts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Op: "open", Path: l.path, Err: err}
	}
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &Error{Op: "open", Path: l.path, Err: err}
	}
	torn, err := loadLog(f, l.put)
	if err == nil && torn > 0 {
		var info os.FileInfo
		if info, err = f.Stat(); err == nil {
			if err = f.Truncate(info.Size() - torn); err == nil {
				err = f.Sync()
			}
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, &Error{Op: "replay", Path: l.path, Err: err}
	}
	l.file = f
	l.torn = torn
	return l, nil
}

// OpenRoot opens the ledger kept in the DirName directory of root.
func OpenRoot(root string, opts ...Option) (*Ledger, error) {
	return Open(filepath.Join(root, DirName), opts...)
}

func newLedger(path string, opts []Option) *Ledger {
	o := options{now: time.Now, shards: defaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Ledger{
		path:  path,
		opts:  o,
		locks: newLockTable(o.shards),
		index: make(map[string]Entry),
		slots: make(map[string][]string),
	}
}

// put installs e in the index. Callers hold mu or own l exclusively.
func (l *Ledger) put(e Entry) {
	if _, ok := l.index[e.ID]; !ok && e.Slot != "" {
		l.slots[e.Slot] = append(l.slots[e.Slot], e.ID)
	}
	l.index[e.ID] = e
}

// Path returns the log file location.
func (l *Ledger) Path() string { return l.path }

// Dir returns the directory holding the log.
func (l *Ledger) Dir() string { return filepath.Dir(l.path) }

// Recovered returns the number of torn bytes truncated on open.
func (l *Ledger) Recovered() int64 { return l.torn }

// Persistent reports whether records reach disk.
func (l *Ledger) Persistent() bool { return l.file != nil }

// Lookup returns the entry recorded for id.
func (l *Ledger) Lookup(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.index[id]
	return e, ok
}

// Record stores e durably. The previous entry of the same identity must
// allow the transition unless it was superseded. Other active entries of the
// same slot that never reached transformed are superseded by e.
func (l *Ledger) Record(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	unlock := l.locks.lock(e.ID)
	defer unlock()

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	prev, seen := l.index[e.ID]
	var stale []Entry
	if e.Slot != "" {
		for _, id := range l.slots[e.Slot] {
			old := l.index[id]
			if id != e.ID && old.Active() && old.Status != Transformed {
				stale = append(stale, old)
			}
		}
	}
	l.mu.RUnlock()

	if seen && prev.Active() && !CanTransition(prev.Status, e.Status) {
		return fmt.Errorf("%w: %s %s -> %s", ErrIllegalTransition, e.ID, prev.Status, e.Status)
	}

	now := l.opts.now().UTC()
	e.Created, e.Updated = now, now
	if seen {
		e.Created = prev.Created
	}
	e.Superseded, e.SupersededReason = false, ""

	batch := make([]Entry, 0, len(stale)+1)
	for _, old := range stale {
		old.Superseded = true
		old.SupersededReason = "shape changed to " + e.ID
		old.Updated = now
		batch = append(batch, old)
	}
	batch = append(batch, e)
	return l.commit("record", batch)
}

// ResetPath supersedes every active entry recorded for path so the next run
// treats its fragments as new. It returns the number of entries touched.
func (l *Ledger) ResetPath(path, reason string) (int, error) {
	if reason == "" {
		reason = "reset"
	}
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return 0, ErrClosed
	}
	var batch []Entry
	now := l.opts.now().UTC()
	for _, e := range l.index {
		if e.Path == path && e.Active() {
			e.Superseded, e.SupersededReason, e.Updated = true, reason, now
			batch = append(batch, e)
		}
	}
	l.mu.RUnlock()
	if len(batch) == 0 {
		return 0, nil
	}
	slices.SortFunc(batch, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })
	return len(batch), l.commit("reset", batch)
}

// Supersede marks the active entries of slot that never reached transformed
// as superseded. It returns the number of entries touched.
func (l *Ledger) Supersede(slot, reason string) (int, error) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return 0, ErrClosed
	}
	var batch []Entry
	now := l.opts.now().UTC()
	for _, id := range l.slots[slot] {
		e := l.index[id]
		if e.Active() && e.Status != Transformed {
			e.Superseded, e.SupersededReason, e.Updated = true, reason, now
			batch = append(batch, e)
		}
	}
	l.mu.RUnlock()
	if len(batch) == 0 {
		return 0, nil
	}
	return len(batch), l.commit("supersede", batch)
}

// commit appends batch with one fsync and then publishes it to the index.
func (l *Ledger) commit(op string, batch []Entry) error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	if l.file != nil {
		var buf []byte
		var err error
		for i := range batch {
			if buf, err = encodeFrame(buf, &batch[i]); err != nil {
				return &Error{Op: op, Path: l.path, Err: err}
			}
		}
		if _, err := l.file.Write(buf); err != nil {
			return &Error{Op: op, Path: l.path, Err: err}
		}
		if err := l.file.Sync(); err != nil {
			return &Error{Op: op, Path: l.path, Err: err}
		}
	}
	l.mu.Lock()
	for _, e := range batch {
		l.put(e)
	}
	l.mu.Unlock()
	return nil
}

// Snapshot returns a consistent copy of all entries, superseded ones
// included, ordered by path then identity.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	entries := make([]Entry, 0, len(l.index))
	for _, e := range l.index {
		entries = append(entries, e)
	}
	l.mu.RUnlock()
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return Snapshot{Entries: entries}
}

// Overlay returns an in-memory copy of l. Records made through it are never
// written, which is what dry runs use.
func (l *Ledger) Overlay() *Ledger {
	o := newLedger(l.path, nil)
	o.opts = l.opts
	l.mu.RLock()
	defer l.mu.RUnlock()
	for id, e := range l.index {
		o.index[id] = e
	}
	for slot, ids := range l.slots {
		o.slots[slot] = slices.Clone(ids)
	}
	return o
}

// Compact rewrites the log keeping only the latest record of each identity.
// The new log replaces the old one by rename.
func (l *Ledger) Compact() (before, after int64, err error) {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	if l.file == nil {
		return 0, 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, 0, ErrClosed
	}
	wrap := func(err error) error { return &Error{Op: "compact", Path: l.path, Err: err} }

	info, err := l.file.Stat()
	if err != nil {
		return 0, 0, wrap(err)
	}
	entries := make([]Entry, 0, len(l.index))
	for _, e := range l.index {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })

	tmp, err := os.CreateTemp(filepath.Dir(l.path), "ledger-*.tmp")
	if err != nil {
		return 0, 0, wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = writeLog(tmp, entries); err != nil {
		return 0, 0, wrap(err)
	}
	if err = tmp.Sync(); err != nil {
		return 0, 0, wrap(err)
	}
	if err = tmp.Close(); err != nil {
		return 0, 0, wrap(err)
	}
	if err = os.Rename(tmp.Name(), l.path); err != nil {
		return 0, 0, wrap(err)
	}
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return 0, 0, wrap(err)
	}
	_ = l.file.Close()
	l.file = f
	newInfo, err := f.Stat()
	if err != nil {
		return 0, 0, wrap(err)
	}
	return info.Size(), newInfo.Size(), nil
}

// Close releases the log file. Further calls return ErrClosed.
func (l *Ledger) Close() error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.closed = true
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return &Error{Op: "close", Path: l.path, Err: err}
	}
	return nil
}
