// Package report derives migration summaries from ledger snapshots.
package report

import (
	"path"
	"slices"
	"strings"
	"time"

	"nosemig/internal/catalog"
	"nosemig/internal/ledger"
)

// Counts tallies entries per status.
type Counts struct {
	Pending     int `json:"pending" yaml:"pending"`
	Transformed int `json:"transformed" yaml:"transformed"`
	Skipped     int `json:"skipped" yaml:"skipped"`
	Failed      int `json:"failed" yaml:"failed"`
}

func (c *Counts) add(st ledger.Status) {
	switch st {
	case ledger.Pending:
		c.Pending++
	case ledger.Transformed:
		c.Transformed++
	case ledger.Skipped:
		c.Skipped++
	case ledger.Failed:
		c.Failed++
	}
}

// Total is the number of counted entries.
func (c Counts) Total() int {
	return c.Pending + c.Transformed + c.Skipped + c.Failed
}

// Done is the number of entries that need no further work.
func (c Counts) Done() int {
	return c.Transformed + c.Skipped
}

// PatternCounts groups counts under one pattern id.
type PatternCounts struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Counts  `json:",inline" yaml:",inline"`
}

// FileCounts groups counts under one file.
type FileCounts struct {
	Path   string `json:"path" yaml:"path"`
	Counts `json:",inline" yaml:",inline"`
}

// Detail is one fragment line of the detailed listing.
type Detail struct {
	Path    string `json:"path" yaml:"path"`
	ID      string `json:"id" yaml:"id"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Status  string `json:"status" yaml:"status"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Report summarizes the ledger state of the files a run covered.
type Report struct {
	Root        string          `json:"root" yaml:"root"`
	DryRun      bool            `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Aborted     bool            `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	AbortReason string          `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
	Totals      Counts          `json:"totals" yaml:"totals"`
	Unknown     int             `json:"unknown" yaml:"unknown"`
	Patterns    []PatternCounts `json:"patterns" yaml:"patterns"`
	Files       []FileCounts    `json:"files" yaml:"files"`
	Unprocessed []string        `json:"unprocessed,omitempty" yaml:"unprocessed,omitempty"`
	Changed     []string        `json:"changed,omitempty" yaml:"changed,omitempty"`
	Details     []Detail        `json:"details,omitempty" yaml:"details,omitempty"`
	Duration    time.Duration   `json:"duration_ns,omitempty" yaml:"duration,omitempty"`
}

// Options selects what FromSnapshot includes.
type Options struct {
	// Include limits the report to these paths; nil means every path.
	Include func(path string) bool
	Details bool
}

// FromSnapshot counts the active entries of snap.
func FromSnapshot(snap ledger.Snapshot, opts Options) *Report {
	r := &Report{}
	byPattern := make(map[string]*Counts)
	byFile := make(map[string]*Counts)
	var files []string
	for _, e := range snap.Active() {
		if opts.Include != nil && !opts.Include(e.Path) {
			continue
		}
		r.Totals.add(e.Status)
		pc := byPattern[e.Pattern]
		if pc == nil {
			pc = &Counts{}
			byPattern[e.Pattern] = pc
		}
		pc.add(e.Status)
		fc := byFile[e.Path]
		if fc == nil {
			fc = &Counts{}
			byFile[e.Path] = fc
			files = append(files, e.Path)
		}
		fc.add(e.Status)
		if opts.Details {
			r.Details = append(r.Details, Detail{
				Path:    e.Path,
				ID:      e.ID,
				Pattern: e.Pattern,
				Status:  e.Status.String(),
				Reason:  e.Reason,
			})
		}
	}
	for _, p := range patternOrder(byPattern) {
		r.Patterns = append(r.Patterns, PatternCounts{Pattern: p, Counts: *byPattern[p]})
	}
	slices.Sort(files)
	for _, f := range files {
		r.Files = append(r.Files, FileCounts{Path: f, Counts: *byFile[f]})
	}
	return r
}

// patternOrder lists catalog patterns in priority order followed by any
// other ids alphabetically.
func patternOrder(seen map[string]*Counts) []string {
	var out []string
	for _, p := range catalog.Patterns() {
		if _, ok := seen[p.ID]; ok {
			out = append(out, p.ID)
		}
	}
	var rest []string
	for id := range seen {
		if _, ok := catalog.Lookup(id); !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// Clean reports whether nothing failed and the run completed.
func (r *Report) Clean() bool {
	return r.Totals.Failed == 0 && !r.Aborted && r.Unknown == 0
}

// DirCounts is the progress of one directory.
type DirCounts struct {
	Dir    string `json:"dir" yaml:"dir"`
	Files  int    `json:"files" yaml:"files"`
	Counts `json:",inline" yaml:",inline"`
}

// Percent is the share of entries that are done.
func (d DirCounts) Percent() float64 {
	if d.Total() == 0 {
		return 100
	}
	return float64(d.Done()) * 100 / float64(d.Total())
}

// Directories folds the file counts of r into their parent directories.
func (r *Report) Directories() []DirCounts {
	idx := make(map[string]int)
	var out []DirCounts
	for _, f := range r.Files {
		dir := path.Dir(f.Path)
		i, ok := idx[dir]
		if !ok {
			i = len(out)
			idx[dir] = i
			out = append(out, DirCounts{Dir: dir})
		}
		d := &out[i]
		d.Files++
		d.Pending += f.Pending
		d.Transformed += f.Transformed
		d.Skipped += f.Skipped
		d.Failed += f.Failed
	}
	slices.SortFunc(out, func(a, b DirCounts) int { return strings.Compare(a.Dir, b.Dir) })
	return out
}
