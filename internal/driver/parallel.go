// Package driver runs migrations: it discovers files, migrates them in
// parallel and records every fragment outcome in the ledger.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"nosemig/internal/config"
	"nosemig/internal/ledger"
	"nosemig/internal/observ"
	"nosemig/internal/report"
	"nosemig/internal/scanner"
	"nosemig/internal/trace"
)

// Request configures one migration run.
type Request struct {
	// Root is the migration root; identity paths are relative to it.
	Root string
	// Paths are the files and directories to migrate; empty means Root.
	Paths  []string
	Config config.Config
	Ledger *ledger.Ledger
	// Sink receives progress events; optional.
	Sink    ProgressSink
	Details bool
	// Timer receives the run phases; optional.
	Timer *observ.Timer
	// Rename replaces os.Rename for the final step of each write.
	Rename RenameFunc
}

type runner struct {
	scanner *scanner.Scanner
	store   *ledger.Ledger
	skips   map[string]bool
	dryRun  bool
	writer  *atomicWriter
	sink    ProgressSink
	parent  uint64
}

// fileResult is what a worker reports for its file.
type fileResult struct {
	processed bool
	changed   bool
	// unknown counts fragments rewritten in memory whose outcome was never
	// recorded because the ledger failed.
	unknown int
}

// Run migrates the files selected by req and returns the report for them.
// A ledger failure aborts the run: the partial report is returned together
// with the error. A timeout or cancellation of ctx stops dispatching new
// files; files already started run to completion and the rest are listed
// as unprocessed.
func Run(ctx context.Context, req Request) (*report.Report, error) {
	start := time.Now()
	if req.Ledger == nil {
		return nil, errors.New("driver: no ledger")
	}
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	timer := req.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "migrate", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	var files []string
	err = timer.Track("discover", func() error {
		var derr error
		files, derr = Discover(root, req.Paths, req.Config)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	rels := make([]string, len(files))
	for i, f := range files {
		if rels[i], err = relTo(root, f); err != nil {
			return nil, err
		}
		emit(req.Sink, Event{File: rels[i], Status: StatusQueued})
	}
	span.WithExtra("files", strconv.Itoa(len(files)))

	store := req.Ledger
	if req.Config.DryRun {
		store = store.Overlay()
	}
	r := &runner{
		scanner: scanner.New(scanner.Options{Root: root}),
		store:   store,
		skips:   req.Config.Skips(),
		dryRun:  req.Config.DryRun,
		writer:  &atomicWriter{rename: req.Rename},
		sink:    req.Sink,
		parent:  span.ID(),
	}
	if req.Config.Backup && !req.Config.DryRun {
		r.writer.backupDir = BackupDir(req.Ledger)
	}

	runCtx := ctx
	if d := req.Config.Timeout.Duration; d > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	results := make([]fileResult, len(files))
	idx := timer.Begin("migrate")
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(max(1, min(req.Config.Jobs(), len(files))))
	for i := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			// in-flight files finish even when the run is cancelled
			res, err := r.migrateFile(context.WithoutCancel(gctx), files[i], rels[i])
			results[i] = res
			return err
		})
	}
	fatal := g.Wait()
	timer.End(idx, fmt.Sprintf("%d files", len(files)))

	reportIdx := timer.Begin("report")
	inRun := make(map[string]bool, len(rels))
	for _, rel := range rels {
		inRun[rel] = true
	}
	rep := report.FromSnapshot(store.Snapshot(), report.Options{
		Include: func(p string) bool { return inRun[p] },
		Details: req.Details,
	})
	rep.Root = root
	rep.DryRun = req.Config.DryRun
	for i, res := range results {
		if !res.processed {
			rep.Unprocessed = append(rep.Unprocessed, rels[i])
		}
		if res.changed {
			rep.Changed = append(rep.Changed, rels[i])
		}
		rep.Unknown += res.unknown
	}
	rep.Duration = time.Since(start)
	timer.End(reportIdx, "")

	if fatal != nil {
		rep.Aborted = true
		rep.AbortReason = fatal.Error()
		return rep, fatal
	}
	if err := runCtx.Err(); err != nil && len(rep.Unprocessed) > 0 {
		rep.Aborted = true
		rep.AbortReason = "stopped before all files were processed: " + err.Error()
	}
	return rep, nil
}

// BackupDir is where --backup keeps the originals of rewritten files.
func BackupDir(l *ledger.Ledger) string {
	return filepath.Join(l.Dir(), "backups")
}
