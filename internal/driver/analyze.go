package driver

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"nosemig/internal/catalog"
	"nosemig/internal/config"
	"nosemig/internal/report"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
	"nosemig/internal/trace"
)

const (
	NoteHooks    = "setUp/tearDown"
	NoteTestCase = "unittest.TestCase"
)

type analyzed struct {
	file *report.ScanFile
	err  *report.FileError
}

// Analyze scans the files selected by cfg under paths without changing
// anything and lists those that still use legacy constructs.
func Analyze(ctx context.Context, root string, paths []string, cfg config.Config) (*report.Scan, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "scan", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	files, err := Discover(root, paths, cfg)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	sc := scanner.New(scanner.Options{Root: root})
	results := make([]analyzed, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Jobs()))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeFile(sc, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &report.Scan{Root: root, Scanned: len(files)}
	for _, r := range results {
		switch {
		case r.err != nil:
			out.Errors = append(out.Errors, *r.err)
		case r.file != nil:
			out.Files = append(out.Files, *r.file)
		}
	}
	return out, nil
}

// analyzeFile returns nil for a file without fragments.
func analyzeFile(sc *scanner.Scanner, path string) analyzed {
	fs := source.NewFileSet()
	rel := sc.RelPath(path)
	id, err := fs.Load(path)
	if err != nil {
		return analyzed{err: &report.FileError{Path: rel, Error: err.Error()}}
	}
	frags, err := sc.Scan(fs.Get(id))
	if err != nil {
		return analyzed{err: &report.FileError{Path: rel, Error: err.Error()}}
	}

	counts := make(map[string]int)
	total := 0
	for f := range frags {
		counts[f.Pattern.ID]++
		total++
	}
	if total == 0 {
		return analyzed{}
	}
	file := &report.ScanFile{
		Path:       rel,
		Fragments:  total,
		Complexity: report.RateComplexity(len(counts)),
	}
	for id, n := range counts {
		file.Patterns = append(file.Patterns, report.PatternCount{Pattern: id, Count: n})
	}
	slices.SortFunc(file.Patterns, func(a, b report.PatternCount) int {
		return cmp.Compare(catalogIndex(a.Pattern), catalogIndex(b.Pattern))
	})
	if counts["class-setup-teardown-pair"]+counts["class-setup-hook"]+counts["module-setup-hook"] > 0 {
		file.Notes = append(file.Notes, NoteHooks)
	}
	if counts["testcase-class"] > 0 {
		file.Notes = append(file.Notes, NoteTestCase)
	}
	return analyzed{file: file}
}

func catalogIndex(id string) int {
	return slices.IndexFunc(catalog.Patterns(), func(p catalog.Pattern) bool { return p.ID == id })
}
