package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"nosemig/internal/catalog"
	"nosemig/internal/config"
	"nosemig/internal/diag"
	"nosemig/internal/ledger"
	"nosemig/internal/report"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
	"nosemig/internal/trace"
)

// VerifyRequest selects the files to verify.
type VerifyRequest struct {
	Root   string
	Paths  []string
	Config config.Config
	// Snapshot, when set, limits verification to files with at least one
	// transformed fragment in it.
	Snapshot *ledger.Snapshot
}

// Verify checks statically that the selected files parse, match no
// pattern and import nothing from nose. Tests are not executed.
func Verify(ctx context.Context, req VerifyRequest) (*report.Verification, error) {
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "verify", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	files, err := Discover(root, req.Paths, req.Config)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	sc := scanner.New(scanner.Options{Root: root})
	if req.Snapshot != nil {
		migrated := make(map[string]bool)
		for _, e := range req.Snapshot.Active() {
			if e.Status == ledger.Transformed {
				migrated[e.Path] = true
			}
		}
		files = slices.DeleteFunc(files, func(p string) bool { return !migrated[sc.RelPath(p)] })
	}

	type checked struct {
		issues []report.Issue
		err    *report.FileError
	}
	results := make([]checked, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, req.Config.Jobs()))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			issues, ferr := verifyFile(sc, path)
			results[i] = checked{issues: issues, err: ferr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &report.Verification{Root: root, Checked: make([]string, 0, len(files))}
	for i, r := range results {
		out.Checked = append(out.Checked, sc.RelPath(files[i]))
		out.Issues = append(out.Issues, r.issues...)
		if r.err != nil {
			out.Errors = append(out.Errors, *r.err)
		}
	}
	span.WithExtra("issues", fmt.Sprint(len(out.Issues)))
	return out, nil
}

func verifyFile(sc *scanner.Scanner, path string) ([]report.Issue, *report.FileError) {
	fs := source.NewFileSet()
	rel := sc.RelPath(path)
	id, err := fs.Load(path)
	if err != nil {
		return nil, &report.FileError{Path: rel, Error: err.Error()}
	}
	mod, err := sc.Parse(fs.Get(id))
	if err != nil {
		var perr *scanner.ParseError
		if errors.As(err, &perr) {
			return []report.Issue{{Path: rel, Code: perr.Code.ID(), Severity: perr.Code.Severity(), Line: perr.Line, Message: "does not parse: " + perr.Msg}}, nil
		}
		return nil, &report.FileError{Path: rel, Error: err.Error()}
	}

	var issues []report.Issue
	for f := range sc.Fragments(mod) {
		if f.Pattern.Phase == catalog.PhaseFile {
			continue
		}
		issues = append(issues, report.Issue{
			Path:     rel,
			Code:     diag.MigResidualNoseUsage.ID(),
			Severity: diag.MigResidualNoseUsage.Severity(),
			Line:     mod.File.LineOf(f.Span.Start),
			Message:  fmt.Sprintf("%s still matches %s", f.ID.Scope, f.Pattern.ID),
		})
	}
	bindings := mod.Imports.NoseBindings()
	for _, stmt := range mod.Imports.Nose {
		msg := "nose import remains"
		var helpers []string
		for _, b := range bindings {
			_, name, _ := strings.Cut(b.Target, "nose.tools.")
			if b.Stmt == stmt && catalog.IsNoseToolsHelper(name) {
				helpers = append(helpers, b.Local)
			}
		}
		if len(helpers) > 0 {
			msg += " (binds " + strings.Join(helpers, ", ") + ")"
		}
		issues = append(issues, report.Issue{
			Path:     rel,
			Code:     diag.MigResidualNoseImport.ID(),
			Severity: diag.MigResidualNoseImport.Severity(),
			Line:     mod.File.LineOf(stmt.Span.Start),
			Message:  msg,
		})
	}
	return issues, nil
}
