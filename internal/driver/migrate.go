package driver

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/fix"
	"nosemig/internal/ledger"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
	"nosemig/internal/trace"
	"nosemig/internal/transform"
)

const (
	// PatternParseError is the pattern id of file-level parse failures.
	PatternParseError = "parse-error"
	// PatternReadError is the pattern id of files that could not be read.
	PatternReadError = "read-error"

	maxRounds = 32
)

// fileMigration is the state of one file across its rewrite rounds.
type fileMigration struct {
	*runner
	abs, rel string
	fs       *source.FileSet
	tracer   trace.Tracer
	span     *trace.Span

	// attempted holds identity keys handled in this run; retry holds
	// fragments whose edits conflicted and wait for another round.
	attempted map[string]bool
	retry     map[string]bool
	// applied fragments are rewritten in memory and await the write.
	applied []scanner.Fragment
}

func (r *runner) migrateFile(ctx context.Context, abs, rel string) (res fileResult, err error) {
	res.processed = true
	started := time.Now()
	tracer := trace.FromContext(ctx)
	m := &fileMigration{
		runner:    r,
		abs:       abs,
		rel:       rel,
		fs:        source.NewFileSet(),
		tracer:    tracer,
		span:      trace.BeginFile(tracer, rel, r.parent),
		attempted: make(map[string]bool),
		retry:     make(map[string]bool),
	}
	leave := trace.InFlightFrom(ctx).Enter(rel)
	status := StatusDone
	defer func() {
		leave()
		if err != nil {
			status = StatusError
		}
		m.span.Fail(err).WithExtra("changed", strconv.FormatBool(res.changed))
		emit(r.sink, Event{File: rel, Stage: StageWrite, Status: status, Err: err, Elapsed: time.Since(started), Changed: res.changed})
		m.span.End(string(status))
	}()

	emit(r.sink, Event{File: rel, Stage: StageScan, Status: StatusWorking})
	id, err := m.fs.Load(abs)
	if err != nil {
		ferr := m.recordFile(scanner.FileIdentity(rel, sha256.Sum256([]byte(err.Error()))), PatternReadError, "read failed: "+err.Error())
		status = StatusError
		return res, ferr
	}
	file := m.fs.Get(id)
	mod, perr := r.scanner.Parse(file)
	if perr != nil {
		ferr := m.recordFile(scanner.FileIdentity(rel, file.Hash), PatternParseError, perr.Error())
		status = StatusError
		return res, ferr
	}
	if _, err := r.store.Supersede(m.moduleSlot(), "file parses"); err != nil {
		return res, err
	}

	emit(r.sink, Event{File: rel, Stage: StageTransform, Status: StatusWorking})
	rounds := 0
	for ; rounds < maxRounds; rounds++ {
		batch, err := m.selectBatch(mod)
		if err != nil {
			return res, err
		}
		if len(batch) == 0 {
			break
		}
		trace.Point(tracer, trace.ScopeFile, "round", strconv.Itoa(rounds), m.span.ID(),
			"fragments", strconv.Itoa(len(batch)))
		if mod, err = m.round(mod, batch); err != nil {
			return res, err
		}
	}
	m.span.WithExtra("rounds", strconv.Itoa(rounds))
	if err := m.giveUpRetries(mod); err != nil {
		return res, err
	}
	if len(m.applied) == 0 {
		return res, nil
	}

	emit(r.sink, Event{File: rel, Stage: StageWrite, Status: StatusWorking})
	if !r.dryRun {
		if werr := r.writer.write(abs, rel, mod.File.Encode(mod.File.Content)); werr != nil {
			status = StatusError
			for i, f := range m.applied {
				if err := m.record(f, ledger.Failed, werr.Error()); err != nil {
					res.unknown = len(m.applied) - i
					return res, err
				}
			}
			return res, nil
		}
	}
	res.changed = true
	for i, f := range m.applied {
		if err := m.record(f, ledger.Transformed, ""); err != nil {
			res.unknown = len(m.applied) - i
			return res, err
		}
	}
	return res, nil
}

func (m *fileMigration) moduleSlot() string {
	return scanner.Identity{Path: m.rel, Scope: scanner.ModuleScope}.Slot()
}

// recordFile stores a file-level failure.
func (m *fileMigration) recordFile(id scanner.Identity, pattern, reason string) error {
	e := ledger.Entry{ID: id.Key(), Slot: id.Slot(), Path: m.rel, Pattern: pattern, Status: ledger.Failed, Reason: reason}
	if prev, ok := m.store.Lookup(e.ID); ok && prev.Active() && prev.Status == ledger.Failed && prev.Reason == reason {
		return nil
	}
	if err := m.store.Record(e); err != nil {
		return fmt.Errorf("record %s: %w", e.ID, err)
	}
	return nil
}

func (m *fileMigration) record(f scanner.Fragment, st ledger.Status, reason string) error {
	e := ledger.Entry{
		ID:      f.ID.Key(),
		Slot:    f.ID.Slot(),
		Path:    m.rel,
		Pattern: f.Pattern.ID,
		Status:  st,
		Reason:  reason,
	}
	if err := m.store.Record(e); err != nil {
		return fmt.Errorf("record %s: %w", e.ID, err)
	}
	trace.Point(m.tracer, trace.ScopeFragment, st.String(), e.ID, m.span.ID(),
		"pattern", e.Pattern)
	return nil
}

// selectBatch returns the fragments of mod to rewrite this round: every
// unit fragment still needing work, or the file-phase fragments once no
// unit fragment is left. Fragments of skipped patterns are recorded here.
func (m *fileMigration) selectBatch(mod *scanner.Module) ([]scanner.Fragment, error) {
	var units, files []scanner.Fragment
	for f := range m.scanner.Fragments(mod) {
		key := f.ID.Key()
		if m.attempted[key] {
			continue
		}
		if prev, ok := m.store.Lookup(key); ok && prev.Active() && prev.Status.Terminal() {
			m.attempted[key] = true
			continue
		}
		if m.skips[f.Pattern.ID] {
			m.attempted[key] = true
			if err := m.record(f, ledger.Skipped, "pattern "+f.Pattern.ID+" is in skip_patterns"); err != nil {
				return nil, err
			}
			continue
		}
		if f.Pattern.Phase == catalog.PhaseUnit {
			units = append(units, f)
		} else {
			files = append(files, f)
		}
	}
	if len(units) > 0 {
		return units, nil
	}
	return files, nil
}

// round transforms batch, applies the edits that fit together and
// validates the result. It returns the module to continue from.
func (m *fileMigration) round(mod *scanner.Module, batch []scanner.Fragment) (*scanner.Module, error) {
	byID := make(map[string]scanner.Fragment, len(batch))
	needsPytest := make(map[string]bool)
	releases := make(map[string][]string)
	var fixes []diag.Fix
	for _, f := range batch {
		key := f.ID.Key()
		m.attempted[key] = true
		delete(m.retry, key)
		r, err := transform.Apply(f)
		if err != nil {
			if rerr := m.record(f, ledger.Failed, failureReason(err)); rerr != nil {
				return mod, rerr
			}
			continue
		}
		byID[r.Fix.ID] = f
		if slices.Contains(r.Requires, "pytest") {
			needsPytest[r.Fix.ID] = true
		}
		releases[r.Fix.ID] = r.Releases
		fixes = append(fixes, r.Fix)
	}

	for len(fixes) > 0 {
		all := fixes
		imp, addImport := transform.PytestImport(mod)
		addImport = addImport && slices.ContainsFunc(fixes, func(fx diag.Fix) bool { return needsPytest[fx.ID] })
		if addImport {
			all = append([]diag.Fix{imp}, fixes...)
		}
		res, err := fix.Apply(mod.File, all, fix.ApplyOptions{})
		if err != nil && !errors.Is(err, fix.ErrNoFixes) {
			return mod, err
		}
		if addImport && skippedFix(res, imp.ID) {
			fixes = slices.DeleteFunc(fixes, func(fx diag.Fix) bool {
				if needsPytest[fx.ID] {
					m.deferFragment(byID[fx.ID])
					return true
				}
				return false
			})
			continue
		}
		for _, s := range res.Skipped {
			f, ok := byID[s.ID]
			if !ok {
				continue
			}
			switch s.Kind {
			case fix.SkipConflict, fix.SkipStale:
				m.deferFragment(f)
			default:
				reason := fmt.Sprintf("%s: invalid rewrite: %s", diag.MigInvalidRewrite.ID(), s.Reason)
				if err := m.record(f, ledger.Failed, reason); err != nil {
					return mod, err
				}
			}
		}
		var accepted []scanner.Fragment
		for _, a := range res.Applied {
			if f, ok := byID[a.ID]; ok {
				accepted = append(accepted, f)
			}
		}
		if len(accepted) == 0 {
			return mod, nil
		}

		next := m.fs.Get(m.fs.AddRevision(mod.File, res.Content))
		nmod, perr := m.scanner.Parse(next)
		if perr != nil {
			if len(accepted) == 1 {
				reason := fmt.Sprintf("%s: rewrite does not parse: %v", diag.MigInvalidRewrite.ID(), perr)
				return mod, m.record(accepted[0], ledger.Failed, reason)
			}
			// isolate the culprit: keep the first rewrite, retry the others later
			for _, f := range accepted[1:] {
				m.deferFragment(f)
			}
			fixes = []diag.Fix{fixOf(fixes, accepted[0].ID.Key())}
			continue
		}
		if still := stillMatching(m.scanner, nmod, accepted); len(still) > 0 {
			for _, f := range still {
				reason := fmt.Sprintf("%s: rewrite still matches %s", diag.MigInvalidRewrite.ID(), f.Pattern.ID)
				if err := m.record(f, ledger.Failed, reason); err != nil {
					return mod, err
				}
			}
			keep := make(map[string]bool, len(accepted))
			for _, f := range accepted {
				keep[f.ID.Key()] = true
			}
			for _, f := range still {
				delete(keep, f.ID.Key())
			}
			fixes = slices.DeleteFunc(fixes, func(fx diag.Fix) bool { return !keep[fx.ID] })
			continue
		}
		m.applied = append(m.applied, accepted...)
		var released []string
		for _, f := range accepted {
			released = append(released, releases[f.ID.Key()]...)
		}
		slices.Sort(released)
		return m.dropImports(nmod, slices.Compact(released)), nil
	}
	return mod, nil
}

// dropImports removes the imports of locals once nothing in mod refers to
// them. A removal that does not apply or parse cleanly keeps the import.
func (m *fileMigration) dropImports(mod *scanner.Module, locals []string) *scanner.Module {
	for progress := true; progress && len(locals) > 0; {
		progress = false
		for i := 0; i < len(locals); i++ {
			fx, ok := transform.UnusedImport(mod, locals[i])
			if !ok {
				continue
			}
			res, err := fix.Apply(mod.File, []diag.Fix{fx}, fix.ApplyOptions{})
			if err != nil || len(res.Applied) == 0 {
				continue
			}
			nmod, perr := m.scanner.Parse(m.fs.Get(m.fs.AddRevision(mod.File, res.Content)))
			if perr != nil {
				continue
			}
			trace.Point(m.tracer, trace.ScopeFile, "drop-import", locals[i], m.span.ID())
			mod = nmod
			// "from unittest import TestCase" refers to unittest
			locals = slices.Delete(locals, i, i+1)
			i--
			progress = true
		}
	}
	return mod
}

func (m *fileMigration) deferFragment(f scanner.Fragment) {
	key := f.ID.Key()
	delete(m.attempted, key)
	m.retry[key] = true
}

// giveUpRetries fails the fragments of mod whose edits never found a round
// free of conflicts.
func (m *fileMigration) giveUpRetries(mod *scanner.Module) error {
	if len(m.retry) == 0 {
		return nil
	}
	for f := range m.scanner.Fragments(mod) {
		if m.retry[f.ID.Key()] && !m.attempted[f.ID.Key()] {
			reason := fmt.Sprintf("%s: edits kept conflicting with other rewrites", diag.MigInvalidRewrite.ID())
			if err := m.record(f, ledger.Failed, reason); err != nil {
				return err
			}
		}
	}
	return nil
}

func failureReason(err error) string {
	var fail *transform.Failure
	if errors.As(err, &fail) {
		return fail.Code.ID() + ": " + fail.Reason
	}
	return err.Error()
}

func skippedFix(res *fix.ApplyResult, id string) bool {
	return slices.ContainsFunc(res.Skipped, func(s fix.SkippedFix) bool { return s.ID == id })
}

func fixOf(fixes []diag.Fix, id string) diag.Fix {
	for _, fx := range fixes {
		if fx.ID == id {
			return fx
		}
	}
	return diag.Fix{}
}

// stillMatching returns the fragments of accepted whose slot matches the
// same pattern again in mod.
func stillMatching(sc *scanner.Scanner, mod *scanner.Module, accepted []scanner.Fragment) []scanner.Fragment {
	again := make(map[string]bool)
	for f := range sc.Fragments(mod) {
		again[f.ID.Slot()+" "+f.Pattern.ID] = true
	}
	var out []scanner.Fragment
	for _, f := range accepted {
		if again[f.ID.Slot()+" "+f.Pattern.ID] {
			out = append(out, f)
		}
	}
	return out
}
