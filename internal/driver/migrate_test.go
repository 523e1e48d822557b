package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nosemig/internal/config"
	"nosemig/internal/driver"
	"nosemig/internal/ledger"
	"nosemig/internal/report"
)

const pairsSrc = `def check(a, b):
    assert a < b


def test_pairs():
    yield check, 1, 2
    yield check, 3, 4
`

const pairsWithNose = `import nose


def check(a, b):
    assert a < b


def test_pairs():
    # pairs in ascending order
    for a, b in [(1, 2), (3, 4)]:
        yield check, a, b
`

const pairsWithNoseWant = `import pytest


def check(a, b):
    assert a < b


@pytest.mark.parametrize("a, b", [(1, 2), (3, 4)])
def test_pairs(a, b):
    # pairs in ascending order
    check(a, b)
`

const testCaseSrc = `import unittest


class TestThing(unittest.TestCase):
    def setUp(self):
        self.x = 1

    def tearDown(self):
        self.x = None

    def test_x(self):
        self.assertEqual(self.x, 1)
`

type fixture struct {
	t    *testing.T
	root string
	l    *ledger.Ledger
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	f := &fixture{t: t, root: root}
	f.reopen()
	t.Cleanup(func() { _ = f.l.Close() })
	return f
}

func (f *fixture) reopen() {
	f.t.Helper()
	if f.l != nil {
		require.NoError(f.t, f.l.Close())
	}
	l, err := ledger.OpenRoot(f.root)
	require.NoError(f.t, err)
	f.l = l
}

func (f *fixture) run(cfg config.Config, paths ...string) *report.Report {
	f.t.Helper()
	rep, err := f.runWith(driver.Request{Config: cfg}, paths...)
	require.NoError(f.t, err)
	return rep
}

func (f *fixture) runWith(req driver.Request, paths ...string) (*report.Report, error) {
	req.Root = f.root
	req.Ledger = f.l
	for _, p := range paths {
		req.Paths = append(req.Paths, filepath.Join(f.root, filepath.FromSlash(p)))
	}
	return driver.Run(context.Background(), req)
}

func (f *fixture) read(name string) string {
	f.t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(name)))
	require.NoError(f.t, err)
	return string(data)
}

func (f *fixture) entries(path string) []ledger.Entry {
	return f.l.Snapshot().ForPath(path)
}

func TestRunTwoTupleGenerator(t *testing.T) {
	f := newFixture(t, map[string]string{"test_pairs.py": pairsSrc})

	rep := f.run(config.Default())
	require.True(t, rep.Clean())
	require.Equal(t, report.Counts{Transformed: 1}, rep.Totals)
	require.Equal(t, []string{"test_pairs.py"}, rep.Changed)
	require.Len(t, rep.Files, 1)

	entries := f.entries("test_pairs.py")
	require.Len(t, entries, 1)
	require.Equal(t, "generator-test", entries[0].Pattern)
	require.Equal(t, ledger.Transformed, entries[0].Status)

	got := f.read("test_pairs.py")
	require.NotContains(t, got, "yield")
	require.Contains(t, got, "@pytest.mark.parametrize")
	require.Contains(t, got, "(1, 2)")
	require.Contains(t, got, "(3, 4)")
	require.True(t, strings.HasPrefix(got, "import pytest\n"))
}

func TestRunUnitThenFilePhase(t *testing.T) {
	f := newFixture(t, map[string]string{"test_pairs.py": pairsWithNose})

	rep := f.run(config.Default())
	require.True(t, rep.Clean())
	require.Equal(t, pairsWithNoseWant, f.read("test_pairs.py"))
	require.Equal(t, 2, rep.Totals.Transformed)
	require.Equal(t, []report.PatternCounts{
		{Pattern: "generator-test", Counts: report.Counts{Transformed: 1}},
		{Pattern: "nose-import", Counts: report.Counts{Transformed: 1}},
	}, rep.Patterns)
}

func TestRunIdempotent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"test_pairs.py": pairsWithNose,
		"pkg/test_case.py": testCaseSrc,
	})
	first := f.run(config.Default())
	require.True(t, first.Clean())
	require.Len(t, first.Changed, 2)
	after := map[string]string{
		"test_pairs.py":    f.read("test_pairs.py"),
		"pkg/test_case.py": f.read("pkg/test_case.py"),
	}

	f.reopen()
	second := f.run(config.Default())
	require.True(t, second.Clean())
	require.Empty(t, second.Changed)
	require.Equal(t, first.Totals, second.Totals)
	for name, want := range after {
		require.Equal(t, want, f.read(name), name)
	}
}

func TestRunPatternExclusivity(t *testing.T) {
	f := newFixture(t, map[string]string{"test_case.py": testCaseSrc})

	rep := f.run(config.Default())
	require.True(t, rep.Clean())
	entries := f.entries("test_case.py")
	require.Len(t, entries, 1)
	require.Equal(t, "testcase-class", entries[0].Pattern)

	got := f.read("test_case.py")
	require.Contains(t, got, "class TestThing:")
	require.Contains(t, got, "def setup_method(self):")
	require.Contains(t, got, "def teardown_method(self):")
	require.Contains(t, got, "assert self.x == 1")
	require.NotContains(t, got, "import unittest")
	require.True(t, strings.HasPrefix(got, "class TestThing:"), got)
}

func TestRunResumable(t *testing.T) {
	files := map[string]string{}
	names := []string{"test_a.py", "test_b.py", "test_c.py", "test_d.py", "test_e.py"}
	for _, n := range names {
		files[n] = pairsSrc
	}
	f := newFixture(t, files)

	first := f.run(config.Default(), names[:2]...)
	require.Equal(t, names[:2], first.Changed)
	done := map[string]string{}
	for _, n := range names[:2] {
		done[n] = f.read(n)
	}
	for _, n := range names[2:] {
		require.Equal(t, pairsSrc, f.read(n), "untouched before resume")
	}

	f.reopen()
	second := f.run(config.Default())
	require.Equal(t, names[2:], second.Changed)
	require.Equal(t, 5, second.Totals.Transformed)
	for n, want := range done {
		require.Equal(t, want, f.read(n), n)
	}
}

func TestRunAtomicWrite(t *testing.T) {
	f := newFixture(t, map[string]string{"test_pairs.py": pairsSrc})
	crash := errors.New("power loss")

	rep, err := f.runWith(driver.Request{
		Config: config.Default(),
		Rename: func(string, string) error { return crash },
	})
	require.NoError(t, err)
	require.False(t, rep.Clean())
	require.Empty(t, rep.Changed)
	require.Equal(t, pairsSrc, f.read("test_pairs.py"))

	entries := f.entries("test_pairs.py")
	require.Len(t, entries, 1)
	require.Equal(t, ledger.Failed, entries[0].Status)
	require.Contains(t, entries[0].Reason, "power loss")

	tmps, err := filepath.Glob(filepath.Join(f.root, ".nosemig-*.tmp"))
	require.NoError(t, err)
	require.Empty(t, tmps)

	// the failed fragment is retried on the next run
	rep = f.run(config.Default())
	require.True(t, rep.Clean())
	require.Equal(t, ledger.Transformed, f.entries("test_pairs.py")[0].Status)
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, map[string]string{"test_pairs.py": pairsSrc})
	cfg := config.Default()
	cfg.DryRun = true

	rep := f.run(cfg)
	require.True(t, rep.DryRun)
	require.Equal(t, 1, rep.Totals.Transformed)
	require.Equal(t, []string{"test_pairs.py"}, rep.Changed)
	require.Equal(t, pairsSrc, f.read("test_pairs.py"))
	require.Empty(t, f.l.Snapshot().Entries)

	f.reopen()
	require.Empty(t, f.l.Snapshot().Entries)
}

func TestRunParseError(t *testing.T) {
	f := newFixture(t, map[string]string{
		"test_bad.py":   "def test_broken(:\n    pass\n",
		"test_pairs.py": pairsSrc,
	})

	rep := f.run(config.Default())
	require.False(t, rep.Clean())
	require.Equal(t, []string{"test_pairs.py"}, rep.Changed)
	bad := f.entries("test_bad.py")
	require.Len(t, bad, 1)
	require.Equal(t, driver.PatternParseError, bad[0].Pattern)
	require.Equal(t, ledger.Failed, bad[0].Status)
	require.NotEmpty(t, bad[0].Reason)

	require.NoError(t, os.WriteFile(filepath.Join(f.root, "test_bad.py"), []byte(pairsSrc), 0o644))
	rep = f.run(config.Default())
	require.True(t, rep.Clean())
	bad = f.entries("test_bad.py")
	require.Len(t, bad, 1)
	require.Equal(t, "generator-test", bad[0].Pattern)
}

func TestRunSkipPatterns(t *testing.T) {
	f := newFixture(t, map[string]string{"test_pairs.py": pairsSrc})
	cfg := config.Default()
	cfg.SkipPatterns = []string{"generator-test"}

	rep := f.run(cfg)
	require.True(t, rep.Clean())
	require.Empty(t, rep.Changed)
	require.Equal(t, report.Counts{Skipped: 1}, rep.Totals)
	require.Equal(t, pairsSrc, f.read("test_pairs.py"))
	require.Contains(t, f.entries("test_pairs.py")[0].Reason, "skip_patterns")

	// skipped is terminal until the file is reset
	rep = f.run(config.Default())
	require.Equal(t, report.Counts{Skipped: 1}, rep.Totals)

	n, err := f.l.ResetPath("test_pairs.py", "skip list changed")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	rep = f.run(config.Default())
	require.Equal(t, report.Counts{Transformed: 1}, rep.Totals)
}

func TestRunBackupAndRestore(t *testing.T) {
	f := newFixture(t, map[string]string{"pkg/test_pairs.py": pairsSrc})
	cfg := config.Default()
	cfg.Backup = true

	f.run(cfg)
	backup := filepath.Join(driver.BackupDir(f.l), "pkg", "test_pairs.py")
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	require.Equal(t, pairsSrc, string(data))
	require.NotEqual(t, pairsSrc, f.read("pkg/test_pairs.py"))

	restored, err := driver.Restore(f.root, filepath.Join(f.root, "pkg", "test_pairs.py"), f.l)
	require.NoError(t, err)
	require.Equal(t, "pkg/test_pairs.py", restored.Path)
	require.Equal(t, 1, restored.Reset)
	require.Equal(t, pairsSrc, f.read("pkg/test_pairs.py"))
	require.Empty(t, f.entries("pkg/test_pairs.py"))

	_, err = driver.Restore(f.root, filepath.Join(f.root, "pkg", "test_other.py"), f.l)
	require.ErrorIs(t, err, driver.ErrNoBackup)
}

func TestRunCancelledBeforeDispatch(t *testing.T) {
	f := newFixture(t, map[string]string{"test_a.py": pairsSrc, "test_b.py": pairsSrc})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := driver.Run(ctx, driver.Request{Root: f.root, Ledger: f.l, Config: config.Default()})
	require.NoError(t, err)
	require.True(t, rep.Aborted)
	require.Equal(t, []string{"test_a.py", "test_b.py"}, rep.Unprocessed)
	require.Equal(t, pairsSrc, f.read("test_a.py"))
}

func TestRunTimeoutLetsInFlightFileFinish(t *testing.T) {
	f := newFixture(t, map[string]string{
		"test_a.py": pairsSrc,
		"test_b.py": pairsSrc,
		"test_c.py": pairsSrc,
	})
	cfg := config.Default()
	cfg.Concurrency = 1
	cfg.Timeout = config.Duration{Duration: 50 * time.Millisecond}

	var renames []string
	slow := func(oldpath, newpath string) error {
		renames = append(renames, filepath.Base(newpath))
		time.Sleep(300 * time.Millisecond)
		return os.Rename(oldpath, newpath)
	}
	rep, err := f.runWith(driver.Request{Config: cfg, Rename: slow})
	require.NoError(t, err)
	require.True(t, rep.Aborted)
	require.Contains(t, rep.AbortReason, "deadline exceeded")
	require.Equal(t, []string{"test_a.py"}, renames)
	require.Equal(t, []string{"test_a.py"}, rep.Changed)
	require.Equal(t, []string{"test_b.py", "test_c.py"}, rep.Unprocessed)

	require.NotEqual(t, pairsSrc, f.read("test_a.py"))
	entries := f.entries("test_a.py")
	require.Len(t, entries, 1)
	require.Equal(t, ledger.Transformed, entries[0].Status)
	for _, n := range []string{"test_b.py", "test_c.py"} {
		require.Equal(t, pairsSrc, f.read(n), n)
		require.Empty(t, f.entries(n), n)
	}

	// the unprocessed files are picked up by the next run
	f.reopen()
	rep = f.run(config.Default())
	require.Equal(t, []string{"test_b.py", "test_c.py"}, rep.Changed)
	require.Equal(t, 3, rep.Totals.Transformed)
}

func TestRunLedgerClosedAborts(t *testing.T) {
	f := newFixture(t, map[string]string{"test_pairs.py": pairsSrc})
	require.NoError(t, f.l.Close())

	rep, err := f.runWith(driver.Request{Config: config.Default()})
	require.ErrorIs(t, err, ledger.ErrClosed)
	require.NotNil(t, rep)
	require.True(t, rep.Aborted)
}

func TestRunProgressEvents(t *testing.T) {
	f := newFixture(t, map[string]string{"test_pairs.py": pairsSrc})
	ch := make(chan driver.Event, 16)

	_, err := f.runWith(driver.Request{Config: config.Default(), Sink: driver.ChannelSink{Ch: ch}})
	require.NoError(t, err)
	close(ch)
	var last driver.Event
	n := 0
	for ev := range ch {
		require.Equal(t, "test_pairs.py", ev.File)
		last = ev
		n++
	}
	require.Greater(t, n, 2)
	require.Equal(t, driver.StatusDone, last.Status)
	require.True(t, last.Changed)
}
