package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nosemig/internal/report"
)

const generatorSrc = `def check(a, b):
    assert a < b


def test_pairs():
    yield check, 1, 2
    yield check, 3, 4
`

// execute runs the CLI in dir and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--color=off", "--root", dir}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	for i := len(session.cleanup) - 1; i >= 0; i-- {
		session.cleanup[i]()
	}
	session.cleanup = nil
	return out.String(), err
}

func TestMigrateThenStatusAndVerify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_gen.py")
	require.NoError(t, os.WriteFile(path, []byte(generatorSrc), 0o644))

	out, err := execute(t, dir, "migrate", "--ui=off", "--format=json")
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Equal(t, 1, rep.Totals.Transformed)
	require.Equal(t, []string{"test_gen.py"}, rep.Changed)

	out, err = execute(t, dir, "status", "--format=text")
	require.NoError(t, err)
	require.Contains(t, out, "100.0%")

	out, err = execute(t, dir, "verify", "--format=text")
	require.NoError(t, err)
	require.Contains(t, out, "1 files checked")
}

func TestMigrateUncleanExitsWithError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_bad.py"), []byte("def test_x(:\n"), 0o644))

	_, err := execute(t, dir, "migrate", "--ui=off")
	require.ErrorIs(t, err, errUnclean)
}

func TestCatalogYAML(t *testing.T) {
	out, err := execute(t, t.TempDir(), "catalog", "--format=yaml")
	require.NoError(t, err)
	require.Contains(t, out, "id: generator-test")
	require.Contains(t, out, "phase: file")
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := readUIMode("sometimes")
	require.Error(t, err)
	require.False(t, shouldUseTUI(uiModeAuto, true))
	require.True(t, shouldUseTUI(uiModeOn, true))
}
