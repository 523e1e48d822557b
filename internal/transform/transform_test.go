package transform_test

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/fix"
	"nosemig/internal/scanner"
	"nosemig/internal/source"
	"nosemig/internal/transform"
)

// migrate runs rewrite rounds over src until nothing changes, the same way
// the driver does for one file: unit fragments first, the file phase once no
// unit fragment is left. It returns the result and "scope pattern CODE" for
// each failure.
func migrate(t *testing.T, src string) (string, []string) {
	t.Helper()
	content := src
	failed := make(map[string]string)
	for range 8 {
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("test_input.py", []byte(content)))
		sc := scanner.New(scanner.Options{})
		mod, err := sc.Parse(file)
		require.NoError(t, err, "round input must parse:\n%s", content)

		var units, files []scanner.Fragment
		for f := range sc.Fragments(mod) {
			if _, done := failed[f.ID.Slot()+" "+f.Pattern.ID]; done {
				continue
			}
			if f.Pattern.Phase == catalog.PhaseUnit {
				units = append(units, f)
			} else {
				files = append(files, f)
			}
		}
		batch := units
		if len(batch) == 0 {
			batch = files
		}
		if len(batch) == 0 {
			break
		}

		var fixes []diag.Fix
		var released []string
		pytest := false
		for _, f := range batch {
			r, err := transform.Apply(f)
			if err != nil {
				var fail *transform.Failure
				require.ErrorAs(t, err, &fail)
				require.NotEmpty(t, fail.Reason)
				failed[f.ID.Slot()+" "+f.Pattern.ID] = fmt.Sprintf("%s %s %s", f.ID.Scope, f.Pattern.ID, fail.Code.ID())
				continue
			}
			require.Equal(t, f.ID.Key(), r.Fix.ID)
			fixes = append(fixes, r.Fix)
			pytest = pytest || slices.Contains(r.Requires, "pytest")
			released = append(released, r.Releases...)
		}
		if len(fixes) == 0 {
			continue
		}
		if imp, ok := transform.PytestImport(mod); ok && pytest {
			fixes = append([]diag.Fix{imp}, fixes...)
		}
		res, err := fix.Apply(file, fixes, fix.ApplyOptions{})
		require.NoError(t, err)
		require.Empty(t, res.Skipped)
		content = dropImports(t, string(res.Content), released)
	}
	out := make([]string, 0, len(failed))
	for _, v := range failed {
		out = append(out, v)
	}
	slices.Sort(out)
	return content, out
}

// dropImports removes the released imports nothing refers to any more.
func dropImports(t *testing.T, content string, locals []string) string {
	t.Helper()
	slices.Sort(locals)
	locals = slices.Compact(locals)
	for range 2 {
		for _, local := range locals {
			fs := source.NewFileSet()
			file := fs.Get(fs.AddVirtual("test_input.py", []byte(content)))
			mod, err := scanner.New(scanner.Options{}).Parse(file)
			require.NoError(t, err)
			fx, ok := transform.UnusedImport(mod, local)
			if !ok {
				continue
			}
			res, err := fix.Apply(file, []diag.Fix{fx}, fix.ApplyOptions{})
			require.NoError(t, err)
			content = string(res.Content)
		}
	}
	return content
}

// Archives hold test_input.py, the expected want.py (omitted when the file
// must stay unchanged) and an optional sorted "failures" list.
func TestRewriteGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "rewrite", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, path := range files {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			require.NoError(t, err)
			sections := make(map[string]string)
			for _, f := range ar.Files {
				sections[f.Name] = string(f.Data)
			}
			src := sections["test_input.py"]
			want, ok := sections["want.py"]
			if !ok {
				want = src
			}
			wantFailures := []string{}
			if s := strings.TrimSpace(sections["failures"]); s != "" {
				wantFailures = strings.Split(s, "\n")
			}

			got, failures := migrate(t, src)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("rewrite mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(wantFailures, failures); diff != "" {
				t.Errorf("failures mismatch (-want +got):\n%s", diff)
			}

			// a second pass over the result finds nothing left to do
			again, _ := migrate(t, got)
			require.Equal(t, got, again, "rewrite is not idempotent")
		})
	}
}

func TestGeneratorKeepsCaseOrder(t *testing.T) {
	src := `def check(x):
    assert x


def test_order():
    yield check, "a"
    yield check, "b"
    yield check, "c"
`
	got, failures := migrate(t, src)
	require.Empty(t, failures)
	a, b, c := strings.Index(got, `"a"`), strings.Index(got, `"b"`), strings.Index(got, `"c"`)
	require.True(t, a >= 0 && a < b && b < c, "cases out of order:\n%s", got)
	require.Contains(t, got, `@pytest.mark.parametrize("arg0", [`)
	require.Contains(t, got, "def test_order(arg0):\n    check(arg0)\n")
}

func TestFailureCarriesReason(t *testing.T) {
	src := `from nose.tools import raises


@raises
def test_bare():
    pass
`
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test_bare.py", []byte(src)))
	seq, err := scanner.New(scanner.Options{}).Scan(file)
	require.NoError(t, err)
	for f := range seq {
		if f.Pattern.Kind != catalog.RaisesDecorator {
			continue
		}
		_, err := transform.Apply(f)
		var fail *transform.Failure
		require.ErrorAs(t, err, &fail)
		require.Equal(t, diag.MigUnsupportedRaises, fail.Code)
		require.Contains(t, fail.Error(), "without exception types")
		return
	}
	t.Fatal("raises fragment not found")
}

func TestPytestImportAnchor(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "after docstring and future",
			src:  "\"\"\"Doc.\"\"\"\nfrom __future__ import annotations\n# imports\nimport os\n",
			want: "\"\"\"Doc.\"\"\"\nfrom __future__ import annotations\n# imports\nimport pytest\nimport os\n",
		},
		{
			name: "before first def",
			src:  "def test_x():\n    pass\n",
			want: "import pytest\n\n\ndef test_x():\n    pass\n",
		},
		{
			name: "docstring only",
			src:  "\"\"\"Doc.\"\"\"",
			want: "\"\"\"Doc.\"\"\"\nimport pytest\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			file := fs.Get(fs.AddVirtual("test_x.py", []byte(tt.src)))
			mod, err := scanner.New(scanner.Options{}).Parse(file)
			require.NoError(t, err)
			imp, ok := transform.PytestImport(mod)
			require.True(t, ok)
			res, err := fix.Apply(file, []diag.Fix{imp}, fix.ApplyOptions{})
			require.NoError(t, err)
			require.Equal(t, tt.want, string(res.Content))
		})
	}
}

func TestPytestImportPresent(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test_x.py", []byte("import pytest\n")))
	mod, err := scanner.New(scanner.Options{}).Parse(file)
	require.NoError(t, err)
	_, ok := transform.PytestImport(mod)
	require.False(t, ok)
}
