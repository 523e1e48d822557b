package parser_test

import (
	"fmt"
	"strings"
	"testing"

	"nosemig/internal/diag"
	"nosemig/internal/parser"
	"nosemig/internal/pyast"
	"nosemig/internal/source"
	"nosemig/internal/testkit"
)

func parse(t *testing.T, src string) (*pyast.Module, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test_mod.py", []byte(src))
	bag := diag.NewBag(32)
	mod := parser.ParseFile(fs.Get(id), parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	return mod, bag
}

// outline renders the tree as "kind:name" entries, one per line, indented by depth.
func outline(mod *pyast.Module) string {
	var b strings.Builder
	var walk func(stmts []*pyast.Stmt, depth int)
	walk = func(stmts []*pyast.Stmt, depth int) {
		for _, s := range stmts {
			b.WriteString(strings.Repeat("  ", depth))
			label := s.Keyword
			if s.IsDef() {
				label = s.Name.Text
			}
			fmt.Fprintf(&b, "%s:%s", s.Kind, label)
			if len(s.Decorators) > 0 {
				fmt.Fprintf(&b, " @%d", len(s.Decorators))
			}
			if len(s.Inline) > 0 {
				b.WriteString(" inline")
			}
			b.WriteByte('\n')
			walk(s.Body, depth+1)
		}
	}
	walk(mod.Body, 0)
	return b.String()
}

func TestParseOutline(t *testing.T) {
	src := `"""Module doc."""
from __future__ import annotations
import nose.tools as nt
from nose.tools import (
    eq_,
    raises,
)


@raises(ValueError)
def test_raise():
    int("x")


class TestThing(object):
    def setup(self):
        self.x = 1  # keep

    @staticmethod
    def helper(): return 1

    def test_gen(self):
        for a, b in [(1, 2), (3, 4)]:
            yield self.check, a, b
        else:
            pass

async def test_async():
    async with ctx() as c:
        await c
x = 1; y = 2
`
	want := `simple:
from-import:from
import:import
from-import:from
def:test_raise @1
  simple:
class:TestThing
  def:setup
    simple:
  def:helper @1 inline
  def:test_gen
    compound:for
      simple:yield
    compound:else
      simple:pass
def:test_async
  compound:with
    simple:await
simple:
simple:
`
	mod, bag := parse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if got := outline(mod); got != want {
		t.Fatalf("outline mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
	if mod.Docstring() == nil {
		t.Fatal("module docstring not detected")
	}
	if err := testkit.CheckSpanInvariants(mod, mod.File); err != nil {
		t.Fatal(err)
	}
}

func TestParseDefHeader(t *testing.T) {
	mod, bag := parse(t, "def test_x(self, a=(1, 2), *args, **kw) -> int:\n    '''doc'''\n    return a\n")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	fn := mod.Body[0]
	if fn.Name.Text != "test_x" || fn.LParen.Text != "(" || fn.RParen.Text != ")" {
		t.Fatalf("header = %q %q %q", fn.Name.Text, fn.LParen.Text, fn.RParen.Text)
	}
	if got := mod.File.Text(pyast.SpanOf(fn.Params)); got != "self, a=(1, 2), *args, **kw" {
		t.Fatalf("params = %q", got)
	}
	if fn.Docstring() == nil || len(fn.Statements()) != 1 {
		t.Fatalf("docstring/statements split wrong")
	}
	if got := mod.File.Text(fn.Span); !strings.HasPrefix(got, "def test_x") || !strings.HasSuffix(got, "return a") {
		t.Fatalf("span text = %q", got)
	}
}

func TestParseLambdaInHeader(t *testing.T) {
	mod, bag := parse(t, "if (lambda: 1)() and {'a': 1}:\n    pass\nwith f(lambda x: x) as g: pass\n")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if len(mod.Body) != 2 || len(mod.Body[0].Body) != 1 || len(mod.Body[1].Inline) != 1 {
		t.Fatalf("unexpected structure:\n%s", outline(mod))
	}
}

func TestParseMatchStatementIsCompound(t *testing.T) {
	mod, bag := parse(t, "match cmd:\n    case 1:\n        pass\n")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if mod.Body[0].Kind != pyast.Compound || mod.Body[0].Body[0].Kind != pyast.Compound {
		t.Fatalf("match/case not parsed as compound:\n%s", outline(mod))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want diag.Code
	}{
		{"missing colon", "def f()\n    pass\n", diag.SynExpectColon},
		{"missing block", "def f():\nx = 1\n", diag.SynExpectBlock},
		{"stray indent", "x = 1\n    y = 2\n", diag.SynStrayIndent},
		{"dangling decorator", "@dec\nx = 1\n", diag.SynDanglingDecor},
		{"lexer error surfaces", "x = 'open\n", diag.LexUnterminatedString},
		{"missing def name", "def (x):\n    pass\n", diag.SynExpectName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := parse(t, tt.src)
			for _, d := range bag.Items() {
				if d.Code == tt.want {
					return
				}
			}
			t.Fatalf("expected %s, got %+v", tt.want.ID(), bag.Items())
		})
	}
}

func TestMaxErrorsStopsReporting(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("bad.py", []byte("def a()\n    pass\ndef b()\n    pass\ndef c()\n    pass\n"))
	bag := diag.NewBag(32)
	parser.ParseFile(fs.Get(id), parser.Options{Reporter: diag.BagReporter{Bag: bag}, MaxErrors: 1})
	if bag.Len() != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", bag.Len())
	}
}
