package catalog

import "testing"

func TestCatalogOrderIsPriority(t *testing.T) {
	want := []string{
		"generator-test",
		"raises-decorator",
		"with-setup-decorator",
		"testcase-class",
		"class-setup-teardown-pair",
		"class-setup-hook",
		"module-setup-hook",
		"nose-assert-calls",
		"nose-import",
	}
	got := Patterns()
	if len(got) != len(want) {
		t.Fatalf("catalog has %d patterns, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.ID != want[i] {
			t.Fatalf("pattern %d = %q, want %q", i, p.ID, want[i])
		}
		if p.Kind != Kind(i+1) {
			t.Fatalf("pattern %q has kind %d, want %d", p.ID, p.Kind, i+1)
		}
		if p.Kind.String() != p.ID {
			t.Fatalf("Kind.String() = %q, want %q", p.Kind.String(), p.ID)
		}
	}
}

func TestPatternsReturnsCopy(t *testing.T) {
	list := Patterns()
	list[0].ID = "mutated"
	if p, _ := Lookup("generator-test"); p.ID != "generator-test" {
		t.Fatal("Patterns must not expose the registry")
	}
}

func TestOnlyImportsRunInFilePhase(t *testing.T) {
	for _, p := range Patterns() {
		if (p.Phase == PhaseFile) != (p.Kind == NoseImport) {
			t.Fatalf("unexpected phase %s for %s", p.Phase, p.ID)
		}
	}
}

func TestValidateIDs(t *testing.T) {
	unknown := ValidateIDs([]string{"raises-decorator", "nope", " nose-import "})
	if len(unknown) != 1 || unknown[0] != "nope" {
		t.Fatalf("ValidateIDs = %v", unknown)
	}
}

func TestHookTables(t *testing.T) {
	h, ok := ClassHook("setUpClass")
	if !ok || h.Target != "setup_class" || h.Level != LevelClass || h.Side != SideSetup {
		t.Fatalf("ClassHook(setUpClass) = %+v, %v", h, ok)
	}
	if _, ok := ClassHook("setup_method"); ok {
		t.Fatal("pytest names are not legacy hooks")
	}
	m, ok := ModuleHook("tearDownModule")
	if !ok || m.Target != "teardown_module" || m.Side != SideTeardown {
		t.Fatalf("ModuleHook(tearDownModule) = %+v, %v", m, ok)
	}
	if _, ok := TestCaseHook("setupAll"); ok {
		t.Fatal("setupAll is not a TestCase hook")
	}
}

func TestAssertionTables(t *testing.T) {
	a, ok := NoseAssertion("assert_not_in")
	if !ok || a.Form != FormBinary || a.Op != "not in" || a.Arity != 2 {
		t.Fatalf("assert_not_in = %+v", a)
	}
	if _, ok := NoseAssertion("assert_almost_equal"); ok {
		t.Fatal("assert_almost_equal has no exact rewrite")
	}
	if !IsNoseToolsHelper("with_setup") || IsNoseToolsHelper("print") {
		t.Fatal("IsNoseToolsHelper mismatch")
	}
	tc, ok := TestCaseAssertion("assertIsNotNone")
	if !ok || tc.Form != FormUnaryOp || tc.Op != "is not None" {
		t.Fatalf("assertIsNotNone = %+v", tc)
	}
}
