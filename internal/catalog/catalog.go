// Package catalog is the fixed, versioned list of legacy constructs the
// migration recognizes. Declaration order is match priority.
package catalog

import (
	"slices"
	"strings"
)

// Version is bumped whenever a pattern is added, removed or reordered.
const Version = 1

// Kind is the tagged variant used to dispatch matchers and rewrites.
type Kind uint8

const (
	KindInvalid Kind = iota
	GeneratorTest
	RaisesDecorator
	WithSetupDecorator
	TestCaseClass
	ClassSetupTeardownPair
	ClassSetupHook
	ModuleSetupHook
	NoseAssertCalls
	NoseImport
)

// Phase decides when a pattern is attempted within a file.
type Phase uint8

const (
	// PhaseUnit patterns rewrite one def/class.
	PhaseUnit Phase = iota
	// PhaseFile patterns look at the whole file and run only once no unit
	// fragment of that file is waiting for a rewrite.
	PhaseFile
)

func (p Phase) String() string {
	if p == PhaseFile {
		return "file"
	}
	return "unit"
}

// UnitMask is the set of statement kinds a pattern is tested against.
type UnitMask uint8

const (
	UnitFunc UnitMask = 1 << iota
	UnitClass
	UnitImports
)

// Pattern describes one recognizable legacy construct.
type Pattern struct {
	ID          string   `yaml:"id" json:"id"`
	Kind        Kind     `yaml:"-" json:"-"`
	Phase       Phase    `yaml:"-" json:"-"`
	Units       UnitMask `yaml:"-" json:"-"`
	Description string   `yaml:"description" json:"description"`
	Rewrite     string   `yaml:"rewrite" json:"rewrite"`
	// UsesPytest is set when the rewrite references the pytest module.
	UsesPytest bool `yaml:"uses_pytest" json:"uses_pytest"`
}

// Applies reports whether the pattern is tested against unit kind u.
func (p Pattern) Applies(u UnitMask) bool {
	return p.Units&u != 0
}

var patterns = []Pattern{
	{
		ID: "generator-test", Kind: GeneratorTest, Phase: PhaseUnit, Units: UnitFunc,
		Description: "test function yielding (callable, args...) sub-cases",
		Rewrite:     "@pytest.mark.parametrize over the literal sub-cases; the body calls the yielded callable",
		UsesPytest:  true,
	},
	{
		ID: "raises-decorator", Kind: RaisesDecorator, Phase: PhaseUnit, Units: UnitFunc,
		Description: "function decorated with nose.tools.raises",
		Rewrite:     "decorator dropped, body wrapped in 'with pytest.raises(...)'",
		UsesPytest:  true,
	},
	{
		ID: "with-setup-decorator", Kind: WithSetupDecorator, Phase: PhaseUnit, Units: UnitFunc,
		Description: "function decorated with nose.tools.with_setup",
		Rewrite:     "generated fixture calling setup and teardown around yield, applied with usefixtures",
		UsesPytest:  true,
	},
	{
		ID: "testcase-class", Kind: TestCaseClass, Phase: PhaseUnit, Units: UnitClass,
		Description: "class deriving from unittest.TestCase",
		Rewrite:     "plain test class: hooks renamed to xunit names, self.assert* turned into assert statements",
		UsesPytest:  true,
	},
	{
		ID: "class-setup-teardown-pair", Kind: ClassSetupTeardownPair, Phase: PhaseUnit, Units: UnitClass,
		Description: "test class with both a legacy setup and a legacy teardown hook",
		Rewrite:     "both hooks renamed to setup_method/teardown_method or setup_class/teardown_class in one rewrite",
	},
	{
		ID: "class-setup-hook", Kind: ClassSetupHook, Phase: PhaseUnit, Units: UnitClass,
		Description: "test class with legacy hooks on one side only",
		Rewrite:     "hook renamed to its xunit name",
	},
	{
		ID: "module-setup-hook", Kind: ModuleSetupHook, Phase: PhaseUnit, Units: UnitFunc,
		Description: "module-level setup/teardown function with a legacy name",
		Rewrite:     "renamed to setup_module/teardown_module",
	},
	{
		ID: "nose-assert-calls", Kind: NoseAssertCalls, Phase: PhaseUnit, Units: UnitFunc,
		Description: "function calling nose.tools assertion helpers as statements",
		Rewrite:     "plain assert statements and pytest.raises",
		UsesPytest:  true,
	},
	{
		ID: "nose-import", Kind: NoseImport, Phase: PhaseFile, Units: UnitImports,
		Description: "import of nose or one of its submodules",
		Rewrite:     "import removed once nothing it binds is referenced",
	},
}

// Patterns returns the catalog in priority order.
func Patterns() []Pattern {
	return slices.Clone(patterns)
}

// Lookup returns the pattern with the given id.
func Lookup(id string) (Pattern, bool) {
	for _, p := range patterns {
		if p.ID == id {
			return p, true
		}
	}
	return Pattern{}, false
}

// ByKind returns the pattern of kind k.
func ByKind(k Kind) Pattern {
	for _, p := range patterns {
		if p.Kind == k {
			return p
		}
	}
	return Pattern{}
}

func (k Kind) String() string {
	if p := ByKind(k); p.ID != "" {
		return p.ID
	}
	return "invalid"
}

// ValidateIDs returns the ids in list that are not in the catalog.
func ValidateIDs(list []string) []string {
	var unknown []string
	for _, id := range list {
		if _, ok := Lookup(strings.TrimSpace(id)); !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown
}
