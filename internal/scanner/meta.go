package scanner

import (
	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/pyast"
	"nosemig/internal/token"
)

// Meta is the pattern-specific structure extracted by a matcher.
type Meta interface {
	isMeta()
}

// Problem is set by matchers when the construct was recognized but its shape
// is outside what the rewrite supports; the transformer reports it as a failure.
type Problem struct {
	Code   diag.Code
	Reason string
}

// GenForm is the body layout of a generator test.
type GenForm uint8

const (
	// GenLoop: for targets in iterable: yield callable, args...
	GenLoop GenForm = iota + 1
	// GenSequence: yield callable, args... repeated
	GenSequence
)

// SubCase is one yielded (callable, args...) tuple.
type SubCase struct {
	Stmt     *pyast.Stmt
	Callable []token.Token
	Args     [][]token.Token
}

type GeneratorMeta struct {
	Form     GenForm
	Loop     *pyast.Stmt
	Targets  [][]token.Token
	Iterable []token.Token
	Cases    []SubCase
	Problem  *Problem
}

type DecoratorMeta struct {
	Index int
	Call  *pyast.Call // nil for a bare "@raises"
}

type TestCaseMeta struct {
	BaseIndex int
	Bases     [][]token.Token
}

// HookDef is one legacy hook method found in a class or module.
type HookDef struct {
	Stmt *pyast.Stmt
	Hook catalog.Hook
}

type HooksMeta struct {
	Hooks []HookDef
}

// AssertSite is one statement-level assertion helper call.
type AssertSite struct {
	Stmt      *pyast.Stmt
	Call      *pyast.Call
	Assertion catalog.Assertion
	// With is set for "with assert_raises(E):" headers.
	With bool
}

type AssertMeta struct {
	Sites []AssertSite
	// Other lists helper references that are not statement-level calls.
	Other []token.Token
}

type ImportMeta struct {
	Stmts    []*pyast.Stmt
	Bindings []Binding
}

func (*GeneratorMeta) isMeta() {}
func (*DecoratorMeta) isMeta() {}
func (*TestCaseMeta) isMeta()  {}
func (*HooksMeta) isMeta()     {}
func (*AssertMeta) isMeta()    {}
func (*ImportMeta) isMeta()    {}
