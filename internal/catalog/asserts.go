package catalog

// AssertForm is the shape of the assert statement an assertion helper becomes.
type AssertForm uint8

const (
	// FormBinary: assert a <op> b
	FormBinary AssertForm = iota
	// FormTruth: assert a / assert not a
	FormTruth
	// FormUnaryOp: assert a <op> (e.g. "is None")
	FormUnaryOp
	// FormCall: assert fn(a, b) / assert not fn(a, b)
	FormCall
	// FormRaises: pytest.raises(E, fn, *args) or "with pytest.raises(E):"
	FormRaises
)

// Assertion describes how one helper is rewritten.
type Assertion struct {
	Name   string
	Form   AssertForm
	Op     string // operator, suffix or wrapped function name
	Negate bool
	Arity  int // positional operands before the optional message
}

// noseAsserts covers nose.tools helpers (snake_case mirrors of unittest plus eq_/ok_).
var noseAsserts = []Assertion{
	{Name: "eq_", Form: FormBinary, Op: "==", Arity: 2},
	{Name: "ok_", Form: FormTruth, Arity: 1},
	{Name: "assert_equal", Form: FormBinary, Op: "==", Arity: 2},
	{Name: "assert_equals", Form: FormBinary, Op: "==", Arity: 2},
	{Name: "assert_not_equal", Form: FormBinary, Op: "!=", Arity: 2},
	{Name: "assert_true", Form: FormTruth, Arity: 1},
	{Name: "assert_false", Form: FormTruth, Negate: true, Arity: 1},
	{Name: "assert_is", Form: FormBinary, Op: "is", Arity: 2},
	{Name: "assert_is_not", Form: FormBinary, Op: "is not", Arity: 2},
	{Name: "assert_is_none", Form: FormUnaryOp, Op: "is None", Arity: 1},
	{Name: "assert_is_not_none", Form: FormUnaryOp, Op: "is not None", Arity: 1},
	{Name: "assert_in", Form: FormBinary, Op: "in", Arity: 2},
	{Name: "assert_not_in", Form: FormBinary, Op: "not in", Arity: 2},
	{Name: "assert_is_instance", Form: FormCall, Op: "isinstance", Arity: 2},
	{Name: "assert_not_is_instance", Form: FormCall, Op: "isinstance", Negate: true, Arity: 2},
	{Name: "assert_greater", Form: FormBinary, Op: ">", Arity: 2},
	{Name: "assert_greater_equal", Form: FormBinary, Op: ">=", Arity: 2},
	{Name: "assert_less", Form: FormBinary, Op: "<", Arity: 2},
	{Name: "assert_less_equal", Form: FormBinary, Op: "<=", Arity: 2},
	{Name: "assert_raises", Form: FormRaises},
}

// testCaseAsserts covers the unittest.TestCase methods with an exact assert equivalent.
var testCaseAsserts = []Assertion{
	{Name: "assertEqual", Form: FormBinary, Op: "==", Arity: 2},
	{Name: "assertEquals", Form: FormBinary, Op: "==", Arity: 2},
	{Name: "assertNotEqual", Form: FormBinary, Op: "!=", Arity: 2},
	{Name: "assertTrue", Form: FormTruth, Arity: 1},
	{Name: "assert_", Form: FormTruth, Arity: 1},
	{Name: "assertFalse", Form: FormTruth, Negate: true, Arity: 1},
	{Name: "assertIs", Form: FormBinary, Op: "is", Arity: 2},
	{Name: "assertIsNot", Form: FormBinary, Op: "is not", Arity: 2},
	{Name: "assertIsNone", Form: FormUnaryOp, Op: "is None", Arity: 1},
	{Name: "assertIsNotNone", Form: FormUnaryOp, Op: "is not None", Arity: 1},
	{Name: "assertIn", Form: FormBinary, Op: "in", Arity: 2},
	{Name: "assertNotIn", Form: FormBinary, Op: "not in", Arity: 2},
	{Name: "assertIsInstance", Form: FormCall, Op: "isinstance", Arity: 2},
	{Name: "assertNotIsInstance", Form: FormCall, Op: "isinstance", Negate: true, Arity: 2},
	{Name: "assertGreater", Form: FormBinary, Op: ">", Arity: 2},
	{Name: "assertGreaterEqual", Form: FormBinary, Op: ">=", Arity: 2},
	{Name: "assertLess", Form: FormBinary, Op: "<", Arity: 2},
	{Name: "assertLessEqual", Form: FormBinary, Op: "<=", Arity: 2},
	{Name: "assertRaises", Form: FormRaises},
}

// NoseAssertion looks up a nose.tools helper by its unqualified name.
func NoseAssertion(name string) (Assertion, bool) {
	return findAssertion(noseAsserts, name)
}

// TestCaseAssertion looks up a TestCase assertion method.
func TestCaseAssertion(name string) (Assertion, bool) {
	return findAssertion(testCaseAsserts, name)
}

// IsNoseToolsHelper reports whether name is any nose.tools export the
// migration knows how to rewrite or must keep importing.
func IsNoseToolsHelper(name string) bool {
	if _, ok := NoseAssertion(name); ok {
		return true
	}
	switch name {
	case "raises", "with_setup", "nottest", "istest", "timed", "make_decorator", "set_trace":
		return true
	}
	return false
}

func findAssertion(list []Assertion, name string) (Assertion, bool) {
	for _, a := range list {
		if a.Name == name {
			return a, true
		}
	}
	return Assertion{}, false
}
