package catalog

// HookSide tells whether a hook runs before or after the tests it wraps.
type HookSide uint8

const (
	SideSetup HookSide = iota
	SideTeardown
)

// HookLevel is the granularity a hook runs at.
type HookLevel uint8

const (
	LevelMethod HookLevel = iota
	LevelClass
	LevelModule
)

// Hook maps a legacy fixture name to its pytest xunit name.
type Hook struct {
	Legacy string
	Target string
	Side   HookSide
	Level  HookLevel
}

// classHooks lists the names nose accepted inside test classes.
var classHooks = []Hook{
	{"setup", "setup_method", SideSetup, LevelMethod},
	{"setUp", "setup_method", SideSetup, LevelMethod},
	{"teardown", "teardown_method", SideTeardown, LevelMethod},
	{"tearDown", "teardown_method", SideTeardown, LevelMethod},
	{"setupClass", "setup_class", SideSetup, LevelClass},
	{"setUpClass", "setup_class", SideSetup, LevelClass},
	{"setupAll", "setup_class", SideSetup, LevelClass},
	{"setUpAll", "setup_class", SideSetup, LevelClass},
	{"teardownClass", "teardown_class", SideTeardown, LevelClass},
	{"tearDownClass", "teardown_class", SideTeardown, LevelClass},
	{"teardownAll", "teardown_class", SideTeardown, LevelClass},
	{"tearDownAll", "teardown_class", SideTeardown, LevelClass},
}

// moduleHooks lists the module-level names nose accepted.
var moduleHooks = []Hook{
	{"setup", "setup_module", SideSetup, LevelModule},
	{"setUp", "setup_module", SideSetup, LevelModule},
	{"setupModule", "setup_module", SideSetup, LevelModule},
	{"setUpModule", "setup_module", SideSetup, LevelModule},
	{"teardown", "teardown_module", SideTeardown, LevelModule},
	{"tearDown", "teardown_module", SideTeardown, LevelModule},
	{"teardownModule", "teardown_module", SideTeardown, LevelModule},
	{"tearDownModule", "teardown_module", SideTeardown, LevelModule},
}

// ClassHook looks up a legacy class-level hook name.
func ClassHook(name string) (Hook, bool) {
	return findHook(classHooks, name)
}

// ModuleHook looks up a legacy module-level hook name.
func ModuleHook(name string) (Hook, bool) {
	return findHook(moduleHooks, name)
}

// TestCaseHook maps unittest.TestCase hook names to xunit names.
func TestCaseHook(name string) (Hook, bool) {
	switch name {
	case "setUp", "tearDown", "setUpClass", "tearDownClass":
		return findHook(classHooks, name)
	}
	return Hook{}, false
}

func findHook(list []Hook, name string) (Hook, bool) {
	for _, h := range list {
		if h.Legacy == name {
			return h, true
		}
	}
	return Hook{}, false
}
