package transform

import (
	"nosemig/internal/catalog"
	"nosemig/internal/diag"
	"nosemig/internal/pyast"
	"nosemig/internal/scanner"
)

// rewriteClassHooks renames every legacy hook of a test class in one
// replacement so a setup never ends up paired with a stale teardown.
func rewriteClassHooks(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.HooksMeta)
	cls := frag.Unit.Stmt
	e := newEditor(frag)
	if err := renameClassHooks(e, cls, meta.Hooks); err != nil {
		return Replacement{}, err
	}
	return e.done(frag)
}

func renameClassHooks(e *editor, cls *pyast.Stmt, hooks []scanner.HookDef) error {
	members := classMembers(cls)
	targets := make(map[string]string)
	for _, h := range hooks {
		legacy, target := h.Stmt.Name.Text, h.Hook.Target
		if prev, dup := targets[target]; dup {
			return failf(diag.MigNameCollision, h.Stmt.Span, "%s and %s would both become %s", prev, legacy, target)
		}
		targets[target] = legacy
		if members[target] {
			return failf(diag.MigNameCollision, h.Stmt.Span, "class %s already defines %s", cls.Name.Text, target)
		}
		if ref, found := attrRef(cls, legacy); found {
			return failf(diag.MigNameCollision, ref.Span, "hook %s is still called by name at line %d", legacy, e.file.LineOf(ref.Span.Start))
		}
		e.replace(h.Stmt.Name.Span, target)
	}
	return nil
}

func rewriteModuleHook(frag scanner.Fragment) (Replacement, error) {
	meta := frag.Meta.(*scanner.HooksMeta)
	h := meta.Hooks[0]
	mod := frag.Module
	legacy, target := h.Stmt.Name.Text, h.Hook.Target
	if _, taken := mod.Defined[target]; taken {
		return Replacement{}, failf(diag.MigNameCollision, frag.Span, "module already defines %s", target)
	}
	for _, s := range mod.AST.Body {
		if s == h.Stmt || s.Kind != pyast.FuncDef {
			continue
		}
		if other, ok := catalog.ModuleHook(s.Name.Text); ok && other.Target == target {
			return Replacement{}, failf(diag.MigNameCollision, frag.Span, "%s and %s would both become %s", s.Name.Text, legacy, target)
		}
	}
	if ref, found := moduleNameRef(mod.AST, legacy, h.Stmt.Name); found {
		return Replacement{}, failf(diag.MigNameCollision, ref.Span, "%s is still referenced at line %d", legacy, mod.File.LineOf(ref.Span.Start))
	}
	e := newEditor(frag)
	e.replace(h.Stmt.Name.Span, target)
	return e.done(frag)
}
