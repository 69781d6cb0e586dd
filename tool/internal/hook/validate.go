// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"github.com/dave/dst"

	"github.com/chlorodose/dlhook/tool/internal/ast"
)

// Validate checks the structural preconditions of a hook declaration. The
// first three checks run in a fixed order and stop at the first failure:
// at least one parameter, the placeholder in the first slot, no receiver.
// The last check makes sure the trampoline compiles with the names
// AllocateNames gives the forwarded parameters.
func Validate(decl *HookDeclaration) error {
	if len(decl.Slots) == 0 {
		return newError(ArityError, decl.NamePos,
			"%s must have at least one parameter to receive the original function, like \"f _\"",
			decl.Name)
	}
	if _, ok := decl.Slots[0].Type.(Placeholder); !ok {
		return newError(TypeError, decl.NamePos,
			"the first parameter of %s must have the placeholder type, like \"f _\"", decl.Name)
	}
	if decl.HasReceiver {
		return newError(ReceiverError, decl.RecvPos,
			"%s is a method, hooks must be plain functions", decl.Name)
	}
	for _, slot := range decl.Forwarded() {
		switch t := slot.Type.(type) {
		case Placeholder:
			return newError(TypeError, slot.Pos,
				"parameter %d of %s has the placeholder type, only the first parameter may",
				slot.Index, decl.Name)
		case Concrete:
			if ast.IsEllipsis(t.Type) {
				return newError(TypeError, slot.Pos,
					"parameter %d of %s is variadic, only the final parameter may be", slot.Index, decl.Name)
			}
		}
	}
	if decl.Variadic != nil && ast.IsBlankType(decl.Variadic.Elem) {
		return newError(TypeError, decl.Variadic.Pos,
			"variadic parameter of %s has the placeholder type", decl.Name)
	}
	if decl.TypeParams != nil && len(decl.TypeParams.List) > 0 {
		return newError(TypeError, decl.NamePos,
			"%s has type parameters, generic functions cannot be exported to C", decl.Name)
	}
	if n := countFields(decl.Results); n > 1 {
		return newError(TypeError, decl.NamePos,
			"%s returns %d values, C functions return at most one", decl.Name, n)
	}
	return checkTrampolineNames(decl)
}

// checkTrampolineNames rejects forwarded parameters whose trampoline name
// would shadow an identifier the trampoline body refers to, or would repeat.
func checkTrampolineNames(decl *HookDeclaration) error {
	reserved := map[string]bool{decl.Name: true, nextVarName: true, RuntimeAlias: true}
	forwarded := decl.Forwarded()
	for _, slot := range forwarded {
		if concrete, ok := slot.Type.(Concrete); ok {
			collectQualifiers(concrete.Type, reserved)
		}
	}
	if decl.Results != nil {
		for _, field := range decl.Results.List {
			collectQualifiers(field.Type, reserved)
		}
	}
	if decl.Variadic != nil {
		collectQualifiers(decl.Variadic.Elem, reserved)
	}

	seen := make(map[string]bool, len(forwarded))
	for k, name := range AllocateNames(decl) {
		slot := forwarded[k]
		if reserved[name] {
			return newError(TypeError, slot.Pos,
				"parameter %d of %s is passed to the trampoline as %q, which shadows a name the trampoline uses",
				slot.Index, decl.Name, name)
		}
		if seen[name] {
			return newError(TypeError, slot.Pos,
				"parameter %d of %s is passed to the trampoline as %q, which is already taken",
				slot.Index, decl.Name, name)
		}
		seen[name] = true
	}
	return nil
}

// collectQualifiers adds the package names qualifying types in x, such as C
// in *C.char.
func collectQualifiers(x dst.Expr, into map[string]bool) {
	if x == nil {
		return
	}
	dst.Inspect(x, func(n dst.Node) bool {
		if sel, ok := n.(*dst.SelectorExpr); ok {
			if pkg, isIdent := sel.X.(*dst.Ident); isIdent {
				into[pkg.Name] = true
			}
		}
		return true
	})
}

func countFields(list *dst.FieldList) int {
	if list == nil {
		return 0
	}
	n := 0
	for _, field := range list.List {
		n += max(len(field.Names), 1)
	}
	return n
}
