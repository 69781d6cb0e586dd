// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"github.com/dave/dst"

	"github.com/chlorodose/dlhook/tool/internal/ast"
	"github.com/chlorodose/dlhook/tool/util"
)

// Synthesize builds the function pointer signature of the origin from the
// forwarded slots and fills the placeholder with it. decl must have passed
// Validate. The returned declaration is a copy; decl is not modified.
func Synthesize(decl *HookDeclaration) (*HookDeclaration, *FuncPtrSignature) {
	util.Assert(len(decl.Slots) > 0, "hook without slots")
	_, isHole := decl.Slots[0].Type.(Placeholder)
	util.Assert(isHole, "first slot is already filled")

	sig := &FuncPtrSignature{
		Params:  make([]PtrParam, 0, len(decl.Slots)-1),
		Results: cloneFieldList(decl.Results),
		ABI:     ABI,
		Unsafe:  true,
	}
	for _, slot := range decl.Forwarded() {
		concrete := util.AssertType[Concrete](slot.Type)
		sig.Params = append(sig.Params, PtrParam{
			Name: slot.Name,
			Type: ast.CloneExpr(concrete.Type),
		})
	}
	if decl.Variadic != nil {
		tail := *decl.Variadic
		tail.Elem = ast.CloneExpr(tail.Elem)
		sig.Variadic = &tail
	}

	filled := *decl
	filled.Slots = make([]ParameterSlot, len(decl.Slots))
	copy(filled.Slots, decl.Slots)
	filled.Slots[0].Type = Concrete{Type: sig.FuncType(), Signature: sig}
	if decl.Source != nil {
		filled.Source = fillHole(decl.Source, sig)
	}
	return &filled, sig
}

// fillHole returns a copy of fn whose first parameter has the pointer type.
func fillHole(fn *dst.FuncDecl, sig *FuncPtrSignature) *dst.FuncDecl {
	cloned := util.AssertType[*dst.FuncDecl](dst.Clone(fn))
	first := cloned.Type.Params.List[0]
	util.Assert(len(first.Names) <= 1, "placeholder shares its field")
	first.Type = sig.FuncType()
	return cloned
}
