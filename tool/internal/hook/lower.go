// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"go/token"

	"github.com/dave/dst"

	"github.com/chlorodose/dlhook/tool/internal/ast"
)

// Positioner maps parsed nodes back to source positions. *ast.AstParser
// implements it.
type Positioner interface {
	FindPosition(node dst.Node) token.Position
}

type noPositions struct{}

func (noPositions) FindPosition(dst.Node) token.Position { return token.Position{} }

// Lower converts a parsed function declaration into a HookDeclaration. Every
// name in a grouped parameter ("a, b int") becomes its own slot. A trailing
// "...T" parameter becomes the variadic tail instead of a slot. Type
// expressions are cloned, fn is left untouched.
func Lower(fn *dst.FuncDecl, pos Positioner) *HookDeclaration {
	if pos == nil {
		pos = noPositions{}
	}
	decl := &HookDeclaration{
		Name:    fn.Name.Name,
		NamePos: pos.FindPosition(fn.Name),
		Results: cloneFieldList(fn.Type.Results),
		Source:  fn,
	}
	if ast.HasReceiver(fn) {
		decl.HasReceiver = true
		decl.RecvPos = pos.FindPosition(fn.Recv.List[0])
	}
	if ast.HasTypeParams(fn) {
		decl.TypeParams = cloneFieldList(fn.Type.TypeParams)
	}
	if fn.Type.Params == nil {
		return decl
	}
	fields := fn.Type.Params.List
	for i, field := range fields {
		names := field.Names
		if len(names) == 0 {
			names = []*dst.Ident{nil}
		}
		if ellipsis, ok := field.Type.(*dst.Ellipsis); ok && i == len(fields)-1 && len(names) == 1 {
			decl.Variadic = &VariadicTail{
				Name: identName(names[0]),
				Elem: ast.CloneExpr(ellipsis.Elt),
				Pos:  pos.FindPosition(field),
			}
			continue
		}
		for _, name := range names {
			slot := ParameterSlot{
				Index: len(decl.Slots),
				Name:  identName(name),
				Pos:   pos.FindPosition(field),
			}
			if name != nil {
				slot.Pos = pos.FindPosition(name)
			}
			if ast.IsBlankType(field.Type) {
				slot.Type = Placeholder{}
			} else {
				slot.Type = Concrete{Type: ast.CloneExpr(field.Type)}
			}
			decl.Slots = append(decl.Slots, slot)
		}
	}
	return decl
}

func identName(ident *dst.Ident) string {
	if ident == nil {
		return ""
	}
	return ident.Name
}

func cloneFieldList(list *dst.FieldList) *dst.FieldList {
	if list == nil {
		return nil
	}
	cloned, _ := dst.Clone(list).(*dst.FieldList)
	return cloned
}
