// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"go/token"
	"strconv"

	"github.com/dave/dst"

	"github.com/chlorodose/dlhook/tool/util"
)

// -----------------------------------------------------------------------------
// AST Primitives
//
// Building blocks for the declarations the generator emits. Every primitive
// that takes an existing node clones it first, so generated code never shares
// nodes with the tree it was derived from.

const IdentIgnore = "_"

func Ident(name string) *dst.Ident {
	return &dst.Ident{
		Name: name,
	}
}

func CloneExpr(x dst.Expr) dst.Expr {
	if x == nil {
		return nil
	}
	return util.AssertType[dst.Expr](dst.Clone(x))
}

func AddressOf(name string) *dst.UnaryExpr {
	return &dst.UnaryExpr{Op: token.AND, X: Ident(name)}
}

func CallTo(fun dst.Expr, args []dst.Expr) *dst.CallExpr {
	return &dst.CallExpr{
		Fun:  fun,
		Args: args,
	}
}

func StringLit(value string) *dst.BasicLit {
	return &dst.BasicLit{
		Kind:  token.STRING,
		Value: strconv.Quote(value),
	}
}

func BlockStmts(stmts ...dst.Stmt) *dst.BlockStmt {
	return &dst.BlockStmt{
		List: stmts,
	}
}

func Exprs(exprs ...dst.Expr) []dst.Expr {
	return exprs
}

func SelectorExpr(x dst.Expr, sel string) *dst.SelectorExpr {
	return &dst.SelectorExpr{
		X:   CloneExpr(x),
		Sel: Ident(sel),
	}
}

func ExprStmt(expr dst.Expr) *dst.ExprStmt {
	return &dst.ExprStmt{X: CloneExpr(expr)}
}

func ReturnStmt(results []dst.Expr) *dst.ReturnStmt {
	return &dst.ReturnStmt{Results: results}
}

func Ellipsis(elem dst.Expr) *dst.Ellipsis {
	return &dst.Ellipsis{Elt: CloneExpr(elem)}
}

// Field builds a parameter or result field. An empty name yields an unnamed
// field.
func Field(name string, t dst.Expr) *dst.Field {
	newField := &dst.Field{Type: t}
	if name != "" {
		newField.Names = []*dst.Ident{Ident(name)}
	}
	return newField
}

func ImportDecl(alias, path string) *dst.GenDecl {
	spec := &dst.ImportSpec{
		Path: &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(path)},
	}
	if alias != "" {
		spec.Name = Ident(alias)
	}
	return &dst.GenDecl{
		Tok:   token.IMPORT,
		Specs: []dst.Spec{spec},
	}
}

// VarDeclStmt declares a zero-valued local variable: var name T
func VarDeclStmt(name string, t dst.Expr) *dst.DeclStmt {
	return &dst.DeclStmt{
		Decl: &dst.GenDecl{
			Tok: token.VAR,
			Specs: []dst.Spec{
				&dst.ValueSpec{
					Names: []*dst.Ident{Ident(name)},
					Type:  t,
				},
			},
		},
	}
}

func LineComments(comments ...string) dst.NodeDecs {
	return dst.NodeDecs{
		Before: dst.EmptyLine,
		Start:  dst.Decorations(comments),
	}
}
