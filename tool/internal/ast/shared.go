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
// AST Shared Utilities
//
// Lookups and small predicates over parsed files shared by the hook pipeline
// and the generator.

func ListFuncDecls(root *dst.File) []*dst.FuncDecl {
	funcDecls := make([]*dst.FuncDecl, 0)
	for _, decl := range root.Decls {
		funcDecl, ok := decl.(*dst.FuncDecl)
		if !ok {
			continue
		}
		funcDecls = append(funcDecls, funcDecl)
	}
	return funcDecls
}

func HasReceiver(fn *dst.FuncDecl) bool {
	return fn.Recv != nil && len(fn.Recv.List) > 0
}

func HasTypeParams(fn *dst.FuncDecl) bool {
	return fn.Type.TypeParams != nil && len(fn.Type.TypeParams.List) > 0
}

func IsUnusedIdent(ident *dst.Ident) bool {
	return ident.Name == IdentIgnore
}

// IsBlankType reports whether t is the blank identifier used in type position,
// as in "func f(x _)".
func IsBlankType(t dst.Expr) bool {
	ident, ok := t.(*dst.Ident)
	return ok && ident.Path == "" && IsUnusedIdent(ident)
}

func IsStringLit(expr dst.Expr, val string) bool {
	lit, ok := expr.(*dst.BasicLit)
	if !ok {
		return false
	}
	str, err := strconv.Unquote(lit.Value)
	if err != nil {
		return false
	}
	return lit.Kind == token.STRING && str == val
}

func IsEllipsis(t dst.Expr) bool {
	_, ok := t.(*dst.Ellipsis)
	return ok
}

// FindImportDecls returns the indexes of all import declarations in root.
func FindImportDecls(root *dst.File) []int {
	var indexes []int
	for i, decl := range root.Decls {
		if gen, ok := decl.(*dst.GenDecl); ok && gen.Tok == token.IMPORT {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// AddImportDecl inserts decl right after the last import declaration, or
// first if the file imports nothing.
func AddImportDecl(root *dst.File, decl *dst.GenDecl) {
	at := 0
	if indexes := FindImportDecls(root); len(indexes) > 0 {
		at = indexes[len(indexes)-1] + 1
	}
	decls := make([]dst.Decl, 0, len(root.Decls)+1)
	decls = append(decls, root.Decls[:at]...)
	decls = append(decls, decl)
	decls = append(decls, root.Decls[at:]...)
	root.Decls = decls
	for _, spec := range decl.Specs {
		if importSpec, ok := spec.(*dst.ImportSpec); ok {
			root.Imports = append(root.Imports, importSpec)
		}
	}
}

// SplitMultiNameFields splits fields that have multiple names into separate fields.
// For example, a field like "a, b int" becomes two fields: "a int" and "b int".
func SplitMultiNameFields(fieldList *dst.FieldList) *dst.FieldList {
	if fieldList == nil {
		return nil
	}
	result := &dst.FieldList{List: []*dst.Field{}}
	for _, field := range fieldList.List {
		// Handle unnamed fields or fields with single/multiple names
		namesToProcess := field.Names
		if len(namesToProcess) == 0 {
			namesToProcess = []*dst.Ident{nil}
		}

		for _, name := range namesToProcess {
			clonedType := util.AssertType[dst.Expr](dst.Clone(field.Type))

			var names []*dst.Ident
			if name != nil {
				clonedName := util.AssertType[*dst.Ident](dst.Clone(name))
				names = []*dst.Ident{clonedName}
			}

			newField := &dst.Field{
				Names: names,
				Type:  clonedType,
			}
			result.List = append(result.List, newField)
		}
	}
	return result
}
