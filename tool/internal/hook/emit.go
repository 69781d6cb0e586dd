// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"github.com/dave/dst"

	"github.com/chlorodose/dlhook/tool/internal/ast"
	"github.com/chlorodose/dlhook/tool/util"
)

// InternalName is the Go name of the trampoline generated for hookName.
func InternalName(hookName string) string {
	return InternalPrefix + hookName
}

func runtimeRef(name string) *dst.SelectorExpr {
	return ast.SelectorExpr(ast.Ident(RuntimeAlias), name)
}

// Emit builds the trampoline for a synthesized hook declaration:
//
//	//export _dlhook_open_hook
//	func _dlhook_open_hook(path *C.char, flags C.int) C.int {
//		var _dlhook_next func(*C.char, C.int, ...any) C.int
//		_dlhookrt.Bind(&_dlhook_next, _dlhookrt.Resolve(_dlhookrt.Next, "open"))
//		return open_hook(_dlhook_next, path, flags)
//	}
//
// The origin is resolved on every call. Variadic arguments are part of the
// pointer type only; they are never forwarded.
func Emit(decl *HookDeclaration, sig *FuncPtrSignature, names []string, origin string) *GeneratedArtifact {
	forwarded := decl.Forwarded()
	util.Assert(len(names) == len(forwarded), "one name per forwarded slot")
	internal := InternalName(decl.Name)

	params := &dst.FieldList{List: make([]*dst.Field, 0, len(forwarded))}
	args := make([]dst.Expr, 0, len(forwarded)+1)
	args = append(args, ast.Ident(nextVarName))
	for i, slot := range forwarded {
		concrete := util.AssertType[Concrete](slot.Type)
		params.List = append(params.List, ast.Field(names[i], ast.CloneExpr(concrete.Type)))
		args = append(args, ast.Ident(names[i]))
	}

	bind := ast.CallTo(runtimeRef("Bind"), ast.Exprs(
		ast.AddressOf(nextVarName),
		ast.CallTo(runtimeRef("Resolve"), ast.Exprs(runtimeRef("Next"), ast.StringLit(origin))),
	))
	call := ast.CallTo(ast.Ident(decl.Name), args)
	var last dst.Stmt = ast.ExprStmt(call)
	if countFields(decl.Results) > 0 {
		last = ast.ReturnStmt(ast.Exprs(call))
	}

	trampoline := &dst.FuncDecl{
		Name: ast.Ident(internal),
		Type: &dst.FuncType{
			Func:    true,
			Params:  params,
			Results: unnamedResults(decl.Results),
		},
		Body: ast.BlockStmts(
			ast.VarDeclStmt(nextVarName, sig.FuncType()),
			ast.ExprStmt(bind),
			last,
		),
		Decs: dst.FuncDeclDecorations{NodeDecs: ast.LineComments("//export " + internal)},
	}
	return &GeneratedArtifact{
		Hook:         decl,
		Trampoline:   trampoline,
		ExportName:   origin,
		InternalName: internal,
		Signature:    sig,
	}
}
