// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"go/token"

	"github.com/dave/dst"

	"github.com/chlorodose/dlhook/tool/internal/ast"
)

const (
	// InternalPrefix prefixes the Go name of every generated trampoline.
	InternalPrefix = "_dlhook_"
	// RuntimeAlias is the import name of the runtime package in generated code.
	RuntimeAlias = "_dlhookrt"
	// RuntimePath is the import path of the runtime package.
	RuntimePath = "github.com/chlorodose/dlhook"
	// ABI is the only calling convention a hook can bind to.
	ABI = "C"

	nextVarName = "_dlhook_next"
)

// SlotType is what a parameter slot holds: either the placeholder hole or a
// concrete type expression.
type SlotType interface {
	isSlotType()
}

// Placeholder is the unresolved hole written as "_" in slot 0.
type Placeholder struct{}

// Concrete is a verbatim type expression. After synthesis slot 0 holds a
// Concrete whose Signature is the function pointer it was built from.
type Concrete struct {
	Type      dst.Expr
	Signature *FuncPtrSignature
}

func (Placeholder) isSlotType() {}
func (Concrete) isSlotType()    {}

type ParameterSlot struct {
	Index int
	// Name is empty for unnamed parameters and "_" for blank ones.
	Name string
	Type SlotType
	Pos  token.Position
}

// VariadicTail is a trailing "...T" parameter standing for C varargs.
type VariadicTail struct {
	Name string
	Elem dst.Expr
	Pos  token.Position
}

type HookDeclaration struct {
	Name    string
	NamePos token.Position
	Slots   []ParameterSlot
	// Results is the result list, verbatim. It may be nil.
	Results     *dst.FieldList
	Variadic    *VariadicTail
	HasReceiver bool
	RecvPos     token.Position
	TypeParams  *dst.FieldList
	// Source is the declaration the hook was lowered from.
	Source *dst.FuncDecl
}

// Forwarded returns the slots passed through to the hook by the trampoline,
// that is every slot but the first.
func (h *HookDeclaration) Forwarded() []ParameterSlot {
	if len(h.Slots) == 0 {
		return nil
	}
	return h.Slots[1:]
}

// PtrParam is one parameter of a function pointer signature.
type PtrParam struct {
	Name string
	Type dst.Expr
}

// FuncPtrSignature describes the C function the origin symbol resolves to.
type FuncPtrSignature struct {
	Params   []PtrParam
	Results  *dst.FieldList
	Variadic *VariadicTail
	ABI      string
	Unsafe   bool
}

func (s *FuncPtrSignature) IsVariadic() bool { return s.Variadic != nil }

// FuncType renders the signature as a Go function type. Parameter names are
// dropped so named and unnamed parameters never mix.
func (s *FuncPtrSignature) FuncType() *dst.FuncType {
	params := &dst.FieldList{List: make([]*dst.Field, 0, len(s.Params)+1)}
	for _, p := range s.Params {
		params.List = append(params.List, ast.Field("", ast.CloneExpr(p.Type)))
	}
	if s.Variadic != nil {
		params.List = append(params.List, ast.Field("", ast.Ellipsis(s.Variadic.Elem)))
	}
	return &dst.FuncType{
		Func:    true,
		Params:  params,
		Results: unnamedResults(s.Results),
	}
}

// GeneratedArtifact is everything emitted for one hook declaration.
type GeneratedArtifact struct {
	Hook         *HookDeclaration
	Trampoline   *dst.FuncDecl
	ExportName   string
	InternalName string
	Signature    *FuncPtrSignature
}

func unnamedResults(results *dst.FieldList) *dst.FieldList {
	if results == nil || len(results.List) == 0 {
		return nil
	}
	split := ast.SplitMultiNameFields(results)
	for _, field := range split.List {
		field.Names = nil
	}
	return split
}
