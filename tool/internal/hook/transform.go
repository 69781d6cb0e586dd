// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"github.com/dave/dst"
)

// Transform runs the whole pipeline on one annotated declaration: extract the
// origin, lower and validate the declaration, synthesize the pointer type,
// name the forwarded parameters and emit the trampoline. The first failing
// stage aborts with a positioned *Error. fn is not modified.
func Transform(attr Attribute, fn *dst.FuncDecl, pos Positioner) (*GeneratedArtifact, error) {
	origin, err := ExtractOrigin(attr)
	if err != nil {
		return nil, err
	}
	if origin == InternalName(fn.Name.Name) {
		return nil, newError(AttributeError, attr.Pos,
			"origin %q collides with the generated trampoline name", origin)
	}
	decl := Lower(fn, pos)
	if err = Validate(decl); err != nil {
		return nil, err
	}
	filled, sig := Synthesize(decl)
	names := AllocateNames(filled)
	return Emit(filled, sig, names, origin), nil
}
