// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"strconv"

	"github.com/chlorodose/dlhook/tool/internal/ast"
)

const argPrefix = "arg"

// AllocateNames names every forwarded slot. A slot keeps its own name unless
// it is unnamed or blank, in which case it becomes argK, where K is its
// zero-based position among the forwarded slots. Clashes are not resolved.
func AllocateNames(decl *HookDeclaration) []string {
	forwarded := decl.Forwarded()
	names := make([]string, len(forwarded))
	for k, slot := range forwarded {
		if slot.Name == "" || slot.Name == ast.IdentIgnore {
			names[k] = argPrefix + strconv.Itoa(k)
			continue
		}
		names[k] = slot.Name
	}
	return names
}
