// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"bytes"
	"fmt"
)

// -----------------------------------------------------------------------------
// Export Stubs
//
// cgo exports a Go function under its own name only, while the hook must be
// reachable under the origin symbol. Each hook therefore gets a tiny assembly
// stub that defines the origin symbol globally and tail-jumps to the exported
// trampoline. The jump leaves every argument register untouched, C varargs
// included. The stub file includes no headers so it never clashes with the
// prototypes of the symbols it defines.
//
// On darwin a plain definition only interposes on images bound through the
// flat namespace. "dlhook run" sets DYLD_FORCE_FLAT_NAMESPACE for that; a
// library preloaded by other means reaches two-level namespace images only
// partially.

const stubPrelude = `#if defined(__APPLE__) && defined(__x86_64__)
#define DLHOOK_STUB(name, target) __asm__(".text\n.globl _" #name "\n_" #name ":\n\tjmp _" #target "\n")
#elif defined(__APPLE__) && defined(__aarch64__)
#define DLHOOK_STUB(name, target) __asm__(".text\n.globl _" #name "\n.p2align 2\n_" #name ":\n\tb _" #target "\n")
#elif defined(__x86_64__)
#define DLHOOK_STUB(name, target) __asm__(".text\n.globl " #name "\n.type " #name ", %function\n" #name ":\n\tjmp " #target "@PLT\n.size " #name ", .-" #name "\n")
#elif defined(__aarch64__)
#define DLHOOK_STUB(name, target) __asm__(".text\n.globl " #name "\n.type " #name ", %function\n.p2align 2\n" #name ":\n\tb " #target "\n.size " #name ", .-" #name "\n")
#else
#error "dlhook: unsupported platform"
#endif
`

// StubConstraint restricts the stub file to the platforms the stubs support.
const StubConstraint = "//go:build (linux || darwin) && (amd64 || arm64)"

// RenderStubs renders the C file defining the export symbol of every artifact,
// in the given order.
func RenderStubs(header string, artifacts []*GeneratedArtifact) []byte {
	var buf bytes.Buffer
	if header != "" {
		buf.WriteString(header)
		buf.WriteString("\n\n")
	}
	buf.WriteString(StubConstraint)
	buf.WriteString("\n\n")
	buf.WriteString(stubPrelude)
	if len(artifacts) > 0 {
		buf.WriteString("\n")
	}
	for _, a := range artifacts {
		fmt.Fprintf(&buf, "DLHOOK_STUB(%s, %s);\n", a.ExportName, a.InternalName)
	}
	return buf.Bytes()
}
