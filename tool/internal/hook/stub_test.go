// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

const generatedBy = "// Code generated by dlhook. DO NOT EDIT."

func TestRenderStubs(t *testing.T) {
	open, err := transform(t, "open",
		"func open_hook(f _, path *C.char, flags C.int, mode C.uint) C.int { return 0 }")
	require.NoError(t, err)
	getuid, err := transform(t, "getuid", "func fake_root_uid(f _) uint32 { return 0 }")
	require.NoError(t, err)

	out := RenderStubs(generatedBy, []*GeneratedArtifact{open, getuid})
	golden.Assert(t, string(out), "stubs.c.golden")
}

func TestRenderStubsEmpty(t *testing.T) {
	out := string(RenderStubs("", nil))
	assert.True(t, strings.HasPrefix(out, StubConstraint+"\n\n"))
	assert.NotContains(t, out, "DLHOOK_STUB(open")
	assert.True(t, strings.HasSuffix(out, "#endif\n"))
}

func TestRenderStubsExportsOriginVerbatim(t *testing.T) {
	art, err := transform(t, "__libc_start_main", "func start(f _) {}")
	require.NoError(t, err)
	out := string(RenderStubs("", []*GeneratedArtifact{art}))
	assert.Contains(t, out, "DLHOOK_STUB(__libc_start_main, _dlhook_start);\n")
}
