// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// E2E Test Infrastructure
// This infrastructure builds the dlhook tool, uses it to build a hook library,
// then runs a program with that library preloaded and returns its output.

func newCmd(ctx context.Context, dir string, args ...string) *exec.Cmd {
	path := args[0]
	args = args[1:]
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	return cmd
}

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := newCmd(t.Context(), dir, args...).CombinedOutput()
	require.NoError(t, err, string(out))
	return string(out)
}

// RootDir returns the module root, two levels above the test packages.
func RootDir(t *testing.T) string {
	t.Helper()
	pwd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Join(pwd, "..", "..")
}

// BuildTool builds the dlhook command into a temporary directory.
func BuildTool(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "dlhook")
	run(t, RootDir(t), "go", "build", "-o", bin, "./tool/cmd")
	return bin
}

// BuildLibrary runs "dlhook build" in dir and returns the path of the shared
// library it produced along with the tool output. args go before the build
// command, so they are root flags.
func BuildLibrary(t *testing.T, tool, dir string, args ...string) (string, string) {
	t.Helper()
	lib := filepath.Join(t.TempDir(), "lib"+filepath.Base(dir)+".so")
	cmd := append([]string{tool}, args...)
	cmd = append(cmd, "build", "-o", lib, ".")
	out := run(t, dir, cmd...)
	return lib, out
}

// CompileC compiles a single C source into an executable.
func CompileC(t *testing.T, src string) string {
	t.Helper()
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	if _, err := exec.LookPath(cc); err != nil {
		t.Skipf("no C compiler: %v", err)
	}
	bin := filepath.Join(t.TempDir(), "prog")
	run(t, filepath.Dir(src), cc, "-o", bin, src)
	return bin
}

// RunPreloaded runs args through "dlhook run" with lib preloaded.
func RunPreloaded(t *testing.T, tool, lib string, args ...string) string {
	t.Helper()
	cmd := append([]string{tool, "run", "--lib", lib, "--"}, args...)
	return run(t, t.TempDir(), cmd...)
}
