// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFlagValue(t *testing.T) {
	tests := []struct {
		name     string
		cmd      []string
		flag     string
		expected string
	}{
		{
			name:     "separate value",
			cmd:      []string{"build", "-o", "libhook.so", "."},
			flag:     "-o",
			expected: "libhook.so",
		},
		{
			name:     "joined value",
			cmd:      []string{"build", "-buildmode=c-shared", "."},
			flag:     "-buildmode",
			expected: "c-shared",
		},
		{
			name:     "flag missing",
			cmd:      []string{"build", "."},
			flag:     "-o",
			expected: "",
		},
		{
			name:     "flag without value at end",
			cmd:      []string{"build", "-o"},
			flag:     "-o",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindFlagValue(tt.cmd, tt.flag))
		})
	}
}

func TestHasFlag(t *testing.T) {
	cmd := []string{"build", "-buildmode=c-shared", "-o", "x.so"}
	assert.True(t, HasFlag(cmd, "-buildmode"))
	assert.True(t, HasFlag(cmd, "-o"))
	assert.False(t, HasFlag(cmd, "-tags"))
}

func TestIsGoFile(t *testing.T) {
	assert.True(t, IsGoFile("hooks.go"))
	assert.True(t, IsGoFile("HOOKS.GO"))
	assert.True(t, IsGoFile("hooks_test.go"))
	assert.False(t, IsGoFile("hooks.c"))
	assert.False(t, IsGoFile("dlhook.yaml"))

	assert.True(t, IsGoTestFile("hooks_test.go"))
	assert.False(t, IsGoTestFile("hooks.go"))
}

func TestGeneratedName(t *testing.T) {
	assert.Equal(t, "hooks_dlhook.go", GeneratedName("hooks.go", "_dlhook", ".go"))
	assert.Equal(t, "dir/hooks_dlhook.c", GeneratedName("dir/hooks.go", "_dlhook", ".c"))
}

func TestAppendEnv(t *testing.T) {
	env := []string{"PATH=/bin", "LD_PRELOAD=/old.so", "HOME=/root"}
	got := AppendEnv(env, "LD_PRELOAD", "/new.so")
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root", "LD_PRELOAD=/new.so"}, got)
	assert.Equal(t, []string{"PATH=/bin", "LD_PRELOAD=/old.so", "HOME=/root"}, env)
}

func TestAssert(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true, "fine") })
	assert.Panics(t, func() { Assert(false, "broken") })
	assert.Equal(t, 3, AssertType[int](3))
	assert.Panics(t, func() { AssertType[string](3) })
}

func TestPreloadEnv(t *testing.T) {
	key, err := PreloadEnv()
	switch runtime.GOOS {
	case "darwin":
		assert.NoError(t, err)
		assert.Equal(t, "DYLD_INSERT_LIBRARIES", key)
	case "linux":
		assert.NoError(t, err)
		assert.Equal(t, "LD_PRELOAD", key)
	case "windows":
		assert.Error(t, err)
	}
	assert.Equal(t, runtime.GOOS == "darwin", IsDarwin())
}
