// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"path/filepath"
	"strings"
)

// FindFlagValue finds the value of a flag in a go command line. Both the
// "-flag value" and "-flag=value" forms are recognized.
func FindFlagValue(cmd []string, flag string) string {
	for i, v := range cmd {
		if v == flag {
			if i+1 < len(cmd) {
				return cmd[i+1]
			}
			return ""
		}
		if strings.HasPrefix(v, flag+"=") {
			return strings.TrimPrefix(v, flag+"=")
		}
	}
	return ""
}

// HasFlag reports whether flag appears in cmd in either form.
func HasFlag(cmd []string, flag string) bool {
	for _, v := range cmd {
		if v == flag || strings.HasPrefix(v, flag+"=") {
			return true
		}
	}
	return false
}

func IsGoFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".go")
}

func IsGoTestFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), "_test.go")
}

// GeneratedName derives the name of a generated sibling of a Go source file,
// e.g. ("dir/hooks.go", "_dlhook", ".c") yields "dir/hooks_dlhook.c".
func GeneratedName(src, suffix, ext string) string {
	base := strings.TrimSuffix(src, filepath.Ext(src))
	return base + suffix + ext
}
