// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"os"
	"reflect"
	"runtime"

	"github.com/chlorodose/dlhook/tool/ex"
)

const (
	EnvWorkDir  = "DLHOOK_WORK_DIR"
	DlhookRoot  = "github.com/chlorodose/dlhook"
	DefaultTag  = "dlhook"
	ConfigFile  = "dlhook.yaml"
	GeneratedBy = "// Code generated by dlhook. DO NOT EDIT."
)

// EnvFlatNamespace makes dyld bind every image through the flat namespace, so
// DYLD_INSERT_LIBRARIES definitions interpose on darwin.
const EnvFlatNamespace = "DYLD_FORCE_FLAT_NAMESPACE"

// GetWorkDir returns $DLHOOK_WORK_DIR if set, the current directory otherwise.
func GetWorkDir() string {
	wd := os.Getenv(EnvWorkDir)
	if wd == "" {
		wd, _ = os.Getwd()
	}
	return wd
}

// Assert panics with a stackful error if condition does not hold. It guards
// internal invariants only, never user input.
func Assert(condition bool, message string) {
	if !condition {
		panic(ex.Newf("assertion failed: %s", message))
	}
}

func AssertType[T any](v any) T {
	value, ok := v.(T)
	if !ok {
		var zero T
		panic(ex.Newf("type assertion failed: got %s, expected %s",
			reflect.TypeOf(v), reflect.TypeOf(&zero).Elem()))
	}
	return value
}

func IsDarwin() bool {
	return runtime.GOOS == "darwin"
}

// PreloadEnv returns the environment variable the dynamic loader of the
// current platform consults to load libraries ahead of everything else.
func PreloadEnv() (string, error) {
	if IsDarwin() {
		return "DYLD_INSERT_LIBRARIES", nil
	}
	switch runtime.GOOS {
	case "linux", "freebsd", "netbsd", "openbsd", "android":
		return "LD_PRELOAD", nil
	default:
		return "", ex.Newf("library preloading is not supported on %s", runtime.GOOS)
	}
}

// AppendEnv returns env with key set to value, replacing any earlier entry.
func AppendEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			continue
		}
		out = append(out, kv)
	}
	return append(out, fmt.Sprintf("%s=%s", key, value))
}
