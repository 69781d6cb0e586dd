// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package dlhook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ebitengine/purego"
)

const (
	// Next is the RTLD_NEXT pseudo handle: the search starts in the objects
	// loaded after the caller, which finds the implementation a preloaded
	// library shadows.
	Next = ^uintptr(0)
	// Default is the RTLD_DEFAULT pseudo handle: the global search order.
	Default uintptr = purego.RTLD_DEFAULT
)

var ErrNotFound = errors.New("dlhook: symbol not found")

// Resolve returns the address of the symbol name in scope, or 0 if it cannot
// be found. A name containing a NUL byte never resolves.
func Resolve(scope uintptr, name string) uintptr {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return 0
	}
	addr, err := purego.Dlsym(scope, name)
	if err != nil {
		return 0
	}
	return addr
}

// Lookup resolves name in the global search order.
func Lookup(name string) (uintptr, error) {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return 0, fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	addr, err := purego.Dlsym(Default, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return addr, nil
}

// Open loads the shared library at path and returns its handle, usable as a
// scope for Resolve.
func Open(path string) (uintptr, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, fmt.Errorf("dlhook: failed to open %s: %w", path, err)
	}
	return handle, nil
}
