// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package dlhook is the runtime used by trampolines generated by the dlhook
// tool. A hook is a Go function whose first parameter receives the original
// implementation of a C symbol:
//
//	//go:build dlhook
//
//	package main
//
//	import "C"
//
//	//dlhook:hook origin="getuid"
//	func fake_root_uid(f _) C.uint {
//		return 0
//	}
//
// "dlhook generate" fills the placeholder type "_" with the function type of
// the original and emits a trampoline exported as getuid. On every call the
// trampoline looks the original up with Resolve(Next, "getuid"), binds it
// with Bind and forwards to the hook. The package is built with
// -buildmode=c-shared and injected with LD_PRELOAD, see "dlhook run".
package dlhook
