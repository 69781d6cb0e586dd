// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package dlhook

import (
	"fmt"
	"reflect"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Bind makes the function pointed to by fptr call the C function at addr with
// the C calling convention. fptr must be a pointer to a func variable.
//
// A variadic Go signature stands for C varargs. Variadic arguments must be
// integers, booleans or pointers; each is passed as one machine word.
//
// If addr is 0 the bound function panics when called.
func Bind(fptr any, addr uintptr) {
	v := reflect.ValueOf(fptr)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Func {
		panic(fmt.Sprintf("dlhook: Bind requires a non-nil pointer to a func, got %T", fptr))
	}
	fn := v.Elem()
	ft := fn.Type()
	switch {
	case addr == 0:
		fn.Set(reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
			panic(fmt.Sprintf("dlhook: call through unresolved function pointer of type %s", ft))
		}))
	case ft.IsVariadic():
		if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
			panic("dlhook: variadic C calls are not supported on darwin/arm64")
		}
		if ft.NumOut() > 1 {
			panic(fmt.Sprintf("dlhook: %s returns more than one value", ft))
		}
		fn.Set(reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
			return callVariadic(ft, addr, args)
		}))
	default:
		purego.RegisterFunc(fptr, addr)
	}
}

func callVariadic(ft reflect.Type, addr uintptr, args []reflect.Value) []reflect.Value {
	fixed := args[:len(args)-1]
	rest := args[len(args)-1]
	words := make([]uintptr, 0, len(fixed)+rest.Len())
	for _, a := range fixed {
		words = append(words, word(a))
	}
	for i := 0; i < rest.Len(); i++ {
		words = append(words, word(rest.Index(i)))
	}
	r1, _, _ := purego.SyscallN(addr, words...)
	runtime.KeepAlive(args)

	if ft.NumOut() == 0 {
		return nil
	}
	return []reflect.Value{fromWord(ft.Out(0), r1)}
}

func word(v reflect.Value) uintptr {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uintptr(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return uintptr(v.Uint())
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Pointer, reflect.UnsafePointer:
		return v.Pointer()
	case reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return word(v.Elem())
	default:
		panic(fmt.Sprintf("dlhook: cannot pass %s as a C argument", v.Type()))
	}
}

func fromWord(t reflect.Type, w uintptr) reflect.Value {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(int64(w))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		out.SetUint(uint64(w))
	case reflect.Bool:
		out.SetBool(w&0xff != 0)
	case reflect.UnsafePointer:
		out.SetPointer(*(*unsafe.Pointer)(unsafe.Pointer(&w)))
	case reflect.Pointer:
		out = reflect.NewAt(t.Elem(), *(*unsafe.Pointer)(unsafe.Pointer(&w)))
	default:
		panic(fmt.Sprintf("dlhook: cannot return %s from a C function", t))
	}
	return out
}
