// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package ex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// -----------------------------------------------------------------------------
// Stackful Errors
//
// Errors created by New/Newf or wrapped by Wrap/Wrapf remember the call stack
// of the place where they were first created. Returning them up the call chain
// keeps that stack, while further Wrapf calls only append context messages:
//
//	if err := os.WriteFile(path, data, 0o644); err != nil {
//	    return ex.Wrapf(err, "failed to write %s", path)
//	}
//
// Commands terminate with Fatal, which prints every attached message followed
// by the recorded stack.

const (
	numSkipFrame = 4 // runtime.Callers, captureStack, wrapOrCreate, {New,Newf,Wrap,Wrapf}
	maxFrames    = 32
	modPrefix    = "github.com/chlorodose/dlhook/"
)

type stackfulError struct {
	message []string
	frame   []string
	wrapped error
}

func (e *stackfulError) Error() string { return strings.Join(e.message, "\n") }
func (e *stackfulError) Unwrap() error { return e.wrapped }

func captureStack() []string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(numSkipFrame, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	frameList := make([]string, 0, n)
	for cnt := 0; ; cnt++ {
		frame, more := frames.Next()
		fnName := strings.TrimPrefix(frame.Function, modPrefix)
		frameList = append(frameList,
			fmt.Sprintf("[%d]%s:%d %s", cnt, frame.File, frame.Line, fnName))
		if !more {
			break
		}
	}
	return frameList
}

func wrapOrCreate(previousErr error, format string, args ...any) error {
	se := &stackfulError{}
	if errors.As(previousErr, &se) {
		if attach := fmt.Sprintf(format, args...); attach != "" {
			se.message = append(se.message, attach)
		}
		return previousErr
	}
	errMsg := fmt.Sprintf(format, args...)
	if previousErr != nil {
		if errMsg == "" {
			errMsg = previousErr.Error()
		} else {
			errMsg = fmt.Sprintf("%s: %s", errMsg, previousErr.Error())
		}
	}
	return &stackfulError{
		message: []string{errMsg},
		frame:   captureStack(),
		wrapped: previousErr,
	}
}

func Wrap(previousErr error) error {
	return wrapOrCreate(previousErr, "")
}

func Wrapf(previousErr error, format string, args ...any) error {
	return wrapOrCreate(previousErr, format, args...)
}

func New(message string) error {
	return wrapOrCreate(nil, "%s", message)
}

func Newf(format string, args ...any) error {
	return wrapOrCreate(nil, format, args...)
}

// Stack returns the frames recorded when err was first created, or nil if err
// carries no stack.
func Stack(err error) []string {
	se := &stackfulError{}
	if errors.As(err, &se) {
		return se.frame
	}
	return nil
}

// Report writes the numbered message chain of err and, if present, its stack.
func Report(w io.Writer, err error) {
	se := &stackfulError{}
	if !errors.As(err, &se) {
		_, _ = fmt.Fprintf(w, "Error:\n%s\n", err)
		return
	}
	var sb strings.Builder
	for i, m := range se.message {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i, m))
	}
	_, _ = fmt.Fprintf(w, "Error:\n%s\nStack:\n%s\n",
		sb.String(), strings.Join(se.frame, "\n"))
}

func Fatal(err error) {
	if err == nil {
		panic("Fatal error: unknown")
	}
	Report(os.Stderr, err)
	os.Exit(1)
}
