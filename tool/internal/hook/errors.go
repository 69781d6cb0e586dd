// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"errors"
	"fmt"
	"go/token"
)

// Kind classifies a diagnostic produced while transforming a hook declaration.
type Kind int

const (
	// AttributeError reports a missing or malformed origin option.
	AttributeError Kind = iota + 1
	// ArityError reports a declaration without parameters.
	ArityError
	// TypeError reports a misplaced or missing placeholder, or a signature
	// that cannot be exported to C.
	TypeError
	// ReceiverError reports a declaration with a receiver.
	ReceiverError
)

var (
	ErrAttribute = errors.New("attribute error")
	ErrArity     = errors.New("arity error")
	ErrType      = errors.New("type error")
	ErrReceiver  = errors.New("receiver error")
)

func (k Kind) String() string {
	switch k {
	case AttributeError:
		return "AttributeError"
	case ArityError:
		return "ArityError"
	case TypeError:
		return "TypeError"
	case ReceiverError:
		return "ReceiverError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case AttributeError:
		return ErrAttribute
	case ArityError:
		return ErrArity
	case TypeError:
		return ErrType
	case ReceiverError:
		return ErrReceiver
	default:
		return nil
	}
}

// Error is a positioned diagnostic. It matches the sentinel of its kind with
// errors.Is, e.g. errors.Is(err, hook.ErrArity).
type Error struct {
	Kind Kind
	Pos  token.Position
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, pos token.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
