// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler provides the cooperative-task primitives shared by
// every taskrelay subsystem: a closed error-kind enum, per-task
// cancellation via context.Context, and an idle-tick driver used to
// sweep up abandoned file transfers (unit/transfer) and, in spirit,
// the deferred-destruction sweep lib/asyncmap.Map.Run performs for its
// own cells.
//
// Go's own goroutine scheduler plays the role of the reactor event loop
// described by the originating specification; this package supplies
// only the pieces the specification calls out as load-bearing beyond
// "just use goroutines" — a shared error vocabulary and a periodic tick
// hook.
package scheduler

import "fmt"

// Kind is the closed set of error kinds every subsystem reports. It
// mirrors the fixed enum carried on the wire and in logs so a caller
// can branch on failure category without string matching.
type Kind int

const (
	KindNone Kind = iota
	KindDecodingFailed
	KindEncodingFailed
	KindInputError
	KindReactorError
	KindMemoryAllocationFailed
	KindTaskError
	KindInternalError
)

// String renders the kind the way log lines and wire diagnostics expect.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDecodingFailed:
		return "decoding_failed"
	case KindEncodingFailed:
		return "encoding_failed"
	case KindInputError:
		return "input_error"
	case KindReactorError:
		return "reactor_error"
	case KindMemoryAllocationFailed:
		return "memory_allocation_failed"
	case KindTaskError:
		return "task_error"
	case KindInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with a wrapped cause. Subsystems construct these
// with Wrap/New; callers test the kind with errors.As.
type Error struct {
	Kind  Kind
	cause error
}

// New creates a Kind-tagged error with no further wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, cause: fmt.Errorf("%s", message)}
}

// Wrap tags an existing error with a Kind, preserving it as the cause
// for %w-style unwrapping.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Kind, enabling
// errors.Is(err, scheduler.New(scheduler.KindInputError, "")) checks.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}
