// Package rderr defines the typed error kinds the ramdisk engine and its
// collaborators return. Every failure path that isn't a bare programmer
// mistake should surface one of these so callers can distinguish "this
// image is not what it claims to be" from "you asked for something that
// isn't there."
package rderr

import (
	"errors"
	"fmt"
)

// Kind classifies a ramdisk error for callers that need to branch on it
// (the CLI maps Kind to a log level; script mode aborts on any failing
// command, whatever its Kind).
type Kind int

const (
	// KindFormat covers a malformed image: bad magic, bad checkval, an
	// entry tag the engine doesn't recognize. Fatal at load or first touch.
	KindFormat Kind = iota
	// KindInvariant covers an on-disk structure that is internally
	// inconsistent: a chain that never terminates, a directory whose
	// sector count disagrees with max_size. Always fatal.
	KindInvariant
	// KindUser covers a bad request against an otherwise healthy image:
	// name not found, duplicate name, non-empty rmdir target, flags value
	// outside the allow-list.
	KindUser
	// KindCapacity covers running out of free sectors on inject.
	KindCapacity
	// KindIO covers failures reading or writing local files (dump,
	// inject, commit).
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindInvariant:
		return "invariant"
	case KindUser:
		return "user"
	case KindCapacity:
		return "capacity"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this module. It pairs a
// Kind with a message and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can do errors.Is(err, rderr.New(rderr.KindUser, "")) style checks via
// the Of helper below instead.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Of reports the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Kind, true
}
