package signage

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure in the pipeline is classified as one of these
// so callers can decide retry/log/ignore explicitly.
type Kind int

const (
	// KindRuntime covers unclassified failures.
	KindRuntime Kind = iota
	// KindOutOfBounds marks a path that escaped the asset root.
	KindOutOfBounds
	// KindNotFound marks a missing file or backend row.
	KindNotFound
	// KindTransient marks a network failure worth retrying on the next tick.
	KindTransient
	// KindAutoplayBlocked marks a platform autoplay refusal, recoverable
	// via user gesture.
	KindAutoplayBlocked
	// KindInvalid marks bad input from a caller.
	KindInvalid
)

// CLI exit codes.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitNotFound = 4
)

// Error carries a kind, a user-visible message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an Error with no cause.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError creates an Error with an underlying cause.
func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf classifies an error, defaulting to KindRuntime.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindRuntime
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsTransient reports whether err is a KindTransient error.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// ExitCode maps an error to a CLI exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindNotFound:
		return ExitNotFound
	case KindInvalid:
		return ExitUsage
	default:
		return ExitRuntime
	}
}
