// Package apperr defines the error taxonomy shared by every playcha layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure
type Kind int

const (
	// KindDriver covers unexpected failures of the browser automation layer
	KindDriver Kind = iota
	// KindInvalidRequest covers missing or contradictory request fields
	KindInvalidRequest
	// KindBlocked means an access-denied page was served
	KindBlocked
	// KindChallengeTimeout means a polling or solving deadline passed
	KindChallengeTimeout
	// KindSolverUnavailable means the configured solver cannot run
	KindSolverUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindBlocked:
		return "blocked"
	case KindChallengeTimeout:
		return "challenge_timeout"
	case KindSolverUnavailable:
		return "solver_unavailable"
	default:
		return "driver_error"
	}
}

// Error is a classified failure with a human-readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidRequest creates a request validation error
func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Blocked creates an access-denied error
func Blocked(message string) *Error {
	return &Error{Kind: KindBlocked, Message: message}
}

// ChallengeTimeout creates a deadline error
func ChallengeTimeout(format string, args ...any) *Error {
	return &Error{Kind: KindChallengeTimeout, Message: fmt.Sprintf(format, args...)}
}

// SolverUnavailable creates a solver configuration error
func SolverUnavailable(format string, args ...any) *Error {
	return &Error{Kind: KindSolverUnavailable, Message: fmt.Sprintf(format, args...)}
}

// Driver wraps a browser automation failure. A nil err yields nil.
func Driver(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: KindDriver, Message: op, Err: err}
}

// KindOf returns the kind of err, or KindDriver for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDriver
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
