package persist

import (
	"errors"
	"fmt"
)

// Error is the single failure kind reported by this package. It carries a
// human-readable message and an optional wrapped cause, and participates in
// errors.Is/errors.As chains through Unwrap.
type Error struct {
	msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// newError creates an Error without a cause.
func newError(msg string) *Error {
	return &Error{msg: msg}
}

// newErrorf creates an Error from a format string, without a cause.
func newErrorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// wrapError creates an Error wrapping cause. If cause is already an *Error it
// is returned unchanged so messages do not stack on re-wrap.
func wrapError(msg string, cause error) error {
	if cause == nil {
		return newError(msg)
	}
	var pe *Error
	if errors.As(cause, &pe) {
		return cause
	}
	return &Error{msg: msg, cause: cause}
}

// IsFailure reports whether err is (or wraps) a persistence Error.
func IsFailure(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

// Cause returns the innermost error in err's chain, or err itself when
// nothing is wrapped. Returns nil for a nil err.
func Cause(err error) error {
	if err == nil {
		return nil
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
