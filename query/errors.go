package query

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine matches exactly one of these with errors.Is.
var (
	// ErrSchema reports incompatible column counts or types across operands
	ErrSchema = errors.New("schema error")
	// ErrType reports an operation applied to an incompatible value type
	ErrType = errors.New("type error")
	// ErrDivisionByZero is raised by / and % (and MOD) with a zero divisor
	ErrDivisionByZero = errors.New("division by zero")
	// ErrRecursionLimit reports a recursive CTE exceeding its iteration or row bound
	ErrRecursionLimit = errors.New("recursion limit exceeded")
	// ErrCancelled reports an observed cooperative cancellation
	ErrCancelled = errors.New("query cancelled")
	// ErrResourceExhausted reports a blocking operator exceeding its materialization bound
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrValidation reports a plan rejected before execution
	ErrValidation = errors.New("invalid plan")
	// ErrNotFound reports an unknown table, CTE, column or function
	ErrNotFound = errors.New("not found")
)

// Error is the structured error carried out of Execute.
//
// Kind is one of the sentinel errors above; Op names the operator or step that raised it;
// Cause is an optional underlying error (for example context.Canceled).
type Error struct {
	Kind  error
	Op    string
	Msg   string
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// newError builds an *Error with a formatted message
func newError(kind error, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NewError builds an *Error of the given kind; catalogs and sources outside the engine use it
func NewError(kind error, op string, format string, args ...interface{}) *Error {
	return newError(kind, op, format, args...)
}

// Cancelled wraps a context error observed by a source as ErrCancelled
func Cancelled(op string, cause error) *Error {
	return cancelled(op, cause)
}

// cancelled converts a context error into ErrCancelled
func cancelled(op string, cause error) *Error {
	return &Error{Kind: ErrCancelled, Op: op, Cause: cause}
}

// checkCtx returns ErrCancelled once the context is done
func checkCtx(ctx context.Context, op string) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return cancelled(op, ctx.Err())
	default:
		return nil
	}
}

// IsCancelled reports whether err is a cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
