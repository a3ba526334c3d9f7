// Package errs defines the structured error shape used across the core.
// No component uses an exception-like control flow: every failure path
// carries a Kind, a human message, an actionable hint, and whether the
// caller should retry.
package errs

import "fmt"

// Kind classifies a failure into the taxonomy described by the error
// handling design: transport, schema, tool, verification, invariant,
// and interrupt errors are handled differently by their callers.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindSchema       Kind = "schema"
	KindTool         Kind = "tool"
	KindVerification Kind = "verification"
	KindInvariant    Kind = "invariant"
	KindInterrupt    Kind = "interrupt"
	KindBudget       Kind = "budget"
)

// Error is the structured error type threaded through the core.
type Error struct {
	Kind        Kind
	Message     string
	Hint        string
	Recoverable bool
	cause       error
}

// New constructs an Error with no underlying cause.
func New(kind Kind, message, hint string, recoverable bool) *Error {
	return &Error{Kind: kind, Message: message, Hint: hint, Recoverable: recoverable}
}

// Wrap constructs an Error around an underlying cause.
func Wrap(kind Kind, cause error, hint string, recoverable bool) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Hint: hint, Recoverable: recoverable, cause: cause}
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Kind, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// IsRecoverable reports whether the caller should retry rather than fail the task.
func (e *Error) IsRecoverable() bool {
	return e != nil && e.Recoverable
}
