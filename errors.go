package rogue

import (
	"errors"
	"fmt"
)

// Sentinel errors for common engine error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrJobNotFound indicates the requested job was not found in the registry.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig indicates the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoJudge indicates an LLM-backed metric was invoked without a
	// configured judge LLM. Metrics must surface this in their reason text
	// rather than report a detection.
	ErrNoJudge = errors.New("no judge LLM configured")

	// ErrTransportClosed indicates the transport was closed while a
	// conversation was still in flight.
	ErrTransportClosed = errors.New("transport closed")
)

// Error kinds categorize errors by their type.
const (
	// KindConfiguration represents invalid or missing options, surfaced to
	// the caller before job creation.
	KindConfiguration = "configuration"

	// KindTransport represents network, auth, or timeout failures talking to
	// the target agent. Retried, then recorded per-conversation.
	KindTransport = "transport"

	// KindJudge represents judge LLM failures (unreachable or unparseable
	// output). Downgraded to a safe-default verdict with a warning.
	KindJudge = "judge"

	// KindScheduler represents internal orchestrator invariant violations.
	KindScheduler = "scheduler"

	// KindCancelled represents cooperative cancellation. Not an error to
	// callers; the job ends with status cancelled.
	KindCancelled = "cancelled"

	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindTimeout represents errors related to operation timeouts.
	KindTimeout = "timeout"
)

// Error is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of
// error.
//
// Error implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	err := &Error{
//		Op:   "Orchestrator.Submit",
//		Kind: KindValidation,
//		Err:  ErrInvalidConfig,
//	}
type Error struct {
	// Op is the operation that failed (e.g., "Driver.Run", "Transport.Send").
	Op string

	// Kind categorizes the error (e.g., KindTransport, KindJudge).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	// This can include job IDs, scenario text, or other debugging information.
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rogue: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("rogue: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("rogue: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Error, allowing comparison based on the
// underlying error or on a kind-only target.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			return t.Op == "" || e.Op == t.Op
		}
		return false
	}

	return errors.Is(e.Err, target)
}

// E constructs an Error with the given operation, kind, and underlying error.
func E(op, kind string, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// WithContext returns a copy of the error with the given context attached.
func (e *Error) WithContext(ctx map[string]any) *Error {
	return &Error{Op: e.Op, Kind: e.Kind, Err: e.Err, Context: ctx}
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind string) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}
