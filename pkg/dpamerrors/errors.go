// Package dpamerrors defines the engine's error taxonomy (kinds, not Go
// types) and wraps github.com/pkg/errors for stack-trace-capable wrapping.
package dpamerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error by the handling policy it implies: per-protein
// (recorded, batch continues) or fatal-to-batch (the runner aborts).
type Kind string

const (
	// KindInputMissing: a required input artifact of a step does not exist.
	// Per-protein; marks that protein failed for that step.
	KindInputMissing Kind = "input-missing"

	// KindToolMissing: an external adapter's executable cannot be discovered.
	// Fatal to the batch if any pending protein would need it.
	KindToolMissing Kind = "tool-missing"

	// KindToolFailed: the external process exited nonzero or produced no
	// parseable output. Per-protein; marks failed.
	KindToolFailed Kind = "tool-failed"

	// KindParseError: the adapter could not parse output it did receive.
	// Per-protein; marks failed.
	KindParseError Kind = "parse-error"

	// KindStateIOError: writing a state file failed. Fatal to the batch.
	KindStateIOError Kind = "state-io-error"

	// KindScratchExhausted: local scratch has no space and no fallback.
	// Fatal to the batch.
	KindScratchExhausted Kind = "scratch-exhausted"

	// KindInvariantViolation: a programmer error, e.g. a step declared
	// complete but its declared output is missing. Fatal, indicates a bug.
	KindInvariantViolation Kind = "invariant-violation"
)

// Fatal reports whether errors of this kind abort the whole batch rather
// than being recorded against a single protein.
func (k Kind) Fatal() bool {
	switch k {
	case KindStateIOError, KindScratchExhausted, KindInvariantViolation:
		return true
	default:
		return false
	}
}

// Error pairs a Kind with a wrapped cause, preserving the pkg/errors stack
// trace of the original failure.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a Kind-tagged error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags cause with a Kind, preserving it as the unwrap target and
// attaching a pkg/errors stack trace if cause doesn't already carry one.
func Wrap(kind Kind, cause error, message string) *Error {
	if cause == nil {
		return New(kind, message)
	}
	return &Error{Kind: kind, Message: message, cause: errors.Wrap(cause, message)}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return Wrap(kind, cause, fmt.Sprintf(format, args...))
}

// As reports whether err (or something it wraps) is a *Error, returning it.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise — callers use this to decide per-protein-vs-fatal handling
// without needing to type-assert themselves.
func KindOf(err error) (Kind, bool) {
	de, ok := As(err)
	if !ok {
		return "", false
	}
	return de.Kind, true
}
