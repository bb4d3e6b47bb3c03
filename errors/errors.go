// Package errors provides typed error handling for ttymon.
//
// This package defines domain-specific error types that enable better error
// classification, debugging, and user feedback. All errors support the standard
// errors.Is() and errors.As() functions for error inspection.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrSetup indicates a fatal failure during PTY allocation, fork, or
	// terminal-attribute retrieval. The caller should report and exit.
	ErrSetup ErrorKind = iota
	// ErrIO indicates a fatal I/O error on the PTY master or standard
	// input/output during the event loop.
	ErrIO
	// ErrIntrospect indicates a procfs, netlink, or container-inspector
	// error encountered while the foreground tracker is updating. These
	// are local and non-fatal: the affected chain node produces no child
	// this cycle and the tracker retries on the next check.
	ErrIntrospect
	// ErrConfig indicates invalid configuration (bad flags, paths).
	ErrConfig
	// ErrInternal indicates an internal error that should not occur.
	ErrInternal
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrSetup:
		return "setup error"
	case ErrIO:
		return "i/o error"
	case ErrIntrospect:
		return "introspection error"
	case ErrConfig:
		return "invalid config"
	case ErrInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// TtymonError represents an error that occurred within the relay.
type TtymonError struct {
	// Op is the operation that failed (e.g., "open pty", "stat proc").
	Op string
	// Err is the underlying error.
	Err error
	// Kind is the error classification.
	Kind ErrorKind
	// Detail provides additional context about the error.
	Detail string
}

// Error returns the error message.
func (e *TtymonError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Op != "" {
		msg = fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TtymonError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target.
// It matches if the target is a *TtymonError with the same Kind.
func (e *TtymonError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*TtymonError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new TtymonError with the given kind.
func New(kind ErrorKind, op string, detail string) *TtymonError {
	return &TtymonError{
		Op:     op,
		Kind:   kind,
		Detail: detail,
	}
}

// Wrap wraps an error with an operation and kind.
func Wrap(err error, kind ErrorKind, op string) *TtymonError {
	return &TtymonError{
		Op:   op,
		Err:  err,
		Kind: kind,
	}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind ErrorKind, op string, detail string) *TtymonError {
	return &TtymonError{
		Op:     op,
		Err:    err,
		Kind:   kind,
		Detail: detail,
	}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var terr *TtymonError
	if errors.As(err, &terr) {
		return terr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is a TtymonError.
func GetKind(err error) (ErrorKind, bool) {
	var terr *TtymonError
	if errors.As(err, &terr) {
		return terr.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
