// Package apperr implements the error taxonomy op handlers classify every
// failure into before it crosses back over the message bus (spec.md §7):
// NotFound, PermissionDenied, Io, Parse, Unavailable, Canceled,
// InvalidArgument, Internal. Grounded on the teacher's sentinel/wrapped
// error idiom in system/tee/engine.go (ErrEnclaveNotReady and friends),
// extended here with a typed Kind so op handlers can map a Kind straight
// onto msg.ErrorKind without re-classifying by string matching.
package apperr

import (
	"errors"
	"fmt"

	"github.com/edgenode/jsruntime/edgejs/msg"
)

// Error pairs a taxonomy Kind with the underlying cause.
type Error struct {
	Kind msg.ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err under kind. A nil err still produces a classified error
// carrying only the kind (used for handler validation failures that have no
// underlying cause).
func New(kind msg.ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds a classified error from a format string, the Errorf-style
// convenience used throughout the op handlers.
func Newf(kind msg.ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

var (
	ErrNotFound         = New(msg.ErrNotFound, errors.New("not found"))
	ErrPermissionDenied = New(msg.ErrPermissionDenied, errors.New("permission denied"))
	ErrUnavailable      = New(msg.ErrUnavailable, errors.New("unavailable"))
	ErrCanceled         = New(msg.ErrCanceled, errors.New("canceled"))
)

// Classify extracts the taxonomy Kind from err, defaulting to Internal for
// errors that were never wrapped by this package — the catch-all spec.md §7
// requires for otherwise-unclassified handler failures.
func Classify(err error) msg.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return msg.ErrInternal
}

// Message returns the human-readable string to attach to an error envelope.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
