// Package apperrors defines the error taxonomy shared by the record services
// and the HTTP boundary: validation failures, authorization failures, and
// storage failures are tagged distinctly so the boundary can map each kind to
// its own status code and the logs can tell them apart.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service error.
type Kind int

const (
	// KindUnknown marks errors that did not originate from this package.
	KindUnknown Kind = iota
	// KindValidation marks a missing or invalid required field, caught before
	// any storage call.
	KindValidation
	// KindAuthorization marks a missing or unresolvable caller session.
	KindAuthorization
	// KindStorage marks a query or blob-store failure.
	KindStorage
)

// Error is a tagged service error.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Validation returns a validation error.
func Validation(msg string) error {
	return &Error{kind: KindValidation, msg: msg}
}

// Validationf returns a formatted validation error.
func Validationf(format string, args ...interface{}) error {
	return &Error{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// Authorization returns an authorization error.
func Authorization(msg string) error {
	return &Error{kind: KindAuthorization, msg: msg}
}

// Storage wraps an underlying storage failure.
func Storage(msg string, err error) error {
	return &Error{kind: KindStorage, msg: msg, err: err}
}

// KindOf reports the classification of err, or KindUnknown for errors from
// outside this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// HTTPStatus maps an error kind to its transport status code. Unclassified
// errors are treated as storage failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
