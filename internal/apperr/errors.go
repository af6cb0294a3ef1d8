// Package apperr defines the error taxonomy shared by the content client,
// the cache layer and the content store server.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrAlreadyExists       = errors.New("already exists")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrValidationDegraded  = errors.New("validation degraded")
	ErrBackend             = errors.New("backend error")
)

// BackendError is an opaque transport or server-side failure.
// Status is zero when the request never produced a response.
type BackendError struct {
	Status  int
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("backend error %d: %s: %v", e.Status, e.Message, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("backend error: %s: %v", e.Message, e.Err)
	default:
		return "backend error: " + e.Message
	}
}

// Is reports ErrBackend so callers can branch without a type assertion.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Backend wraps err as a BackendError with the given status.
func Backend(status int, msg string, err error) error {
	return &BackendError{Status: status, Message: msg, Err: err}
}
