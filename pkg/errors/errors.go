// Package errors defines the error taxonomy shared by the retrieval and
// evaluation core. Callers match on the sentinels with errors.Is; the
// AppError wrapper carries a human message and an HTTP status for the
// search service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCorpus aborts index construction (empty corpus, duplicate or empty doc ID).
	ErrCorpus = errors.New("corpus error")
	// ErrNotFound is a recoverable lookup miss, e.g. an unindexed doc ID.
	ErrNotFound = errors.New("not found")
	// ErrValidation rejects a single malformed record (bad label, empty query).
	ErrValidation = errors.New("validation error")
	// ErrExpansion marks an expansion source failure. It is recovered by
	// falling back to the identity expansion and never aborts a batch.
	ErrExpansion = errors.New("expansion failure")
	// ErrInvalidConfig is fatal to the whole run.
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrTimeout       = errors.New("operation timed out")
	ErrInternal      = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Corpusf builds a CorpusError.
func Corpusf(format string, args ...any) *AppError {
	return Newf(ErrCorpus, http.StatusUnprocessableEntity, format, args...)
}

// NotFoundf builds a NotFoundError.
func NotFoundf(format string, args ...any) *AppError {
	return Newf(ErrNotFound, http.StatusNotFound, format, args...)
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) *AppError {
	return Newf(ErrValidation, http.StatusBadRequest, format, args...)
}

// Expansionf builds an ExpansionFailure.
func Expansionf(format string, args ...any) *AppError {
	return Newf(ErrExpansion, http.StatusBadGateway, format, args...)
}

// InvalidConfigf builds a fatal configuration error.
func InvalidConfigf(format string, args ...any) *AppError {
	return Newf(ErrInvalidConfig, http.StatusInternalServerError, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrCorpus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrExpansion):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is, As and Join re-export the standard helpers so callers importing this
// package under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }
