// Package apperr defines the engine's error taxonomy and maps it to
// transport status codes. Keeps service layers clean by centralizing
// the mapping in one place.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks malformed input (bad ids, out-of-range
	// coordinates or ages).
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a missing profile, match, or pick.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict marks an action against a match that has
	// already been archived. Reported, never silently ignored.
	ErrStateConflict = errors.New("state conflict")

	// ErrStorageUnavailable marks a collaborator failure. Propagated
	// as a hard failure; the engine does not retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// StateConflictf wraps ErrStateConflict with a formatted message.
func StateConflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStateConflict}, args...)...)
}

// Storage classifies an error coming back from a storage collaborator.
// Record-not-found stays a not-found; everything else becomes a
// storage failure the caller treats as hard.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// HTTPStatus maps a taxonomy error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
