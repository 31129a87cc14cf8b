package analyses

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no analysis exists under the id.
	ErrNotFound = errors.New("analysis not found")
	// ErrForbidden is returned when the caller does not own the analysis.
	ErrForbidden = errors.New("analysis belongs to another user")
	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMalformedResponse is returned when the model answer does not match the verdict schema.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrStorage wraps persistence failures.
	ErrStorage = errors.New("storage failure")
	// ErrNoContent is returned when an analysis has no stored content to serve.
	ErrNoContent = errors.New("analysis has no stored content")
)

// ValidationError names the first request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
