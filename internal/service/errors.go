package service

import "errors"

var (
	// ErrDependencyTimeout is returned when the blob store does not finish an upload in time.
	ErrDependencyTimeout = errors.New("image upload timed out")
	// ErrOrderLinksDisabled is returned by OrderLink when no order phone number is configured.
	ErrOrderLinksDisabled = errors.New("order links are not configured")
)

// ValidationError reports client input that cannot be accepted. Message is safe to show to clients.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
