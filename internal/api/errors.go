package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emots/narrate-server/internal/narration"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Message string `json:"message" doc:"Human-readable error message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		// Domain errors carry their own HTTP code and user-facing message.
		for _, err := range errs {
			var narrErr *narration.Error
			if errors.As(err, &narrErr) {
				return &APIError{
					status:  narrErr.HTTPCode(),
					Message: narrErr.Message,
				}
			}
		}

		return &APIError{
			status:  status,
			Message: message,
		}
	}
}
