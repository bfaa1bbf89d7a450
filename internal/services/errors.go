package services

import (
	"errors"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	apperrors "github.com/SAP-F-2025/session-runtime/internal/errors"
	"github.com/SAP-F-2025/session-runtime/internal/session"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Session specific errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionForbidden = errors.New("session belongs to another user")
	ErrInvalidDirection = errors.New("navigation needs an index, an ordinal or a direction")
	ErrShuttingDown     = errors.New("session service is shutting down")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, session.ErrSessionClosed)
}

// IsForbidden checks if the caller does not own the session
func IsForbidden(err error) bool {
	return errors.Is(err, ErrSessionForbidden)
}

// IsUnauthorized checks if the backend refused the caller's credentials
func IsUnauthorized(err error) bool {
	return backend.IsUnauthenticated(err)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBadRequest checks if the request could not apply to the session as it is
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, session.ErrMissingIdentifiers) ||
		errors.Is(err, session.ErrNoQuestions) ||
		errors.Is(err, session.ErrIndexOutOfRange) ||
		errors.Is(err, session.ErrInvalidChoice) ||
		errors.Is(err, session.ErrStaleQuestion)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, session.ErrAlreadySubmitted) ||
		errors.Is(err, session.ErrQuestionLocked) ||
		backend.IsAttemptClosed(err)
}

// IsUnavailable checks if the backend could not be reached
func IsUnavailable(err error) bool {
	return backend.IsUnavailable(err) || errors.Is(err, ErrShuttingDown)
}
