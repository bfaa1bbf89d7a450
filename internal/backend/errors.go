package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated    = errors.New("backend: authentication required")
	ErrAttemptClosed      = errors.New("backend: attempt not found or already completed")
	ErrBackendUnavailable = errors.New("backend: unavailable")
)

// Machine-readable codes the backend may attach to an error body.
const (
	CodeAttemptCompleted = "attempt_completed"
	CodeAttemptNotFound  = "attempt_not_found"
	CodeAuthRequired     = "authentication_required"
)

// APIError is a non-2xx backend response.
type APIError struct {
	Op     string `json:"-"`
	Status int    `json:"-"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Op, http.StatusText(e.Status))
}

// Is classifies the error by status and code, never by message text.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized || e.Code == CodeAuthRequired
	case ErrAttemptClosed:
		if e.Code == CodeAttemptCompleted || e.Code == CodeAttemptNotFound {
			return true
		}
		return attemptScoped(e.Op) && (e.Status == http.StatusNotFound || e.Status == http.StatusConflict)
	}
	return false
}

func attemptScoped(op string) bool {
	switch op {
	case opSubmitExam, opFinishPractice, opAnswerPractice:
		return true
	}
	return false
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsAttemptClosed(err error) bool {
	return errors.Is(err, ErrAttemptClosed)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if IsUnavailable(err) {
		return "The server could not be reached. Please try again."
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "Request failed"
}
