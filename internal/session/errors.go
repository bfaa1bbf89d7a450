package session

import "errors"

var (
	ErrMissingIdentifiers = errors.New("session: attempt id and test id are required")
	ErrNoQuestions        = errors.New("session: test has no questions")
	ErrIndexOutOfRange    = errors.New("session: question index out of range")
	ErrInvalidChoice      = errors.New("session: choice is not an option of the question")
	ErrStaleQuestion      = errors.New("session: question is not the one displayed")
	ErrQuestionLocked     = errors.New("session: question is locked")
	ErrAlreadySubmitted   = errors.New("session: attempt already submitted")
	ErrSessionClosed      = errors.New("session: closed")
)

// IsRejected reports whether err is a user action refused by the session
// rather than an infrastructure failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrInvalidChoice) ||
		errors.Is(err, ErrStaleQuestion) ||
		errors.Is(err, ErrQuestionLocked) ||
		errors.Is(err, ErrAlreadySubmitted)
}
