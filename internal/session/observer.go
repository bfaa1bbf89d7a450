package session

import "github.com/SAP-F-2025/session-runtime/internal/models"

// Observer is notified of session milestones from the controller loop.
// Implementations must not block.
type Observer interface {
	Submitted(attempt models.Attempt, mode models.SessionMode, timeout bool, resultAttemptID int)
	SubmissionFailed(attempt models.Attempt, mode models.SessionMode, timeout bool, message string)
	TimeWarning(attempt models.Attempt, secondsRemaining int)
	TimerExpired(attempt models.Attempt)
}

type NopObserver struct{}

func (NopObserver) Submitted(models.Attempt, models.SessionMode, bool, int)           {}
func (NopObserver) SubmissionFailed(models.Attempt, models.SessionMode, bool, string) {}
func (NopObserver) TimeWarning(models.Attempt, int)                                   {}
func (NopObserver) TimerExpired(models.Attempt)                                       {}
