package session

import (
	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/models"
)

// Event is an input to Reduce.
type Event interface{ isEvent() }

// AnswerSelected picks a choice for the displayed question. QuestionID, when
// non-zero, must match the displayed question.
type AnswerSelected struct {
	QuestionID int
	Choice     string
}

type Navigate struct {
	Index int
}

type Tick struct{}

type SubmitRequested struct {
	Timeout bool
}

type SubmitResolved struct {
	Outcome   Outcome
	AttemptID int
	Message   string
	Result    *backend.AttemptResult
}

type PracticeAnswered struct {
	Index    int
	Outcome  Outcome
	Feedback models.PracticeFeedback
	Message  string
}

func (AnswerSelected) isEvent()   {}
func (Navigate) isEvent()         {}
func (Tick) isEvent()             {}
func (SubmitRequested) isEvent()  {}
func (SubmitResolved) isEvent()   {}
func (PracticeAnswered) isEvent() {}

// Effect is an instruction from Reduce for the controller to carry out.
type Effect interface{ isEffect() }

type PersistAnswer struct {
	Index  int
	Choice string
}

// FlushElapsed adds the time since the question's start mark to its total
// and restarts the mark.
type FlushElapsed struct{ Index int }

type MarkQuestionStart struct{ Index int }

type ClearQuestionStart struct{ Index int }

type StopTimer struct{}

type TimerExpired struct{}

type SendSubmission struct{ Timeout bool }

type SendPracticeAnswer struct {
	Index  int
	Choice string
}

type LockQuestion struct {
	Index    int
	Feedback models.PracticeFeedback
}

type ClearCache struct{}

type ShowResults struct {
	AttemptID int
	Timeout   bool
}

type ReportFailure struct {
	Timeout bool
	Message string
}

type PublishTimeWarning struct{ SecondsRemaining int }

type RedirectToAuth struct{}

func (PersistAnswer) isEffect()      {}
func (FlushElapsed) isEffect()       {}
func (MarkQuestionStart) isEffect()  {}
func (ClearQuestionStart) isEffect() {}
func (StopTimer) isEffect()          {}
func (TimerExpired) isEffect()       {}
func (SendSubmission) isEffect()     {}
func (SendPracticeAnswer) isEffect() {}
func (LockQuestion) isEffect()       {}
func (ClearCache) isEffect()         {}
func (ShowResults) isEffect()        {}
func (ReportFailure) isEffect()      {}
func (PublishTimeWarning) isEffect() {}
func (RedirectToAuth) isEffect()     {}
