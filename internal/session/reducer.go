package session

import (
	"fmt"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

// Reduce applies one event to the state and returns the new state plus the
// effects to run, in order. A rejected event returns the state unchanged with
// an error. Reduce performs no I/O.
func Reduce(s State, ev Event) (State, []Effect, error) {
	switch e := ev.(type) {
	case AnswerSelected:
		return reduceAnswer(s, e)
	case Navigate:
		return reduceNavigate(s, e)
	case Tick:
		return reduceTick(s)
	case SubmitRequested:
		return reduceSubmit(s, e.Timeout)
	case SubmitResolved:
		return reduceResolved(s, e)
	case PracticeAnswered:
		return reducePracticeAnswered(s, e)
	}
	return s, nil, fmt.Errorf("session: unknown event %T", ev)
}

func reduceAnswer(s State, e AnswerSelected) (State, []Effect, error) {
	if s.Phase == PhaseSubmitted {
		return s, nil, ErrAlreadySubmitted
	}
	if e.Choice == "" {
		return s, nil, ErrInvalidChoice
	}
	idx := s.CurrentIndex
	if s.Mode == models.ModePractice {
		if s.Locked[idx] {
			return s, nil, ErrQuestionLocked
		}
		if s.Pending[idx] {
			return s, nil, nil
		}
		s.Pending = withFlag(s.Pending, idx, true)
		s.Message = ""
		return s, []Effect{SendPracticeAnswer{Index: idx, Choice: e.Choice}}, nil
	}
	s.Message = ""
	return s, []Effect{PersistAnswer{Index: idx, Choice: e.Choice}, FlushElapsed{Index: idx}}, nil
}

func reduceNavigate(s State, e Navigate) (State, []Effect, error) {
	if e.Index < 0 || e.Index >= s.QuestionCount {
		return s, nil, ErrIndexOutOfRange
	}
	if s.Phase == PhaseSubmitted {
		return s, nil, ErrAlreadySubmitted
	}
	if e.Index == s.CurrentIndex {
		return s, nil, nil
	}
	var effects []Effect
	if s.Mode == models.ModeExam {
		effects = append(effects, FlushElapsed{Index: s.CurrentIndex})
	}
	s.CurrentIndex = e.Index
	s.Message = ""
	if s.Mode == models.ModeExam || !s.Locked[e.Index] {
		effects = append(effects, MarkQuestionStart{Index: e.Index})
	}
	return s, effects, nil
}

func reduceTick(s State) (State, []Effect, error) {
	if !s.TimerRunning || s.Phase == PhaseSubmitted {
		return s, nil, nil
	}
	s.SecondsRemaining--
	if s.SecondsRemaining < 0 {
		s.SecondsRemaining = 0
	}

	var effects []Effect
	if s.WarningSeconds > 0 && !s.WarningSent && s.SecondsRemaining > 0 && s.SecondsRemaining <= s.WarningSeconds {
		s.WarningSent = true
		effects = append(effects, PublishTimeWarning{SecondsRemaining: s.SecondsRemaining})
	}
	if s.SecondsRemaining > 0 {
		return s, effects, nil
	}

	s.TimerRunning = false
	effects = append(effects, StopTimer{}, TimerExpired{})
	next, more, err := reduceSubmit(s, true)
	return next, append(effects, more...), err
}

func reduceSubmit(s State, timeout bool) (State, []Effect, error) {
	switch s.Phase {
	case PhaseSubmitted:
		return s, nil, nil
	case PhaseSubmitting:
		// Remembered so that a failing manual submission is followed by a
		// timeout submission.
		if timeout {
			s.TimeoutPending = true
		}
		return s, nil, nil
	}

	s.Phase = PhaseSubmitting
	s.InFlightTimeout = timeout
	s.Message = ""
	var effects []Effect
	if s.Mode == models.ModeExam {
		effects = append(effects, FlushElapsed{Index: s.CurrentIndex})
	}
	effects = append(effects, SendSubmission{Timeout: timeout})
	return s, effects, nil
}

func reduceResolved(s State, e SubmitResolved) (State, []Effect, error) {
	if s.Phase != PhaseSubmitting {
		return s, nil, nil
	}
	timeout := s.InFlightTimeout
	s.InFlightTimeout = false

	if e.Outcome == OutcomeSuccess || (e.Outcome == OutcomeAttemptClosed && timeout) {
		s.Phase = PhaseSubmitted
		s.TimeoutPending = false
		s.TimerRunning = false
		s.Message = ""
		s.ResultAttemptID = e.AttemptID
		if s.ResultAttemptID == 0 {
			s.ResultAttemptID = s.AttemptID
		}
		return s, []Effect{StopTimer{}, ClearCache{}, ShowResults{AttemptID: s.ResultAttemptID, Timeout: timeout}}, nil
	}

	s.Phase = PhaseActive
	s.Message = e.Message
	effects := []Effect{ReportFailure{Timeout: timeout, Message: e.Message}}

	if e.Outcome == OutcomeUnauthenticated {
		s.AuthRequired = true
		return s, append(effects, RedirectToAuth{}), nil
	}
	if s.TimeoutPending && !timeout {
		s.TimeoutPending = false
		next, more, err := reduceSubmit(s, true)
		return next, append(effects, more...), err
	}
	s.TimeoutPending = false
	return s, effects, nil
}

func reducePracticeAnswered(s State, e PracticeAnswered) (State, []Effect, error) {
	if !s.Pending[e.Index] {
		return s, nil, nil
	}
	s.Pending = withFlag(s.Pending, e.Index, false)

	switch e.Outcome {
	case OutcomeSuccess:
		s.Locked = withFlag(s.Locked, e.Index, true)
		return s, []Effect{LockQuestion{Index: e.Index, Feedback: e.Feedback}, ClearQuestionStart{Index: e.Index}}, nil
	case OutcomeUnauthenticated:
		s.AuthRequired = true
		s.Message = e.Message
		return s, []Effect{RedirectToAuth{}}, nil
	}
	s.Message = e.Message
	return s, nil, nil
}
