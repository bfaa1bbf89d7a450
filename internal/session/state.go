package session

import (
	"encoding"
	"fmt"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

// Phase is the submission lifecycle of a session.
type Phase int

const (
	PhaseActive     Phase = iota + 1 // Accepting input, submit enabled.
	PhaseSubmitting                  // A submission is in flight.
	PhaseSubmitted                   // Terminal; results link is set.
)

var phaseNames = [...]string{PhaseActive: "active", PhaseSubmitting: "submitting", PhaseSubmitted: "submitted"}

var (
	_ fmt.Stringer             = Phase(0)
	_ encoding.TextMarshaler   = Phase(0)
	_ encoding.TextUnmarshaler = (*Phase)(nil)
)

func (p Phase) String() string {
	if p >= PhaseActive && p <= PhaseSubmitted {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i := PhaseActive; i <= PhaseSubmitted; i++ {
		if phaseNames[i] == string(text) {
			*p = i
			return nil
		}
	}
	return fmt.Errorf("session: unknown phase %q", text)
}

// MapState is the rendering state of one question-map entry.
type MapState int

const (
	MapUnanswered MapState = iota + 1
	MapAnswered
	MapCurrent
)

var mapStateNames = [...]string{MapUnanswered: "unanswered", MapAnswered: "answered", MapCurrent: "current"}

var (
	_ fmt.Stringer             = MapState(0)
	_ encoding.TextMarshaler   = MapState(0)
	_ encoding.TextUnmarshaler = (*MapState)(nil)
)

func (m MapState) String() string {
	if m >= MapUnanswered && m <= MapCurrent {
		return mapStateNames[m]
	}
	return fmt.Sprintf("MapState(%d)", int(m))
}

func (m MapState) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MapState) UnmarshalText(text []byte) error {
	for i := MapUnanswered; i <= MapCurrent; i++ {
		if mapStateNames[i] == string(text) {
			*m = i
			return nil
		}
	}
	return fmt.Errorf("session: unknown map state %q", text)
}

// Outcome classifies a finished backend call.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeAttemptClosed
	OutcomeUnauthenticated
	OutcomeFailed
)

// State is everything the reducer decides on. It is a value: Reduce never
// mutates the maps of the state it receives.
type State struct {
	Mode          models.SessionMode
	AttemptID     int
	QuestionCount int
	CurrentIndex  int

	// Practice mode, keyed by question index.
	Locked  map[int]bool
	Pending map[int]bool

	Timed            bool
	SecondsRemaining int
	TimerRunning     bool
	WarningSeconds   int
	WarningSent      bool

	Phase           Phase
	InFlightTimeout bool
	TimeoutPending  bool

	Message         string
	AuthRequired    bool
	ResultAttemptID int
}

// NewState builds the initial state of a booted session.
func NewState(attempt models.Attempt, mode models.SessionMode, questionCount, startIndex, warningSeconds int) State {
	remaining := attempt.RemainingSeconds
	if remaining < 0 {
		remaining = 0
	}
	return State{
		Mode:             mode,
		AttemptID:        attempt.AttemptID,
		QuestionCount:    questionCount,
		CurrentIndex:     startIndex,
		Timed:            attempt.TimeLimited,
		SecondsRemaining: remaining,
		TimerRunning:     attempt.TimeLimited && remaining > 0,
		WarningSeconds:   warningSeconds,
		Phase:            PhaseActive,
	}
}

func (s State) SubmitEnabled() bool {
	return s.Phase == PhaseActive
}

func withFlag(m map[int]bool, key int, on bool) map[int]bool {
	out := make(map[int]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if on {
		out[key] = true
	} else {
		delete(out, key)
	}
	return out
}
