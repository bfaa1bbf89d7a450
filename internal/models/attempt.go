package models

type SessionMode string

const (
	ModeExam     SessionMode = "exam"
	ModePractice SessionMode = "practice"
)

// Attempt identifies one user session on a test. All fields are server-assigned
// and read-only to the runtime.
type Attempt struct {
	AttemptID        int  `json:"attempt_id"`
	TestID           int  `json:"test_id"`
	TimeLimited      bool `json:"time_limited"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

// Valid reports whether both identifiers needed to run a session are present.
func (a Attempt) Valid() bool {
	return a.AttemptID > 0 && a.TestID > 0
}
