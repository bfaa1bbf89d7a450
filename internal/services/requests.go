package services

import "github.com/SAP-F-2025/session-runtime/internal/models"

type StartAttemptRequest struct {
	TestID int                `json:"test_id" validate:"required,gt=0"`
	Mode   models.SessionMode `json:"mode" validate:"omitempty,session_mode"`
}

// BootSessionRequest is what the page knows about an attempt when it loads.
type BootSessionRequest struct {
	AttemptID        int                `json:"attempt_id" validate:"required,gt=0"`
	TestID           int                `json:"test_id" validate:"required,gt=0"`
	Mode             models.SessionMode `json:"mode" validate:"required,session_mode"`
	TimeLimited      bool               `json:"time_limited"`
	RemainingSeconds int                `json:"remaining_seconds" validate:"gte=0"`
	CurrentOrdinal   int                `json:"current_ordinal" validate:"gte=0"`
	AnsweredCount    int                `json:"answered_count" validate:"gte=0"`
	// Questions the server already holds an answer for.
	AnsweredQuestionIDs []int            `json:"answered_question_ids" validate:"omitempty,dive,gt=0"`
	Locked              []LockedQuestion `json:"locked" validate:"omitempty,dive"`
}

// LockedQuestion is a practice question graded before the page loaded.
type LockedQuestion struct {
	QuestionID     int    `json:"question_id" validate:"required,gt=0"`
	IsCorrect      bool   `json:"is_correct"`
	CorrectAnswer  string `json:"correct_answer"`
	SelectedAnswer string `json:"selected_answer" validate:"required"`
}

type AnswerRequest struct {
	QuestionID int    `json:"question_id" validate:"required,gt=0"`
	Choice     string `json:"choice" validate:"required,choice_text"`
}

const (
	DirectionNext     = "next"
	DirectionPrevious = "previous"
)

// NavigateRequest targets a question by zero-based index, by ordinal or
// relative to the current one. The first one set wins in that order.
type NavigateRequest struct {
	Index     *int   `json:"index,omitempty" validate:"omitempty,gte=0"`
	Ordinal   *int   `json:"ordinal,omitempty" validate:"omitempty,gt=0"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=next previous"`
}

// AnswerSheet is an exported workbook.
type AnswerSheet struct {
	FileName string
	Data     []byte
}
