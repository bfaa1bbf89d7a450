package backend

import (
	"time"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

type StartAttemptRequest struct {
	TestID int `json:"test_id"`
}

type StartAttemptResponse struct {
	AttemptID int       `json:"attempt_id"`
	TestID    int       `json:"test_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type SubmitExamRequest struct {
	AttemptID int                      `json:"attempt_id"`
	Answers   []models.SubmittedAnswer `json:"answers"`
}

type PracticeAnswerRequest struct {
	AttemptID      int    `json:"attempt_id"`
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	TimeSpent      int    `json:"time_spent"`
}

type PracticeAnswerResponse struct {
	AnswerID int `json:"answer_id"`
	models.PracticeFeedback
	Locked bool `json:"locked"`
}

type FinishPracticeRequest struct {
	AttemptID int `json:"attempt_id"`
}

// AttemptResult is returned when an attempt is completed.
type AttemptResult struct {
	AttemptID int     `json:"attempt_id"`
	Score     float64 `json:"score"`
	Accuracy  float64 `json:"accuracy"`
	Correct   int     `json:"correct"`
	Total     int     `json:"total"`
	Status    string  `json:"status"`
}
