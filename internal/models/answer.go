package models

// AnswerRecord is the locally cached state of one question.
type AnswerRecord struct {
	SelectedAnswer   string `json:"selected_answer"`
	TimeSpentSeconds int    `json:"time_spent"`
}

// AnswerMapping maps question id to its record. A question absent from the
// mapping is unanswered.
type AnswerMapping map[int]AnswerRecord

func (m AnswerMapping) Selected(questionID int) string {
	return m[questionID].SelectedAnswer
}

func (m AnswerMapping) TimeSpent(questionID int) int {
	return m[questionID].TimeSpentSeconds
}

func (m AnswerMapping) Answered(questionID int) bool {
	return m[questionID].SelectedAnswer != ""
}

func (m AnswerMapping) Clone() AnswerMapping {
	out := make(AnswerMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SubmittedAnswer is one entry of the exam submission payload.
type SubmittedAnswer struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	TimeSpent      *int   `json:"time_spent"`
}

// PracticeFeedback is the server-graded result of a locked practice question.
type PracticeFeedback struct {
	IsCorrect      bool   `json:"is_correct"`
	CorrectAnswer  string `json:"correct_answer"`
	SelectedAnswer string `json:"selected_answer"`
}
