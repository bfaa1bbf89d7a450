package models

import "strings"

type Question struct {
	ID            int      `json:"id"`
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type,omitempty"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer,omitempty"` // practice feedback only
	Order         int      `json:"order"`

	// Computed fields (not sent by the backend)
	Ordinal    int `json:"-"`
	PassageRef int `json:"-"`
}

type Passage struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Order     int        `json:"order"`
	Questions []Question `json:"questions"`
}

// Paragraphs splits the passage body into trimmed, non-empty lines.
func (p Passage) Paragraphs() []string {
	var out []string
	for _, line := range strings.Split(p.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// HasChoice reports whether choice is one of the question's options.
func (q Question) HasChoice(choice string) bool {
	for _, c := range q.Choices {
		if c == choice {
			return true
		}
	}
	return false
}

type TestDetail struct {
	ID        int         `json:"id"`
	Title     string      `json:"title"`
	Mode      SessionMode `json:"mode"`
	TimeLimit int         `json:"time_limit"` // minutes
	Passages  []Passage   `json:"passages"`
}

// OrderedQuestions flattens passages into the authoritative question order as
// delivered by the backend and assigns 1-based ordinals.
func (t TestDetail) OrderedQuestions() []Question {
	var out []Question
	for _, p := range t.Passages {
		for _, q := range p.Questions {
			q.PassageRef = p.ID
			q.Ordinal = len(out) + 1
			out = append(out, q)
		}
	}
	return out
}

func (t TestDetail) Passage(id int) (Passage, bool) {
	for _, p := range t.Passages {
		if p.ID == id {
			return p, true
		}
	}
	return Passage{}, false
}
