package session

import (
	"net/url"
	"strconv"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

type ChoiceStatus string

const (
	ChoiceDefault   ChoiceStatus = "default"
	ChoiceCorrect   ChoiceStatus = "correct"
	ChoiceIncorrect ChoiceStatus = "incorrect"
)

// View is the render document of a session after an event.
type View struct {
	AttemptID     int                `json:"attempt_id"`
	TestID        int                `json:"test_id"`
	TestTitle     string             `json:"test_title"`
	Mode          models.SessionMode `json:"mode"`
	Question      QuestionView       `json:"question"`
	Map           []MapEntry         `json:"question_map"`
	AnsweredCount int                `json:"answered_count"`
	ProgressPct   int                `json:"progress_pct"`
	Timer         TimerView          `json:"timer"`
	Phase         Phase              `json:"phase"`
	SubmitEnabled bool               `json:"submit_enabled"`
	Message       string             `json:"message,omitempty"`
	Redirect      string             `json:"redirect,omitempty"`
	AuthRedirect  string             `json:"auth_redirect,omitempty"`
}

type QuestionView struct {
	Index        int                      `json:"index"`
	Ordinal      int                      `json:"ordinal"`
	Total        int                      `json:"total"`
	QuestionID   int                      `json:"question_id"`
	Text         string                   `json:"text"`
	Type         string                   `json:"type,omitempty"`
	PassageTitle string                   `json:"passage_title"`
	Paragraphs   []string                 `json:"paragraphs"`
	Choices      []ChoiceView             `json:"choices"`
	Locked       bool                     `json:"locked"`
	Feedback     *models.PracticeFeedback `json:"feedback,omitempty"`
	HasPrevious  bool                     `json:"has_previous"`
	HasNext      bool                     `json:"has_next"`
}

type ChoiceView struct {
	Label    string       `json:"label"`
	Text     string       `json:"text"`
	Selected bool         `json:"selected"`
	Disabled bool         `json:"disabled"`
	Status   ChoiceStatus `json:"status"`
}

type MapEntry struct {
	Index      int      `json:"index"`
	Ordinal    int      `json:"ordinal"`
	QuestionID int      `json:"question_id"`
	State      MapState `json:"state"`
	Answered   bool     `json:"answered"`
}

type TimerView struct {
	Limited bool   `json:"limited"`
	Running bool   `json:"running"`
	Seconds int    `json:"seconds"`
	Display string `json:"display"`
}

// ResultsLink appends the attempt id to the results page URL.
func ResultsLink(base string, attemptID int) string {
	return withQuery(base, "attempt_id", strconv.Itoa(attemptID))
}

// AuthLink builds the authentication entry URL that returns to next.
func AuthLink(entry, next string) string {
	if next == "" {
		return entry
	}
	return withQuery(entry, "next", next)
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + url.Values{key: {value}}.Encode()
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func progressPct(ordinal, total int) int {
	if total <= 0 {
		return 0
	}
	return (ordinal*100 + total/2) / total
}
