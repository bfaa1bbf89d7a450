package session

import (
	"github.com/SAP-F-2025/session-runtime/internal/models"
)

// Navigator holds the ordered question list of a test and renders questions
// and the question map. The current index lives in State.
type Navigator struct {
	test           models.TestDetail
	questions      []models.Question
	indexByID      map[int]int
	serverAnswered map[int]bool
	feedback       map[int]models.PracticeFeedback
}

func NewNavigator(test models.TestDetail) (*Navigator, error) {
	questions := test.OrderedQuestions()
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	n := &Navigator{
		test:           test,
		questions:      questions,
		indexByID:      make(map[int]int, len(questions)),
		serverAnswered: make(map[int]bool),
		feedback:       make(map[int]models.PracticeFeedback),
	}
	for i, q := range questions {
		n.indexByID[q.ID] = i
	}
	return n, nil
}

func (n *Navigator) Count() int { return len(n.questions) }

func (n *Navigator) Test() models.TestDetail { return n.test }

// Questions returns the boot-time question order.
func (n *Navigator) Questions() []models.Question {
	out := make([]models.Question, len(n.questions))
	copy(out, n.questions)
	return out
}

func (n *Navigator) Question(index int) (models.Question, error) {
	if index < 0 || index >= len(n.questions) {
		return models.Question{}, ErrIndexOutOfRange
	}
	return n.questions[index], nil
}

func (n *Navigator) IndexOf(questionID int) (int, bool) {
	i, ok := n.indexByID[questionID]
	return i, ok
}

// IndexOfOrdinal maps a 1-based ordinal to an index, clamped to the list.
func (n *Navigator) IndexOfOrdinal(ordinal int) int {
	switch {
	case ordinal < 1:
		return 0
	case ordinal > len(n.questions):
		return len(n.questions) - 1
	}
	return ordinal - 1
}

// MarkServerAnswered records questions the backend already holds answers for.
func (n *Navigator) MarkServerAnswered(questionIDs []int) {
	for _, id := range questionIDs {
		if _, ok := n.indexByID[id]; ok {
			n.serverAnswered[id] = true
		}
	}
}

func (n *Navigator) Lock(index int, fb models.PracticeFeedback) {
	if index < 0 || index >= len(n.questions) {
		return
	}
	n.feedback[n.questions[index].ID] = fb
}

func (n *Navigator) Locked(index int) bool {
	if index < 0 || index >= len(n.questions) {
		return false
	}
	_, ok := n.feedback[n.questions[index].ID]
	return ok
}

func (n *Navigator) answered(q models.Question, answers models.AnswerMapping) bool {
	if answers.Answered(q.ID) || n.serverAnswered[q.ID] {
		return true
	}
	_, locked := n.feedback[q.ID]
	return locked
}

func (n *Navigator) AnsweredCount(answers models.AnswerMapping) int {
	count := 0
	for _, q := range n.questions {
		if n.answered(q, answers) {
			count++
		}
	}
	return count
}

// Render builds the question view at index with the cached selection, or the
// graded selection when the question is locked.
func (n *Navigator) Render(index int, answers models.AnswerMapping) (QuestionView, error) {
	q, err := n.Question(index)
	if err != nil {
		return QuestionView{}, err
	}
	view := QuestionView{
		Index:       index,
		Ordinal:     q.Ordinal,
		Total:       len(n.questions),
		QuestionID:  q.ID,
		Text:        q.QuestionText,
		Type:        q.QuestionType,
		HasPrevious: index > 0,
		HasNext:     index < len(n.questions)-1,
	}
	if p, ok := n.test.Passage(q.PassageRef); ok {
		view.PassageTitle = p.Title
		view.Paragraphs = p.Paragraphs()
	}

	selected := answers.Selected(q.ID)
	fb, locked := n.feedback[q.ID]
	if locked {
		selected = fb.SelectedAnswer
		view.Locked = true
		view.Feedback = &fb
	}

	view.Choices = make([]ChoiceView, 0, len(q.Choices))
	for i, c := range q.Choices {
		cv := ChoiceView{
			Label:    choiceLabel(i),
			Text:     c,
			Selected: c == selected,
			Disabled: locked,
			Status:   ChoiceDefault,
		}
		if locked {
			switch c {
			case fb.CorrectAnswer:
				cv.Status = ChoiceCorrect
			case fb.SelectedAnswer:
				cv.Status = ChoiceIncorrect
			}
		}
		view.Choices = append(view.Choices, cv)
	}
	return view, nil
}

// Map renders one entry per question. The current entry overrides answered.
func (n *Navigator) Map(current int, answers models.AnswerMapping) []MapEntry {
	entries := make([]MapEntry, len(n.questions))
	for i, q := range n.questions {
		e := MapEntry{
			Index:      i,
			Ordinal:    q.Ordinal,
			QuestionID: q.ID,
			Answered:   n.answered(q, answers),
			State:      MapUnanswered,
		}
		switch {
		case i == current:
			e.State = MapCurrent
		case e.Answered:
			e.State = MapAnswered
		}
		entries[i] = e
	}
	return entries
}

func choiceLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return string(rune('A'+i/26-1)) + string(rune('A'+i%26))
}
