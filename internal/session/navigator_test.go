package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

func TestNewNavigator_RejectsEmptyTest(t *testing.T) {
	_, err := NewNavigator(models.TestDetail{ID: 1, Passages: []models.Passage{{ID: 1}}})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestNavigator_Render(t *testing.T) {
	nav, err := NewNavigator(*sampleTest())
	require.NoError(t, err)
	require.Equal(t, 3, nav.Count())

	answers := models.AnswerMapping{102: {SelectedAnswer: "C"}}
	view, err := nav.Render(1, answers)
	require.NoError(t, err)

	assert.Equal(t, 2, view.Ordinal)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 102, view.QuestionID)
	assert.Equal(t, "Coral Reefs", view.PassageTitle)
	assert.Equal(t, []string{"First paragraph.", "Second paragraph."}, view.Paragraphs)
	assert.True(t, view.HasPrevious)
	assert.True(t, view.HasNext)
	require.Len(t, view.Choices, 4)
	assert.Equal(t, "C", view.Choices[2].Label)
	assert.True(t, view.Choices[2].Selected)
	assert.False(t, view.Choices[0].Selected)

	_, err = nav.Render(3, answers)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNavigator_RenderLockedPractice(t *testing.T) {
	nav, err := NewNavigator(*sampleTest())
	require.NoError(t, err)
	nav.Lock(0, models.PracticeFeedback{IsCorrect: false, CorrectAnswer: "B", SelectedAnswer: "D"})

	view, err := nav.Render(0, nil)
	require.NoError(t, err)
	assert.True(t, view.Locked)
	require.NotNil(t, view.Feedback)
	assert.Equal(t, ChoiceDefault, view.Choices[0].Status)
	assert.Equal(t, ChoiceCorrect, view.Choices[1].Status)
	assert.Equal(t, ChoiceIncorrect, view.Choices[3].Status)
	assert.True(t, view.Choices[3].Selected)
	for _, c := range view.Choices {
		assert.True(t, c.Disabled)
	}
}

func TestNavigator_Map(t *testing.T) {
	nav, err := NewNavigator(*sampleTest())
	require.NoError(t, err)
	nav.MarkServerAnswered([]int{201, 999})

	answers := models.AnswerMapping{
		101: {SelectedAnswer: "A"},
		102: {TimeSpentSeconds: 30},
	}
	entries := nav.Map(0, answers)
	require.Len(t, entries, 3)

	// Current wins over answered.
	assert.Equal(t, MapCurrent, entries[0].State)
	assert.True(t, entries[0].Answered)
	// Time alone does not make a question answered.
	assert.Equal(t, MapUnanswered, entries[1].State)
	assert.Equal(t, MapAnswered, entries[2].State)

	assert.Equal(t, 2, nav.AnsweredCount(answers))
}

func TestNavigator_IndexOfOrdinal(t *testing.T) {
	nav, err := NewNavigator(*sampleTest())
	require.NoError(t, err)
	assert.Equal(t, 0, nav.IndexOfOrdinal(0))
	assert.Equal(t, 0, nav.IndexOfOrdinal(1))
	assert.Equal(t, 2, nav.IndexOfOrdinal(3))
	assert.Equal(t, 2, nav.IndexOfOrdinal(42))
}

func TestMapState_MarshalText(t *testing.T) {
	b, err := MapCurrent.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "current", string(b))
	assert.Equal(t, "MapState(0)", MapState(0).String())
	assert.Equal(t, "submitting", PhaseSubmitting.String())
}

func TestView_JSONRoundTrip(t *testing.T) {
	in := View{
		AttemptID: 9,
		Phase:     PhaseSubmitting,
		Map: []MapEntry{
			{Ordinal: 1, QuestionID: 101, State: MapAnswered},
			{Ordinal: 2, QuestionID: 102, State: MapCurrent},
			{Ordinal: 3, QuestionID: 103, State: MapUnanswered},
		},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"submitting"`)

	var out View
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, PhaseSubmitting, out.Phase)
	require.Len(t, out.Map, 3)
	assert.Equal(t, MapAnswered, out.Map[0].State)
	assert.Equal(t, MapCurrent, out.Map[1].State)
	assert.Equal(t, MapUnanswered, out.Map[2].State)
}

func TestPhase_UnmarshalTextRejectsUnknown(t *testing.T) {
	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("paused")))
	var m MapState
	assert.Error(t, m.UnmarshalText([]byte("skipped")))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatClock(0))
	assert.Equal(t, "00:00:00", FormatClock(-5))
	assert.Equal(t, "00:01:05", FormatClock(65))
	assert.Equal(t, "01:00:00", FormatClock(3600))
	assert.Equal(t, "10:02:03", FormatClock(36123))
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "/exam-result/?attempt_id=12", ResultsLink("/exam-result/", 12))
	assert.Equal(t, "/auth/?next=%2Fexam-reading%2F%3Fattempt_id%3D3", AuthLink("/auth/", "/exam-reading/?attempt_id=3"))
	assert.Equal(t, "/auth/", AuthLink("/auth/", ""))
}
