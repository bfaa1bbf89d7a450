package session

import (
	"io"
	"log/slog"

	"github.com/SAP-F-2025/session-runtime/internal/backend/mocks"
	"github.com/SAP-F-2025/session-runtime/internal/cache"
	"github.com/SAP-F-2025/session-runtime/internal/models"
)

type MockClient = mocks.Client

// recordingObserver collects milestones for assertions.
type recordingObserver struct {
	NopObserver
	submitted chan int
	warnings  chan int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{submitted: make(chan int, 4), warnings: make(chan int, 4)}
}

func (o *recordingObserver) Submitted(_ models.Attempt, _ models.SessionMode, _ bool, id int) {
	o.submitted <- id
}

func (o *recordingObserver) TimeWarning(_ models.Attempt, seconds int) {
	o.warnings <- seconds
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnswerCache() *cache.AnswerCache {
	return cache.NewAnswerCache(cache.NewMemoryCache(), discardLogger(), 0)
}

func sampleTest() *models.TestDetail {
	return &models.TestDetail{
		ID:        4,
		Title:     "Reading 1",
		Mode:      models.ModeExam,
		TimeLimit: 60,
		Passages: []models.Passage{
			{
				ID:      1,
				Title:   "Coral Reefs",
				Content: "First paragraph.\n\n  Second paragraph.  ",
				Questions: []models.Question{
					{ID: 101, QuestionText: "Q1", Choices: []string{"A", "B", "C", "D"}, CorrectAnswer: "B"},
					{ID: 102, QuestionText: "Q2", Choices: []string{"A", "B", "C", "D"}, CorrectAnswer: "C"},
				},
			},
			{
				ID:      2,
				Title:   "Volcanoes",
				Content: "Only paragraph.",
				Questions: []models.Question{
					{ID: 201, QuestionText: "Q3", Choices: []string{"True", "False", "Not Given"}},
				},
			},
		},
	}
}
