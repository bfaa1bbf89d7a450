package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

func TestIsFresh(t *testing.T) {
	assert.True(t, IsFresh(1, 0))
	assert.False(t, IsFresh(1, 1))
	assert.False(t, IsFresh(2, 0))
}

func TestBootstrapper_Boot(t *testing.T) {
	ctx := context.Background()
	attempt := models.Attempt{AttemptID: 9, TestID: 4, TimeLimited: true, RemainingSeconds: 300}

	seed := func(ac interface {
		Save(context.Context, int, models.AnswerMapping) error
		MarkQuestionStart(context.Context, int, int, time.Time) error
	}) {
		require.NoError(t, ac.Save(ctx, 9, models.AnswerMapping{101: {SelectedAnswer: "B", TimeSpentSeconds: 7}}))
		require.NoError(t, ac.MarkQuestionStart(ctx, 9, 101, time.Now()))
	}

	t.Run("fresh attempt discards leftovers", func(t *testing.T) {
		ac := newAnswerCache()
		seed(ac)
		client := &MockClient{}
		client.On("GetTestDetail", ctx, 4).Return(sampleTest(), nil)

		resume, err := NewBootstrapper(client, ac, discardLogger()).Boot(ctx, BootRequest{Attempt: attempt, CurrentOrdinal: 1})
		require.NoError(t, err)
		assert.True(t, resume.Fresh)
		assert.Empty(t, resume.Answers)
		assert.Empty(t, ac.Load(ctx, 9))
		_, ok := ac.QuestionStart(ctx, 9, 101)
		assert.False(t, ok)
		assert.Equal(t, models.ModeExam, resume.Mode)
	})

	t.Run("resumed attempt restores cache", func(t *testing.T) {
		ac := newAnswerCache()
		seed(ac)
		client := &MockClient{}
		client.On("GetTestDetail", ctx, 4).Return(sampleTest(), nil)

		resume, err := NewBootstrapper(client, ac, discardLogger()).Boot(ctx, BootRequest{
			Attempt:             attempt,
			CurrentOrdinal:      2,
			AnsweredCount:       1,
			AnsweredQuestionIDs: []int{201},
		})
		require.NoError(t, err)
		assert.False(t, resume.Fresh)
		assert.Equal(t, 1, resume.StartIndex)
		assert.Equal(t, "B", resume.Answers.Selected(101))
		assert.Equal(t, 7, resume.Answers.TimeSpent(101))
		assert.Equal(t, 2, resume.Navigator.AnsweredCount(resume.Answers))
	})

	t.Run("practice locks graded questions", func(t *testing.T) {
		client := &MockClient{}
		client.On("GetTestDetail", ctx, 4).Return(sampleTest(), nil)

		resume, err := NewBootstrapper(client, newAnswerCache(), discardLogger()).Boot(ctx, BootRequest{
			Attempt:        models.Attempt{AttemptID: 9, TestID: 4},
			Mode:           models.ModePractice,
			CurrentOrdinal: 2,
			AnsweredCount:  1,
			Locked:         map[int]models.PracticeFeedback{101: {IsCorrect: true, CorrectAnswer: "B", SelectedAnswer: "B"}},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ModePractice, resume.Mode)
		assert.True(t, resume.Navigator.Locked(0))
		assert.False(t, resume.Navigator.Locked(1))
	})

	t.Run("missing identifiers", func(t *testing.T) {
		_, err := NewBootstrapper(&MockClient{}, newAnswerCache(), discardLogger()).Boot(ctx, BootRequest{Attempt: models.Attempt{TestID: 4}})
		assert.ErrorIs(t, err, ErrMissingIdentifiers)
	})

	t.Run("backend failure", func(t *testing.T) {
		client := &MockClient{}
		client.On("GetTestDetail", ctx, 4).Return(nil, errors.New("down"))
		_, err := NewBootstrapper(client, newAnswerCache(), discardLogger()).Boot(ctx, BootRequest{Attempt: attempt, CurrentOrdinal: 1})
		assert.Error(t, err)
	})
}

func TestBootstrapper_ResumeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ac := newAnswerCache()
	require.NoError(t, ac.Save(ctx, 9, models.AnswerMapping{
		101: {SelectedAnswer: "B", TimeSpentSeconds: 7},
		102: {SelectedAnswer: "D", TimeSpentSeconds: 12},
	}))
	client := &MockClient{}
	client.On("GetTestDetail", ctx, 4).Return(sampleTest(), nil)
	boot := NewBootstrapper(client, ac, discardLogger())
	req := BootRequest{
		Attempt:        models.Attempt{AttemptID: 9, TestID: 4},
		CurrentOrdinal: 3,
		AnsweredCount:  2,
	}

	first, err := boot.Boot(ctx, req)
	require.NoError(t, err)
	second, err := boot.Boot(ctx, req)
	require.NoError(t, err)

	assert.False(t, second.Fresh)
	assert.Equal(t, first.Answers, second.Answers)
	assert.Equal(t, first.StartIndex, second.StartIndex)
	assert.Equal(t, "D", second.Answers.Selected(102))
	assert.Equal(t, 12, second.Answers.TimeSpent(102))
}

func TestBootstrapper_FreshAttemptDoesNotResurrectStaleAnswers(t *testing.T) {
	ctx := context.Background()
	ac := newAnswerCache()
	require.NoError(t, ac.Save(ctx, 9, models.AnswerMapping{
		102: {SelectedAnswer: "C", TimeSpentSeconds: 30},
		201: {SelectedAnswer: "True", TimeSpentSeconds: 4},
	}))
	client := &MockClient{}
	client.On("GetTestDetail", ctx, 4).Return(sampleTest(), nil)

	resume, err := NewBootstrapper(client, ac, discardLogger()).Boot(ctx, BootRequest{
		Attempt:        models.Attempt{AttemptID: 9, TestID: 4},
		CurrentOrdinal: 1,
	})
	require.NoError(t, err)
	require.True(t, resume.Fresh)

	ctrl := NewController(ctx, resume, Dependencies{Cache: ac, Client: client}, Options{
		Clock:  clockwork.NewFakeClock(),
		Logger: discardLogger(),
	})
	defer ctrl.Close()

	v, err := ctrl.Dispatch(ctx, AnswerSelected{QuestionID: 101, Choice: "A"})
	require.NoError(t, err)
	assert.Equal(t, 1, v.AnsweredCount)
	assert.Equal(t, MapUnanswered, v.Map[1].State)
	assert.Equal(t, MapUnanswered, v.Map[2].State)

	cached := ac.Load(ctx, 9)
	assert.Equal(t, "A", cached.Selected(101))
	assert.Empty(t, cached.Selected(102))
	assert.Empty(t, cached.Selected(201))
	assert.Zero(t, cached.TimeSpent(102))
}
