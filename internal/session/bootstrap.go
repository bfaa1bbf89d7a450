package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/cache"
	"github.com/SAP-F-2025/session-runtime/internal/models"
)

// BootRequest carries what the server reports about an attempt on page load.
type BootRequest struct {
	Attempt             models.Attempt
	Mode                models.SessionMode
	CurrentOrdinal      int
	AnsweredCount       int
	AnsweredQuestionIDs []int
	// Practice questions already graded, keyed by question id.
	Locked map[int]models.PracticeFeedback
}

// Resume is a booted session ready to be handed to a Controller.
type Resume struct {
	Attempt    models.Attempt
	Mode       models.SessionMode
	Navigator  *Navigator
	Answers    models.AnswerMapping
	StartIndex int
	Fresh      bool
}

type Bootstrapper struct {
	client backend.Client
	cache  *cache.AnswerCache
	logger *slog.Logger
}

func NewBootstrapper(client backend.Client, answerCache *cache.AnswerCache, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{client: client, cache: answerCache, logger: logger}
}

// IsFresh reports whether an attempt has just begun: first question and
// nothing answered server-side.
func IsFresh(currentOrdinal, answeredCount int) bool {
	return currentOrdinal == 1 && answeredCount == 0
}

func (b *Bootstrapper) Boot(ctx context.Context, req BootRequest) (*Resume, error) {
	if !req.Attempt.Valid() {
		return nil, ErrMissingIdentifiers
	}

	test, err := b.client.GetTestDetail(ctx, req.Attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test %d: %w", req.Attempt.TestID, err)
	}
	nav, err := NewNavigator(*test)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = test.Mode
	}
	if mode == "" {
		mode = models.ModeExam
	}

	resume := &Resume{
		Attempt:    req.Attempt,
		Mode:       mode,
		Navigator:  nav,
		StartIndex: nav.IndexOfOrdinal(req.CurrentOrdinal),
		Fresh:      IsFresh(req.CurrentOrdinal, req.AnsweredCount),
	}

	// A fresh attempt must not inherit anything left behind under its id.
	if resume.Fresh {
		if err := b.cache.Clear(ctx, req.Attempt.AttemptID); err != nil {
			b.logger.Warn("failed to clear cache for fresh attempt", "attempt_id", req.Attempt.AttemptID, "error", err)
		}
		resume.Answers = make(models.AnswerMapping)
	} else {
		resume.Answers = b.cache.Load(ctx, req.Attempt.AttemptID)
	}

	nav.MarkServerAnswered(req.AnsweredQuestionIDs)
	for qid, fb := range req.Locked {
		if i, ok := nav.IndexOf(qid); ok {
			nav.Lock(i, fb)
		}
	}

	b.logger.Info("session booted",
		"attempt_id", req.Attempt.AttemptID,
		"test_id", req.Attempt.TestID,
		"mode", mode,
		"fresh", resume.Fresh,
		"cached_answers", len(resume.Answers))
	return resume, nil
}
