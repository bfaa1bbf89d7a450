package session

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/models"
)

const tracerName = "github.com/SAP-F-2025/session-runtime/internal/session"

// Coordinator builds submission payloads and classifies backend responses.
// It holds no in-flight state; the reducer's Phase is the single guard.
type Coordinator struct {
	client    backend.Client
	attempt   models.Attempt
	mode      models.SessionMode
	questions []models.Question
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewCoordinator(client backend.Client, attempt models.Attempt, mode models.SessionMode, questions []models.Question, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		client:    client,
		attempt:   attempt,
		mode:      mode,
		questions: questions,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// BuildPayload emits one entry per question in boot-time order. Unanswered
// questions carry an empty selection; a zero or absent time is sent as null.
func (c *Coordinator) BuildPayload(answers models.AnswerMapping) backend.SubmitExamRequest {
	req := backend.SubmitExamRequest{
		AttemptID: c.attempt.AttemptID,
		Answers:   make([]models.SubmittedAnswer, 0, len(c.questions)),
	}
	for _, q := range c.questions {
		rec := answers[q.ID]
		entry := models.SubmittedAnswer{QuestionID: q.ID, SelectedAnswer: rec.SelectedAnswer}
		if rec.TimeSpentSeconds > 0 {
			spent := rec.TimeSpentSeconds
			entry.TimeSpent = &spent
		}
		req.Answers = append(req.Answers, entry)
	}
	return req
}

// Submit sends the attempt to the backend and reports the result as an event
// for the controller loop.
func (c *Coordinator) Submit(ctx context.Context, answers models.AnswerMapping, timeout bool) SubmitResolved {
	ctx, span := c.tracer.Start(ctx, "session.submit", trace.WithAttributes(
		attribute.Int("attempt.id", c.attempt.AttemptID),
		attribute.String("session.mode", string(c.mode)),
		attribute.Bool("submit.timeout", timeout),
	))
	defer span.End()

	var (
		res *backend.AttemptResult
		err error
	)
	if c.mode == models.ModePractice {
		res, err = c.client.FinishPractice(ctx, backend.FinishPracticeRequest{AttemptID: c.attempt.AttemptID})
	} else {
		res, err = c.client.SubmitExam(ctx, c.BuildPayload(answers))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome, msg := Classify(err)
		c.logger.Warn("submission failed",
			"attempt_id", c.attempt.AttemptID,
			"timeout", timeout,
			"outcome", int(outcome),
			"error", err)
		return SubmitResolved{Outcome: outcome, Message: msg}
	}

	resolved := SubmitResolved{Outcome: OutcomeSuccess, AttemptID: c.attempt.AttemptID, Result: res}
	if res != nil && res.AttemptID != 0 {
		resolved.AttemptID = res.AttemptID
	}
	c.logger.Info("submission accepted", "attempt_id", resolved.AttemptID, "timeout", timeout)
	return resolved
}

// Classify maps a backend error to an outcome and the message shown to the user.
func Classify(err error) (Outcome, string) {
	switch {
	case err == nil:
		return OutcomeSuccess, ""
	case backend.IsUnauthenticated(err):
		return OutcomeUnauthenticated, backend.Message(err)
	case backend.IsAttemptClosed(err):
		return OutcomeAttemptClosed, backend.Message(err)
	}
	return OutcomeFailed, backend.Message(err)
}
