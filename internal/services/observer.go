package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/session-runtime/internal/events"
	"github.com/SAP-F-2025/session-runtime/internal/metrics"
	"github.com/SAP-F-2025/session-runtime/internal/models"
	"github.com/SAP-F-2025/session-runtime/internal/session"
)

const defaultPublishTimeout = 5 * time.Second

// eventObserver turns session milestones into published events and metrics.
// Publishing happens off the session loop.
type eventObserver struct {
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	timeout   time.Duration
	wg        sync.WaitGroup

	// Called after an accepted submission.
	onSubmitted func(attemptID int)
}

var _ session.Observer = (*eventObserver)(nil)

func newEventObserver(publisher events.EventPublisher, m *metrics.Metrics, logger *slog.Logger) *eventObserver {
	return &eventObserver{
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		timeout:   defaultPublishTimeout,
	}
}

func (o *eventObserver) Submitted(attempt models.Attempt, mode models.SessionMode, timeout bool, resultAttemptID int) {
	o.metrics.Submissions.WithLabelValues(string(mode), events.Trigger(timeout), "success").Inc()
	o.publish(events.NewAttemptSubmittedEvent(attempt.AttemptID, attempt.TestID, string(mode), timeout, resultAttemptID))
	if o.onSubmitted != nil {
		o.onSubmitted(attempt.AttemptID)
	}
}

func (o *eventObserver) SubmissionFailed(attempt models.Attempt, mode models.SessionMode, timeout bool, message string) {
	o.metrics.Submissions.WithLabelValues(string(mode), events.Trigger(timeout), "failed").Inc()
	o.publish(events.NewAttemptSubmitFailedEvent(attempt.AttemptID, attempt.TestID, timeout, message))
}

func (o *eventObserver) TimeWarning(attempt models.Attempt, secondsRemaining int) {
	o.publish(events.NewAttemptTimeWarningEvent(attempt.AttemptID, attempt.TestID, secondsRemaining))
}

func (o *eventObserver) TimerExpired(attempt models.Attempt) {
	o.metrics.TimerExpirations.Inc()
	o.publish(events.NewAttemptTimeExpiredEvent(attempt.AttemptID, attempt.TestID))
}

func (o *eventObserver) publish(event *events.SessionEvent) {
	if o.publisher == nil {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		if err := o.publisher.PublishSessionEvent(ctx, event); err != nil {
			o.logger.Warn("Failed to publish session event",
				"event_type", event.Type,
				"partition_key", event.PartitionKey(),
				"error", err)
		}
	}()
}

// wait blocks until pending publishes finish or ctx is done.
func (o *eventObserver) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
