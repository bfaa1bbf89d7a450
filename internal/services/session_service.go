package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/cache"
	"github.com/SAP-F-2025/session-runtime/internal/config"
	apperrors "github.com/SAP-F-2025/session-runtime/internal/errors"
	"github.com/SAP-F-2025/session-runtime/internal/events"
	"github.com/SAP-F-2025/session-runtime/internal/metrics"
	"github.com/SAP-F-2025/session-runtime/internal/models"
	"github.com/SAP-F-2025/session-runtime/internal/session"
	"github.com/SAP-F-2025/session-runtime/internal/validator"
)

// SessionService hosts the live sessions, one per attempt.
type SessionService interface {
	StartAttempt(ctx context.Context, req *StartAttemptRequest) (*backend.StartAttemptResponse, error)
	Boot(ctx context.Context, req *BootSessionRequest) (*session.View, error)
	Get(ctx context.Context, attemptID int) (*session.View, error)
	SelectAnswer(ctx context.Context, attemptID int, req *AnswerRequest) (*session.View, error)
	Navigate(ctx context.Context, attemptID int, req *NavigateRequest) (*session.View, error)
	Submit(ctx context.Context, attemptID int) (*session.View, error)
	AnswerSheet(ctx context.Context, attemptID int) (*AnswerSheet, error)
	Close(ctx context.Context, attemptID int) error
	Shutdown(ctx context.Context) error
}

// AuthRequiredError is returned when the backend refused the caller's
// credentials. Redirect is where the user should sign in.
type AuthRequiredError struct {
	Redirect string
	Err      error
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authentication required: %v", e.Err)
}

func (e *AuthRequiredError) Unwrap() error { return e.Err }

type SessionDependencies struct {
	Client    backend.Client
	Cache     *cache.AnswerCache
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Validator *validator.Validator
	// Clock drives countdowns; the wall clock when nil.
	Clock session.Clock
}

type sessionService struct {
	client       backend.Client
	cache        *cache.AnswerCache
	bootstrapper *session.Bootstrapper
	metrics      *metrics.Metrics
	validator    *validator.Validator
	observer     *eventObserver
	clock        session.Clock
	cfg          config.SessionConfig
	logger       *slog.Logger
	ops          *ServiceLogger

	mu       sync.Mutex
	sessions map[int]*session.Controller
	closed   bool
}

func NewSessionService(deps SessionDependencies, cfg config.SessionConfig, logger *slog.Logger) SessionService {
	if deps.Clock == nil {
		deps.Clock = session.RealClock()
	}
	s := &sessionService{
		client:       deps.Client,
		cache:        deps.Cache,
		bootstrapper: session.NewBootstrapper(deps.Client, deps.Cache, logger),
		metrics:      deps.Metrics,
		validator:    deps.Validator,
		observer:     newEventObserver(deps.Publisher, deps.Metrics, logger),
		clock:        deps.Clock,
		cfg:          cfg,
		logger:       logger,
		ops:          NewServiceLogger(logger, LogConfig{Service: "session-runtime", Component: "session_service"}),
		sessions:     make(map[int]*session.Controller),
	}
	s.observer.onSubmitted = s.scheduleRetire
	return s
}

// ===== ATTEMPTS =====

func (s *sessionService) StartAttempt(ctx context.Context, req *StartAttemptRequest) (_ *backend.StartAttemptResponse, err error) {
	op := s.ops.WithOperation(ctx, "start_attempt", 0)
	defer func() { op.LogResult(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	s.logger.Info("Starting attempt", "test_id", req.TestID, "mode", req.Mode)

	resp, err := s.client.StartAttempt(ctx, backend.StartAttemptRequest{TestID: req.TestID})
	if err != nil {
		return nil, s.authRequired(req.Mode, fmt.Errorf("failed to start attempt: %w", err))
	}

	startedAt := resp.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	s.observer.publish(events.NewAttemptStartedEvent(resp.AttemptID, req.TestID, string(req.Mode), startedAt))

	s.logger.Info("Attempt started", "attempt_id", resp.AttemptID, "test_id", req.TestID)
	return resp, nil
}

// ===== SESSIONS =====

// Boot loads the test, restores cached answers and starts a session. A
// session already running for the attempt is replaced.
func (s *sessionService) Boot(ctx context.Context, req *BootSessionRequest) (_ *session.View, err error) {
	op := s.ops.WithOperation(ctx, "boot", req.AttemptID)
	defer func() { op.LogResult(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	attempt := models.Attempt{
		AttemptID:        req.AttemptID,
		TestID:           req.TestID,
		TimeLimited:      req.TimeLimited,
		RemainingSeconds: req.RemainingSeconds,
	}
	bootReq := session.BootRequest{
		Attempt:             attempt,
		Mode:                req.Mode,
		CurrentOrdinal:      req.CurrentOrdinal,
		AnsweredCount:       req.AnsweredCount,
		AnsweredQuestionIDs: req.AnsweredQuestionIDs,
	}
	if len(req.Locked) > 0 {
		bootReq.Locked = make(map[int]models.PracticeFeedback, len(req.Locked))
		for _, l := range req.Locked {
			bootReq.Locked[l.QuestionID] = models.PracticeFeedback{
				IsCorrect:      l.IsCorrect,
				CorrectAnswer:  l.CorrectAnswer,
				SelectedAnswer: l.SelectedAnswer,
			}
		}
	}

	owner := backend.OwnerFrom(ctx)
	if err := s.checkOwner(req.AttemptID, owner); err != nil {
		return nil, err
	}

	resume, err := s.bootstrapper.Boot(ctx, bootReq)
	if err != nil {
		return nil, s.authRequired(req.Mode, err)
	}

	ctrl := session.NewController(ctx, resume, session.Dependencies{
		Cache:  s.cache,
		Client: s.client,
	}, session.Options{
		Clock:          s.clock,
		TickInterval:   s.cfg.TickInterval,
		WarningSeconds: s.cfg.TimeWarningSeconds,
		ResultsURL:     s.cfg.ResultsURL,
		AuthEntryURL:   s.cfg.AuthEntryURL,
		ReturnPath:     s.returnPath(resume.Mode),
		Observer:       s.observer,
		Logger:         s.logger,
	})

	if err := s.register(ctrl); err != nil {
		ctrl.Close()
		return nil, err
	}

	s.metrics.SessionsBooted.WithLabelValues(string(resume.Mode), strconv.FormatBool(resume.Fresh)).Inc()
	s.observer.publish(events.NewSessionBootedEvent(attempt.AttemptID, attempt.TestID, string(resume.Mode), resume.Fresh, len(resume.Answers)))

	view, err := ctrl.View(ctx)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *sessionService) Get(ctx context.Context, attemptID int) (_ *session.View, err error) {
	op := s.ops.WithOperation(ctx, "get_session", attemptID)
	defer func() { op.LogResult(err) }()

	ctrl, err := s.owned(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	view, err := ctrl.View(ctx)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *sessionService) SelectAnswer(ctx context.Context, attemptID int, req *AnswerRequest) (_ *session.View, err error) {
	op := s.ops.WithOperation(ctx, "select_answer", attemptID)
	defer func() { op.LogResult(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return s.dispatch(ctx, attemptID, session.AnswerSelected{QuestionID: req.QuestionID, Choice: req.Choice})
}

func (s *sessionService) Navigate(ctx context.Context, attemptID int, req *NavigateRequest) (_ *session.View, err error) {
	op := s.ops.WithOperation(ctx, "navigate", attemptID)
	defer func() { op.LogResult(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	ctrl, err := s.owned(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	var index int
	switch {
	case req.Index != nil:
		index = *req.Index
	case req.Ordinal != nil:
		index = *req.Ordinal - 1
	case req.Direction != "":
		view, err := ctrl.View(ctx)
		if err != nil {
			return nil, err
		}
		index = view.Question.Index + 1
		if req.Direction == DirectionPrevious {
			index = view.Question.Index - 1
		}
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirection, ValidationErrors{
			*apperrors.NewValidationError("direction", "is required when neither index nor ordinal is given", nil),
		})
	}

	view, err := ctrl.Dispatch(ctx, session.Navigate{Index: index})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Submit requests a manual submission. In practice mode this finishes the
// attempt.
func (s *sessionService) Submit(ctx context.Context, attemptID int) (_ *session.View, err error) {
	op := s.ops.WithOperation(ctx, "submit", attemptID)
	defer func() { op.LogResult(err) }()

	return s.dispatch(ctx, attemptID, session.SubmitRequested{})
}

func (s *sessionService) AnswerSheet(ctx context.Context, attemptID int) (_ *AnswerSheet, err error) {
	op := s.ops.WithOperation(ctx, "answer_sheet", attemptID)
	defer func() { op.LogResult(err) }()

	ctrl, err := s.owned(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	view, err := ctrl.View(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := ctrl.Payload(ctx)
	if err != nil {
		return nil, err
	}
	return BuildAnswerSheet(view.TestTitle, ctrl.Questions(), payload)
}

// Close tears the session down, as when the page is left.
func (s *sessionService) Close(ctx context.Context, attemptID int) error {
	ctrl, err := s.owned(ctx, attemptID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.sessions[attemptID] == ctrl {
		delete(s.sessions, attemptID)
	}
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	ctrl.Close()
	s.logger.Info("Session closed", "attempt_id", attemptID)
	return nil
}

// Shutdown closes every session and waits for pending event publishes.
func (s *sessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[int]*session.Controller)
	s.metrics.ActiveSessions.Set(0)
	s.mu.Unlock()

	for _, ctrl := range sessions {
		ctrl.Close()
	}
	s.logger.Info("Session service stopped", "sessions_closed", len(sessions))
	return s.observer.wait(ctx)
}

// ===== HELPERS =====

func (s *sessionService) register(ctrl *session.Controller) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShuttingDown
	}
	previous := s.sessions[ctrl.AttemptID()]
	if previous != nil && previous.Owner() != ctrl.Owner() {
		s.mu.Unlock()
		return ErrSessionForbidden
	}
	s.sessions[ctrl.AttemptID()] = ctrl
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if previous != nil {
		s.logger.Info("Replacing running session", "attempt_id", ctrl.AttemptID())
		previous.Close()
	}
	return nil
}

func (s *sessionService) lookup(attemptID int) (*session.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.sessions[attemptID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// owned returns the attempt's session when the caller is the user who
// booted it.
func (s *sessionService) owned(ctx context.Context, attemptID int) (*session.Controller, error) {
	ctrl, err := s.lookup(attemptID)
	if err != nil {
		return nil, err
	}
	if ctrl.Owner() != backend.OwnerFrom(ctx) {
		s.logger.Warn("Rejected access to another user's session", "attempt_id", attemptID)
		return nil, ErrSessionForbidden
	}
	return ctrl, nil
}

// checkOwner refuses to boot over a running session of another user.
func (s *sessionService) checkOwner(attemptID int, owner string) error {
	ctrl, err := s.lookup(attemptID)
	if err != nil {
		return nil
	}
	if ctrl.Owner() != owner {
		s.logger.Warn("Rejected boot over another user's session", "attempt_id", attemptID)
		return ErrSessionForbidden
	}
	return nil
}

func (s *sessionService) dispatch(ctx context.Context, attemptID int, ev session.Event) (*session.View, error) {
	ctrl, err := s.owned(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	view, err := ctrl.Dispatch(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// scheduleRetire discards a submitted session once the retention window has
// passed. It runs on the session loop and must not block.
func (s *sessionService) scheduleRetire(attemptID int) {
	if s.cfg.SubmittedRetention <= 0 {
		return
	}
	time.AfterFunc(s.cfg.SubmittedRetention, func() {
		s.retire(attemptID)
	})
}

func (s *sessionService) retire(attemptID int) {
	ctrl, err := s.lookup(attemptID)
	if err != nil {
		return
	}
	// The attempt may have been booted again since it was submitted.
	view, err := ctrl.View(context.Background())
	if err != nil || view.Phase != session.PhaseSubmitted {
		return
	}

	s.mu.Lock()
	if s.sessions[attemptID] == ctrl {
		delete(s.sessions, attemptID)
	}
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	ctrl.Close()
	s.logger.Debug("Submitted session retired", "attempt_id", attemptID)
}

func (s *sessionService) returnPath(mode models.SessionMode) string {
	if mode == models.ModePractice {
		return s.cfg.PracticeReturnPath
	}
	return s.cfg.ExamReturnPath
}

func (s *sessionService) authRequired(mode models.SessionMode, err error) error {
	if !backend.IsUnauthenticated(err) {
		return err
	}
	return &AuthRequiredError{
		Redirect: session.AuthLink(s.cfg.AuthEntryURL, s.returnPath(mode)),
		Err:      err,
	}
}

// IsAuthRequired reports whether err carries a sign-in redirect.
func IsAuthRequired(err error) (*AuthRequiredError, bool) {
	var authErr *AuthRequiredError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
