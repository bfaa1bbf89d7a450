package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/cache"
	"github.com/SAP-F-2025/session-runtime/internal/models"
)

type Dependencies struct {
	Cache  *cache.AnswerCache
	Client backend.Client
}

type Options struct {
	Clock          Clock
	TickInterval   time.Duration
	WarningSeconds int
	ResultsURL     string
	AuthEntryURL   string
	// ReturnPath is sent as the next parameter of authentication redirects.
	ReturnPath string
	Observer   Observer
	Logger     *slog.Logger
}

type envelope struct {
	event Event
	creds *backend.Credentials
	reply chan reply
}

type reply struct {
	view View
	err  error
}

// Controller runs one session. Every event, whether from a caller, the
// countdown or a finished backend call, is reduced on a single goroutine.
type Controller struct {
	attempt   models.Attempt
	mode      models.SessionMode
	nav       *Navigator
	coord     *Coordinator
	cache     *cache.AnswerCache
	client    backend.Client
	clock     Clock
	countdown *Countdown
	observer  Observer
	logger    *slog.Logger
	opts      Options

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan envelope
	done      chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup

	// Owned by the loop goroutine.
	state        State
	answers      models.AnswerMapping
	creds        *backend.Credentials
	owner        string
	redirect     string
	authRedirect string
}

// NewController starts the session loop. ctx supplies values such as
// credentials; its cancellation does not end the session, Close does.
func NewController(ctx context.Context, resume *Resume, deps Dependencies, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("attempt_id", resume.Attempt.AttemptID, "mode", resume.Mode)

	c := &Controller{
		attempt:   resume.Attempt,
		mode:      resume.Mode,
		nav:       resume.Navigator,
		coord:     NewCoordinator(deps.Client, resume.Attempt, resume.Mode, resume.Navigator.Questions(), logger),
		cache:     deps.Cache,
		client:    deps.Client,
		clock:     opts.Clock,
		countdown: NewCountdown(opts.Clock, opts.TickInterval),
		observer:  opts.Observer,
		logger:    logger,
		opts:      opts,
		events:    make(chan envelope),
		done:      make(chan struct{}),
		answers:   resume.Answers.Clone(),
	}
	if creds, ok := backend.CredentialsFrom(ctx); ok {
		c.creds = &creds
		c.owner = creds.Owner()
	}
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))

	c.state = NewState(resume.Attempt, resume.Mode, resume.Navigator.Count(), resume.StartIndex, opts.WarningSeconds)
	for i := 0; i < resume.Navigator.Count(); i++ {
		if resume.Navigator.Locked(i) {
			c.state.Locked = withFlag(c.state.Locked, i, true)
		}
	}

	if c.mode == models.ModeExam || !c.state.Locked[c.state.CurrentIndex] {
		c.apply(MarkQuestionStart{Index: c.state.CurrentIndex})
	}
	if c.state.TimerRunning {
		c.countdown.Start()
	}

	go c.run()

	if c.state.Timed && c.state.SecondsRemaining == 0 {
		c.post(SubmitRequested{Timeout: true})
	}
	return c
}

func (c *Controller) AttemptID() int { return c.attempt.AttemptID }

func (c *Controller) Attempt() models.Attempt { return c.attempt }

// Questions returns the questions in boot order.
func (c *Controller) Questions() []models.Question { return c.nav.Questions() }

func (c *Controller) Mode() models.SessionMode { return c.mode }

// Owner identifies the user who booted the session; empty when anonymous.
func (c *Controller) Owner() string { return c.owner }

// Done is closed once the loop has stopped.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Dispatch delivers ev to the loop and returns the view after it was reduced.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (View, error) {
	return c.send(ctx, ev)
}

// View returns the current render document.
func (c *Controller) View(ctx context.Context) (View, error) {
	return c.send(ctx, nil)
}

// Answers returns a copy of the answer mapping as the loop sees it.
func (c *Controller) Answers(ctx context.Context) (models.AnswerMapping, error) {
	var out models.AnswerMapping
	err := c.query(ctx, func() { out = c.answers.Clone() })
	return out, err
}

// Payload returns the submission body the current answers would produce.
func (c *Controller) Payload(ctx context.Context) (backend.SubmitExamRequest, error) {
	answers, err := c.Answers(ctx)
	if err != nil {
		return backend.SubmitExamRequest{}, err
	}
	return c.coord.BuildPayload(answers), nil
}

// Close tears the session down: the countdown is released and in-flight
// backend calls are cancelled. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		c.countdown.Stop()
		c.inflight.Wait()
		c.logger.Debug("session closed")
	})
}

func (c *Controller) send(ctx context.Context, ev Event) (View, error) {
	env := envelope{event: ev, reply: make(chan reply, 1)}
	if creds, ok := backend.CredentialsFrom(ctx); ok {
		env.creds = &creds
	}
	select {
	case c.events <- env:
	case <-c.done:
		return View{}, ErrSessionClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case r := <-env.reply:
		return r.view, r.err
	case <-c.done:
		return View{}, ErrSessionClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (c *Controller) query(ctx context.Context, fn func()) error {
	_, err := c.send(ctx, queryEvent{fn: fn})
	return err
}

// queryEvent runs fn on the loop without touching State.
type queryEvent struct{ fn func() }

func (queryEvent) isEvent() {}

func (c *Controller) post(ev Event) {
	select {
	case c.events <- envelope{event: ev}:
	case <-c.ctx.Done():
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case env := <-c.events:
			// Fresher credentials are kept only when they belong to the
			// owner; background submissions are sent with them.
			if env.creds != nil && env.creds.Owner() == c.owner {
				c.creds = env.creds
			}
			var err error
			if env.event != nil {
				err = c.handle(env.event)
			}
			if env.reply != nil {
				env.reply <- reply{view: c.buildView(), err: err}
			}
		case <-c.countdown.C():
			if err := c.handle(Tick{}); err != nil {
				c.logger.Warn("tick rejected", "error", err)
			}
		}
	}
}

func (c *Controller) handle(ev Event) error {
	if q, ok := ev.(queryEvent); ok {
		q.fn()
		return nil
	}
	if err := c.validate(ev); err != nil {
		return err
	}
	next, effects, err := Reduce(c.state, ev)
	if err != nil {
		return err
	}
	c.state = next
	for _, eff := range effects {
		c.apply(eff)
	}
	return nil
}

// validate checks what Reduce cannot see: question content.
func (c *Controller) validate(ev Event) error {
	e, ok := ev.(AnswerSelected)
	if !ok {
		return nil
	}
	q, err := c.nav.Question(c.state.CurrentIndex)
	if err != nil {
		return err
	}
	if e.QuestionID != 0 && e.QuestionID != q.ID {
		return ErrStaleQuestion
	}
	if !q.HasChoice(e.Choice) {
		return ErrInvalidChoice
	}
	return nil
}

func (c *Controller) effectContext() context.Context {
	if c.creds == nil {
		return c.ctx
	}
	return backend.WithCredentials(c.ctx, *c.creds)
}

func (c *Controller) questionID(index int) int {
	q, err := c.nav.Question(index)
	if err != nil {
		return 0
	}
	return q.ID
}

func (c *Controller) apply(eff Effect) {
	ctx := c.ctx
	id := c.attempt.AttemptID

	switch e := eff.(type) {
	case PersistAnswer:
		qid := c.questionID(e.Index)
		rec := c.answers[qid]
		rec.SelectedAnswer = e.Choice
		c.answers[qid] = rec
		c.persist()

	case FlushElapsed:
		c.flushElapsed(e.Index)

	case MarkQuestionStart:
		if err := c.cache.MarkQuestionStart(ctx, id, c.questionID(e.Index), c.clock.Now()); err != nil {
			c.logger.Warn("failed to mark question start", "index", e.Index, "error", err)
		}

	case ClearQuestionStart:
		if err := c.cache.ClearQuestionStart(ctx, id, c.questionID(e.Index)); err != nil {
			c.logger.Warn("failed to clear question start", "index", e.Index, "error", err)
		}

	case StopTimer:
		c.countdown.Stop()

	case TimerExpired:
		c.logger.Info("time limit reached")
		c.observer.TimerExpired(c.attempt)

	case SendSubmission:
		c.sendSubmission(e.Timeout)

	case SendPracticeAnswer:
		c.sendPracticeAnswer(e.Index, e.Choice)

	case LockQuestion:
		c.nav.Lock(e.Index, e.Feedback)

	case ClearCache:
		if err := c.cache.Clear(ctx, id); err != nil {
			c.logger.Warn("failed to clear answer cache", "error", err)
		}

	case ShowResults:
		c.redirect = ResultsLink(c.opts.ResultsURL, e.AttemptID)
		c.observer.Submitted(c.attempt, c.mode, e.Timeout, e.AttemptID)

	case ReportFailure:
		c.observer.SubmissionFailed(c.attempt, c.mode, e.Timeout, e.Message)

	case PublishTimeWarning:
		c.observer.TimeWarning(c.attempt, e.SecondsRemaining)

	case RedirectToAuth:
		c.authRedirect = AuthLink(c.opts.AuthEntryURL, c.opts.ReturnPath)
	}
}

func (c *Controller) persist() {
	if err := c.cache.Save(c.ctx, c.attempt.AttemptID, c.answers); err != nil {
		c.logger.Warn("failed to persist answers", "error", err)
	}
}

func (c *Controller) flushElapsed(index int) {
	qid := c.questionID(index)
	start, ok := c.cache.QuestionStart(c.ctx, c.attempt.AttemptID, qid)
	if !ok {
		return
	}
	elapsed := int(c.clock.Now().Sub(start) / time.Second)
	if elapsed <= 0 {
		return
	}
	rec := c.answers[qid]
	rec.TimeSpentSeconds += elapsed
	c.answers[qid] = rec
	c.persist()

	// Only whole seconds are counted; the remainder stays on the mark.
	next := start.Add(time.Duration(elapsed) * time.Second)
	if err := c.cache.MarkQuestionStart(c.ctx, c.attempt.AttemptID, qid, next); err != nil {
		c.logger.Warn("failed to restart question mark", "question_id", qid, "error", err)
	}
}

func (c *Controller) sendSubmission(timeout bool) {
	snapshot := c.answers.Clone()
	ctx := c.effectContext()
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.post(c.coord.Submit(ctx, snapshot, timeout))
	}()
}

func (c *Controller) sendPracticeAnswer(index int, choice string) {
	qid := c.questionID(index)
	spent := 1
	if start, ok := c.cache.QuestionStart(c.ctx, c.attempt.AttemptID, qid); ok {
		if s := int(c.clock.Now().Sub(start) / time.Second); s > spent {
			spent = s
		}
	}
	req := backend.PracticeAnswerRequest{
		AttemptID:      c.attempt.AttemptID,
		QuestionID:     qid,
		SelectedAnswer: choice,
		TimeSpent:      spent,
	}
	ctx := c.effectContext()
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ev := PracticeAnswered{Index: index}
		res, err := c.client.AnswerPractice(ctx, req)
		if err != nil {
			ev.Outcome, ev.Message = Classify(err)
		} else {
			ev.Outcome = OutcomeSuccess
			ev.Feedback = res.PracticeFeedback
		}
		c.post(ev)
	}()
}

func (c *Controller) buildView() View {
	qv, err := c.nav.Render(c.state.CurrentIndex, c.answers)
	if err != nil {
		c.logger.Error("failed to render question", "index", c.state.CurrentIndex, "error", err)
	}
	test := c.nav.Test()
	return View{
		AttemptID:     c.attempt.AttemptID,
		TestID:        c.attempt.TestID,
		TestTitle:     test.Title,
		Mode:          c.mode,
		Question:      qv,
		Map:           c.nav.Map(c.state.CurrentIndex, c.answers),
		AnsweredCount: c.nav.AnsweredCount(c.answers),
		ProgressPct:   progressPct(c.state.CurrentIndex+1, c.nav.Count()),
		Timer: TimerView{
			Limited: c.state.Timed,
			Running: c.state.TimerRunning,
			Seconds: c.state.SecondsRemaining,
			Display: FormatClock(c.state.SecondsRemaining),
		},
		Phase:         c.state.Phase,
		SubmitEnabled: c.state.SubmitEnabled(),
		Message:       c.state.Message,
		Redirect:      c.redirect,
		AuthRedirect:  c.authRedirect,
	}
}
