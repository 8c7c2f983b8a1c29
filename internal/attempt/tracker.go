// Package attempt manages the lifecycle of task attempts: opening or resuming
// the single open result for a (user, simulation, task) triple, and
// finalizing it exactly once on submission or expiry.
package attempt

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/terra-clan/simulex-engine/internal/evaluator"
	"github.com/terra-clan/simulex-engine/internal/metrics"
	"github.com/terra-clan/simulex-engine/internal/models"
	"github.com/terra-clan/simulex-engine/internal/storage"
	"github.com/terra-clan/simulex-engine/internal/telemetry"
	"github.com/terra-clan/simulex-engine/internal/timer"
)

// Trigger names what caused a finalization
type Trigger string

const (
	TriggerSubmit Trigger = "submit"
	TriggerExpiry Trigger = "expiry"
)

// FinalizeHook runs after a result has been completed in the store
type FinalizeHook func(ctx context.Context, result *models.Result)

// OpenHook runs after a new open result has been created
type OpenHook func(ctx context.Context, result *models.Result)

// Attempt is an open or just-finished result together with its catalog context
type Attempt struct {
	Result     *models.Result
	Task       *models.Task
	Simulation *models.Simulation
	Resumed    bool
}

// Remaining returns the seconds left at now. Untimed tasks report 0.
func (a *Attempt) Remaining(now time.Time) int {
	return timer.Remaining(a.Result.StartTime, a.Task.TimeLimit, now)
}

// Expired reports whether an open timed attempt has run out of time at now
func (a *Attempt) Expired(now time.Time) bool {
	return !a.Result.Completed && a.Task.Limited() && a.Remaining(now) == 0
}

// Allotted is the reference duration for speed scoring: the task limit, or
// the simulation duration for untimed tasks.
func (a *Attempt) Allotted() time.Duration {
	if a.Task.Limited() {
		return time.Duration(a.Task.TimeLimit) * time.Second
	}
	if a.Simulation != nil {
		return a.Simulation.DurationLimit()
	}
	return 0
}

// StartTimer builds the countdown for this attempt from its stored start time
func (a *Attempt) StartTimer(clock timer.Clock) *timer.Timer {
	return timer.Resume(clock, a.Result.StartTime, a.Task.TimeLimit)
}

// Tracker owns result records across the task-taking flow
type Tracker struct {
	repo      storage.Repository
	evaluator evaluator.Evaluator
	clock     timer.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	validate  *validator.Validate
	hooks     []FinalizeHook
	openHooks []OpenHook

	mu      sync.Mutex
	watched map[string]map[*timer.Timer]struct{}
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock sets the time source
func WithClock(c timer.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithMetrics sets the collectors to update
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithFinalizeHook adds a hook run after each successful completion
func WithFinalizeHook(h FinalizeHook) Option {
	return func(t *Tracker) { t.hooks = append(t.hooks, h) }
}

// WithOpenHook adds a hook run after each newly created attempt
func WithOpenHook(h OpenHook) Option {
	return func(t *Tracker) { t.openHooks = append(t.openHooks, h) }
}

// New creates a Tracker
func New(repo storage.Repository, eval evaluator.Evaluator, opts ...Option) *Tracker {
	t := &Tracker{
		repo:      repo,
		evaluator: eval,
		clock:     timer.RealClock(),
		logger:    slog.Default(),
		tracer:    telemetry.Tracer("github.com/terra-clan/simulex-engine/internal/attempt"),
		validate:  validator.New(),
		watched:   make(map[string]map[*timer.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Clock returns the tracker's time source
func (t *Tracker) Clock() timer.Clock {
	return t.clock
}

// OpenOrResume returns the open result for the triple, creating it when none exists.
// The check and the create are separate store calls: two concurrent first
// opens of the same triple can both create a result.
func (t *Tracker) OpenOrResume(ctx context.Context, userID, simulationID, taskID string) (*Attempt, error) {
	ctx, span := t.tracer.Start(ctx, "attempt.OpenOrResume", trace.WithAttributes(
		attribute.String("simulation.id", simulationID),
		attribute.String("task.id", taskID),
	))
	defer span.End()

	if userID == "" {
		return nil, fail(span, invalid("user is required"))
	}
	if simulationID == "" || taskID == "" {
		return nil, fail(span, invalid("simulation and task are required"))
	}

	sim, err := t.repo.GetSimulation(ctx, simulationID)
	if err != nil {
		return nil, fail(span, transient("get simulation", err))
	}
	if sim == nil {
		return nil, fail(span, notFound("simulation", simulationID))
	}

	task, err := t.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, fail(span, transient("get task", err))
	}
	if task == nil {
		return nil, fail(span, notFound("task", taskID))
	}

	if task.SimulationID != sim.ID {
		return nil, fail(span, invalid("task %s does not belong to simulation %s", task.ID, sim.ID))
	}

	existing, err := t.repo.FindOpenResult(ctx, userID, sim.ID, task.ID)
	if err != nil {
		return nil, fail(span, transient("find open result", err))
	}

	if existing != nil {
		t.countOpened("resumed")
		span.SetAttributes(attribute.Bool("attempt.resumed", true))
		t.logger.Debug("attempt resumed",
			"result_id", existing.ID,
			"user_id", userID,
			"remaining", timer.Remaining(existing.StartTime, task.TimeLimit, t.clock.Now()),
		)
		return &Attempt{Result: existing, Task: task, Simulation: sim, Resumed: true}, nil
	}

	res := &models.Result{
		ID:           uuid.NewString(),
		UserID:       userID,
		SimulationID: sim.ID,
		TaskID:       task.ID,
		StartTime:    t.clock.Now().UTC(),
	}

	if err := t.repo.CreateResult(ctx, res); err != nil {
		return nil, fail(span, transient("create result", err))
	}

	t.countOpened("created")
	t.logger.Info("attempt started",
		"result_id", res.ID,
		"user_id", userID,
		"simulation_id", sim.ID,
		"task_id", task.ID,
		"time_limit", task.TimeLimit,
	)

	for _, hook := range t.openHooks {
		hook(ctx, res)
	}

	return &Attempt{Result: res, Task: task, Simulation: sim}, nil
}

// Load returns the attempt for a result owned by userID
func (t *Tracker) Load(ctx context.Context, userID, resultID string) (*Attempt, error) {
	res, err := t.repo.GetResult(ctx, resultID)
	if err != nil {
		return nil, transient("get result", err)
	}
	if res == nil || res.UserID != userID {
		return nil, notFound("result", resultID)
	}

	task, err := t.repo.GetTask(ctx, res.TaskID)
	if err != nil {
		return nil, transient("get task", err)
	}
	if task == nil {
		return nil, notFound("task", res.TaskID)
	}

	sim, err := t.repo.GetSimulation(ctx, res.SimulationID)
	if err != nil {
		return nil, transient("get simulation", err)
	}

	return &Attempt{Result: res, Task: task, Simulation: sim, Resumed: true}, nil
}

// Submit evaluates a user submission and finalizes the attempt
func (t *Tracker) Submit(ctx context.Context, a *Attempt, submission models.Document) (bool, error) {
	return t.evaluateAndComplete(ctx, a, submission, TriggerSubmit)
}

// Expire finalizes an attempt whose time ran out, scoring the last draft if any
func (t *Tracker) Expire(ctx context.Context, a *Attempt, draft models.Document) (bool, error) {
	updated, err := t.evaluateAndComplete(ctx, a, draft, TriggerExpiry)
	if updated && t.metrics != nil {
		t.metrics.TimerExpiries.Inc()
	}
	return updated, err
}

func (t *Tracker) evaluateAndComplete(ctx context.Context, a *Attempt, submission models.Document, trigger Trigger) (bool, error) {
	if a == nil || a.Result == nil || a.Task == nil {
		return false, invalid("attempt is required")
	}
	if a.Result.Completed {
		t.countFinalize(trigger, "noop")
		return false, nil
	}

	criteria, err := a.Task.Criteria()
	if err != nil {
		t.logger.Warn("ignoring unreadable evaluation criteria", "task_id", a.Task.ID, "error", err)
	}

	outcome, err := t.evaluator.Evaluate(ctx, evaluator.Input{
		TaskID:     a.Task.ID,
		TaskType:   a.Task.Type,
		Criteria:   criteria,
		Submission: submission,
		Elapsed:    a.Result.Elapsed(t.clock.Now()),
		Allotted:   a.Allotted(),
	})
	if err != nil {
		return false, err
	}

	return t.complete(ctx, a.Result, outcome, submission, trigger)
}

// Finalize completes result with outcome. Already completed results are left
// untouched and no store call is made. At most one update is issued.
func (t *Tracker) Finalize(ctx context.Context, result *models.Result, outcome evaluator.Outcome, trigger Trigger) (bool, error) {
	if result == nil {
		return false, invalid("result is required")
	}
	return t.complete(ctx, result, outcome, result.Submission, trigger)
}

func (t *Tracker) complete(ctx context.Context, result *models.Result, outcome evaluator.Outcome, submission models.Document, trigger Trigger) (bool, error) {
	ctx, span := t.tracer.Start(ctx, "attempt.Finalize", trace.WithAttributes(
		attribute.String("result.id", result.ID),
		attribute.String("trigger", string(trigger)),
	))
	defer span.End()

	if result.Completed {
		t.countFinalize(trigger, "noop")
		return false, nil
	}

	if err := t.validate.Struct(outcome); err != nil {
		t.countFinalize(trigger, "rejected")
		return false, fail(span, invalid("outcome: %v", err))
	}

	end := t.clock.Now().UTC()
	if end.Before(result.StartTime) {
		end = result.StartTime
	}

	next := *result
	next.EndTime = &end
	next.Score = ptr(outcome.Score)
	next.Accuracy = ptr(outcome.Accuracy)
	next.Speed = ptr(outcome.Speed)
	next.Feedback = outcome.Feedback
	next.Submission = submission
	next.Completed = true

	updated, err := t.repo.CompleteResult(ctx, &next)
	t.stopTimers(result.ID)

	if err != nil {
		t.countFinalize(trigger, "error")
		t.logger.Error("failed to finalize attempt", "result_id", result.ID, "trigger", trigger, "error", err)
		return false, fail(span, transient("complete result", err))
	}

	if !updated {
		// completed concurrently by the other trigger
		t.countFinalize(trigger, "noop")
		stored, err := t.repo.GetResult(ctx, result.ID)
		if err != nil {
			t.logger.Warn("failed to reload finalized result", "result_id", result.ID, "error", err)
		} else if stored != nil {
			*result = *stored
		}
		return false, nil
	}

	*result = next
	t.countFinalize(trigger, "updated")
	t.logger.Info("attempt finalized",
		"result_id", result.ID,
		"user_id", result.UserID,
		"trigger", trigger,
		"score", outcome.Score,
		"elapsed", result.Elapsed(end).String(),
	)

	for _, hook := range t.hooks {
		hook(ctx, result)
	}

	return true, nil
}

// Watch ties a live countdown to a result. Finalizing the result, by either
// trigger, cancels every countdown watching it.
func (t *Tracker) Watch(resultID string, tm *timer.Timer) {
	t.mu.Lock()
	set, ok := t.watched[resultID]
	if !ok {
		set = make(map[*timer.Timer]struct{})
		t.watched[resultID] = set
	}
	set[tm] = struct{}{}
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.ActiveCountdowns.Inc()
	}

	go func() {
		<-tm.Done()
		t.unwatch(resultID, tm)
		if t.metrics != nil {
			t.metrics.ActiveCountdowns.Dec()
		}
	}()
}

// Watching returns the number of live countdowns attached to a result
func (t *Tracker) Watching(resultID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watched[resultID])
}

func (t *Tracker) unwatch(resultID string, tm *timer.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.watched[resultID]
	delete(set, tm)
	if len(set) == 0 {
		delete(t.watched, resultID)
	}
}

func (t *Tracker) stopTimers(resultID string) {
	t.mu.Lock()
	set := t.watched[resultID]
	delete(t.watched, resultID)
	t.mu.Unlock()

	for tm := range set {
		tm.Cancel()
	}
}

func (t *Tracker) countOpened(outcome string) {
	if t.metrics != nil {
		t.metrics.AttemptsOpened.WithLabelValues(outcome).Inc()
	}
}

func (t *Tracker) countFinalize(trigger Trigger, result string) {
	if t.metrics != nil {
		t.metrics.Finalizations.WithLabelValues(string(trigger), result).Inc()
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func ptr(v float64) *float64 {
	return &v
}
