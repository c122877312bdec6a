package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Vsjangal/httpsched/internal/clock"
)

// DefaultPollInterval is the tick period used when the caller doesn't
// override it (spec §4.1).
const DefaultPollInterval = 1 * time.Second

// DefaultShutdownGrace bounds how long Stop waits for in-flight Run
// Executors after canceling them.
const DefaultShutdownGrace = 5 * time.Second

// Engine is the periodic tick loop described in spec §4.1: on every tick
// it selects due active schedules, admits them through the Registry, and
// spawns a RunExecutor per admitted schedule. It also retires expired
// window schedules and sweeps orphaned runs at startup.
type Engine struct {
	repo         Repository
	executor     *RunExecutor
	registry     *Registry
	clock        clock.Clock
	logger       *slog.Logger
	pollInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewEngine constructs an Engine. pollInterval defaults to
// DefaultPollInterval when zero.
func NewEngine(repo Repository, executor *RunExecutor, registry *Registry, c clock.Clock, logger *slog.Logger, pollInterval time.Duration) *Engine {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Engine{
		repo:         repo,
		executor:     executor,
		registry:     registry,
		clock:        c,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Start sweeps orphaned runs left pending by an unclean shutdown, then
// begins the tick loop in a background goroutine. Start must be called
// at most once.
func (e *Engine) Start(ctx context.Context) error {
	now := e.clock.Now()
	orphans, err := e.repo.MarkOrphansOnStartup(ctx, now)
	if err != nil {
		return err
	}
	if orphans > 0 {
		e.logger.Info("recovered orphaned runs", "count", orphans)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.loop(runCtx)
	return nil
}

// Stop cancels the context of the tick loop, which is also the dispatch
// context of every Run Executor the loop started, and then waits up to
// grace for the loop and those executors to finish before returning.
// In-flight requests are canceled at once; they are not given the grace
// period to complete first.
func (e *Engine) Stop(grace time.Duration) {
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
	})
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}
	waitCh := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(grace):
		e.logger.Warn("shutdown grace period elapsed with executors still in flight", "in_flight", e.registry.Len())
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// Tick runs one iteration of the loop body. It is exported for tests that
// want to drive the engine deterministically against a Fixed clock rather
// than waiting on a real ticker.
func (e *Engine) Tick(ctx context.Context) {
	e.tick(ctx)
}

// tick is infallible by construction: any repository error is logged and
// swallowed so one bad tick cannot halt the engine (spec §7).
func (e *Engine) tick(ctx context.Context) {
	now := e.clock.Now()
	schedules, err := e.repo.ListActiveSchedules(ctx)
	if err != nil {
		e.logger.Error("list active schedules", "err", err)
		return
	}

	for _, schedule := range schedules {
		switch {
		case isExpired(schedule, now):
			e.completeWindow(ctx, schedule, now)
		case isDue(schedule, now):
			e.admitAndDispatch(ctx, schedule)
		}
	}
}

func (e *Engine) completeWindow(ctx context.Context, schedule *Schedule, now time.Time) {
	if err := e.repo.UpdateScheduleStatus(ctx, schedule.ID, ScheduleStatusCompleted, now); err != nil {
		e.logger.Error("complete window schedule", "schedule_id", schedule.ID, "err", err)
		return
	}
	e.logger.Info("window schedule completed", "schedule_id", schedule.ID)
}

func (e *Engine) admitAndDispatch(ctx context.Context, schedule *Schedule) {
	if !e.registry.TryAdmit(schedule.ID) {
		// Already in flight; next tick will re-evaluate.
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.registry.Release(schedule.ID)
		e.executor.Execute(ctx, schedule)
	}()
	e.logger.Info("dispatched schedule", "schedule_id", schedule.ID)
}

// isExpired reports whether a window schedule has run past its deadline
// (spec §4.1, "expired(S)").
func isExpired(s *Schedule, now time.Time) bool {
	return s.Type == ScheduleTypeWindow && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// isDue reports whether a schedule should fire at now (spec §4.1,
// "due(S)" and GLOSSARY "Due").
func isDue(s *Schedule, now time.Time) bool {
	if isExpired(s, now) {
		return false
	}
	if s.LastRunAt == nil {
		return true
	}
	next := s.LastRunAt.Add(time.Duration(s.IntervalSeconds) * time.Second)
	return !now.Before(next)
}
