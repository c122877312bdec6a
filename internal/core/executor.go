package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Vsjangal/httpsched/internal/clock"
)

// RunExecutor drives the per-run state machine described in spec §4.3:
// open a Run, attempt the dispatch up to 1+max_retries times, and close the
// Run. Admission to and release from the Registry are done by the caller
// (see Execute).
type RunExecutor struct {
	repo       Repository
	dispatcher *Dispatcher
	clock      clock.Clock
	logger     *slog.Logger
}

// NewRunExecutor constructs a RunExecutor.
func NewRunExecutor(repo Repository, dispatcher *Dispatcher, c clock.Clock, logger *slog.Logger) *RunExecutor {
	return &RunExecutor{repo: repo, dispatcher: dispatcher, clock: c, logger: logger}
}

// Execute runs the full per-schedule state machine for one admitted
// schedule. The caller (the Engine's tick loop) is responsible for
// admitting to and releasing from the Registry around this call.
func (e *RunExecutor) Execute(ctx context.Context, schedule *Schedule) {
	now := e.clock.Now()
	run := &Run{
		ID:         NewID(),
		ScheduleID: schedule.ID,
		Status:     RunStatusPending,
		StartedAt:  now,
	}
	// Persist with a detached context: even if the engine is mid-shutdown
	// and ctx is canceled, the open/close bookkeeping for a run that has
	// already started must still land (spec §5, "partial attempts are
	// persisted as they were observed").
	persistCtx := detach(ctx)
	if err := e.repo.CreateRunAndMarkSchedule(persistCtx, run, schedule.ID, now); err != nil {
		e.logger.Error("open run", "schedule_id", schedule.ID, "err", err)
		return
	}

	finalStatus := e.runAttempts(ctx, persistCtx, schedule, run)

	completedAt := e.clock.Now()
	if err := e.repo.FinalizeRun(persistCtx, run.ID, finalStatus, completedAt); err != nil {
		e.logger.Error("finalize run", "run_id", run.ID, "err", err)
	}
}

// runAttempts performs the attempt loop and returns the Run's final
// status. It never returns an error: persistence failures are logged and
// the run is treated as failed, matching the tick loop's infallibility
// requirement (spec §7). dispatchCtx bounds the outbound HTTP calls (and
// is what carries shutdown cancellation); persistCtx is used for writes
// so they survive that cancellation.
func (e *RunExecutor) runAttempts(dispatchCtx, persistCtx context.Context, schedule *Schedule, run *Run) RunStatus {
	maxAttempts := 1 + schedule.MaxRetries

	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		target, err := e.repo.GetTarget(persistCtx, schedule.TargetID)
		if err != nil {
			e.recordSyntheticFailure(persistCtx, run, attemptNum, err)
			return RunStatusFailed
		}

		outcome := e.dispatcher.Dispatch(dispatchCtx, target, schedule.RequestTimeoutSeconds)
		attempt := &Attempt{
			ID:                NewID(),
			RunID:             run.ID,
			AttemptNumber:     attemptNum,
			StatusCode:        outcome.StatusCode,
			LatencyMs:         outcome.LatencyMs,
			ResponseSizeBytes: outcome.ResponseSizeBytes,
			ErrorType:         outcome.ErrorType,
			ErrorMessage:      outcome.ErrorMessage,
			StartedAt:         outcome.StartedAt,
			CompletedAt:       outcome.CompletedAt,
		}
		if err := e.repo.AppendAttempt(persistCtx, attempt); err != nil {
			e.logger.Error("append attempt", "run_id", run.ID, "attempt", attemptNum, "err", err)
			return RunStatusFailed
		}

		if attempt.IsSuccess() {
			return RunStatusSuccess
		}

		if dispatchCtx.Err() != nil {
			// Engine shutdown canceled the in-flight request; the attempt
			// above already recorded it (error_type=unknown,
			// error_message="canceled"). Don't start another attempt.
			return RunStatusFailed
		}
	}
	return RunStatusFailed
}

// recordSyntheticFailure records a single synthetic Attempt when the
// Target backing a Schedule was deleted out from under an in-flight Run
// (spec §4.3: "cascaded delete racing with dispatch").
func (e *RunExecutor) recordSyntheticFailure(ctx context.Context, run *Run, attemptNum int, cause error) {
	now := e.clock.Now()
	message := ErrTargetMissing.Error()
	if !errors.Is(cause, ErrTargetMissing) {
		message = fmt.Sprintf("%s: %v", ErrTargetMissing.Error(), cause)
	}
	attempt := &Attempt{
		ID:            NewID(),
		RunID:         run.ID,
		AttemptNumber: attemptNum,
		ErrorType:     ErrorTypeUnknown,
		ErrorMessage:  &message,
		StartedAt:     now,
		CompletedAt:   now,
	}
	if err := e.repo.AppendAttempt(ctx, attempt); err != nil {
		e.logger.Error("append synthetic attempt", "run_id", run.ID, "err", err)
	}
}

// detach returns a context with the same values as ctx but no deadline or
// cancellation, so a write started before shutdown still completes.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
