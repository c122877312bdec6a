package store

import (
	"context"
	"testing"
	"time"

	"github.com/Vsjangal/httpsched/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.DB.Close() })
	return s
}

func TestTargetCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	target := &core.Target{
		ID: core.NewID(), Name: "webhook", URL: "https://example.com/hook", Method: "POST",
		Headers: map[string]string{"X-Key": "abc"}, BodyTemplate: map[string]any{"a": float64(1)},
	}
	if err := s.CreateTarget(ctx, target); err != nil {
		t.Fatalf("create target: %v", err)
	}

	got, err := s.GetTarget(ctx, target.ID)
	if err != nil {
		t.Fatalf("get target: %v", err)
	}
	if got.Name != "webhook" || got.Headers["X-Key"] != "abc" {
		t.Fatalf("unexpected target round-trip: %+v", got)
	}

	list, err := s.ListTargets(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 target, got %d (%v)", len(list), err)
	}

	got.Name = "renamed"
	if err := s.UpdateTarget(ctx, got); err != nil {
		t.Fatalf("update target: %v", err)
	}
	reread, err := s.GetTarget(ctx, target.ID)
	if err != nil || reread.Name != "renamed" {
		t.Fatalf("expected updated name, got %+v (%v)", reread, err)
	}

	if err := s.DeleteTarget(ctx, target.ID); err != nil {
		t.Fatalf("delete target: %v", err)
	}
	if _, err := s.GetTarget(ctx, target.ID); err != ErrTargetNotFound {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestUpdateTargetNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateTarget(context.Background(), &core.Target{ID: "missing", Name: "x", URL: "https://x", Method: "GET"})
	if err != ErrTargetNotFound {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func seedTargetAndSchedule(t *testing.T, s *Store, schedType core.ScheduleType, duration *int) (*core.Target, *core.Schedule) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	target := &core.Target{ID: core.NewID(), Name: "t", URL: "https://example.com", Method: "GET"}
	if err := s.CreateTarget(ctx, target); err != nil {
		t.Fatalf("create target: %v", err)
	}
	schedule := &core.Schedule{
		ID: core.NewID(), TargetID: target.ID, Type: schedType, IntervalSeconds: 60,
		DurationSeconds: duration, Status: core.ScheduleStatusActive, StartedAt: now,
		MaxRetries: 1, RequestTimeoutSeconds: 5,
	}
	if schedType == core.ScheduleTypeWindow {
		expires := now.Add(time.Hour)
		schedule.ExpiresAt = &expires
	}
	if err := s.CreateSchedule(ctx, schedule); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return target, schedule
}

func TestCreateRunAndMarkScheduleTransactional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, schedule := seedTargetAndSchedule(t, s, core.ScheduleTypeInterval, nil)

	startedAt := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	run := &core.Run{ID: core.NewID(), ScheduleID: schedule.ID, Status: core.RunStatusPending, StartedAt: startedAt}
	if err := s.CreateRunAndMarkSchedule(ctx, run, schedule.ID, startedAt); err != nil {
		t.Fatalf("create run: %v", err)
	}

	got, err := s.GetSchedule(ctx, schedule.ID)
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(startedAt) {
		t.Fatalf("expected last_run_at to be stamped by the same transaction, got %v", got.LastRunAt)
	}

	if err := s.CreateRunAndMarkSchedule(ctx, &core.Run{ID: core.NewID(), Status: core.RunStatusPending, StartedAt: startedAt}, "does-not-exist", startedAt); err != ErrScheduleNotFound {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestAppendAttemptAndFinalizeRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, schedule := seedTargetAndSchedule(t, s, core.ScheduleTypeInterval, nil)

	startedAt := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	run := &core.Run{ID: core.NewID(), ScheduleID: schedule.ID, Status: core.RunStatusPending, StartedAt: startedAt}
	if err := s.CreateRunAndMarkSchedule(ctx, run, schedule.ID, startedAt); err != nil {
		t.Fatalf("create run: %v", err)
	}

	errMsg := "HTTP 503"
	attempt1 := &core.Attempt{
		ID: core.NewID(), RunID: run.ID, AttemptNumber: 1, ErrorType: core.ErrorTypeHTTP5xx,
		ErrorMessage: &errMsg, LatencyMs: 12.5, ResponseSizeBytes: 0,
		StartedAt: startedAt, CompletedAt: startedAt.Add(time.Second),
	}
	if err := s.AppendAttempt(ctx, attempt1); err != nil {
		t.Fatalf("append attempt: %v", err)
	}
	code := 200
	attempt2 := &core.Attempt{
		ID: core.NewID(), RunID: run.ID, AttemptNumber: 2, StatusCode: &code,
		LatencyMs: 8.0, ResponseSizeBytes: 32,
		StartedAt: startedAt.Add(2 * time.Second), CompletedAt: startedAt.Add(3 * time.Second),
	}
	if err := s.AppendAttempt(ctx, attempt2); err != nil {
		t.Fatalf("append attempt: %v", err)
	}

	completedAt := startedAt.Add(4 * time.Second)
	if err := s.FinalizeRun(ctx, run.ID, core.RunStatusSuccess, completedAt); err != nil {
		t.Fatalf("finalize run: %v", err)
	}

	got, err := s.GetRunWithAttempts(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run with attempts: %v", err)
	}
	if got.Run.Status != core.RunStatusSuccess {
		t.Fatalf("expected success status, got %q", got.Run.Status)
	}
	if len(got.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got.Attempts))
	}
	if got.Attempts[0].AttemptNumber != 1 || got.Attempts[1].AttemptNumber != 2 {
		t.Fatalf("expected attempts in ascending order, got %d then %d", got.Attempts[0].AttemptNumber, got.Attempts[1].AttemptNumber)
	}
	if !got.Attempts[1].IsSuccess() {
		t.Fatalf("expected second attempt to be a success")
	}
}

func TestListRunsFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, schedule := seedTargetAndSchedule(t, s, core.ScheduleTypeInterval, nil)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		startedAt := base.Add(time.Duration(i) * time.Minute)
		run := &core.Run{ID: core.NewID(), ScheduleID: schedule.ID, Status: core.RunStatusPending, StartedAt: startedAt}
		if err := s.CreateRunAndMarkSchedule(ctx, run, schedule.ID, startedAt); err != nil {
			t.Fatalf("create run %d: %v", i, err)
		}
		status := core.RunStatusSuccess
		if i == 1 {
			status = core.RunStatusFailed
		}
		if err := s.FinalizeRun(ctx, run.ID, status, startedAt.Add(time.Second)); err != nil {
			t.Fatalf("finalize run %d: %v", i, err)
		}
	}

	all, err := s.ListRuns(ctx, core.RunFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d (%v)", len(all), err)
	}

	failedStatus := core.RunStatusFailed
	failed, err := s.ListRuns(ctx, core.RunFilter{Status: &failedStatus})
	if err != nil || len(failed) != 1 {
		t.Fatalf("expected 1 failed run, got %d (%v)", len(failed), err)
	}

	scheduleFiltered, err := s.ListRuns(ctx, core.RunFilter{ScheduleID: &schedule.ID, Limit: 2})
	if err != nil || len(scheduleFiltered) != 2 {
		t.Fatalf("expected limit=2 to cap results, got %d (%v)", len(scheduleFiltered), err)
	}
}

func TestMarkOrphansOnStartupIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, schedule := seedTargetAndSchedule(t, s, core.ScheduleTypeInterval, nil)

	startedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &core.Run{ID: core.NewID(), ScheduleID: schedule.ID, Status: core.RunStatusPending, StartedAt: startedAt}
	if err := s.CreateRunAndMarkSchedule(ctx, run, schedule.ID, startedAt); err != nil {
		t.Fatalf("create run: %v", err)
	}

	now := startedAt.Add(time.Hour)
	count, err := s.MarkOrphansOnStartup(ctx, now)
	if err != nil {
		t.Fatalf("mark orphans: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 orphan recovered, got %d", count)
	}

	got, err := s.GetRunWithAttempts(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Run.Status != core.RunStatusFailed {
		t.Fatalf("expected failed status, got %q", got.Run.Status)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].ErrorMessage == nil || *got.Attempts[0].ErrorMessage != "interrupted" {
		t.Fatalf("expected one synthetic 'interrupted' attempt, got %+v", got.Attempts)
	}

	count, err = s.MarkOrphansOnStartup(ctx, now)
	if err != nil {
		t.Fatalf("second mark orphans: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected idempotent sweep, got %d", count)
	}
}

func TestPauseKeepsWindowExpiryAndLeavesActiveList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	duration := 3600
	_, schedule := seedTargetAndSchedule(t, s, core.ScheduleTypeWindow, &duration)

	now := schedule.StartedAt.Add(time.Minute)
	if err := s.UpdateScheduleStatus(ctx, schedule.ID, core.ScheduleStatusPaused, now); err != nil {
		t.Fatalf("pause: %v", err)
	}
	got, err := s.GetSchedule(ctx, schedule.ID)
	if err != nil || got.Status != core.ScheduleStatusPaused {
		t.Fatalf("expected paused, got %+v (%v)", got, err)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(*schedule.ExpiresAt) {
		t.Fatalf("expected expires_at to remain %v, got %v", schedule.ExpiresAt, got.ExpiresAt)
	}

	active, err := s.ListActiveSchedules(ctx)
	if err != nil || len(active) != 0 {
		t.Fatalf("expected no active schedules while paused, got %d (%v)", len(active), err)
	}
}

func TestAggregateMetrics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, schedule := seedTargetAndSchedule(t, s, core.ScheduleTypeInterval, nil)

	startedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &core.Run{ID: core.NewID(), ScheduleID: schedule.ID, Status: core.RunStatusPending, StartedAt: startedAt}
	if err := s.CreateRunAndMarkSchedule(ctx, run, schedule.ID, startedAt); err != nil {
		t.Fatalf("create run: %v", err)
	}
	code := 200
	if err := s.AppendAttempt(ctx, &core.Attempt{
		ID: core.NewID(), RunID: run.ID, AttemptNumber: 1, StatusCode: &code,
		LatencyMs: 10, StartedAt: startedAt, CompletedAt: startedAt.Add(time.Second),
	}); err != nil {
		t.Fatalf("append attempt: %v", err)
	}
	if err := s.FinalizeRun(ctx, run.ID, core.RunStatusSuccess, startedAt.Add(time.Second)); err != nil {
		t.Fatalf("finalize run: %v", err)
	}

	snap, err := s.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if snap.TotalSchedules != 1 || snap.ActiveSchedules != 1 {
		t.Fatalf("unexpected schedule totals: %+v", snap)
	}
	if snap.TotalRuns != 1 || snap.TotalSuccess != 1 {
		t.Fatalf("unexpected run totals: %+v", snap)
	}
	if len(snap.Schedules) != 1 || snap.Schedules[0].TotalRuns != 1 {
		t.Fatalf("unexpected per-schedule metrics: %+v", snap.Schedules)
	}
}

func TestDeleteTargetCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	target, schedule := seedTargetAndSchedule(t, s, core.ScheduleTypeInterval, nil)

	startedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &core.Run{ID: core.NewID(), ScheduleID: schedule.ID, Status: core.RunStatusPending, StartedAt: startedAt}
	if err := s.CreateRunAndMarkSchedule(ctx, run, schedule.ID, startedAt); err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := s.DeleteTarget(ctx, target.ID); err != nil {
		t.Fatalf("delete target: %v", err)
	}
	if _, err := s.GetSchedule(ctx, schedule.ID); err != ErrScheduleNotFound {
		t.Fatalf("expected cascaded schedule delete, got %v", err)
	}
	if _, err := s.GetRunWithAttempts(ctx, run.ID); err != ErrRunNotFound {
		t.Fatalf("expected cascaded run delete, got %v", err)
	}
}
