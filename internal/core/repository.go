package core

import (
	"context"
	"time"
)

// RunFilter narrows a Run listing query. Zero values mean "no filter".
type RunFilter struct {
	ScheduleID *string
	Status     *RunStatus
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// RunWithAttempts pairs a Run with its Attempts in ascending
// attempt_number order.
type RunWithAttempts struct {
	Run      *Run
	Attempts []*Attempt
}

// ScheduleMetrics is the per-schedule slice of a MetricsSnapshot.
type ScheduleMetrics struct {
	ScheduleID   string
	TotalRuns    int
	SuccessCount int
	FailureCount int
	AvgLatencyMs *float64
	LastRunAt    *time.Time
}

// MetricsSnapshot is the full aggregate returned by GET /metrics.
type MetricsSnapshot struct {
	TotalSchedules  int
	ActiveSchedules int
	PausedSchedules int
	TotalRuns       int
	TotalSuccess    int
	TotalFailures   int
	AvgLatencyMs    *float64
	Schedules       []ScheduleMetrics
}

// Repository is the persistence interface the core depends on. All
// multi-row mutations are expected to run in a single transaction on the
// implementation side (see internal/store).
type Repository interface {
	// Targets
	CreateTarget(ctx context.Context, t *Target) error
	GetTarget(ctx context.Context, id string) (*Target, error)
	ListTargets(ctx context.Context) ([]*Target, error)
	UpdateTarget(ctx context.Context, t *Target) error
	DeleteTarget(ctx context.Context, id string) error

	// Schedules
	CreateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context) ([]*Schedule, error)
	ListActiveSchedules(ctx context.Context) ([]*Schedule, error)
	UpdateScheduleStatus(ctx context.Context, id string, status ScheduleStatus, now time.Time) error
	UpdateScheduleLastRun(ctx context.Context, id string, lastRunAt time.Time) error
	DeleteSchedule(ctx context.Context, id string) error

	// Runs
	CreateRunAndMarkSchedule(ctx context.Context, run *Run, scheduleID string, startedAt time.Time) error
	GetRunWithAttempts(ctx context.Context, id string) (*RunWithAttempts, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	FinalizeRun(ctx context.Context, id string, status RunStatus, completedAt time.Time) error
	MarkOrphansOnStartup(ctx context.Context, now time.Time) (int, error)

	// Attempts
	AppendAttempt(ctx context.Context, a *Attempt) error

	// Metrics
	Aggregate(ctx context.Context) (*MetricsSnapshot, error)
}
