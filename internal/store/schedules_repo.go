package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vsjangal/httpsched/internal/core"
)

// CreateSchedule inserts a new Schedule row, stamping created_at/updated_at
// to its started_at instant.
func (s *Store) CreateSchedule(ctx context.Context, sc *core.Schedule) error {
	sc.CreatedAt = sc.StartedAt
	sc.UpdatedAt = sc.StartedAt

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO schedules (
			id, target_id, type, interval_seconds, duration_seconds, status,
			started_at, expires_at, last_run_at, max_retries, request_timeout_seconds,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sc.ID, sc.TargetID, string(sc.Type), sc.IntervalSeconds, nullableInt(sc.DurationSeconds), string(sc.Status),
		formatTime(sc.StartedAt), nullableTime(sc.ExpiresAt), nullableTime(sc.LastRunAt),
		sc.MaxRetries, sc.RequestTimeoutSeconds, formatTime(sc.CreatedAt), formatTime(sc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetSchedule fetches a Schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id string) (*core.Schedule, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, target_id, type, interval_seconds, duration_seconds, status,
		       started_at, expires_at, last_run_at, max_retries, request_timeout_seconds,
		       created_at, updated_at
		FROM schedules WHERE id = ?
	`, id)
	sc, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return sc, nil
}

// ListSchedules returns every schedule ordered by most recently created.
func (s *Store) ListSchedules(ctx context.Context) ([]*core.Schedule, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, target_id, type, interval_seconds, duration_seconds, status,
		       started_at, expires_at, last_run_at, max_retries, request_timeout_seconds,
		       created_at, updated_at
		FROM schedules ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*core.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// ListActiveSchedules returns every schedule with status=active, the set
// the tick loop evaluates on each pass (spec §4.1 step 1).
func (s *Store) ListActiveSchedules(ctx context.Context) ([]*core.Schedule, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, target_id, type, interval_seconds, duration_seconds, status,
		       started_at, expires_at, last_run_at, max_retries, request_timeout_seconds,
		       created_at, updated_at
		FROM schedules WHERE status = ?
	`, string(core.ScheduleStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*core.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// UpdateScheduleStatus transitions a schedule's status (used by Pause,
// Resume, and the tick loop's window auto-complete).
func (s *Store) UpdateScheduleStatus(ctx context.Context, id string, status core.ScheduleStatus, now time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE schedules SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	return wrapNotFound(ErrScheduleNotFound, rows)
}

// UpdateScheduleLastRun stamps last_run_at with a Run's start time (spec
// §4.3 step 1: committed before the next tick so a schedule can't be
// admitted twice in rapid succession).
func (s *Store) UpdateScheduleLastRun(ctx context.Context, id string, lastRunAt time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE schedules SET last_run_at = ?, updated_at = ? WHERE id = ?
	`, formatTime(lastRunAt), formatTime(lastRunAt), id)
	if err != nil {
		return fmt.Errorf("update schedule last_run_at: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	return wrapNotFound(ErrScheduleNotFound, rows)
}

// DeleteSchedule removes a Schedule; ON DELETE CASCADE removes its runs and
// attempts.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	return wrapNotFound(ErrScheduleNotFound, rows)
}

func scanSchedule(scanner interface{ Scan(dest ...any) error }) (*core.Schedule, error) {
	var (
		id, targetID, typ, status string
		intervalSeconds           int
		durationSeconds           sql.NullInt64
		startedAt                 string
		expiresAt, lastRunAt      sql.NullString
		maxRetries, timeoutSec    int
		createdAt, updatedAt      string
	)
	if err := scanner.Scan(&id, &targetID, &typ, &intervalSeconds, &durationSeconds, &status,
		&startedAt, &expiresAt, &lastRunAt, &maxRetries, &timeoutSec, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	expires, err := scanNullTime(expiresAt)
	if err != nil {
		return nil, err
	}
	lastRun, err := scanNullTime(lastRunAt)
	if err != nil {
		return nil, err
	}
	sc := &core.Schedule{
		ID:                    id,
		TargetID:              targetID,
		Type:                  core.ScheduleType(typ),
		IntervalSeconds:       intervalSeconds,
		DurationSeconds:       scanNullInt(durationSeconds),
		Status:                core.ScheduleStatus(status),
		StartedAt:             mustParseTime(startedAt),
		ExpiresAt:             expires,
		LastRunAt:             lastRun,
		MaxRetries:            maxRetries,
		RequestTimeoutSeconds: timeoutSec,
		CreatedAt:             mustParseTime(createdAt),
		UpdatedAt:             mustParseTime(updatedAt),
	}
	return sc, nil
}
