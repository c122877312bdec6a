package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vsjangal/httpsched/internal/core"
)

// CreateRunAndMarkSchedule opens a Run and stamps the owning Schedule's
// last_run_at in one transaction (spec §4.3 step 1). Both writes must land
// together: if the last_run_at update were visible without the Run, the
// next tick could conclude the schedule already ran when no Run exists to
// show it.
func (s *Store) CreateRunAndMarkSchedule(ctx context.Context, run *core.Run, scheduleID string, startedAt time.Time) error {
	run.CreatedAt = startedAt
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE schedules SET last_run_at = ?, updated_at = ? WHERE id = ?
		`, formatTime(startedAt), formatTime(startedAt), scheduleID)
		if err != nil {
			return fmt.Errorf("update schedule last_run_at: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if err := wrapNotFound(ErrScheduleNotFound, rows); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, schedule_id, status, started_at, completed_at, created_at)
			VALUES (?, ?, ?, ?, NULL, ?)
		`, run.ID, scheduleID, string(core.RunStatusPending), formatTime(startedAt), formatTime(run.CreatedAt)); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// FinalizeRun closes a Run with its terminal status (spec §4.3 step 3).
func (s *Store) FinalizeRun(ctx context.Context, id string, status core.RunStatus, completedAt time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE runs SET status = ?, completed_at = ? WHERE id = ?
	`, string(status), formatTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	return wrapNotFound(ErrRunNotFound, rows)
}

// MarkOrphansOnStartup rewrites every pending Run as failed (spec §4.1,
// crash recovery) and, for each such Run that has no attempts yet, records
// one synthetic attempt with error_type unknown and message "interrupted".
// A recovered Run that already has attempts gets no extra attempt. It
// returns the number of runs recovered and is idempotent: a second call
// affects zero rows.
func (s *Store) MarkOrphansOnStartup(ctx context.Context, now time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE runs SET status = ?, completed_at = ? WHERE status = ?
	`, string(core.RunStatusFailed), formatTime(now), string(core.RunStatusPending))
	if err != nil {
		return 0, fmt.Errorf("mark orphaned runs: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, nil
	}

	message := "interrupted"
	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO attempts (id, run_id, attempt_number, status_code, latency_ms, response_size_bytes, error_type, error_message, started_at, completed_at, created_at)
		SELECT
			lower(hex(randomblob(16))),
			r.id,
			COALESCE((SELECT MAX(a.attempt_number) FROM attempts a WHERE a.run_id = r.id), 0) + 1,
			NULL, 0, 0, ?, ?, ?, ?, ?
		FROM runs r
		WHERE r.status = ? AND r.completed_at = ?
		  AND NOT EXISTS (SELECT 1 FROM attempts a WHERE a.run_id = r.id)
	`, string(core.ErrorTypeUnknown), message, formatTime(now), formatTime(now), formatTime(now),
		string(core.RunStatusFailed), formatTime(now)); err != nil {
		return 0, fmt.Errorf("record orphan attempts: %w", err)
	}

	return int(rows), nil
}

// GetRunWithAttempts fetches a Run and its Attempts in ascending
// attempt_number order.
func (s *Store) GetRunWithAttempts(ctx context.Context, id string) (*core.RunWithAttempts, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, schedule_id, status, started_at, completed_at, created_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, run_id, attempt_number, status_code, latency_ms, response_size_bytes, error_type, error_message, started_at, completed_at, created_at
		FROM attempts WHERE run_id = ? ORDER BY attempt_number ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*core.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &core.RunWithAttempts{Run: run, Attempts: attempts}, nil
}

// ListRuns applies the filters from spec §6 (GET /runs): optional
// schedule_id, status, start_time/end_time bounds on started_at, and a
// limit/offset page.
func (s *Store) ListRuns(ctx context.Context, filter core.RunFilter) ([]*core.Run, error) {
	var clauses []string
	var args []any

	if filter.ScheduleID != nil {
		clauses = append(clauses, "schedule_id = ?")
		args = append(args, *filter.ScheduleID)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.StartTime != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, formatTime(*filter.StartTime))
	}
	if filter.EndTime != nil {
		clauses = append(clauses, "started_at <= ?")
		args = append(args, formatTime(*filter.EndTime))
	}

	query := `SELECT id, schedule_id, status, started_at, completed_at, created_at FROM runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*core.Run, error) {
	var (
		id, scheduleID, status string
		startedAt              string
		completedAt            sql.NullString
		createdAt              string
	)
	if err := scanner.Scan(&id, &scheduleID, &status, &startedAt, &completedAt, &createdAt); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	completed, err := scanNullTime(completedAt)
	if err != nil {
		return nil, err
	}
	return &core.Run{
		ID:          id,
		ScheduleID:  scheduleID,
		Status:      core.RunStatus(status),
		StartedAt:   mustParseTime(startedAt),
		CompletedAt: completed,
		CreatedAt:   mustParseTime(createdAt),
	}, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
