package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Vsjangal/httpsched/internal/core"
)

// Aggregate computes the GET /metrics snapshot: schedule-status totals,
// run outcome totals, overall average latency, and a per-schedule
// breakdown (spec §6).
func (s *Store) Aggregate(ctx context.Context) (*core.MetricsSnapshot, error) {
	snap := &core.MetricsSnapshot{}

	scheduleRows, err := s.DB.QueryContext(ctx, `
		SELECT status, COUNT(1) FROM schedules GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregate schedule counts: %w", err)
	}
	for scheduleRows.Next() {
		var status string
		var count int
		if err := scheduleRows.Scan(&status, &count); err != nil {
			scheduleRows.Close()
			return nil, fmt.Errorf("scan schedule count: %w", err)
		}
		snap.TotalSchedules += count
		switch core.ScheduleStatus(status) {
		case core.ScheduleStatusActive:
			snap.ActiveSchedules = count
		case core.ScheduleStatusPaused:
			snap.PausedSchedules = count
		}
	}
	if err := scheduleRows.Err(); err != nil {
		scheduleRows.Close()
		return nil, err
	}
	scheduleRows.Close()

	var totalRuns, successCount, failureCount int
	var avgLatency sql.NullFloat64
	err = s.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(1),
			COALESCE(SUM(CASE WHEN r.status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.status = 'failed' THEN 1 ELSE 0 END), 0),
			(SELECT AVG(a.latency_ms) FROM attempts a)
		FROM runs r
	`).Scan(&totalRuns, &successCount, &failureCount, &avgLatency)
	if err != nil {
		return nil, fmt.Errorf("aggregate run totals: %w", err)
	}
	snap.TotalRuns = totalRuns
	snap.TotalSuccess = successCount
	snap.TotalFailures = failureCount
	if avgLatency.Valid {
		v := avgLatency.Float64
		snap.AvgLatencyMs = &v
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT
			sch.id,
			COUNT(r.id) AS total_runs,
			SUM(CASE WHEN r.status = 'success' THEN 1 ELSE 0 END) AS success_count,
			SUM(CASE WHEN r.status = 'failed' THEN 1 ELSE 0 END) AS failure_count,
			(SELECT AVG(a.latency_ms) FROM attempts a JOIN runs r2 ON a.run_id = r2.id WHERE r2.schedule_id = sch.id) AS avg_latency_ms,
			sch.last_run_at
		FROM schedules sch
		LEFT JOIN runs r ON r.schedule_id = sch.id
		GROUP BY sch.id
		ORDER BY sch.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregate per-schedule metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			scheduleID               string
			total, success, failure int
			avg                      sql.NullFloat64
			lastRunAt                sql.NullString
		)
		if err := rows.Scan(&scheduleID, &total, &success, &failure, &avg, &lastRunAt); err != nil {
			return nil, fmt.Errorf("scan schedule metrics: %w", err)
		}
		m := core.ScheduleMetrics{
			ScheduleID:   scheduleID,
			TotalRuns:    total,
			SuccessCount: success,
			FailureCount: failure,
		}
		if avg.Valid {
			v := avg.Float64
			m.AvgLatencyMs = &v
		}
		lastRun, err := scanNullTime(lastRunAt)
		if err != nil {
			return nil, err
		}
		m.LastRunAt = lastRun
		snap.Schedules = append(snap.Schedules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}
