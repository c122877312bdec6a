package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Vsjangal/httpsched/internal/core"
)

// AppendAttempt inserts one Attempt row. attempt_number is supplied by the
// Run Executor, which is the sole owner of a Run's attempt sequence (spec
// §5: "attempts within a run are strictly sequential").
func (s *Store) AppendAttempt(ctx context.Context, a *core.Attempt) error {
	a.CreatedAt = a.CompletedAt

	errType := string(a.ErrorType)
	var errTypeVal any
	if errType != "" {
		errTypeVal = errType
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO attempts (
			id, run_id, attempt_number, status_code, latency_ms, response_size_bytes,
			error_type, error_message, started_at, completed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.RunID, a.AttemptNumber, nullableInt(a.StatusCode), a.LatencyMs, a.ResponseSizeBytes,
		errTypeVal, nullableStr(a.ErrorMessage), formatTime(a.StartedAt), formatTime(a.CompletedAt), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func nullableStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (*core.Attempt, error) {
	var (
		id, runID              string
		attemptNumber          int
		statusCode             sql.NullInt64
		latencyMs              float64
		responseSizeBytes      int
		errType, errMsg        sql.NullString
		startedAt, completedAt string
		createdAt              string
	)
	if err := scanner.Scan(&id, &runID, &attemptNumber, &statusCode, &latencyMs, &responseSizeBytes,
		&errType, &errMsg, &startedAt, &completedAt, &createdAt); err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}
	et := core.ErrorTypeNone
	if errType.Valid {
		et = core.ErrorType(errType.String)
	}
	return &core.Attempt{
		ID:                id,
		RunID:             runID,
		AttemptNumber:     attemptNumber,
		StatusCode:        scanNullInt(statusCode),
		LatencyMs:         latencyMs,
		ResponseSizeBytes: responseSizeBytes,
		ErrorType:         et,
		ErrorMessage:      scanNullString(errMsg),
		StartedAt:         mustParseTime(startedAt),
		CompletedAt:       mustParseTime(completedAt),
		CreatedAt:         mustParseTime(createdAt),
	}, nil
}
