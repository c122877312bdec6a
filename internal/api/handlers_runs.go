package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vsjangal/httpsched/internal/core"
)

type runResponse struct {
	ID          string  `json:"id"`
	ScheduleID  string  `json:"schedule_id"`
	Status      string  `json:"status"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func runToResponse(run *core.Run) runResponse {
	return runResponse{
		ID:          run.ID,
		ScheduleID:  run.ScheduleID,
		Status:      string(run.Status),
		StartedAt:   formatTimeVal(run.StartedAt),
		CompletedAt: formatTimePtr(run.CompletedAt),
		CreatedAt:   formatTimeVal(run.CreatedAt),
	}
}

type attemptResponse struct {
	ID                string  `json:"id"`
	RunID             string  `json:"run_id"`
	AttemptNumber     int     `json:"attempt_number"`
	StatusCode        *int    `json:"status_code,omitempty"`
	LatencyMs         float64 `json:"latency_ms"`
	ResponseSizeBytes int     `json:"response_size_bytes"`
	ErrorType         *string `json:"error_type,omitempty"`
	ErrorMessage      *string `json:"error_message,omitempty"`
	StartedAt         string  `json:"started_at"`
	CompletedAt       string  `json:"completed_at"`
	CreatedAt         string  `json:"created_at"`
}

func attemptToResponse(a *core.Attempt) attemptResponse {
	resp := attemptResponse{
		ID:                a.ID,
		RunID:             a.RunID,
		AttemptNumber:     a.AttemptNumber,
		StatusCode:        a.StatusCode,
		LatencyMs:         a.LatencyMs,
		ResponseSizeBytes: a.ResponseSizeBytes,
		ErrorMessage:      a.ErrorMessage,
		StartedAt:         formatTimeVal(a.StartedAt),
		CompletedAt:       formatTimeVal(a.CompletedAt),
		CreatedAt:         formatTimeVal(a.CreatedAt),
	}
	if a.ErrorType != core.ErrorTypeNone {
		et := string(a.ErrorType)
		resp.ErrorType = &et
	}
	return resp
}

type runWithAttemptsResponse struct {
	runResponse
	Attempts []attemptResponse `json:"attempts"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := core.RunFilter{
		Limit:  parseIntDefault(q.Get("limit"), 100),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}
	if filter.Limit < 1 {
		filter.Limit = 1
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if scheduleID := q.Get("schedule_id"); scheduleID != "" {
		filter.ScheduleID = &scheduleID
	}
	if status := q.Get("status"); status != "" {
		st := core.RunStatus(status)
		filter.Status = &st
	}
	if startRaw := q.Get("start_time"); startRaw != "" {
		if t, err := time.Parse(time.RFC3339, startRaw); err == nil {
			filter.StartTime = &t
		} else {
			writeValidationError(w, []string{"start_time must be RFC3339"})
			return
		}
	}
	if endRaw := q.Get("end_time"); endRaw != "" {
		if t, err := time.Parse(time.RFC3339, endRaw); err == nil {
			filter.EndTime = &t
		} else {
			writeValidationError(w, []string{"end_time must be RFC3339"})
			return
		}
	}

	runs, err := s.repo.ListRuns(r.Context(), filter)
	if err != nil {
		s.logger.Error("list runs", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	resp := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, runToResponse(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	withAttempts, err := s.repo.GetRunWithAttempts(r.Context(), id)
	if err != nil {
		s.writeControlError(w, "get run", err)
		return
	}
	attempts := make([]attemptResponse, 0, len(withAttempts.Attempts))
	for _, a := range withAttempts.Attempts {
		attempts = append(attempts, attemptToResponse(a))
	}
	writeJSON(w, http.StatusOK, runWithAttemptsResponse{
		runResponse: runToResponse(withAttempts.Run),
		Attempts:    attempts,
	})
}
