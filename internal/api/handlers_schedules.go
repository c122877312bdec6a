package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vsjangal/httpsched/internal/core"
)

type scheduleResponse struct {
	ID                    string  `json:"id"`
	TargetID              string  `json:"target_id"`
	Type                  string  `json:"type"`
	IntervalSeconds       int     `json:"interval_seconds"`
	DurationSeconds       *int    `json:"duration_seconds,omitempty"`
	Status                string  `json:"status"`
	StartedAt             string  `json:"started_at"`
	ExpiresAt             *string `json:"expires_at,omitempty"`
	LastRunAt             *string `json:"last_run_at,omitempty"`
	MaxRetries            int     `json:"max_retries"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds"`
	CreatedAt             string  `json:"created_at"`
	UpdatedAt             string  `json:"updated_at"`
}

func scheduleToResponse(sc *core.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:                    sc.ID,
		TargetID:              sc.TargetID,
		Type:                  string(sc.Type),
		IntervalSeconds:       sc.IntervalSeconds,
		DurationSeconds:       sc.DurationSeconds,
		Status:                string(sc.Status),
		StartedAt:             formatTimeVal(sc.StartedAt),
		ExpiresAt:             formatTimePtr(sc.ExpiresAt),
		LastRunAt:             formatTimePtr(sc.LastRunAt),
		MaxRetries:            sc.MaxRetries,
		RequestTimeoutSeconds: sc.RequestTimeoutSeconds,
		CreatedAt:             formatTimeVal(sc.CreatedAt),
		UpdatedAt:             formatTimeVal(sc.UpdatedAt),
	}
}

type createScheduleRequest struct {
	TargetID              string `json:"target_id"`
	Type                  string `json:"type"`
	IntervalSeconds       int    `json:"interval_seconds"`
	DurationSeconds       *int   `json:"duration_seconds"`
	MaxRetries            int    `json:"max_retries"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, []string{"invalid JSON payload"})
		return
	}

	timeout := req.RequestTimeoutSeconds
	if timeout == 0 {
		timeout = 30
	}
	in := core.ScheduleInput{
		TargetID:              req.TargetID,
		Type:                  core.ScheduleType(req.Type),
		IntervalSeconds:       req.IntervalSeconds,
		DurationSeconds:       req.DurationSeconds,
		MaxRetries:            req.MaxRetries,
		RequestTimeoutSeconds: timeout,
	}

	schedule, err := s.control.CreateSchedule(r.Context(), in)
	if err != nil {
		s.writeControlError(w, "create schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, scheduleToResponse(schedule))
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.repo.ListSchedules(r.Context())
	if err != nil {
		s.logger.Error("list schedules", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	resp := make([]scheduleResponse, 0, len(schedules))
	for _, sc := range schedules {
		resp = append(resp, scheduleToResponse(sc))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	schedule, err := s.repo.GetSchedule(r.Context(), id)
	if err != nil {
		s.writeControlError(w, "get schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToResponse(schedule))
}

func (s *Server) handlePauseSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	schedule, err := s.control.PauseSchedule(r.Context(), id)
	if err != nil {
		s.writeControlError(w, "pause schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToResponse(schedule))
}

func (s *Server) handleResumeSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	schedule, err := s.control.ResumeSchedule(r.Context(), id)
	if err != nil {
		s.writeControlError(w, "resume schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToResponse(schedule))
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	if err := s.control.DeleteSchedule(r.Context(), id); err != nil {
		s.writeControlError(w, "delete schedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
