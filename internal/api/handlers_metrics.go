package api

import (
	"net/http"

	"github.com/Vsjangal/httpsched/internal/core"
)

type scheduleMetricsResponse struct {
	ScheduleID   string   `json:"schedule_id"`
	TotalRuns    int      `json:"total_runs"`
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	AvgLatencyMs *float64 `json:"avg_latency_ms,omitempty"`
	LastRunAt    *string  `json:"last_run_at,omitempty"`
}

type metricsResponse struct {
	TotalSchedules  int                       `json:"total_schedules"`
	ActiveSchedules int                       `json:"active_schedules"`
	PausedSchedules int                       `json:"paused_schedules"`
	TotalRuns       int                       `json:"total_runs"`
	TotalSuccess    int                       `json:"total_success"`
	TotalFailures   int                       `json:"total_failures"`
	AvgLatencyMs    *float64                  `json:"avg_latency_ms,omitempty"`
	Schedules       []scheduleMetricsResponse `json:"schedules"`
}

func metricsToResponse(m *core.MetricsSnapshot) metricsResponse {
	resp := metricsResponse{
		TotalSchedules:  m.TotalSchedules,
		ActiveSchedules: m.ActiveSchedules,
		PausedSchedules: m.PausedSchedules,
		TotalRuns:       m.TotalRuns,
		TotalSuccess:    m.TotalSuccess,
		TotalFailures:   m.TotalFailures,
		AvgLatencyMs:    m.AvgLatencyMs,
		Schedules:       make([]scheduleMetricsResponse, 0, len(m.Schedules)),
	}
	for _, sm := range m.Schedules {
		resp.Schedules = append(resp.Schedules, scheduleMetricsResponse{
			ScheduleID:   sm.ScheduleID,
			TotalRuns:    sm.TotalRuns,
			SuccessCount: sm.SuccessCount,
			FailureCount: sm.FailureCount,
			AvgLatencyMs: sm.AvgLatencyMs,
			LastRunAt:    formatTimePtr(sm.LastRunAt),
		})
	}
	return resp
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.repo.Aggregate(r.Context())
	if err != nil {
		s.logger.Error("aggregate metrics", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate metrics")
		return
	}
	writeJSON(w, http.StatusOK, metricsToResponse(snapshot))
}
