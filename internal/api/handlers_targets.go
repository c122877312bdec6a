package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vsjangal/httpsched/internal/core"
)

type targetResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyTemplate map[string]any    `json:"body_template,omitempty"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

func targetToResponse(t *core.Target) targetResponse {
	return targetResponse{
		ID:           t.ID,
		Name:         t.Name,
		URL:          t.URL,
		Method:       t.Method,
		Headers:      t.Headers,
		BodyTemplate: t.BodyTemplate,
		CreatedAt:    formatTimeVal(t.CreatedAt),
		UpdatedAt:    formatTimeVal(t.UpdatedAt),
	}
}

type createTargetRequest struct {
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyTemplate map[string]any    `json:"body_template,omitempty"`
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, []string{"invalid JSON payload"})
		return
	}

	target, err := s.control.CreateTarget(r.Context(), req.Name, req.URL, req.Method, req.Headers, req.BodyTemplate)
	if err != nil {
		s.writeControlError(w, "create target", err)
		return
	}
	writeJSON(w, http.StatusCreated, targetToResponse(target))
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.repo.ListTargets(r.Context())
	if err != nil {
		s.logger.Error("list targets", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list targets")
		return
	}
	resp := make([]targetResponse, 0, len(targets))
	for _, t := range targets {
		resp = append(resp, targetToResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "targetID")
	target, err := s.repo.GetTarget(r.Context(), id)
	if err != nil {
		s.writeControlError(w, "get target", err)
		return
	}
	writeJSON(w, http.StatusOK, targetToResponse(target))
}

type updateTargetRequest struct {
	Name         *string           `json:"name"`
	URL          *string           `json:"url"`
	Method       *string           `json:"method"`
	Headers      map[string]string `json:"headers"`
	HeadersSet   bool              `json:"-"`
	BodyTemplate map[string]any    `json:"body_template"`
	BodySet      bool              `json:"-"`
}

func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "targetID")

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeValidationError(w, []string{"invalid JSON payload"})
		return
	}
	var req updateTargetRequest
	for k, v := range raw {
		switch k {
		case "name":
			_ = json.Unmarshal(v, &req.Name)
		case "url":
			_ = json.Unmarshal(v, &req.URL)
		case "method":
			_ = json.Unmarshal(v, &req.Method)
		case "headers":
			req.HeadersSet = true
			_ = json.Unmarshal(v, &req.Headers)
		case "body_template":
			req.BodySet = true
			_ = json.Unmarshal(v, &req.BodyTemplate)
		}
	}

	target, err := s.control.UpdateTarget(r.Context(), id, req.Name, req.URL, req.Method, req.Headers, req.BodyTemplate, req.HeadersSet, req.BodySet)
	if err != nil {
		s.writeControlError(w, "update target", err)
		return
	}
	writeJSON(w, http.StatusOK, targetToResponse(target))
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "targetID")
	if err := s.control.DeleteTarget(r.Context(), id); err != nil {
		s.writeControlError(w, "delete target", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeControlError maps a core/store error to the matching status code
// from spec §6/§7, using errors.Is rather than string matching.
func (s *Server) writeControlError(w http.ResponseWriter, action string, err error) {
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(action, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
