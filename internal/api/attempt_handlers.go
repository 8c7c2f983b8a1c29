package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/simulex-engine/internal/attempt"
	"github.com/terra-clan/simulex-engine/internal/dashboard"
	"github.com/terra-clan/simulex-engine/internal/models"
)

// attemptView is an attempt as seen by the client
type attemptView struct {
	Result    *models.Result `json:"result"`
	Task      *models.Task   `json:"task,omitempty"`
	Resumed   bool           `json:"resumed"`
	TimeLimit int            `json:"timeLimit"`
	Remaining int            `json:"remaining"`
	Expired   bool           `json:"expired"`
	Finalized bool           `json:"finalized"`
}

func (s *Server) viewOf(a *attempt.Attempt) attemptView {
	v := attemptView{
		Result:    a.Result,
		Task:      a.Task,
		Resumed:   a.Resumed,
		TimeLimit: a.Task.TimeLimit,
	}
	if !a.Result.Completed {
		v.Remaining = a.Remaining(s.tracker.Clock().Now())
	}
	return v
}

type submitRequest struct {
	Submission models.Document `json:"submission"`
}

func (s *Server) handleOpenAttempt(w http.ResponseWriter, r *http.Request) {
	simulationID := chi.URLParam(r, "id")
	taskID := chi.URLParam(r, "taskID")

	a, err := s.tracker.OpenOrResume(r.Context(), currentUserID(r), simulationID, taskID)
	if err != nil {
		s.respondAttemptError(w, err, "open attempt")
		return
	}

	// a resumed attempt whose time already ran out is closed right away
	if a.Expired(s.tracker.Clock().Now()) {
		finalized, err := s.tracker.Expire(r.Context(), a, a.Result.Submission)
		if err != nil {
			s.respondAttemptError(w, err, "expire attempt")
			return
		}
		v := s.viewOf(a)
		v.Expired = true
		v.Finalized = finalized
		respondJSON(w, http.StatusOK, v)
		return
	}

	status := http.StatusCreated
	if a.Resumed {
		status = http.StatusOK
	}
	respondJSON(w, status, s.viewOf(a))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	a, err := s.tracker.Load(r.Context(), currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAttemptError(w, err, "load attempt")
		return
	}

	expired := a.Expired(s.tracker.Clock().Now())

	var finalized bool
	if expired {
		finalized, err = s.tracker.Expire(r.Context(), a, req.Submission)
	} else {
		finalized, err = s.tracker.Submit(r.Context(), a, req.Submission)
	}
	if err != nil {
		s.respondAttemptError(w, err, "submit attempt")
		return
	}

	v := s.viewOf(a)
	v.Expired = expired
	v.Finalized = finalized
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	a, err := s.tracker.Load(r.Context(), currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAttemptError(w, err, "get result")
		return
	}

	v := s.viewOf(a)
	v.Expired = a.Expired(s.tracker.Clock().Now())
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	filter := models.ResultFilter{
		UserID:       currentUserID(r),
		SimulationID: r.URL.Query().Get("simulation"),
	}
	if v := r.URL.Query().Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "completed must be a boolean")
			return
		}
		filter.Completed = &completed
	}

	results, err := s.repo.ListResults(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list results", "error", err, "user_id", filter.UserID)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to list results")
		return
	}

	history := dashboard.History(results)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": history,
		"total":   len(history),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.Get(r.Context(), currentUserID(r))
	if err != nil {
		s.logger.Error("failed to build dashboard", "error", err, "user_id", currentUserID(r))
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to build dashboard")
		return
	}
	respondJSON(w, http.StatusOK, d)
}
