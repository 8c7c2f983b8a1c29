package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/simulex-engine/internal/models"
)

// Catalog handlers: read-only browsing of roles, simulations and tasks

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.repo.ListRoles(r.Context())
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to list roles")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"roles": roles,
		"total": len(roles),
	})
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	role, err := s.repo.GetRole(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get role", "error", err, "id", id)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to get role")
		return
	}
	if role == nil {
		respondError(w, http.StatusNotFound, "not_found", "role not found")
		return
	}
	respondJSON(w, http.StatusOK, role)
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	filter := models.SimulationFilter{RoleID: r.URL.Query().Get("role"), ActiveOnly: true}
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "active must be a boolean")
			return
		}
		filter.ActiveOnly = active
	}

	sims, err := s.repo.ListSimulations(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list simulations", "error", err)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to list simulations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"simulations": sims,
		"total":       len(sims),
	})
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	sim, ok := s.loadSimulation(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sim)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	sim, ok := s.loadSimulation(w, r)
	if !ok {
		return
	}

	tasks, err := s.repo.ListTasks(r.Context(), sim.ID)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err, "simulation_id", sim.ID)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to list tasks")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := s.repo.GetTask(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get task", "error", err, "id", id)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to get task")
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) loadSimulation(w http.ResponseWriter, r *http.Request) (*models.Simulation, bool) {
	id := chi.URLParam(r, "id")
	sim, err := s.repo.GetSimulation(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get simulation", "error", err, "id", id)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to get simulation")
		return nil, false
	}
	if sim == nil {
		respondError(w, http.StatusNotFound, "not_found", "simulation not found")
		return nil, false
	}
	return sim, true
}
