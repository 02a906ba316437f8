package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cadencehq/cadence/internal/core"
)

// --- Habit handlers ---

func (s *Server) handleGetHabits(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"

	habits, err := s.habitStore.GetAll(includeArchived)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, habits)
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name   string  `json:"name"`
		Weight float64 `json:"weight"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if input.Name == "" {
		s.respondError(w, http.StatusBadRequest, "Name required")
		return
	}
	if input.Weight <= 0 {
		s.respondError(w, http.StatusBadRequest, "Weight must be positive")
		return
	}

	habit := &core.Habit{Name: input.Name, Weight: input.Weight}
	if err := s.habitStore.Create(habit); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, habit)
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")

	habit, err := s.habitStore.GetByID(core.HabitID(habitID))
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, habit)
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")

	habit, err := s.habitStore.GetByID(core.HabitID(habitID))
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	var updates struct {
		Name   string   `json:"name"`
		Weight *float64 `json:"weight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if updates.Name != "" {
		habit.Name = updates.Name
	}
	if updates.Weight != nil {
		if *updates.Weight <= 0 {
			s.respondError(w, http.StatusBadRequest, "Weight must be positive")
			return
		}
		// Weight changes apply from now on. Past completions keep the
		// weight captured when they were recorded.
		habit.Weight = *updates.Weight
	}

	if err := s.habitStore.Update(habit); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, habit)
}

func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")

	if err := s.habitStore.Archive(core.HabitID(habitID)); err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func (s *Server) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")

	day, err := dayQuery(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	completion, err := s.habitStore.Complete(core.HabitID(habitID), day)
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	score, err := s.composeDay(r.Context(), day)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"completion": completion,
		"score":      score,
	})
}

func (s *Server) handleUncompleteHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")

	day, err := dayQuery(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	if err := s.habitStore.Uncomplete(core.HabitID(habitID), day); err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	// Undoing a check-in can break a streak that later days were built on.
	score, err := s.recalculate(r.Context(), day)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"score": score})
}
