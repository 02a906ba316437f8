package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cadencehq/cadence/internal/core"
)

// --- Time log handlers ---

func (s *Server) handleGetTimeLogs(w http.ResponseWriter, r *http.Request) {
	day, err := dayQuery(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	entries, err := s.timeLogStore.GetForDay(day)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateTimeLog(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Day     string `json:"day"`
		Kind    string `json:"kind"`
		Minutes int    `json:"minutes"`
		Note    string `json:"note"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	kind := core.TimeLogKind(input.Kind)
	if kind != core.TimeProductive && kind != core.TimeDistracting {
		s.respondError(w, http.StatusBadRequest, "Kind must be 'productive' or 'distracting'")
		return
	}
	if input.Minutes <= 0 {
		s.respondError(w, http.StatusBadRequest, "Minutes must be positive")
		return
	}

	day := core.Today()
	if input.Day != "" {
		var err error
		day, err = core.ParseDay(input.Day)
		if err != nil {
			s.respondError(w, errorStatus(err), err.Error())
			return
		}
	}

	entry := &core.TimeLog{Day: day, Kind: kind, Minutes: input.Minutes, Note: input.Note}
	if err := s.timeLogStore.Create(entry); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := s.composeDay(r.Context(), day); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleDeleteTimeLog(w http.ResponseWriter, r *http.Request) {
	logID := chi.URLParam(r, "logID")

	entry, err := s.timeLogStore.GetByID(logID)
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	if err := s.timeLogStore.Delete(logID); err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	// Removing logged time is retroactive. The day's base can cross the
	// threshold in either direction, so cascade forward.
	if _, err := s.recalculate(r.Context(), entry.Day); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
