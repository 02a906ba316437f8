package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cadencehq/cadence/internal/core"
)

// --- Score and streak handlers ---

// handleGetScore returns the stored score for a day, composing it on
// demand when no record exists yet.
func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	score, err := s.scoreStore.Get(day)
	if errors.Is(err, core.ErrScoreNotFound) {
		score, err = s.engine.ComposeDay(r.Context(), day)
	}
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, score)
}

func (s *Server) handleGetScoreRange(w http.ResponseWriter, r *http.Request) {
	from, err := core.ParseDay(r.URL.Query().Get("from"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid 'from' date")
		return
	}
	to, err := core.ParseDay(r.URL.Query().Get("to"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid 'to' date")
		return
	}
	if to.Before(from) {
		s.respondError(w, http.StatusBadRequest, "'to' must not precede 'from'")
		return
	}

	scores, err := s.scoreStore.GetRange(from, to)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, scores)
}

func (s *Server) handleSetRestDay(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	var input struct {
		IsRestDay bool `json:"is_rest_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := s.scoreStore.SetRestDay(day, input.IsRestDay); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The flag overrides streak-break logic, so flipping it on a past day
	// can restore or break every streak after it.
	score, err := s.recalculate(r.Context(), day)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, score)
}

func (s *Server) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	var input struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Notes never affect scoring. Make sure a record exists, then attach.
	if _, err := s.scoreStore.Get(day); errors.Is(err, core.ErrScoreNotFound) {
		if _, err := s.engine.ComposeDay(r.Context(), day); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if err := s.scoreStore.SetNotes(day, input.Notes); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	score, err := s.scoreStore.Get(day)
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, score)
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	score, err := s.recalculate(r.Context(), day)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, score)
}

func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := s.engine.CurrentStreak()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"current_streak_days": streak})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	habitCount, _ := s.habitStore.Count()
	taskCount, _ := s.taskStore.Count()
	scoreCount, _ := s.scoreStore.Count()
	streak, _ := s.engine.CurrentStreak()

	today, err := s.scoreStore.Get(core.Today())
	var todayTotal float64
	if err == nil {
		todayTotal = today.TotalScore
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_habits":        habitCount,
		"total_tasks":         taskCount,
		"scored_days":         scoreCount,
		"current_streak_days": streak,
		"today_score":         todayTotal,
		"ws_clients":          s.wsHub.ClientCount(),
	})
}
