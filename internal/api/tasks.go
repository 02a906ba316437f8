package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cadencehq/cadence/internal/core"
)

// --- Task handlers ---

func (s *Server) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	day, err := dayQuery(r, "day")
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	tasks, err := s.taskStore.GetForDay(day)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title string `json:"title"`
		Day   string `json:"day"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if input.Title == "" {
		s.respondError(w, http.StatusBadRequest, "Title required")
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

	task := &core.Task{Title: input.Title, Day: day}
	if err := s.taskStore.Create(task); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A new open task changes the day's assigned count and task ratio.
	if _, err := s.composeDay(r.Context(), day); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := s.taskStore.GetByID(core.TaskID(taskID))
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	var updates struct {
		Title  string `json:"title"`
		Day    string `json:"day"`
		IsDone *bool  `json:"is_done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	oldDay := task.Day
	doneChanged := false
	dayChanged := false

	if updates.Title != "" {
		task.Title = updates.Title
	}
	if updates.Day != "" {
		newDay, err := core.ParseDay(updates.Day)
		if err != nil {
			s.respondError(w, errorStatus(err), err.Error())
			return
		}
		if newDay != task.Day {
			task.Day = newDay
			dayChanged = true
		}
	}
	if updates.IsDone != nil && *updates.IsDone != task.IsDone {
		task.IsDone = *updates.IsDone
		doneChanged = true
	}

	if err := s.taskStore.Update(task); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if doneChanged || dayChanged {
		// Moving a task touches both days' ratios. Recompute the earlier
		// day first, then cascade forward from it so both days and any
		// streaks built on them settle.
		start := task.Day
		if dayChanged {
			if oldDay.Before(start) {
				start = oldDay
			}
			other := task.Day
			if start == task.Day {
				other = oldDay
			}
			if _, err := s.engine.ComposeDay(r.Context(), other); err != nil {
				s.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		if _, err := s.recalculate(r.Context(), start); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := s.taskStore.GetByID(core.TaskID(taskID))
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	if err := s.taskStore.Delete(task.ID); err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}

	// Deleting an open task can raise the day's ratio over the threshold.
	if _, err := s.recalculate(r.Context(), task.Day); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
