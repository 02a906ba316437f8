// Package api provides the HTTP API server for the Cadence daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cadencehq/cadence/internal/core"
	"github.com/cadencehq/cadence/internal/logging"
	"github.com/cadencehq/cadence/internal/scoring"
	"github.com/cadencehq/cadence/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	db     *storage.DB
	engine *scoring.Engine
	wsHub  *WebSocketHub

	// Stores
	habitStore   *storage.HabitStore
	taskStore    *storage.TaskStore
	timeLogStore *storage.TimeLogStore
	scoreStore   *storage.ScoreStore
	streakStore  *storage.StreakStore

	log *logging.Logger
}

// Config for the server
type Config struct {
	Host   string
	Port   int
	DB     *storage.DB
	Engine *scoring.Engine
}

// New creates a new API server
func New(cfg Config) *Server {
	s := &Server{
		db:           cfg.DB,
		engine:       cfg.Engine,
		habitStore:   storage.NewHabitStore(cfg.DB),
		taskStore:    storage.NewTaskStore(cfg.DB),
		timeLogStore: storage.NewTimeLogStore(cfg.DB),
		scoreStore:   storage.NewScoreStore(cfg.DB),
		streakStore:  storage.NewStreakStore(cfg.DB),
		wsHub:        NewWebSocketHub(),
		log:          logging.WithField("component", "api"),
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Habits
		r.Get("/habits", s.handleGetHabits)
		r.Post("/habits", s.handleCreateHabit)
		r.Get("/habits/{habitID}", s.handleGetHabit)
		r.Put("/habits/{habitID}", s.handleUpdateHabit)
		r.Delete("/habits/{habitID}", s.handleArchiveHabit)
		r.Post("/habits/{habitID}/complete", s.handleCompleteHabit)
		r.Delete("/habits/{habitID}/complete", s.handleUncompleteHabit)

		// Tasks
		r.Get("/tasks", s.handleGetTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Put("/tasks/{taskID}", s.handleUpdateTask)
		r.Delete("/tasks/{taskID}", s.handleDeleteTask)

		// Time logs
		r.Get("/timelogs", s.handleGetTimeLogs)
		r.Post("/timelogs", s.handleCreateTimeLog)
		r.Delete("/timelogs/{logID}", s.handleDeleteTimeLog)

		// Scores
		r.Get("/scores", s.handleGetScoreRange)
		r.Get("/scores/{day}", s.handleGetScore)
		r.Put("/scores/{day}/rest-day", s.handleSetRestDay)
		r.Put("/scores/{day}/notes", s.handleSetNotes)
		r.Post("/scores/{day}/recalculate", s.handleRecalculate)

		// Streak
		r.Get("/streak", s.handleGetStreak)

		// Stats
		r.Get("/stats", s.handleGetStats)
	})

	// WebSocket
	r.Get("/ws", s.handleWebSocket)

	s.router = r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Start WebSocket hub
	go s.wsHub.Run()

	s.log.Info("API server starting on http://%s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Broadcast sends a message to all WebSocket clients
func (s *Server) Broadcast(msgType string, data interface{}) {
	s.wsHub.Broadcast(WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrHabitNotFound),
		errors.Is(err, core.ErrTaskNotFound),
		errors.Is(err, core.ErrTimeLogNotFound),
		errors.Is(err, core.ErrScoreNotFound),
		errors.Is(err, core.ErrStreakNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrMissingRequired),
		errors.Is(err, core.ErrHabitArchived):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// dayParam parses a {day} URL parameter
func dayParam(r *http.Request, name string) (core.Day, error) {
	return core.ParseDay(chi.URLParam(r, name))
}

// dayQuery parses an optional day query parameter, falling back to today
func dayQuery(r *http.Request, name string) (core.Day, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return core.Today(), nil
	}
	return core.ParseDay(raw)
}

// composeDay recomputes a single day and pushes the updated score to
// WebSocket clients. Used for mutations that cannot affect later days.
func (s *Server) composeDay(ctx context.Context, day core.Day) (*core.DailyScore, error) {
	score, err := s.engine.ComposeDay(ctx, day)
	if err != nil {
		return nil, err
	}
	s.broadcastScore(score)
	return score, nil
}

// recalculate recomputes a day and reconciles every later recorded day.
// Used for retroactive mutations (undo, delete, rest-day toggle) whose
// effect can cascade through stored streaks.
func (s *Server) recalculate(ctx context.Context, day core.Day) (*core.DailyScore, error) {
	score, err := s.engine.ComposeAndReconcile(ctx, day)
	if err != nil {
		return nil, err
	}
	s.broadcastScore(score)
	return score, nil
}

func (s *Server) broadcastScore(score *core.DailyScore) {
	s.Broadcast("score.updated", score)
	if streak, err := s.engine.CurrentStreak(); err == nil {
		s.Broadcast("streak.updated", map[string]int{"current_streak_days": streak})
	}
}
