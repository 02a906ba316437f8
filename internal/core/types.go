// Package core defines the fundamental types for Cadence.
package core

import (
	"time"
)

// -----------------------------------------------------------------------------
// HABIT - A recurring behavior worth points when completed
// -----------------------------------------------------------------------------

// HabitID is a type-safe identifier for habits
type HabitID string

// Habit represents a recurring behavior the user wants to keep up.
// Weight is the habit's current point value; completions capture the
// weight at completion time so historical scores survive later edits.
type Habit struct {
	ID         HabitID   `json:"id"`
	Name       string    `json:"name"`
	Weight     float64   `json:"weight"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HabitCompletion records that a habit was checked off on a given day.
// At most one completion exists per (habit, day).
type HabitCompletion struct {
	ID                 string    `json:"id"`
	HabitID            HabitID   `json:"habit_id"`
	Day                Day       `json:"day"`
	WeightAtCompletion float64   `json:"weight_at_completion"`
	CreatedAt          time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------
// TASK - A one-off item targeted at a specific day
// -----------------------------------------------------------------------------

// TaskID is a type-safe identifier for tasks
type TaskID string

// Task is a one-off todo assigned to a calendar day.
type Task struct {
	ID        TaskID    `json:"id"`
	Title     string    `json:"title"`
	Day       Day       `json:"day"`
	IsDone    bool      `json:"is_done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// -----------------------------------------------------------------------------
// TIME LOG - Tracked minutes, productive or distracting
// -----------------------------------------------------------------------------

// TimeLogKind classifies a time log entry
type TimeLogKind string

const (
	TimeProductive  TimeLogKind = "productive"
	TimeDistracting TimeLogKind = "distracting"
)

// TimeLog records minutes spent on a day, for or against the time score.
type TimeLog struct {
	ID        string      `json:"id"`
	Day       Day         `json:"day"`
	Kind      TimeLogKind `json:"kind"`
	Minutes   int         `json:"minutes"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// -----------------------------------------------------------------------------
// DAILY SCORE - The composed record for one calendar day
// -----------------------------------------------------------------------------

// DailyScore holds the per-day score components. One record per day,
// created or superseded by recomputation, never deleted.
// TotalScore always equals the weighted base plus StreakBonus.
type DailyScore struct {
	Day            Day       `json:"day"`
	HabitComponent float64   `json:"habit_component"`
	TaskComponent  float64   `json:"task_component"`
	TimeComponent  float64   `json:"time_component"`
	StreakBonus    float64   `json:"streak_bonus"`
	TotalScore     float64   `json:"total_score"`
	IsRestDay      bool      `json:"is_rest_day"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Streak holds the streak count as of a day. The value is carried into
// the next day's calculation, so records form a strict forward chain.
type Streak struct {
	Day               Day       `json:"day"`
	CurrentStreakDays int       `json:"current_streak_days"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
