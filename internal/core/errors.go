// Package core defines the fundamental types and errors for Cadence.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Storage errors
	ErrDatabaseNotFound = errors.New("database not found")
	ErrMigrationFailed  = errors.New("migration failed")

	// Habit errors
	ErrHabitNotFound = errors.New("habit not found")
	ErrHabitArchived = errors.New("habit is archived")

	// Task errors
	ErrTaskNotFound = errors.New("task not found")

	// Time log errors
	ErrTimeLogNotFound = errors.New("time log not found")

	// Score errors
	ErrScoreNotFound  = errors.New("daily score not found")
	ErrStreakNotFound = errors.New("streak record not found")

	// Validation errors
	ErrInvalidDay      = errors.New("invalid day, expected YYYY-MM-DD")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
