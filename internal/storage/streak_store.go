// Package storage provides persistence for Cadence.
package storage

import (
	"database/sql"
	"time"

	"github.com/cadencehq/cadence/internal/core"
)

// StreakStore handles streak record persistence
type StreakStore struct {
	db *DB
}

// NewStreakStore creates a new streak store
func NewStreakStore(db *DB) *StreakStore {
	return &StreakStore{db: db}
}

// Get returns the streak record for a day
func (s *StreakStore) Get(day core.Day) (*core.Streak, error) {
	streak := &core.Streak{}

	err := s.db.conn.QueryRow(`
		SELECT day, current_streak_days, created_at, updated_at
		FROM streaks WHERE day = ?
	`, day).Scan(
		&streak.Day, &streak.CurrentStreakDays,
		&streak.CreatedAt, &streak.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrStreakNotFound
	}
	if err != nil {
		return nil, err
	}

	return streak, nil
}

// DaysFor returns the streak count for a day, 0 when no record exists.
// This is the "no history means streak 0" default of the recurrence.
func (s *StreakStore) DaysFor(day core.Day) (int, error) {
	streak, err := s.Get(day)
	if err == core.ErrStreakNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return streak.CurrentStreakDays, nil
}

// Latest returns the streak record with the maximum day
func (s *StreakStore) Latest() (*core.Streak, error) {
	streak := &core.Streak{}

	err := s.db.conn.QueryRow(`
		SELECT day, current_streak_days, created_at, updated_at
		FROM streaks
		ORDER BY day DESC
		LIMIT 1
	`).Scan(
		&streak.Day, &streak.CurrentStreakDays,
		&streak.CreatedAt, &streak.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrStreakNotFound
	}
	if err != nil {
		return nil, err
	}

	return streak, nil
}

// MaxDay returns the latest day with a streak record; ok is false when
// no records exist.
func (s *StreakStore) MaxDay() (core.Day, bool, error) {
	var day sql.NullString
	err := s.db.conn.QueryRow("SELECT MAX(day) FROM streaks").Scan(&day)
	if err != nil {
		return "", false, err
	}
	if !day.Valid {
		return "", false, nil
	}
	return core.Day(day.String), true, nil
}

// UpsertTx creates or replaces the streak record for a day within a
// transaction.
func (s *StreakStore) UpsertTx(tx *sql.Tx, streak *core.Streak) error {
	now := time.Now().UTC()
	if streak.CreatedAt.IsZero() {
		streak.CreatedAt = now
	}
	streak.UpdatedAt = now

	_, err := tx.Exec(`
		INSERT INTO streaks (day, current_streak_days, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET
		    current_streak_days = excluded.current_streak_days,
		    updated_at          = excluded.updated_at
	`,
		streak.Day, streak.CurrentStreakDays,
		streak.CreatedAt, streak.UpdatedAt,
	)

	return err
}
