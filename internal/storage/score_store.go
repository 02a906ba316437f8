// Package storage provides persistence for Cadence.
package storage

import (
	"database/sql"
	"time"

	"github.com/cadencehq/cadence/internal/core"
)

// ScoreStore handles daily score persistence
type ScoreStore struct {
	db *DB
}

// NewScoreStore creates a new score store
func NewScoreStore(db *DB) *ScoreStore {
	return &ScoreStore{db: db}
}

// Get returns the score record for a day
func (s *ScoreStore) Get(day core.Day) (*core.DailyScore, error) {
	return scanScore(s.db.conn.QueryRow(`
		SELECT day, habit_component, task_component, time_component,
		       streak_bonus, total_score, is_rest_day, notes,
		       created_at, updated_at
		FROM daily_scores WHERE day = ?
	`, day))
}

// GetRange returns score records with from <= day <= to, in date order
func (s *ScoreStore) GetRange(from, to core.Day) ([]*core.DailyScore, error) {
	rows, err := s.db.conn.Query(`
		SELECT day, habit_component, task_component, time_component,
		       streak_bonus, total_score, is_rest_day, notes,
		       created_at, updated_at
		FROM daily_scores
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []*core.DailyScore
	for rows.Next() {
		score := &core.DailyScore{}
		err := rows.Scan(
			&score.Day, &score.HabitComponent, &score.TaskComponent,
			&score.TimeComponent, &score.StreakBonus, &score.TotalScore,
			&score.IsRestDay, &score.Notes,
			&score.CreatedAt, &score.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	return scores, rows.Err()
}

// MaxDay returns the latest day with a score record; ok is false when
// no records exist.
func (s *ScoreStore) MaxDay() (core.Day, bool, error) {
	var day sql.NullString
	err := s.db.conn.QueryRow("SELECT MAX(day) FROM daily_scores").Scan(&day)
	if err != nil {
		return "", false, err
	}
	if !day.Valid {
		return "", false, nil
	}
	return core.Day(day.String), true, nil
}

// UpsertTx creates or replaces the score record for a day within a
// transaction. Score and streak writes for a day always travel together.
func (s *ScoreStore) UpsertTx(tx *sql.Tx, score *core.DailyScore) error {
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now

	_, err := tx.Exec(`
		INSERT INTO daily_scores (day, habit_component, task_component, time_component,
		                          streak_bonus, total_score, is_rest_day, notes,
		                          created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET
		    habit_component = excluded.habit_component,
		    task_component  = excluded.task_component,
		    time_component  = excluded.time_component,
		    streak_bonus    = excluded.streak_bonus,
		    total_score     = excluded.total_score,
		    is_rest_day     = excluded.is_rest_day,
		    notes           = excluded.notes,
		    updated_at      = excluded.updated_at
	`,
		score.Day, score.HabitComponent, score.TaskComponent, score.TimeComponent,
		score.StreakBonus, score.TotalScore, score.IsRestDay, score.Notes,
		score.CreatedAt, score.UpdatedAt,
	)

	return err
}

// UpdateBonusTx rewrites a day's streak bonus and total within a
// transaction, leaving the base components untouched.
func (s *ScoreStore) UpdateBonusTx(tx *sql.Tx, day core.Day, bonus, total float64) error {
	_, err := tx.Exec(`
		UPDATE daily_scores SET streak_bonus = ?, total_score = ?, updated_at = ?
		WHERE day = ?
	`, bonus, total, time.Now().UTC(), day)
	return err
}

// SetRestDay flips the rest-day flag, creating a placeholder record when
// the day has never been scored. The caller recomposes the day afterward.
func (s *ScoreStore) SetRestDay(day core.Day, isRestDay bool) error {
	now := time.Now().UTC()
	_, err := s.db.conn.Exec(`
		INSERT INTO daily_scores (day, is_rest_day, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET
		    is_rest_day = excluded.is_rest_day,
		    updated_at  = excluded.updated_at
	`, day, isRestDay, now, now)
	return err
}

// SetNotes saves the free-text notes for a day, creating a placeholder
// record when the day has never been scored.
func (s *ScoreStore) SetNotes(day core.Day, notes string) error {
	now := time.Now().UTC()
	_, err := s.db.conn.Exec(`
		INSERT INTO daily_scores (day, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET
		    notes      = excluded.notes,
		    updated_at = excluded.updated_at
	`, day, notes, now, now)
	return err
}

// Count returns total score record count
func (s *ScoreStore) Count() (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM daily_scores").Scan(&count)
	return count, err
}

func scanScore(row *sql.Row) (*core.DailyScore, error) {
	score := &core.DailyScore{}

	err := row.Scan(
		&score.Day, &score.HabitComponent, &score.TaskComponent,
		&score.TimeComponent, &score.StreakBonus, &score.TotalScore,
		&score.IsRestDay, &score.Notes,
		&score.CreatedAt, &score.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrScoreNotFound
	}
	if err != nil {
		return nil, err
	}

	return score, nil
}
