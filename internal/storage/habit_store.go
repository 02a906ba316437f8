// Package storage provides persistence for Cadence.
package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/core"
)

// HabitStore handles habit and habit-completion persistence
type HabitStore struct {
	db *DB
}

// NewHabitStore creates a new habit store
func NewHabitStore(db *DB) *HabitStore {
	return &HabitStore{db: db}
}

// Create creates a new habit
func (s *HabitStore) Create(habit *core.Habit) error {
	if habit.ID == "" {
		habit.ID = core.HabitID(uuid.NewString())
	}
	now := time.Now().UTC()
	habit.CreatedAt = now
	habit.UpdatedAt = now

	_, err := s.db.conn.Exec(`
		INSERT INTO habits (id, name, weight, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		habit.ID, habit.Name, habit.Weight, habit.IsArchived,
		habit.CreatedAt, habit.UpdatedAt,
	)

	return err
}

// GetByID returns a habit by ID
func (s *HabitStore) GetByID(id core.HabitID) (*core.Habit, error) {
	habit := &core.Habit{}

	err := s.db.conn.QueryRow(`
		SELECT id, name, weight, is_archived, created_at, updated_at
		FROM habits WHERE id = ?
	`, id).Scan(
		&habit.ID, &habit.Name, &habit.Weight, &habit.IsArchived,
		&habit.CreatedAt, &habit.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrHabitNotFound
	}
	if err != nil {
		return nil, err
	}

	return habit, nil
}

// GetAll returns all habits, active ones first
func (s *HabitStore) GetAll(includeArchived bool) ([]*core.Habit, error) {
	query := `
		SELECT id, name, weight, is_archived, created_at, updated_at
		FROM habits
	`
	if !includeArchived {
		query += " WHERE is_archived = FALSE"
	}
	query += " ORDER BY is_archived ASC, name ASC"

	rows, err := s.db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []*core.Habit
	for rows.Next() {
		habit := &core.Habit{}
		err := rows.Scan(
			&habit.ID, &habit.Name, &habit.Weight, &habit.IsArchived,
			&habit.CreatedAt, &habit.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		habits = append(habits, habit)
	}

	return habits, rows.Err()
}

// Update updates a habit's name and weight. Completions keep the weight
// captured when they were recorded.
func (s *HabitStore) Update(habit *core.Habit) error {
	habit.UpdatedAt = time.Now().UTC()

	result, err := s.db.conn.Exec(`
		UPDATE habits SET name = ?, weight = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`,
		habit.Name, habit.Weight, habit.IsArchived, habit.UpdatedAt,
		habit.ID,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return core.ErrHabitNotFound
	}

	return nil
}

// Archive marks a habit archived without touching its history
func (s *HabitStore) Archive(id core.HabitID) error {
	result, err := s.db.conn.Exec(`
		UPDATE habits SET is_archived = TRUE, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return core.ErrHabitNotFound
	}

	return nil
}

// Complete records a habit completion for a day, capturing the habit's
// current weight. Completing an already-completed day is a no-op.
func (s *HabitStore) Complete(id core.HabitID, day core.Day) (*core.HabitCompletion, error) {
	habit, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if habit.IsArchived {
		return nil, core.ErrHabitArchived
	}

	completion := &core.HabitCompletion{
		ID:                 uuid.NewString(),
		HabitID:            id,
		Day:                day,
		WeightAtCompletion: habit.Weight,
		CreatedAt:          time.Now().UTC(),
	}

	_, err = s.db.conn.Exec(`
		INSERT INTO habit_completions (id, habit_id, day, weight_at_completion, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (habit_id, day) DO NOTHING
	`,
		completion.ID, completion.HabitID, completion.Day,
		completion.WeightAtCompletion, completion.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return completion, nil
}

// Uncomplete removes a habit completion for a day
func (s *HabitStore) Uncomplete(id core.HabitID, day core.Day) error {
	_, err := s.db.conn.Exec(`
		DELETE FROM habit_completions WHERE habit_id = ? AND day = ?
	`, id, day)
	return err
}

// CompletionsForDay returns all completions recorded for a day
func (s *HabitStore) CompletionsForDay(day core.Day) ([]*core.HabitCompletion, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, habit_id, day, weight_at_completion, created_at
		FROM habit_completions
		WHERE day = ?
		ORDER BY created_at ASC
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []*core.HabitCompletion
	for rows.Next() {
		c := &core.HabitCompletion{}
		err := rows.Scan(&c.ID, &c.HabitID, &c.Day, &c.WeightAtCompletion, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}

	return completions, rows.Err()
}

// PointsForDay sums the captured completion weights for a day
func (s *HabitStore) PointsForDay(day core.Day) (float64, error) {
	var points float64
	err := s.db.conn.QueryRow(`
		SELECT COALESCE(SUM(weight_at_completion), 0)
		FROM habit_completions WHERE day = ?
	`, day).Scan(&points)
	return points, err
}

// Count returns total habit count
func (s *HabitStore) Count() (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM habits WHERE is_archived = FALSE").Scan(&count)
	return count, err
}
