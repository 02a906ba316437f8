// Package storage provides persistence for Cadence.
package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/core"
)

// TaskStore handles task persistence
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a new task store
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create creates a new task
func (s *TaskStore) Create(task *core.Task) error {
	if task.ID == "" {
		task.ID = core.TaskID(uuid.NewString())
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := s.db.conn.Exec(`
		INSERT INTO tasks (id, title, day, is_done, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		task.ID, task.Title, task.Day, task.IsDone,
		task.CreatedAt, task.UpdatedAt,
	)

	return err
}

// GetByID returns a task by ID
func (s *TaskStore) GetByID(id core.TaskID) (*core.Task, error) {
	task := &core.Task{}

	err := s.db.conn.QueryRow(`
		SELECT id, title, day, is_done, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id).Scan(
		&task.ID, &task.Title, &task.Day, &task.IsDone,
		&task.CreatedAt, &task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

// GetForDay returns all tasks targeted at a day
func (s *TaskStore) GetForDay(day core.Day) ([]*core.Task, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, title, day, is_done, created_at, updated_at
		FROM tasks
		WHERE day = ?
		ORDER BY created_at ASC
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanTasks(rows)
}

// Update updates a task's title, day, and done flag
func (s *TaskStore) Update(task *core.Task) error {
	task.UpdatedAt = time.Now().UTC()

	result, err := s.db.conn.Exec(`
		UPDATE tasks SET title = ?, day = ?, is_done = ?, updated_at = ?
		WHERE id = ?
	`,
		task.Title, task.Day, task.IsDone, task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return core.ErrTaskNotFound
	}

	return nil
}

// Delete removes a task
func (s *TaskStore) Delete(id core.TaskID) error {
	result, err := s.db.conn.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return core.ErrTaskNotFound
	}

	return nil
}

// CountsForDay returns (assigned, completed) task counts for a day
func (s *TaskStore) CountsForDay(day core.Day) (int, int, error) {
	var assigned, completed int
	err := s.db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_done THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE day = ?
	`, day).Scan(&assigned, &completed)
	return assigned, completed, err
}

func (s *TaskStore) scanTasks(rows *sql.Rows) ([]*core.Task, error) {
	var tasks []*core.Task

	for rows.Next() {
		task := &core.Task{}
		err := rows.Scan(
			&task.ID, &task.Title, &task.Day, &task.IsDone,
			&task.CreatedAt, &task.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Count returns total task count
func (s *TaskStore) Count() (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&count)
	return count, err
}
