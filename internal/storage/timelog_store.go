// Package storage provides persistence for Cadence.
package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/core"
)

// TimeLogStore handles time log persistence
type TimeLogStore struct {
	db *DB
}

// NewTimeLogStore creates a new time log store
func NewTimeLogStore(db *DB) *TimeLogStore {
	return &TimeLogStore{db: db}
}

// Create records a time log entry
func (s *TimeLogStore) Create(entry *core.TimeLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	_, err := s.db.conn.Exec(`
		INSERT INTO time_logs (id, day, kind, minutes, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.Day, entry.Kind, entry.Minutes, entry.Note,
		entry.CreatedAt,
	)

	return err
}

// GetByID returns a time log by ID
func (s *TimeLogStore) GetByID(id string) (*core.TimeLog, error) {
	entry := &core.TimeLog{}
	err := s.db.conn.QueryRow(`
		SELECT id, day, kind, minutes, note, created_at
		FROM time_logs WHERE id = ?
	`, id).Scan(
		&entry.ID, &entry.Day, &entry.Kind, &entry.Minutes, &entry.Note,
		&entry.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrTimeLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetForDay returns all time logs for a day
func (s *TimeLogStore) GetForDay(day core.Day) ([]*core.TimeLog, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, day, kind, minutes, note, created_at
		FROM time_logs
		WHERE day = ?
		ORDER BY created_at ASC
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*core.TimeLog
	for rows.Next() {
		entry := &core.TimeLog{}
		err := rows.Scan(
			&entry.ID, &entry.Day, &entry.Kind, &entry.Minutes, &entry.Note,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Delete removes a time log entry
func (s *TimeLogStore) Delete(id string) error {
	result, err := s.db.conn.Exec("DELETE FROM time_logs WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return core.ErrTimeLogNotFound
	}

	return nil
}

// MinutesForDay returns (productive, distracting) minute totals for a day
func (s *TimeLogStore) MinutesForDay(day core.Day) (int, int, error) {
	var productive, distracting int
	err := s.db.conn.QueryRow(`
		SELECT
		    COALESCE(SUM(CASE WHEN kind = 'productive' THEN minutes ELSE 0 END), 0),
		    COALESCE(SUM(CASE WHEN kind = 'distracting' THEN minutes ELSE 0 END), 0)
		FROM time_logs WHERE day = ?
	`, day).Scan(&productive, &distracting)
	return productive, distracting, err
}
