package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gridquiz/internal/database"
	"gridquiz/internal/quiz"
)

// StoredState is a quiz state row as it sits in the database
type StoredState struct {
	SessionID string
	StateJSON string
	UpdatedAt time.Time
}

// StateRepository persists each session's quiz state as a JSON document
type StateRepository struct {
	db database.DBTX
}

// NewStateRepository creates a new quiz state repository
func NewStateRepository(db database.DBTX) *StateRepository {
	return &StateRepository{db: db}
}

// Get loads the state of a session, returning nil when none was saved yet
func (r *StateRepository) Get(sessionID string) (*quiz.State, error) {
	var raw string
	err := r.db.QueryRow("SELECT state_json FROM quiz_states WHERE session_id = ?", sessionID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz state: %w", err)
	}

	state := &quiz.State{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, fmt.Errorf("failed to decode quiz state: %w", err)
	}
	return state, nil
}

// Save inserts or replaces the state of a session
func (r *StateRepository) Save(sessionID string, state *quiz.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode quiz state: %w", err)
	}
	return r.SaveRaw(StoredState{SessionID: sessionID, StateJSON: string(raw), UpdatedAt: time.Now()})
}

// SaveRaw upserts an already encoded state row
func (r *StateRepository) SaveRaw(row StoredState) error {
	query := r.db.GetDialect().UpsertQuizStateQuery()
	if _, err := r.db.Exec(query, row.SessionID, row.StateJSON, row.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save quiz state: %w", err)
	}
	return nil
}

// Delete removes a session's state
func (r *StateRepository) Delete(sessionID string) error {
	if _, err := r.db.Exec("DELETE FROM quiz_states WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete quiz state: %w", err)
	}
	return nil
}

// ListAll retrieves every stored state row
func (r *StateRepository) ListAll() ([]StoredState, error) {
	rows, err := r.db.Query("SELECT session_id, state_json, updated_at FROM quiz_states ORDER BY session_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz states: %w", err)
	}
	defer rows.Close()

	var states []StoredState
	for rows.Next() {
		var s StoredState
		if err := rows.Scan(&s.SessionID, &s.StateJSON, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz state: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
