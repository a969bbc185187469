package repository

import (
	"database/sql"
	"fmt"
	"time"

	"gridquiz/internal/database"
	"gridquiz/internal/models"
)

// SessionRepository handles database operations for learner sessions
type SessionRepository struct {
	db database.DBTX
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session
func (r *SessionRepository) Create(session *models.Session) error {
	query := `
		INSERT INTO sessions (id, created_at, expires_at, last_seen_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, session.ID, session.CreatedAt.UTC(), session.ExpiresAt.UTC(), session.LastSeenAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, returning nil when it does not exist
func (r *SessionRepository) Get(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, created_at, expires_at, last_seen_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastSeenAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// Touch records activity and slides the expiry forward
func (r *SessionRepository) Touch(sessionID string, seenAt, expiresAt time.Time) error {
	query := "UPDATE sessions SET last_seen_at = ?, expires_at = ? WHERE id = ?"
	_, err := r.db.Exec(query, seenAt.UTC(), expiresAt.UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Delete removes a session and everything it owns
func (r *SessionRepository) Delete(sessionID string) error {
	for _, query := range []string{
		"DELETE FROM quiz_attempts WHERE session_id = ?",
		"DELETE FROM uploaded_images WHERE session_id = ?",
		"DELETE FROM quiz_states WHERE session_id = ?",
		"DELETE FROM sessions WHERE id = ?",
	} {
		if _, err := r.db.Exec(query, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return nil
}

// DeleteExpired removes all sessions that expired before now, with their
// states, images and attempts. Returns the number of sessions removed.
func (r *SessionRepository) DeleteExpired(now time.Time) (int64, error) {
	now = now.UTC()
	for _, table := range []string{"quiz_attempts", "uploaded_images", "quiz_states"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE session_id IN (SELECT id FROM sessions WHERE expires_at < ?)", table)
		if _, err := r.db.Exec(query, now); err != nil {
			return 0, fmt.Errorf("failed to delete expired %s: %w", table, err)
		}
	}

	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return removed, nil
}

// ListAll retrieves every session, oldest first
func (r *SessionRepository) ListAll() ([]models.Session, error) {
	query := `
		SELECT id, created_at, expires_at, last_seen_at
		FROM sessions
		ORDER BY created_at
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.CreatedAt, &session.ExpiresAt, &session.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}
