package repository

import (
	"fmt"

	"gridquiz/internal/database"
	"gridquiz/internal/models"
)

// AttemptRepository records checked guesses
type AttemptRepository struct {
	db database.DBTX
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db database.DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record inserts an attempt and fills in its ID
func (r *AttemptRepository) Record(attempt *models.Attempt) error {
	query := `
		INSERT INTO quiz_attempts (session_id, rows_count, cols_count, display_mode, guess, answer, is_correct, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		attempt.SessionID,
		attempt.Rows,
		attempt.Cols,
		attempt.DisplayMode,
		attempt.Guess,
		attempt.Answer,
		attempt.IsCorrect,
		attempt.AttemptedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	attempt.ID = id
	return nil
}

// Stats counts a session's attempts
func (r *AttemptRepository) Stats(sessionID string) (models.SessionStats, error) {
	var stats models.SessionStats
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM quiz_attempts
		WHERE session_id = ?
	`
	if err := r.db.QueryRow(query, sessionID).Scan(&stats.TotalAttempts, &stats.CorrectAttempts); err != nil {
		return stats, fmt.Errorf("failed to get attempt stats: %w", err)
	}
	return stats, nil
}

// Recent returns a session's latest attempts, newest first
func (r *AttemptRepository) Recent(sessionID string, limit int) ([]models.Attempt, error) {
	query := `
		SELECT id, session_id, rows_count, cols_count, display_mode, guess, answer, is_correct, attempted_at
		FROM quiz_attempts
		WHERE session_id = ?
		ORDER BY attempted_at DESC, id DESC
		LIMIT ?
	`
	return r.query(query, sessionID, limit)
}

// ListAll retrieves every attempt in insertion order
func (r *AttemptRepository) ListAll() ([]models.Attempt, error) {
	query := `
		SELECT id, session_id, rows_count, cols_count, display_mode, guess, answer, is_correct, attempted_at
		FROM quiz_attempts
		ORDER BY id
	`
	return r.query(query)
}

func (r *AttemptRepository) query(query string, args ...interface{}) ([]models.Attempt, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		if err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.Rows,
			&a.Cols,
			&a.DisplayMode,
			&a.Guess,
			&a.Answer,
			&a.IsCorrect,
			&a.AttemptedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
