package service

import (
	"errors"
	"fmt"
	"time"

	"gridquiz/internal/database"
	"gridquiz/internal/models"
	"gridquiz/internal/repository"
	"gridquiz/internal/security"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionService manages anonymous learner sessions
type SessionService struct {
	db              *database.DB
	sessionRepo     *repository.SessionRepository
	sessionDuration time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(db *database.DB, sessionDuration time.Duration) *SessionService {
	return &SessionService{
		db:              db,
		sessionRepo:     repository.NewSessionRepository(db),
		sessionDuration: sessionDuration,
	}
}

// Duration returns how long a session lives without activity
func (s *SessionService) Duration() time.Duration {
	return s.sessionDuration
}

// Create starts a new session with a random ID
func (s *SessionService) Create() (*models.Session, error) {
	return s.create(security.GenerateSessionID())
}

func (s *SessionService) create(sessionID string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:         sessionID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionDuration),
		LastSeenAt: now,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Validate checks that a session exists and has not expired, and extends it.
// Expired sessions are removed.
func (s *SessionService) Validate(sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		if err := s.Delete(sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	now := time.Now().UTC()
	session.LastSeenAt = now
	session.ExpiresAt = now.Add(s.sessionDuration)
	if err := s.sessionRepo.Touch(sessionID, session.LastSeenAt, session.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	return session, nil
}

// EnsureNamed returns the session with a caller-chosen ID, creating it when it
// does not exist or has expired. Used by front ends with stable identities.
func (s *SessionService) EnsureNamed(sessionID string) (*models.Session, error) {
	session, err := s.Validate(sessionID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
		return nil, err
	}
	return s.create(sessionID)
}

// Delete removes a session with its state, images and attempts
func (s *SessionService) Delete(sessionID string) error {
	err := s.db.WithTx(func(tx *database.Tx) error {
		return repository.NewSessionRepository(tx).Delete(sessionID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes expired sessions and everything they own
func (s *SessionService) CleanupExpired() (int64, error) {
	var removed int64
	err := s.db.WithTx(func(tx *database.Tx) error {
		var err error
		removed, err = repository.NewSessionRepository(tx).DeleteExpired(time.Now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return removed, nil
}
