package models

import "time"

// Attempt records one checked guess
type Attempt struct {
	ID          int64
	SessionID   string
	Rows        int
	Cols        int
	DisplayMode string
	Guess       int
	Answer      int
	IsCorrect   bool
	AttemptedAt time.Time
}

// SessionStats summarizes the attempts of a session
type SessionStats struct {
	TotalAttempts   int
	CorrectAttempts int
}

// Accuracy returns the percentage of correct attempts
func (s SessionStats) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts) * 100
}
