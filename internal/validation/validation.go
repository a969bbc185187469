package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dimension bounds for a multiplication grid
const (
	MinDimension = 1
	MaxDimension = 12
)

// MaxGuess bounds answers so they fit any database integer column
const MaxGuess = 1000000

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error on a single input field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ValidateDimension checks that a row or column count is within the grid bounds
func ValidateDimension(field string, n int) error {
	if n < MinDimension || n > MaxDimension {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", MinDimension, MaxDimension),
		}
	}
	return nil
}

// ValidateGuess checks that an answer guess is between 0 and MaxGuess
func ValidateGuess(guess int) error {
	if guess < 0 {
		return ValidationError{Field: "guess", Message: "must not be negative"}
	}
	if guess > MaxGuess {
		return ValidationError{Field: "guess", Message: fmt.Sprintf("must be at most %d", MaxGuess)}
	}
	return nil
}

// ParseInt parses a whole-number form value for the named field
func ParseInt(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ValidationError{Field: field, Message: "is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ValidationError{Field: field, Message: "must be a whole number"}
	}
	return n, nil
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}
