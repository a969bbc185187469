package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gridquiz/internal/quiz"
	"gridquiz/internal/validation"
)

const challengeIssuer = "gridquiz"

var (
	ErrInvalidChallenge = errors.New("invalid or expired challenge link")
	ErrChallengeUpload  = errors.New("uploaded images cannot be shared")
)

// Challenge is a problem preset that can be shared as a link
type Challenge struct {
	Rows   int
	Cols   int
	Mode   quiz.DisplayMode
	Choice string
}

type challengeClaims struct {
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Mode   string `json:"mode"`
	Choice string `json:"choice,omitempty"`
	jwt.RegisteredClaims
}

// ChallengeService signs and verifies challenge links
type ChallengeService struct {
	secret     []byte
	ttl        time.Duration
	appBaseURL string
}

// NewChallengeService creates a new challenge service
func NewChallengeService(secret string, ttl time.Duration, appBaseURL string) *ChallengeService {
	return &ChallengeService{
		secret:     []byte(secret),
		ttl:        ttl,
		appBaseURL: appBaseURL,
	}
}

// FromState builds a challenge from the committed problem of a state
func FromState(state *quiz.State) (Challenge, error) {
	if !state.IsVisualized {
		return Challenge{}, quiz.ErrNotVisualized
	}
	return Challenge{Rows: state.Rows, Cols: state.Cols, Mode: state.Mode, Choice: state.Asset.Choice}, nil
}

// Issue signs a challenge
func (s *ChallengeService) Issue(ch Challenge) (string, error) {
	if ch.Mode == quiz.ModeUploadedImage {
		return "", ErrChallengeUpload
	}
	if err := validateChallenge(ch); err != nil {
		return "", err
	}

	now := time.Now()
	claims := challengeClaims{
		Rows:   ch.Rows,
		Cols:   ch.Cols,
		Mode:   string(ch.Mode),
		Choice: ch.Choice,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    challengeIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge: %w", err)
	}
	return token, nil
}

// Link returns the URL that applies a signed challenge
func (s *ChallengeService) Link(token string) string {
	return s.appBaseURL + "/challenge/" + token
}

// Parse verifies a challenge token and returns the problem it describes
func (s *ChallengeService) Parse(token string) (Challenge, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(challengeIssuer),
		jwt.WithExpirationRequired(),
	)
	claims := &challengeClaims{}

	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Challenge{}, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}

	mode, err := quiz.ParseDisplayMode(claims.Mode)
	if err != nil || mode == quiz.ModeUploadedImage {
		return Challenge{}, fmt.Errorf("%w: bad mode %q", ErrInvalidChallenge, claims.Mode)
	}

	ch := Challenge{Rows: claims.Rows, Cols: claims.Cols, Mode: mode, Choice: claims.Choice}
	if err := validateChallenge(ch); err != nil {
		return Challenge{}, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}
	return ch, nil
}

func validateChallenge(ch Challenge) error {
	if err := validation.ValidateDimension("rows", ch.Rows); err != nil {
		return err
	}
	return validation.ValidateDimension("cols", ch.Cols)
}
