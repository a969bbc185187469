package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gridquiz/internal/catalog"
	"gridquiz/internal/database"
	"gridquiz/internal/models"
	"gridquiz/internal/quiz"
	"gridquiz/internal/repository"
	"gridquiz/internal/validation"
)

var (
	ErrUnknownChoice = errors.New("unknown catalog choice")
	ErrImageNotFound = errors.New("uploaded image not found")
)

// ConfigureInput is a problem selection as submitted by a front end.
// Choice is a catalog key; ImageID refers to an image the session uploaded.
type ConfigureInput struct {
	Rows    int
	Cols    int
	Mode    string
	Choice  string
	ImageID string
}

// QuizService runs the grid quiz flow against each session's stored state
type QuizService struct {
	db          *database.DB
	catalog     *catalog.Catalog
	stateRepo   *repository.StateRepository
	imageRepo   *repository.ImageRepository
	attemptRepo *repository.AttemptRepository
	locks       *sessionLocks
	debug       bool
}

// NewQuizService creates a new quiz service
func NewQuizService(db *database.DB, cat *catalog.Catalog, debug bool) *QuizService {
	return &QuizService{
		db:          db,
		catalog:     cat,
		stateRepo:   repository.NewStateRepository(db),
		imageRepo:   repository.NewImageRepository(db),
		attemptRepo: repository.NewAttemptRepository(db),
		locks:       newSessionLocks(),
		debug:       debug,
	}
}

// Catalog returns the glyph and sample catalog in use
func (s *QuizService) Catalog() *catalog.Catalog {
	return s.catalog
}

// State returns the session's current state, or the defaults when none was saved
func (s *QuizService) State(sessionID string) (*quiz.State, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	return s.load(sessionID)
}

// Configure stores a pending selection without visualizing it
func (s *QuizService) Configure(sessionID string, in ConfigureInput) (*quiz.State, error) {
	return s.update(sessionID, func(state *quiz.State) error {
		return s.configure(sessionID, state, in)
	})
}

// Visualize commits the pending selection and computes the answer
func (s *QuizService) Visualize(sessionID string) (*quiz.State, error) {
	return s.update(sessionID, func(state *quiz.State) error {
		state.Visualize()
		return nil
	})
}

// ConfigureAndVisualize stores a selection and commits it in one step
func (s *QuizService) ConfigureAndVisualize(sessionID string, in ConfigureInput) (*quiz.State, error) {
	return s.update(sessionID, func(state *quiz.State) error {
		if err := s.configure(sessionID, state, in); err != nil {
			return err
		}
		state.Visualize()
		return nil
	})
}

// SubmitGuess checks a guess and records it as an attempt in the same
// transaction as the state update
func (s *QuizService) SubmitGuess(sessionID string, guess int) (quiz.Result, *quiz.State, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	state, err := s.load(sessionID)
	if err != nil {
		return quiz.Result{}, nil, err
	}

	result, err := state.SubmitGuess(guess)
	if err != nil {
		return quiz.Result{}, state, err
	}

	attempt := &models.Attempt{
		SessionID:   sessionID,
		Rows:        state.Rows,
		Cols:        state.Cols,
		DisplayMode: string(state.Mode),
		Guess:       result.Guess,
		Answer:      result.Answer,
		IsCorrect:   result.Correct(),
		AttemptedAt: time.Now(),
	}
	err = s.db.WithTx(func(tx *database.Tx) error {
		if err := repository.NewStateRepository(tx).Save(sessionID, state); err != nil {
			return err
		}
		return repository.NewAttemptRepository(tx).Record(attempt)
	})
	if err != nil {
		return quiz.Result{}, nil, fmt.Errorf("failed to save guess: %w", err)
	}

	if s.debug {
		log.Printf("[DEBUG] Guess for session %s: %d × %d, guess=%d, outcome=%s", sessionID, state.Rows, state.Cols, guess, result.Outcome)
	}
	return result, state, nil
}

// Reset restores the defaults and deletes the session's uploads
func (s *QuizService) Reset(sessionID string) (*quiz.State, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	state := quiz.NewState()
	var removed int64
	err := s.db.WithTx(func(tx *database.Tx) error {
		var err error
		if removed, err = repository.NewImageRepository(tx).DeleteBySession(sessionID); err != nil {
			return err
		}
		return repository.NewStateRepository(tx).Save(sessionID, state)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset quiz: %w", err)
	}

	if s.debug {
		log.Printf("[DEBUG] Reset session %s, removed %d uploaded images", sessionID, removed)
	}
	return state, nil
}

// ApplyChallenge configures and visualizes the problem a challenge link describes
func (s *QuizService) ApplyChallenge(sessionID string, ch Challenge) (*quiz.State, error) {
	return s.ConfigureAndVisualize(sessionID, ConfigureInput{
		Rows:   ch.Rows,
		Cols:   ch.Cols,
		Mode:   string(ch.Mode),
		Choice: ch.Choice,
	})
}

// Stats summarizes the session's checked guesses
func (s *QuizService) Stats(sessionID string) (models.SessionStats, error) {
	stats, err := s.attemptRepo.Stats(sessionID)
	if err != nil {
		return stats, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// RecentAttempts returns the session's latest checked guesses, newest first
func (s *QuizService) RecentAttempts(sessionID string, limit int) ([]models.Attempt, error) {
	attempts, err := s.attemptRepo.Recent(sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent attempts: %w", err)
	}
	return attempts, nil
}

// update runs fn on the loaded state under the session lock and saves the result
func (s *QuizService) update(sessionID string, fn func(state *quiz.State) error) (*quiz.State, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	state, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return state, err
	}
	if err := s.stateRepo.Save(sessionID, state); err != nil {
		return nil, fmt.Errorf("failed to save quiz state: %w", err)
	}
	return state, nil
}

func (s *QuizService) load(sessionID string) (*quiz.State, error) {
	state, err := s.stateRepo.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz state: %w", err)
	}
	if state == nil {
		state = quiz.NewState()
	}
	return state, nil
}

func (s *QuizService) configure(sessionID string, state *quiz.State, in ConfigureInput) error {
	sel, err := s.resolve(sessionID, state, in)
	if err != nil {
		return err
	}
	return state.Configure(sel)
}

// resolve turns catalog keys and image IDs into a concrete selection
func (s *QuizService) resolve(sessionID string, state *quiz.State, in ConfigureInput) (quiz.Selection, error) {
	// Bounds are checked before anything touches the catalog or the image store
	if err := validation.ValidateDimension("rows", in.Rows); err != nil {
		return quiz.Selection{}, err
	}
	if err := validation.ValidateDimension("cols", in.Cols); err != nil {
		return quiz.Selection{}, err
	}

	mode, err := quiz.ParseDisplayMode(in.Mode)
	if err != nil {
		return quiz.Selection{}, err
	}
	sel := quiz.Selection{Rows: in.Rows, Cols: in.Cols, Mode: mode}

	switch mode {
	case quiz.ModeGlyph:
		glyph := s.catalog.DefaultGlyph()
		if in.Choice != "" {
			var ok bool
			if glyph, ok = s.catalog.Glyph(in.Choice); !ok {
				return quiz.Selection{}, fmt.Errorf("%w: %q", ErrUnknownChoice, in.Choice)
			}
		}
		sel.Asset = quiz.Asset{Choice: glyph.Key, Glyph: glyph.Symbol}

	case quiz.ModeSampleImage:
		samples := s.catalog.Samples()
		if len(samples) == 0 {
			return quiz.Selection{}, fmt.Errorf("%w: no samples configured", ErrUnknownChoice)
		}
		sample := samples[0]
		if in.Choice != "" {
			var ok bool
			if sample, ok = s.catalog.Sample(in.Choice); !ok {
				return quiz.Selection{}, fmt.Errorf("%w: %q", ErrUnknownChoice, in.Choice)
			}
		}
		sel.Asset = quiz.Asset{Choice: sample.Key, ImageURL: sample.URL, Glyph: sample.Fallback}

	case quiz.ModeUploadedImage:
		imageID := in.ImageID
		if imageID == "" {
			imageID = previousUpload(state)
		}
		if imageID != "" {
			img, err := s.imageRepo.Get(imageID)
			if err != nil {
				return quiz.Selection{}, fmt.Errorf("failed to look up image: %w", err)
			}
			if img == nil || img.SessionID != sessionID {
				return quiz.Selection{}, ErrImageNotFound
			}
		}
		sel.Asset = quiz.Asset{ImageID: imageID}
	}

	return sel, nil
}

// previousUpload finds the image the session last used, so re-submitting the
// form without a new file keeps it
func previousUpload(state *quiz.State) string {
	if state.Pending.Mode == quiz.ModeUploadedImage && state.Pending.Asset.ImageID != "" {
		return state.Pending.Asset.ImageID
	}
	if state.Mode == quiz.ModeUploadedImage {
		return state.Asset.ImageID
	}
	return ""
}
