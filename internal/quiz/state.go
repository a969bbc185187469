package quiz

import (
	"errors"
	"fmt"
	"strings"

	"gridquiz/internal/validation"
)

// Defaults restored by Reset
const (
	DefaultRows   = 3
	DefaultCols   = 4
	DefaultChoice = "apple"
	DefaultGlyph  = "🍎"
)

var (
	ErrNotVisualized = errors.New("grid has not been visualized")
	ErrInvalidMode   = errors.New("invalid display mode")
	ErrMissingAsset  = errors.New("display mode requires an asset")
)

// DisplayMode selects what fills each grid cell
type DisplayMode string

const (
	ModeGlyph         DisplayMode = "glyph"
	ModeSampleImage   DisplayMode = "sample"
	ModeUploadedImage DisplayMode = "upload"
)

// ParseDisplayMode converts a form or callback value into a DisplayMode
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeGlyph:
		return ModeGlyph, nil
	case ModeSampleImage:
		return ModeSampleImage, nil
	case ModeUploadedImage:
		return ModeUploadedImage, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Asset is the visual placed in every cell. Which fields are set depends on the mode:
// Glyph for ModeGlyph, ImageURL for ModeSampleImage, ImageID for ModeUploadedImage.
type Asset struct {
	Choice   string `json:"choice,omitempty"`
	Glyph    string `json:"glyph,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	ImageID  string `json:"image_id,omitempty"`
}

// Selection is a configured but not necessarily committed problem
type Selection struct {
	Rows  int         `json:"rows"`
	Cols  int         `json:"cols"`
	Mode  DisplayMode `json:"mode"`
	Asset Asset       `json:"asset"`
}

// DefaultSelection returns the 3 × 4 apple grid every session starts with
func DefaultSelection() Selection {
	return Selection{
		Rows:  DefaultRows,
		Cols:  DefaultCols,
		Mode:  ModeGlyph,
		Asset: Asset{Choice: DefaultChoice, Glyph: DefaultGlyph},
	}
}

// Validate checks the selection bounds and that the mode has what it needs to render
func (s Selection) Validate() error {
	if err := validation.ValidateDimension("rows", s.Rows); err != nil {
		return err
	}
	if err := validation.ValidateDimension("cols", s.Cols); err != nil {
		return err
	}
	switch s.Mode {
	case ModeGlyph:
		if s.Asset.Glyph == "" {
			return fmt.Errorf("%w: glyph", ErrMissingAsset)
		}
	case ModeSampleImage:
		if s.Asset.ImageURL == "" {
			return fmt.Errorf("%w: image url", ErrMissingAsset)
		}
	case ModeUploadedImage:
		// an empty ImageID renders as a placeholder
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, s.Mode)
	}
	return nil
}

// Outcome of a checked guess
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// Result reports a checked guess; Answer is the revealed correct value
type Result struct {
	Outcome Outcome `json:"outcome"`
	Guess   int     `json:"guess"`
	Answer  int     `json:"answer"`
}

// Correct reports whether the guess matched the answer
func (r Result) Correct() bool {
	return r.Outcome == OutcomeCorrect
}

// State is the per-session quiz record. Pending holds what configure stored;
// the committed fields only change on Visualize and Reset.
type State struct {
	Pending      Selection   `json:"pending"`
	Rows         int         `json:"rows"`
	Cols         int         `json:"cols"`
	Mode         DisplayMode `json:"mode"`
	Asset        Asset       `json:"asset"`
	Answer       int         `json:"answer"`
	IsVisualized bool        `json:"is_visualized"`
	IsChecked    bool        `json:"is_checked"`
	LastResult   *Result     `json:"last_result,omitempty"`
}

// NewState returns a state holding the defaults
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Configure validates and stores a selection without computing the answer
func (s *State) Configure(sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	s.Pending = sel
	return nil
}

// Visualize commits the pending selection and computes the answer
func (s *State) Visualize() {
	s.Rows = s.Pending.Rows
	s.Cols = s.Pending.Cols
	s.Mode = s.Pending.Mode
	s.Asset = s.Pending.Asset
	s.Answer = s.Rows * s.Cols
	s.IsVisualized = true
	s.IsChecked = false
	s.LastResult = nil
}

// SubmitGuess checks a guess against the committed answer
func (s *State) SubmitGuess(guess int) (Result, error) {
	if !s.IsVisualized {
		return Result{}, ErrNotVisualized
	}
	if err := validation.ValidateGuess(guess); err != nil {
		return Result{}, err
	}

	result := Result{Outcome: OutcomeIncorrect, Guess: guess, Answer: s.Answer}
	if guess == s.Answer {
		result.Outcome = OutcomeCorrect
	}

	s.IsChecked = true
	s.LastResult = &result
	return result, nil
}

// Reset restores every field to its default
func (s *State) Reset() {
	def := DefaultSelection()
	*s = State{
		Pending: def,
		Rows:    def.Rows,
		Cols:    def.Cols,
		Mode:    def.Mode,
		Asset:   def.Asset,
	}
}

// Committed returns the selection that was last visualized
func (s *State) Committed() Selection {
	return Selection{Rows: s.Rows, Cols: s.Cols, Mode: s.Mode, Asset: s.Asset}
}

// Hint explains how to count the grid. Empty until visualized.
func (s *State) Hint() string {
	if !s.IsVisualized {
		return ""
	}
	return fmt.Sprintf("그림을 가로로 몇 개, 세로로 몇 개인지 세어보세요. 예: %d행 × %d열 = 각 행에 %d개씩, 총 %d개",
		s.Rows, s.Cols, s.Cols, s.Answer)
}
