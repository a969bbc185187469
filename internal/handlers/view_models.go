package handlers

import (
	"net/url"

	"gridquiz/internal/catalog"
	"gridquiz/internal/models"
	"gridquiz/internal/quiz"
)

// QuizFormView pre-fills the configuration form from the pending selection
type QuizFormView struct {
	Rows         int
	Cols         int
	Mode         string
	GlyphChoice  string
	SampleChoice string
	HasUpload    bool
}

// PreviewView shows what the pending selection will fill the grid with
type PreviewView struct {
	Glyph       string
	ImageURL    string
	Placeholder bool
}

// QuizPageViewData is everything the quiz page renders
type QuizPageViewData struct {
	Title          string
	CSRFToken      string
	Form           QuizFormView
	Preview        PreviewView
	Glyphs         []catalog.Glyph
	Samples        []catalog.Sample
	Visualized     bool
	Grid           quiz.Grid
	Hint           string
	Result         *quiz.Result
	Stats          models.SessionStats
	Recent         []models.Attempt
	Error          string
	Notice         string
	ChallengeLink  string
	EmailEnabled   bool
	UploadMaxBytes int64
}

func imageURL(imageID string) string {
	return "/quiz/images/" + url.PathEscape(imageID)
}

func sampleURL(key string) string {
	return "/quiz/samples/" + url.PathEscape(key)
}

// newQuizPageViewData turns a quiz state into page data. Sample images are
// served through the local cache instead of their source URL.
func newQuizPageViewData(state *quiz.State, cat *catalog.Catalog) QuizPageViewData {
	data := QuizPageViewData{
		Title:      "곱셈 놀이",
		Glyphs:     cat.Glyphs(),
		Samples:    cat.Samples(),
		Visualized: state.IsVisualized,
		Hint:       state.Hint(),
		Result:     state.LastResult,
	}

	pending := state.Pending
	data.Form = QuizFormView{
		Rows:      pending.Rows,
		Cols:      pending.Cols,
		Mode:      string(pending.Mode),
		HasUpload: pending.Mode == quiz.ModeUploadedImage && pending.Asset.ImageID != "",
	}
	switch pending.Mode {
	case quiz.ModeGlyph:
		data.Form.GlyphChoice = pending.Asset.Choice
		data.Preview.Glyph = pending.Asset.Glyph
	case quiz.ModeSampleImage:
		data.Form.SampleChoice = pending.Asset.Choice
		data.Preview.ImageURL = sampleURL(pending.Asset.Choice)
	case quiz.ModeUploadedImage:
		if pending.Asset.ImageID == "" {
			data.Preview.Placeholder = true
		} else {
			data.Preview.ImageURL = imageURL(pending.Asset.ImageID)
		}
	}

	if state.IsVisualized {
		data.Grid = state.Grid(imageURL)
		if data.Grid.Mode == quiz.ModeSampleImage {
			local := sampleURL(state.Asset.Choice)
			for r := range data.Grid.Cells {
				for c := range data.Grid.Cells[r] {
					data.Grid.Cells[r][c].ImageURL = local
				}
			}
		}
	}

	return data
}
