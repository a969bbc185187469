package quiz

// Cell is one position in the rendered grid
type Cell struct {
	Row         int
	Col         int
	Glyph       string
	ImageURL    string
	Placeholder bool
}

// Grid is the committed problem laid out row by row
type Grid struct {
	Rows  int
	Cols  int
	Mode  DisplayMode
	Cells [][]Cell
}

// Count returns the number of cells
func (g Grid) Count() int {
	return g.Rows * g.Cols
}

// ImageResolver turns an uploaded image ID into a URL the UI can load
type ImageResolver func(imageID string) string

// Grid lays out the committed selection. Uploaded-image cells without an image
// are placeholders. Before visualization the grid is empty.
func (s *State) Grid(resolve ImageResolver) Grid {
	if !s.IsVisualized {
		return Grid{Mode: s.Mode}
	}

	g := Grid{Rows: s.Rows, Cols: s.Cols, Mode: s.Mode}
	base := Cell{}
	switch s.Mode {
	case ModeGlyph:
		base.Glyph = s.Asset.Glyph
	case ModeSampleImage:
		base.ImageURL = s.Asset.ImageURL
	case ModeUploadedImage:
		if s.Asset.ImageID == "" || resolve == nil {
			base.Placeholder = true
		} else {
			base.ImageURL = resolve(s.Asset.ImageID)
		}
	}

	g.Cells = make([][]Cell, s.Rows)
	for r := 0; r < s.Rows; r++ {
		row := make([]Cell, s.Cols)
		for c := 0; c < s.Cols; c++ {
			cell := base
			cell.Row = r
			cell.Col = c
			row[c] = cell
		}
		g.Cells[r] = row
	}
	return g
}
