package quiz

import "testing"

func TestGridBeforeVisualizeIsEmpty(t *testing.T) {
	g := NewState().Grid(nil)
	if g.Count() != 0 || len(g.Cells) != 0 {
		t.Errorf("grid before visualize = %+v, want empty", g)
	}
}

func TestGridLayout(t *testing.T) {
	resolve := func(id string) string { return "/quiz/images/" + id }

	tests := []struct {
		name            string
		sel             Selection
		wantGlyph       string
		wantURL         string
		wantPlaceholder bool
	}{
		{
			name:      "glyph",
			sel:       Selection{Rows: 2, Cols: 5, Mode: ModeGlyph, Asset: Asset{Glyph: "⭐"}},
			wantGlyph: "⭐",
		},
		{
			name:    "sample image",
			sel:     Selection{Rows: 4, Cols: 1, Mode: ModeSampleImage, Asset: Asset{ImageURL: "/quiz/samples/star"}},
			wantURL: "/quiz/samples/star",
		},
		{
			name:    "uploaded image",
			sel:     Selection{Rows: 3, Cols: 3, Mode: ModeUploadedImage, Asset: Asset{ImageID: "abc"}},
			wantURL: "/quiz/images/abc",
		},
		{
			name:            "uploaded image missing",
			sel:             Selection{Rows: 1, Cols: 2, Mode: ModeUploadedImage},
			wantPlaceholder: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			if err := s.Configure(tt.sel); err != nil {
				t.Fatalf("Configure error = %v", err)
			}
			s.Visualize()

			g := s.Grid(resolve)
			if len(g.Cells) != tt.sel.Rows {
				t.Fatalf("rows = %d, want %d", len(g.Cells), tt.sel.Rows)
			}
			if g.Count() != s.Answer {
				t.Errorf("Count() = %d, want answer %d", g.Count(), s.Answer)
			}
			for r, row := range g.Cells {
				if len(row) != tt.sel.Cols {
					t.Fatalf("row %d has %d cells, want %d", r, len(row), tt.sel.Cols)
				}
				for c, cell := range row {
					if cell.Row != r || cell.Col != c {
						t.Errorf("cell position = (%d,%d), want (%d,%d)", cell.Row, cell.Col, r, c)
					}
					if cell.Glyph != tt.wantGlyph || cell.ImageURL != tt.wantURL || cell.Placeholder != tt.wantPlaceholder {
						t.Errorf("cell = %+v", cell)
					}
				}
			}
		})
	}
}
