// Package catalog loads the glyph and sample-image choices offered to learners.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// CommonsBaseURL is exposed to catalog files as the `commons` variable
const CommonsBaseURL = "https://upload.wikimedia.org/wikipedia/commons"

//go:embed default.hcl
var defaultCatalog []byte

// Glyph is a text symbol that fills grid cells
type Glyph struct {
	Key    string
	Symbol string
	Label  string
}

// Sample is a fixed external image. Fallback is shown where images cannot be.
type Sample struct {
	Key      string
	Label    string
	URL      string
	Fallback string
}

// Catalog holds the available choices in file order
type Catalog struct {
	glyphs  []Glyph
	samples []Sample
}

type hclCatalogFile struct {
	Glyphs  []*hclGlyph  `hcl:"glyph,block"`
	Samples []*hclSample `hcl:"sample,block"`
}

type hclGlyph struct {
	Key    string `hcl:"key,label"`
	Symbol string `hcl:"symbol"`
	Label  string `hcl:"label"`
}

type hclSample struct {
	Key      string `hcl:"key,label"`
	Label    string `hcl:"label"`
	URL      string `hcl:"url"`
	Fallback string `hcl:"fallback,optional"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, "default.hcl")
}

// Load reads a catalog file, or the embedded default when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse decodes catalog source
func Parse(src []byte, filename string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", filename, diags)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"commons": cty.StringVal(CommonsBaseURL),
		},
	}

	var parsed hclCatalogFile
	diags = gohcl.DecodeBody(file.Body, evalCtx, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", filename, diags)
	}

	return build(&parsed, filename)
}

func build(parsed *hclCatalogFile, filename string) (*Catalog, error) {
	if len(parsed.Glyphs) == 0 {
		return nil, fmt.Errorf("catalog %s: at least one glyph is required", filename)
	}

	c := &Catalog{}
	seen := make(map[string]bool)
	for _, g := range parsed.Glyphs {
		if seen["glyph:"+g.Key] {
			return nil, fmt.Errorf("catalog %s: duplicate glyph %q", filename, g.Key)
		}
		if g.Symbol == "" {
			return nil, fmt.Errorf("catalog %s: glyph %q has an empty symbol", filename, g.Key)
		}
		seen["glyph:"+g.Key] = true
		c.glyphs = append(c.glyphs, Glyph{Key: g.Key, Symbol: g.Symbol, Label: g.Label})
	}

	for _, s := range parsed.Samples {
		if seen["sample:"+s.Key] {
			return nil, fmt.Errorf("catalog %s: duplicate sample %q", filename, s.Key)
		}
		if s.URL == "" {
			return nil, fmt.Errorf("catalog %s: sample %q has an empty url", filename, s.Key)
		}
		seen["sample:"+s.Key] = true
		fallback := s.Fallback
		if fallback == "" {
			fallback = c.glyphs[0].Symbol
		}
		c.samples = append(c.samples, Sample{Key: s.Key, Label: s.Label, URL: s.URL, Fallback: fallback})
	}

	return c, nil
}

// Glyphs returns the glyph choices
func (c *Catalog) Glyphs() []Glyph {
	return c.glyphs
}

// Samples returns the sample image choices
func (c *Catalog) Samples() []Sample {
	return c.samples
}

// DefaultGlyph is the first glyph in the file
func (c *Catalog) DefaultGlyph() Glyph {
	return c.glyphs[0]
}

// Glyph looks up a glyph by key
func (c *Catalog) Glyph(key string) (Glyph, bool) {
	for _, g := range c.glyphs {
		if g.Key == key {
			return g, true
		}
	}
	return Glyph{}, false
}

// Sample looks up a sample by key
func (c *Catalog) Sample(key string) (Sample, bool) {
	for _, s := range c.samples {
		if s.Key == key {
			return s, true
		}
	}
	return Sample{}, false
}
