// Package imaging decodes learner uploads and renders grid pictures.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ThumbnailSize is the bounding box of stored thumbnails
const ThumbnailSize = 120

// MaxPixelDimension caps the width and height of an upload, checked before
// the pixels are decoded
const MaxPixelDimension = 4096

var (
	ErrEmpty             = errors.New("image is empty")
	ErrTooLarge          = errors.New("image is too large")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Decoded is a validated upload
type Decoded struct {
	Format      string
	ContentType string
	Width       int
	Height      int
	Data        []byte
	Thumbnail   []byte
	Image       image.Image
}

// Decode reads at most maxBytes from r and decodes the image
func Decode(r io.Reader, maxBytes int64) (*Decoded, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width > MaxPixelDimension || cfg.Height > MaxPixelDimension {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	thumb, err := EncodePNG(Thumbnail(img, ThumbnailSize))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &Decoded{
		Format:      format,
		ContentType: contentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Data:        data,
		Thumbnail:   thumb,
		Image:       img,
	}, nil
}

// Thumbnail scales img to fit within size × size, keeping its aspect ratio.
// Images already small enough are copied unscaled.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// ComposeGrid draws tile into a rows × cols grid of cell × cell squares separated by gap pixels
func ComposeGrid(tile image.Image, rows, cols, cell, gap int) *image.RGBA {
	width := cols*cell + (cols-1)*gap
	height := rows*cell + (rows-1)*gap
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	fitted := Thumbnail(tile, cell)
	fb := fitted.Bounds()
	offX := (cell - fb.Dx()) / 2
	offY := (cell - fb.Dy()) / 2

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := c*(cell+gap) + offX
			y := r*(cell+gap) + offY
			dst := image.Rect(x, y, x+fb.Dx(), y+fb.Dy())
			draw.Draw(canvas, dst, fitted, fb.Min, draw.Over)
		}
	}
	return canvas
}

// EncodePNG encodes img as PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBytes decodes stored image bytes without size checks
func DecodeBytes(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return img, nil
}
