package service

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"gridquiz/internal/database"
	"gridquiz/internal/imaging"
	"gridquiz/internal/models"
	"gridquiz/internal/repository"
)

// Composite grid cell size and gap, in pixels
const (
	compositeCell = 96
	compositeGap  = 6
)

// ImageService validates and stores learner uploads
type ImageService struct {
	imageRepo *repository.ImageRepository
	maxBytes  int64
}

// NewImageService creates a new image service
func NewImageService(db *database.DB, maxBytes int64) *ImageService {
	return &ImageService{
		imageRepo: repository.NewImageRepository(db),
		maxBytes:  maxBytes,
	}
}

// MaxBytes returns the upload size limit
func (s *ImageService) MaxBytes() int64 {
	return s.maxBytes
}

// Store decodes an upload, builds its thumbnail and saves both for the session
func (s *ImageService) Store(sessionID, filename string, r io.Reader) (*models.UploadedImage, error) {
	decoded, err := imaging.Decode(r, s.maxBytes)
	if err != nil {
		return nil, err
	}

	img := &models.UploadedImage{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Filename:    cleanFilename(filename),
		ContentType: decoded.ContentType,
		Width:       decoded.Width,
		Height:      decoded.Height,
		Data:        decoded.Data,
		Thumbnail:   decoded.Thumbnail,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.imageRepo.Create(img); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	log.Printf("Stored %s upload %s (%dx%d, %d bytes) for session %s", decoded.Format, img.ID, img.Width, img.Height, len(img.Data), sessionID)
	return img, nil
}

// Get returns an image owned by the session
func (s *ImageService) Get(sessionID, imageID string) (*models.UploadedImage, error) {
	img, err := s.imageRepo.Get(imageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if img == nil || img.SessionID != sessionID {
		return nil, ErrImageNotFound
	}
	return img, nil
}

// Thumbnail returns the PNG thumbnail of an image owned by the session
func (s *ImageService) Thumbnail(sessionID, imageID string) ([]byte, error) {
	img, err := s.Get(sessionID, imageID)
	if err != nil {
		return nil, err
	}
	return img.Thumbnail, nil
}

// Composite renders the image tiled rows × cols as one PNG
func (s *ImageService) Composite(sessionID, imageID string, rows, cols int) ([]byte, error) {
	thumb, err := s.Thumbnail(sessionID, imageID)
	if err != nil {
		return nil, err
	}
	tile, err := imaging.DecodeBytes(thumb)
	if err != nil {
		return nil, fmt.Errorf("failed to decode thumbnail: %w", err)
	}
	return imaging.EncodePNG(imaging.ComposeGrid(tile, rows, cols, compositeCell, compositeGap))
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
