package repository

import (
	"database/sql"
	"fmt"

	"gridquiz/internal/database"
	"gridquiz/internal/models"
)

// ImageRepository stores uploaded grid images
type ImageRepository struct {
	db database.DBTX
}

// NewImageRepository creates a new image repository
func NewImageRepository(db database.DBTX) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create inserts an uploaded image
func (r *ImageRepository) Create(img *models.UploadedImage) error {
	query := `
		INSERT INTO uploaded_images (id, session_id, filename, content_type, width, height, data, thumbnail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		img.ID,
		img.SessionID,
		img.Filename,
		img.ContentType,
		img.Width,
		img.Height,
		img.Data,
		img.Thumbnail,
		img.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create uploaded image: %w", err)
	}
	return nil
}

// Get retrieves an image by ID, returning nil when it does not exist
func (r *ImageRepository) Get(imageID string) (*models.UploadedImage, error) {
	query := `
		SELECT id, session_id, filename, content_type, width, height, data, thumbnail, created_at
		FROM uploaded_images
		WHERE id = ?
	`
	img := &models.UploadedImage{}
	err := r.db.QueryRow(query, imageID).Scan(
		&img.ID,
		&img.SessionID,
		&img.Filename,
		&img.ContentType,
		&img.Width,
		&img.Height,
		&img.Data,
		&img.Thumbnail,
		&img.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get uploaded image: %w", err)
	}

	return img, nil
}

// DeleteBySession removes every image a session uploaded
func (r *ImageRepository) DeleteBySession(sessionID string) (int64, error) {
	result, err := r.db.Exec("DELETE FROM uploaded_images WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete uploaded images: %w", err)
	}
	return result.RowsAffected()
}

// ListAll retrieves every stored image
func (r *ImageRepository) ListAll() ([]models.UploadedImage, error) {
	query := `
		SELECT id, session_id, filename, content_type, width, height, data, thumbnail, created_at
		FROM uploaded_images
		ORDER BY created_at
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploaded images: %w", err)
	}
	defer rows.Close()

	var images []models.UploadedImage
	for rows.Next() {
		var img models.UploadedImage
		if err := rows.Scan(
			&img.ID,
			&img.SessionID,
			&img.Filename,
			&img.ContentType,
			&img.Width,
			&img.Height,
			&img.Data,
			&img.Thumbnail,
			&img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan uploaded image: %w", err)
		}
		images = append(images, img)
	}

	return images, rows.Err()
}
