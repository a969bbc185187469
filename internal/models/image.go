package models

import "time"

// UploadedImage is a learner-supplied picture used to fill the grid
type UploadedImage struct {
	ID          string
	SessionID   string
	Filename    string
	ContentType string
	Width       int
	Height      int
	Data        []byte
	Thumbnail   []byte
	CreatedAt   time.Time
}
