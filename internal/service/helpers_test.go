package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"gridquiz/internal/catalog"
	"gridquiz/internal/database"
	"gridquiz/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() error = %v", err)
	}
	return cat
}

func newSession(t *testing.T, sessions *SessionService) *models.Session {
	t.Helper()
	session, err := sessions.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return session
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x % 256), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

type testServices struct {
	db       *database.DB
	sessions *SessionService
	quiz     *QuizService
	images   *ImageService
}

func setupServices(t *testing.T) testServices {
	t.Helper()
	db := setupTestDB(t)
	return testServices{
		db:       db,
		sessions: NewSessionService(db, time.Hour),
		quiz:     NewQuizService(db, defaultCatalog(t), false),
		images:   NewImageService(db, 1<<20),
	}
}
