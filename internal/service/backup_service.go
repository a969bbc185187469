package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gridquiz/internal/database"
	"gridquiz/internal/models"
	"gridquiz/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Sessions     []SessionBackup `json:"sessions"`
	States       []StateBackup   `json:"states"`
	Images       []ImageBackup   `json:"images"`
	Attempts     []AttemptBackup `json:"attempts"`
}

// SessionBackup represents a session record for backup
type SessionBackup struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// StateBackup keeps the quiz state document as stored
type StateBackup struct {
	SessionID string          `json:"session_id"`
	State     json.RawMessage `json:"state"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ImageBackup represents an uploaded image; byte fields encode as base64
type ImageBackup struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Data        []byte    `json:"data"`
	Thumbnail   []byte    `json:"thumbnail"`
	CreatedAt   time.Time `json:"created_at"`
}

// AttemptBackup represents a checked guess. IDs are reassigned on import.
type AttemptBackup struct {
	SessionID   string    `json:"session_id"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	DisplayMode string    `json:"display_mode"`
	Guess       int       `json:"guess"`
	Answer      int       `json:"answer"`
	IsCorrect   bool      `json:"is_correct"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter writes the backup as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) error {
	log.Println("Starting database export...")

	backup, err := s.collect()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d sessions, %d states, %d images, %d attempts",
		len(backup.Sessions), len(backup.States), len(backup.Images), len(backup.Attempts))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader. Everything is
// imported in one transaction.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	log.Println("Starting database import...")

	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(func(tx *database.Tx) error {
		// Import in order of dependencies
		if err := importSessions(tx, backup.Sessions); err != nil {
			return fmt.Errorf("failed to import sessions: %w", err)
		}
		if err := importStates(tx, backup.States); err != nil {
			return fmt.Errorf("failed to import states: %w", err)
		}
		if err := importImages(tx, backup.Images); err != nil {
			return fmt.Errorf("failed to import images: %w", err)
		}
		if err := importAttempts(tx, backup.Attempts); err != nil {
			return fmt.Errorf("failed to import attempts: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Println("Database import completed successfully")
	return nil
}

// Clear deletes every row, children first
func (s *BackupService) Clear() error {
	return s.db.WithTx(func(tx *database.Tx) error {
		for _, table := range []string{"quiz_attempts", "uploaded_images", "quiz_states", "sessions"} {
			if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Printf("Cleared table: %s", table)
		}
		return nil
	})
}

func (s *BackupService) collect() (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
	}

	sessions, err := repository.NewSessionRepository(s.db).ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export sessions: %w", err)
	}
	for _, sess := range sessions {
		backup.Sessions = append(backup.Sessions, SessionBackup{
			ID:         sess.ID,
			CreatedAt:  sess.CreatedAt,
			ExpiresAt:  sess.ExpiresAt,
			LastSeenAt: sess.LastSeenAt,
		})
	}

	states, err := repository.NewStateRepository(s.db).ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export states: %w", err)
	}
	for _, st := range states {
		backup.States = append(backup.States, StateBackup{
			SessionID: st.SessionID,
			State:     json.RawMessage(st.StateJSON),
			UpdatedAt: st.UpdatedAt,
		})
	}

	images, err := repository.NewImageRepository(s.db).ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export images: %w", err)
	}
	for _, img := range images {
		backup.Images = append(backup.Images, ImageBackup(img))
	}

	attempts, err := repository.NewAttemptRepository(s.db).ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to export attempts: %w", err)
	}
	for _, a := range attempts {
		backup.Attempts = append(backup.Attempts, AttemptBackup{
			SessionID:   a.SessionID,
			Rows:        a.Rows,
			Cols:        a.Cols,
			DisplayMode: a.DisplayMode,
			Guess:       a.Guess,
			Answer:      a.Answer,
			IsCorrect:   a.IsCorrect,
			AttemptedAt: a.AttemptedAt,
		})
	}

	return backup, nil
}

func importSessions(tx *database.Tx, sessions []SessionBackup) error {
	log.Printf("Importing %d sessions...", len(sessions))
	repo := repository.NewSessionRepository(tx)
	for _, sess := range sessions {
		m := models.Session(sess)
		if err := repo.Create(&m); err != nil {
			return fmt.Errorf("session %s: %w", sess.ID, err)
		}
	}
	return nil
}

func importStates(tx *database.Tx, states []StateBackup) error {
	log.Printf("Importing %d states...", len(states))
	repo := repository.NewStateRepository(tx)
	for _, st := range states {
		row := repository.StoredState{SessionID: st.SessionID, StateJSON: string(st.State), UpdatedAt: st.UpdatedAt}
		if err := repo.SaveRaw(row); err != nil {
			return fmt.Errorf("state %s: %w", st.SessionID, err)
		}
	}
	return nil
}

func importImages(tx *database.Tx, images []ImageBackup) error {
	log.Printf("Importing %d images...", len(images))
	repo := repository.NewImageRepository(tx)
	for _, img := range images {
		m := models.UploadedImage(img)
		if err := repo.Create(&m); err != nil {
			return fmt.Errorf("image %s: %w", img.ID, err)
		}
	}
	return nil
}

func importAttempts(tx *database.Tx, attempts []AttemptBackup) error {
	log.Printf("Importing %d attempts...", len(attempts))
	repo := repository.NewAttemptRepository(tx)
	for _, a := range attempts {
		m := &models.Attempt{
			SessionID:   a.SessionID,
			Rows:        a.Rows,
			Cols:        a.Cols,
			DisplayMode: a.DisplayMode,
			Guess:       a.Guess,
			Answer:      a.Answer,
			IsCorrect:   a.IsCorrect,
			AttemptedAt: a.AttemptedAt,
		}
		if err := repo.Record(m); err != nil {
			return fmt.Errorf("attempt for session %s: %w", a.SessionID, err)
		}
	}
	return nil
}
