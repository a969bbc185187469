package repository

import (
	"path/filepath"
	"testing"
	"time"

	"gridquiz/internal/database"
	"gridquiz/internal/models"
	"gridquiz/internal/quiz"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createSession(t *testing.T, repo *SessionRepository, id string, expiresAt time.Time) {
	t.Helper()
	now := time.Now().UTC()
	if err := repo.Create(&models.Session{ID: id, CreatedAt: now, ExpiresAt: expiresAt, LastSeenAt: now}); err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
}

func TestSessionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	future := time.Now().Add(time.Hour)

	createSession(t, repo, "alive", future)

	t.Run("Get existing", func(t *testing.T) {
		session, err := repo.Get("alive")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if session == nil || session.ID != "alive" {
			t.Fatalf("Get() = %+v, want session alive", session)
		}
		if session.IsExpired() {
			t.Error("session should not be expired")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		session, err := repo.Get("nope")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if session != nil {
			t.Errorf("Get() = %+v, want nil", session)
		}
	})

	t.Run("Touch", func(t *testing.T) {
		later := time.Now().Add(48 * time.Hour)
		if err := repo.Touch("alive", time.Now(), later); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}
		session, _ := repo.Get("alive")
		if session.ExpiresAt.Before(future.Add(time.Hour)) {
			t.Errorf("ExpiresAt = %v, want slid forward", session.ExpiresAt)
		}
	})
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionRepository(db)
	states := NewStateRepository(db)
	attempts := NewAttemptRepository(db)

	createSession(t, sessions, "old", time.Now().Add(-time.Hour))
	createSession(t, sessions, "new", time.Now().Add(time.Hour))

	for _, id := range []string{"old", "new"} {
		if err := states.Save(id, quiz.NewState()); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
		if err := attempts.Record(&models.Attempt{SessionID: id, Rows: 3, Cols: 4, DisplayMode: "glyph", Guess: 12, Answer: 12, IsCorrect: true, AttemptedAt: time.Now()}); err != nil {
			t.Fatalf("Record(%s) error = %v", id, err)
		}
	}

	var removed int64
	err := db.WithTx(func(tx *database.Tx) error {
		var err error
		removed, err = NewSessionRepository(tx).DeleteExpired(time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("DeleteExpired() removed %d sessions, want 1", removed)
	}

	if s, _ := sessions.Get("old"); s != nil {
		t.Error("expired session still present")
	}
	if st, _ := states.Get("old"); st != nil {
		t.Error("expired session state still present")
	}
	if st, _ := states.Get("new"); st == nil {
		t.Error("live session state was removed")
	}
	all, err := attempts.ListAll()
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 1 || all[0].SessionID != "new" {
		t.Errorf("attempts after cleanup = %+v, want only session new", all)
	}
}

func TestStateRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	createSession(t, NewSessionRepository(db), "s1", time.Now().Add(time.Hour))
	repo := NewStateRepository(db)

	missing, err := repo.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if missing != nil {
		t.Fatalf("Get() before save = %+v, want nil", missing)
	}

	state := quiz.NewState()
	if err := state.Configure(quiz.Selection{Rows: 5, Cols: 7, Mode: quiz.ModeSampleImage, Asset: quiz.Asset{Choice: "star", ImageURL: "https://example.com/star.svg"}}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	state.Visualize()
	if _, err := state.SubmitGuess(34); err != nil {
		t.Fatalf("SubmitGuess() error = %v", err)
	}

	if err := repo.Save("s1", state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := repo.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if loaded.Answer != 35 || !loaded.IsVisualized || !loaded.IsChecked {
		t.Errorf("loaded state = %+v, want visualized 5x7 checked", loaded)
	}
	if loaded.Mode != quiz.ModeSampleImage || loaded.Asset.ImageURL != "https://example.com/star.svg" {
		t.Errorf("loaded asset = %v %+v", loaded.Mode, loaded.Asset)
	}
	if loaded.LastResult == nil || loaded.LastResult.Correct() || loaded.LastResult.Answer != 35 {
		t.Errorf("loaded result = %+v, want incorrect with answer 35", loaded.LastResult)
	}

	// Saving again replaces the row
	loaded.Reset()
	if err := repo.Save("s1", loaded); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	rows, err := repo.ListAll()
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ListAll() returned %d rows, want 1", len(rows))
	}

	if err := repo.Delete("s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if st, _ := repo.Get("s1"); st != nil {
		t.Error("state still present after Delete")
	}
}

func TestImageRepository(t *testing.T) {
	db := setupTestDB(t)
	createSession(t, NewSessionRepository(db), "s1", time.Now().Add(time.Hour))
	repo := NewImageRepository(db)

	img := &models.UploadedImage{
		ID:          "img-1",
		SessionID:   "s1",
		Filename:    "cat.png",
		ContentType: "image/png",
		Width:       10,
		Height:      8,
		Data:        []byte{1, 2, 3},
		Thumbnail:   []byte{4, 5},
		CreatedAt:   time.Now(),
	}
	if err := repo.Create(img); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get("img-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Filename != "cat.png" || got.Width != 10 || string(got.Thumbnail) != string([]byte{4, 5}) {
		t.Errorf("Get() = %+v", got)
	}

	if missing, _ := repo.Get("img-2"); missing != nil {
		t.Errorf("Get(missing) = %+v, want nil", missing)
	}

	removed, err := repo.DeleteBySession("s1")
	if err != nil {
		t.Fatalf("DeleteBySession() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("DeleteBySession() = %d, want 1", removed)
	}
}

func TestAttemptRepository(t *testing.T) {
	db := setupTestDB(t)
	createSession(t, NewSessionRepository(db), "s1", time.Now().Add(time.Hour))
	repo := NewAttemptRepository(db)

	empty, err := repo.Stats("s1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if empty.TotalAttempts != 0 || empty.Accuracy() != 0 {
		t.Errorf("Stats() on empty = %+v", empty)
	}

	base := time.Now()
	guesses := []struct {
		guess   int
		correct bool
	}{
		{11, false},
		{12, true},
		{12, true},
	}
	for i, g := range guesses {
		a := &models.Attempt{SessionID: "s1", Rows: 3, Cols: 4, DisplayMode: "glyph", Guess: g.guess, Answer: 12, IsCorrect: g.correct, AttemptedAt: base.Add(time.Duration(i) * time.Second)}
		if err := repo.Record(a); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if a.ID == 0 {
			t.Error("Record() did not set ID")
		}
	}

	stats, err := repo.Stats("s1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalAttempts != 3 || stats.CorrectAttempts != 2 {
		t.Errorf("Stats() = %+v, want 3 total 2 correct", stats)
	}

	recent, err := repo.Recent("s1", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent() returned %d, want 2", len(recent))
	}
	if recent[0].ID < recent[1].ID {
		t.Error("Recent() should be newest first")
	}
}
