package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_TYPE", "SESSION_HOURS", "UPLOAD_MAX_BYTES", "CHALLENGE_TTL", "APP_BASE_URL", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want 24h", cfg.SessionDuration)
	}
	if cfg.UploadMaxSize != 5*1024*1024 {
		t.Errorf("UploadMaxSize = %d, want 5MB", cfg.UploadMaxSize)
	}
	if cfg.ChallengeTTL != 7*24*time.Hour {
		t.Errorf("ChallengeTTL = %v, want 168h", cfg.ChallengeTTL)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_TYPE", "Postgres")
	t.Setenv("SESSION_HOURS", "2")
	t.Setenv("CHALLENGE_TTL", "30m")
	t.Setenv("APP_BASE_URL", "https://quiz.example.com/")
	t.Setenv("DEBUG", "true")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("DatabaseType = %q, want postgres", cfg.DatabaseType)
	}
	if cfg.SessionDuration != 2*time.Hour {
		t.Errorf("SessionDuration = %v, want 2h", cfg.SessionDuration)
	}
	if cfg.ChallengeTTL != 30*time.Minute {
		t.Errorf("ChallengeTTL = %v, want 30m", cfg.ChallengeTTL)
	}
	if cfg.AppBaseURL != "https://quiz.example.com" {
		t.Errorf("AppBaseURL = %q, want trailing slash trimmed", cfg.AppBaseURL)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("SESSION_HOURS", "abc")
	t.Setenv("UPLOAD_MAX_BYTES", "-5")
	t.Setenv("CHALLENGE_TTL", "soon")

	cfg := Load()

	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want default", cfg.SessionDuration)
	}
	if cfg.UploadMaxSize != 5*1024*1024 {
		t.Errorf("UploadMaxSize = %d, want default", cfg.UploadMaxSize)
	}
	if cfg.ChallengeTTL != 7*24*time.Hour {
		t.Errorf("ChallengeTTL = %v, want default", cfg.ChallengeTTL)
	}
}
