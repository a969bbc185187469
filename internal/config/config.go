package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	SessionDuration time.Duration
	UploadMaxSize   int64

	CatalogPath    string
	SampleCacheDir string

	CSRFSecret      string
	ChallengeSecret string
	ChallengeTTL    time.Duration
	AppBaseURL      string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	TelegramToken string
	Debug         bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DatabasePath:    getEnv("DB_PATH", "./gridquiz.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SessionDuration: time.Duration(getEnvInt("SESSION_HOURS", 24)) * time.Hour,
		UploadMaxSize:   int64(getEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024)), // 5MB
		CatalogPath:     getEnv("CATALOG_PATH", ""),
		SampleCacheDir:  getEnv("SAMPLE_CACHE_DIR", "./cache/samples"),
		CSRFSecret:      getEnv("CSRF_SECRET", ""),
		ChallengeSecret: getEnv("CHALLENGE_SECRET", ""),
		ChallengeTTL:    getEnvDuration("CHALLENGE_TTL", 7*24*time.Hour),
		AppBaseURL:      strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", ""),
		SESFromName:     getEnv("SES_FROM_NAME", "곱셈 놀이"),
		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		Debug:           getEnvBool("DEBUG", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
