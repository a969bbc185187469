package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridquiz/internal/assets"
	"gridquiz/internal/catalog"
	"gridquiz/internal/config"
	"gridquiz/internal/database"
	"gridquiz/internal/handlers"
	"gridquiz/internal/security"
	"gridquiz/internal/service"
	"gridquiz/internal/templates"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment is used as is
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Catalog loaded: %d glyphs, %d samples", len(cat.Glyphs()), len(cat.Samples()))

	tmpl, err := templates.Load()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Cache the sample pictures and drop ones no longer in the catalog
	samples := assets.NewSampleCache(cfg.SampleCacheDir)
	sources := make(map[string]string)
	keep := make(map[string]bool)
	for _, s := range cat.Samples() {
		sources[s.Key] = s.URL
		keep[s.Key] = true
	}
	go func() {
		n := samples.Warm(ctx, sources)
		log.Printf("Sample cache ready: %d of %d cached", n, len(sources))
		if err := samples.CleanupOrphaned(keep); err != nil {
			log.Printf("Warning: Failed to cleanup orphaned samples: %v", err)
		}
	}()

	csrfSecret := secretOrRandom("CSRF_SECRET", cfg.CSRFSecret)
	challengeSecret := secretOrRandom("CHALLENGE_SECRET", cfg.ChallengeSecret)

	// Initialize services
	sessionService := service.NewSessionService(db, cfg.SessionDuration)
	quizService := service.NewQuizService(db, cat, cfg.Debug)
	imageService := service.NewImageService(db, cfg.UploadMaxSize)
	challengeService := service.NewChallengeService(challengeSecret, cfg.ChallengeTTL, cfg.AppBaseURL)
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Initialize handlers
	limiter := security.NewRateLimiter(ctx, 30, time.Minute)
	middleware := handlers.NewMiddleware(sessionService, security.NewCSRFGenerator(csrfSecret), limiter, cfg.UploadMaxSize)
	quizHandler := handlers.NewQuizHandler(quizService, imageService, challengeService, emailService, samples, middleware, tmpl, cfg.Debug)
	healthHandler := handlers.NewHealthHandler(db)

	// Setup routes
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, middleware, quizHandler, healthHandler)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(ctx, sessionService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// secretOrRandom falls back to a per-process secret, which does not survive a restart
func secretOrRandom(name, value string) string {
	if value != "" {
		return value
	}
	secret, err := security.RandomSecret()
	if err != nil {
		log.Fatalf("Failed to generate %s: %v", name, err)
	}
	log.Printf("Warning: %s not set, using a random secret for this process", name)
	return secret
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, sessionService *service.SessionService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessionService.CleanupExpired()
			if err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
				continue
			}
			log.Printf("Expired sessions cleaned up: %d", n)
		}
	}
}
