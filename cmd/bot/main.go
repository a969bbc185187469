package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"gridquiz/internal/catalog"
	"gridquiz/internal/config"
	"gridquiz/internal/database"
	"gridquiz/internal/service"
	"gridquiz/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	sessionService := service.NewSessionService(db, cfg.SessionDuration)
	quizService := service.NewQuizService(db, cat, cfg.Debug)
	imageService := service.NewImageService(db, cfg.UploadMaxSize)

	bot, err := telegram.NewBot(cfg.TelegramToken, sessionService, quizService, imageService, cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("🤖 Bot is starting...")
	bot.Start(ctx)
	log.Println("Bot stopped")
}
