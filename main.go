package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adpatel/circleback/internal/bot"
	"github.com/adpatel/circleback/internal/config"
	"github.com/adpatel/circleback/internal/database"
	"github.com/adpatel/circleback/internal/nudge"
	myopenai "github.com/adpatel/circleback/internal/openai"
	"github.com/adpatel/circleback/internal/twilio"
)

func main() {
	logger := log.New(os.Stdout, "[circleback] ", log.LstdFlags|log.Lshortfile)
	cfg := config.Load()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database init failed: %v", err)
	}

	openAIClient := myopenai.New(cfg.OpenAIAPIKey)
	twilioClient := twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)

	var composer nudge.Composer
	if cfg.OpenAIAPIKey != "" {
		composer = openAIClient
	}
	engine := nudge.NewEngine(db, cfg.Nudge, composer, logger)
	worker := nudge.NewWorker(db, cfg.Nudge, twilioClient, logger)

	nudgeBot := bot.New(cfg, db, engine, worker, openAIClient, logger)
	if err := nudgeBot.StartScheduler(); err != nil {
		logger.Fatalf("scheduler start: %v", err)
	}

	http.Handle("/twilio/webhook", nudgeBot.Handler())

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: nil,
	}

	go func() {
		logger.Printf("server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	waitForShutdown(server, nudgeBot, logger)
}

func waitForShutdown(server *http.Server, nudgeBot *bot.Bot, logger *log.Logger) {
	stopCtx := make(chan os.Signal, 1)
	signal.Notify(stopCtx, syscall.SIGINT, syscall.SIGTERM)
	<-stopCtx
	logger.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
	nudgeBot.StopScheduler()
}
