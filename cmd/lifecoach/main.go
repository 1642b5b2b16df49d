package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifecoach/internal/analysis"
	"lifecoach/internal/bot"
	"lifecoach/internal/config"
	"lifecoach/internal/llm"
	"lifecoach/internal/logging"
	"lifecoach/internal/repository"
	"lifecoach/internal/service"
	"lifecoach/internal/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	db, err := repository.NewDB(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("mongo")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(disconnectCtx); err != nil {
			log.WithError(err).Warn("mongo disconnect")
		}
	}()

	userRepo := repository.NewUserRepository(db)

	llmClient := llm.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
	emotionClient := analysis.NewEmotionClient(cfg.EmotionAPIURL, cfg.EmotionAPIKey, 2*time.Minute)
	speechClient := analysis.NewSpeechClient(cfg.GroqAPIKey, cfg.GroqBaseURL)
	sentimentClient := analysis.NewSentimentClient(cfg.SentimentAPIURL, cfg.SentimentAPIKey, 30*time.Second)

	coachSvc := service.NewCoachService(userRepo, llmClient, cfg.FreeMessageLimit)
	billingSvc := service.NewBillingService(userRepo, cfg.StripeAPIKey, cfg.PublicBaseURL)
	mediaSvc := service.NewMediaService(cfg.DownloadsDir, emotionClient, speechClient, sentimentClient)
	cleanupSvc := service.NewCleanupService(cfg.DownloadsDir, cfg.MediaRetention)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, coachSvc, billingSvc, mediaSvc)
	if err != nil {
		log.WithError(err).Fatal("bot")
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval(time.Hour, func() {
		removed, err := cleanupSvc.Sweep(time.Now())
		if err != nil {
			log.WithError(err).Warn("media sweep")
			return
		}
		if removed > 0 {
			log.WithField("removed", removed).Info("pruned downloaded media")
		}
	}); err != nil {
		log.WithError(err).Fatal("schedule media sweep")
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := webhook.NewServer(cfg.HTTPAddr, cfg.StripeWebhookSecret, billingSvc)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("webhook server listening")
		if err := server.Start(); err != nil {
			log.WithError(err).Error("webhook server stopped")
			stop()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("webhook server shutdown")
		}
	}()

	log.Info("life coach bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("bot stopped with error")
	}
	log.Info("shutdown complete")
}
