package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guildwatch/internal/analytics"
	"guildwatch/internal/api"
	"guildwatch/internal/bot"
	"guildwatch/internal/classifier"
	"guildwatch/internal/config"
	"guildwatch/internal/permissions"
	"guildwatch/internal/queue"
	"guildwatch/internal/storage"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	cls, err := classifier.NewCached(classifier.NewClient(classifier.Config{
		URL:            cfg.Classifier.URL,
		Token:          cfg.Classifier.Token,
		TimeoutSeconds: cfg.Classifier.TimeoutSeconds,
		MaxRetries:     cfg.Classifier.MaxRetries,
	}, logger), cfg.AutoMod.CacheSize)
	if err != nil {
		logger.Fatal("classifier init failed", zap.Error(err))
	}

	analyticsEngine := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, cls, analyticsEngine)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	queueService := queue.New(store, permissions.NewChecker(store), logger, cfg.GuildID)
	server := api.New(queueService, logger, cfg.HTTPAddr)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	scheduler := cron.New()
	if cfg.Notifications.DailySummary {
		if _, err := scheduler.AddFunc("@daily", func() {
			botSvc.SendDailySummary(context.Background())
		}); err != nil {
			logger.Fatal("scheduler init failed", zap.Error(err))
		}
	}
	scheduler.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop()
	_ = server.Shutdown(ctx)
	botSvc.Close(ctx)
}
