package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/peakkart/peakkart-backend/internal/notifications"
	"github.com/peakkart/peakkart-backend/pkg/config"
	"github.com/peakkart/peakkart-backend/pkg/db"
	"github.com/peakkart/peakkart-backend/pkg/instance"
	"github.com/peakkart/peakkart-backend/pkg/logger"
	"github.com/peakkart/peakkart-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	if cfg.GCP.ProjectID == "" {
		logg.Error(ctx, "worker requires a gcp project", errors.New("PEAKKART_GCP_PROJECT_ID not set"))
		os.Exit(1)
	}
	if cfg.PubSub.NotificationSubscription == "" {
		logg.Error(ctx, "worker requires a subscription", errors.New("PEAKKART_PUBSUB_NOTIFICATION_SUBSCRIPTION not set"))
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	worker, err := notifications.NewWorker(
		notifications.NewRepository(dbClient.DB()),
		pubsubClient.NotificationSubscription(),
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to build worker", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notification worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "notification worker stopped")
}
