package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/reportportal/internal/cache"
	"github.com/nikhilbhutani/reportportal/internal/config"
	"github.com/nikhilbhutani/reportportal/internal/database"
	"github.com/nikhilbhutani/reportportal/internal/notify"
	"github.com/nikhilbhutani/reportportal/internal/queue"
	"github.com/nikhilbhutani/reportportal/internal/queue/workers"
	"github.com/nikhilbhutani/reportportal/internal/settings"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mail server settings live in the settings table.
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				queue.QueueDefault: 1,
			},
		},
	)

	st := settings.NewService(settings.NewPostgresRepository(db))
	sender := notify.NewSender(st, settings.FromMailConfig(cfg.Mail))

	registry := queue.NewHandlersRegistry()

	notificationWorker := workers.NewNotificationWorker(sender, cfg.Mail.AppName, cfg.Mail.AppURL)
	registry.Register(queue.TypeReportUpdatedMail, asynq.HandlerFunc(notificationWorker.ProcessTask))

	go queue.RunHeartbeat(ctx, cache.NewCache(rdb), queue.HeartbeatInterval)

	slog.Info("starting worker", "concurrency", cfg.Queue.Concurrency)
	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutting down worker...")
	srv.Shutdown()
	slog.Info("worker stopped")
}
