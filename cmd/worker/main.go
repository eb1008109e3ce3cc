package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	"chitfund-backend/internal/app"
	"chitfund-backend/internal/config"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/messaging"
	"chitfund-backend/internal/repository/postgres"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
)

// The worker drains notification tasks into the outbox table. It is only
// needed when notifications.transport is "asynq".
func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent task handlers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting notification worker...", "queue", cfg.Notifications.Queue, "concurrency", *concurrency)

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	store := postgres.NewStore(db)

	srv := asynq.NewServer(app.RedisConnOpt(cfg.Redis), asynq.Config{
		Concurrency: *concurrency,
		Queues:      map[string]int{cfg.Notifications.Queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	messaging.NewDeliveryHandler(store.NotificationRepository).Register(mux)

	// Run blocks until SIGTERM/SIGINT and shuts down gracefully.
	if err := srv.Run(mux); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		log.Fatalf("Worker stopped: %v", err)
	}
	logger.Info("Worker stopped")
}
