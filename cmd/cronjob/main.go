package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chitfund-backend/internal/app"
	"chitfund-backend/internal/config"
	"chitfund-backend/internal/jobs"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'resolve-closed-auctions', 'all-nightly')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting chit fund cronjob runner...", "log_level", cfg.Log.Level)

	a, err := app.Open(context.Background(), cfg, false)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(
		jobs.Repositories{
			Groups:      a.Store.GroupRepository,
			Auctions:    a.Store.AuctionRepository,
			Collections: a.Store.CollectionRepository,
		},
		&jobs.Services{
			Auctions:    a.Services.Auctions,
			Collections: a.Services.Collections,
			Risk:        a.Services.Risk,
		},
		a.Notifier,
		cfg,
	)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			a.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		a.Close()
		os.Exit(1)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once; it reports false for unknown names.
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "resolve-closed-auctions":
		jobRunner.ResolveClosedAuctions()
	case "evaluate-risk":
		jobRunner.EvaluateRisk()
	case "send-overdue-reminders":
		jobRunner.SendOverdueReminders()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - resolve-closed-auctions\n")
		fmt.Printf("  - evaluate-risk\n")
		fmt.Printf("  - send-overdue-reminders\n")
		fmt.Printf("  - all-nightly\n")
		return false
	}
	return true
}
