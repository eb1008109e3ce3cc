package jobs

import (
	"time"

	"chitfund-backend/internal/config"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
	"chitfund-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	groups      repository.GroupRepository
	auctions    repository.AuctionRepository
	collections repository.CollectionRepository
	services    *Services
	notifier    service.Notifier
	config      *config.Config
	now         func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Auctions    service.AuctionService
	Collections service.CollectionService
	Risk        service.RiskService
}

// Repositories holds the read paths the sweeps iterate over
type Repositories struct {
	Groups      repository.GroupRepository
	Auctions    repository.AuctionRepository
	Collections repository.CollectionRepository
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(repos Repositories, services *Services, notifier service.Notifier, cfg *config.Config) *JobRunner {
	return &JobRunner{
		groups:      repos.Groups,
		auctions:    repos.Auctions,
		collections: repos.Collections,
		services:    services,
		notifier:    notifier,
		config:      cfg,
		now:         time.Now,
	}
}

// Config exposes the configuration the scheduler reads cron specs from.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	jobFunc()
	logger.Info("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.ResolveClosedAuctions()
	jr.EvaluateRisk()
	jr.SendOverdueReminders()
}
