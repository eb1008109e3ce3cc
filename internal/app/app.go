// Package app wires configuration into the stores, collaborators and
// services shared by the server, cronjob and worker binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"chitfund-backend/internal/config"
	"chitfund-backend/internal/lock"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/messaging"
	"chitfund-backend/internal/repository/postgres"
	"chitfund-backend/internal/service"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Services struct {
	Groups      service.GroupService
	Collections service.CollectionService
	Auctions    service.AuctionService
	Risk        service.RiskService
	Rollups     service.RollupService
	Loans       service.LoanService
}

// App owns the long-lived connections. Close releases them in reverse order.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Store    *postgres.Store
	Redis    *redis.Client
	Notifier service.Notifier
	Services Services

	closers []func() error
}

// Open connects to postgres and redis and builds every service. Redis is
// optional for the outbox transport: without it auctions rely on the
// conditional update alone.
func Open(ctx context.Context, cfg *config.Config, migrate bool) (*App, error) {
	a := &App{Config: cfg}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")

	a.Store = postgres.NewStore(db)
	if migrate {
		if err := a.Store.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	var locker lock.Locker
	client, err := lock.ConnectToRedis(ctx, cfg.Redis, nil)
	switch {
	case err == nil:
		a.Redis = client
		a.closers = append(a.closers, client.Close)
		locker = lock.NewRedisLocker(client)
	case cfg.Notifications.Transport == "asynq":
		a.Close()
		return nil, fmt.Errorf("asynq transport needs redis: %w", err)
	default:
		logger.Warn("Redis unavailable, auction lock disabled", "error", err)
	}

	switch cfg.Notifications.Transport {
	case "asynq":
		q := asynq.NewClient(RedisConnOpt(cfg.Redis))
		a.closers = append(a.closers, q.Close)
		a.Notifier = messaging.NewAsynqNotifier(q, cfg.Notifications.Queue)
	default:
		a.Notifier = messaging.NewOutboxNotifier(a.Store.NotificationRepository)
	}
	logger.Info("Notification transport selected", "transport", cfg.Notifications.Transport)

	schedule, err := cfg.Settlement.FineSchedule()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("fine schedule: %w", err)
	}

	s := a.Store
	a.Services = Services{
		Groups:      service.NewGroupService(s.GroupRepository),
		Collections: service.NewCollectionService(s.GroupRepository, s.CollectionRepository, cfg.Settlement.DueDay, schedule),
		Auctions:    service.NewAuctionService(s.AuctionRepository, s.GroupRepository, locker, cfg.LockTTL(), a.Notifier),
		Risk:        service.NewRiskService(s.CollectionRepository, s.RiskRepository, a.Notifier, cfg.Risk.Thresholds()),
		Rollups:     service.NewRollupService(s.CollectionRepository, s.LoanRepository, s.RiskRepository),
		Loans:       service.NewLoanService(s.LoanRepository, s.GroupRepository, a.Notifier, cfg.LoanCooldown()),
	}
	return a, nil
}

// RedisConnOpt converts the shared redis settings for asynq.
func RedisConnOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}
	a.closers = nil
}
