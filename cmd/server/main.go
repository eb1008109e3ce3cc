package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "chitfund-backend/internal/api/grpc"
	httpapi "chitfund-backend/internal/api/http"
	"chitfund-backend/internal/app"
	"chitfund-backend/internal/config"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/security"
	"chitfund-backend/internal/service"
	"chitfund-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", false, "Apply the database schema before serving")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting chit fund backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, *migrate)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// Initialize Storage Service
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize receipt storage", "type", cfg.Storage.Type, "error", err)
		log.Fatalf("Failed to initialize receipt storage: %v", err)
	}
	logger.Info("Receipt storage ready", "type", cfg.Storage.Type)

	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	router := httpapi.NewRouter(httpapi.Services{
		Groups:      a.Services.Groups,
		Collections: a.Services.Collections,
		Auctions:    a.Services.Auctions,
		Risk:        a.Services.Risk,
		Rollups:     a.Services.Rollups,
		Loans:       a.Services.Loans,
		Receipts:    service.NewReceiptService(a.Store.CollectionRepository, store),
	}, store, tokenManager)

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health endpoint
	pingers := map[string]grpcapi.Pinger{"postgres": a.DB}
	if a.Redis != nil {
		pingers["redis"] = grpcapi.PingFunc(func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}
	health := grpcapi.NewHealthServer(pingers)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	go health.Watch(ctx, 15*time.Second)
	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
		if err := health.Server().Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	health.Server().GracefulStop()
	logger.Info("Server stopped")
}
