package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"chitfund-backend/internal/api/grpc/interceptor"
	"chitfund-backend/internal/logger"
)

// ServiceName is the health-check service name reported next to the
// overall "" entry.
const ServiceName = "chitfund.Engine"

// Pinger is satisfied by *sql.DB; wrap anything else in a PingFunc.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

// HealthServer exposes grpc.health.v1 and flips the serving status from
// periodic dependency pings.
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	pingers map[string]Pinger
}

func NewHealthServer(pingers map[string]Pinger) *HealthServer {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.Recovery(), interceptor.Logging()),
	)
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)

	// Register reflection service for grpcurl
	reflection.Register(s)

	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{server: s, health: h, pingers: pingers}
}

func (h *HealthServer) Server() *grpc.Server {
	return h.server
}

// Check pings every dependency once and records the result.
func (h *HealthServer) Check(ctx context.Context) bool {
	ok := true
	for name, p := range h.pingers {
		if err := p.PingContext(ctx); err != nil {
			logger.Warn("Health check failed", "dependency", name, "error", err)
			ok = false
		}
	}
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServiceName, st)
	return ok
}

// Watch re-checks on every tick until ctx is done, then marks the server as
// shutting down.
func (h *HealthServer) Watch(ctx context.Context, every time.Duration) {
	h.Check(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
