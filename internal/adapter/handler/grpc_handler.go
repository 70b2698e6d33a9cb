package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rl1809/shop/internal/platform/logger"
)

// ShopService is the name reported by the gRPC health service.
const ShopService = "shop.v1.Shop"

// GRPCHealth serves grpc.health.v1 and flips the shop status whenever one
// of its dependencies stops answering pings.
type GRPCHealth struct {
	server   *health.Server
	deps     map[string]Pinger
	interval time.Duration
	log      *logger.Logger
}

func NewGRPCHealth(deps map[string]Pinger, interval time.Duration, log *logger.Logger) *GRPCHealth {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &GRPCHealth{
		server:   health.NewServer(),
		deps:     deps,
		interval: interval,
		log:      log.With("component", "grpc-health"),
	}
}

func (h *GRPCHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
	reflection.Register(s)
}

// Check pings every dependency once and publishes the result.
func (h *GRPCHealth) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, dep := range h.deps {
		pingCtx, cancel := context.WithTimeout(ctx, h.interval)
		err := dep.Ping(pingCtx)
		cancel()
		if err != nil {
			h.log.Warn("dependency unhealthy", "dependency", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ShopService, status)
	return status
}

// Run re-checks dependencies until ctx is done, then marks everything
// as not serving.
func (h *GRPCHealth) Run(ctx context.Context) error {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
