package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"shopadmin.app/internal/obs"
)

type readinessChecker interface {
	Check(ctx context.Context) error
}

// HealthServer serves grpc.health.v1.Health with a status that follows
// the readiness check.
type HealthServer struct {
	srv       *health.Server
	readiness readinessChecker
}

func NewHealthServer(r readinessChecker) *HealthServer {
	h := &HealthServer{srv: health.NewServer(), readiness: r}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to s.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Refresh runs the readiness check once and publishes the result.
func (h *HealthServer) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	ok := true
	if h.readiness != nil {
		if err := h.readiness.Check(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			ok = false
		}
	}
	obs.SetReady(ok)
	h.set(status)
}

// Run refreshes the status every interval until ctx ends, then marks the
// service as shutting down.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		h.Refresh(checkCtx)
		cancel()
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

func (h *HealthServer) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(serviceName, status)
}
