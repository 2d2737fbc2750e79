package server

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service name alongside the empty server-wide name.
const ServiceName = "claims.intake.v1.Intake"

// HealthServer is the gRPC health endpoint with reflection enabled.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return &HealthServer{grpc: gs, health: hs, logger: logger}
}

func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc health serving", "addr", lis.Addr().String())
	return h.grpc.Serve(lis)
}

// MarkNotServing flips every registered service to NOT_SERVING.
func (h *HealthServer) MarkNotServing() {
	h.health.Shutdown()
}

func (h *HealthServer) Stop() {
	h.grpc.GracefulStop()
}
