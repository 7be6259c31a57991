package rpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported by the health service.
const ServiceName = "minikv"

// stopTimeout bounds GracefulStop; open Watch streams would otherwise hold it.
const stopTimeout = 5 * time.Second

// Server serves the standard grpc.health.v1.Health service. It reports
// SERVING for ServiceName (and the empty overall service) while running and
// NOT_SERVING once shutdown begins.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a Server with panic recovery on every call.
func New() *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoveryInterceptor()),
		grpc.ChainStreamInterceptor(StreamRecoveryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &Server{grpc: gs, health: hs}
}

// Serve accepts gRPC connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, s.stop)
	defer stop()

	slog.Info("rpc: health service listening", "addr", ln.Addr().String())
	return s.grpc.Serve(ln)
}

// stop flips every service to NOT_SERVING and drains in-flight calls.
func (s *Server) stop() {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		slog.Warn("rpc: graceful stop timed out, forcing")
		s.grpc.Stop()
	}
}
