// Package grpcapi exposes the standard gRPC health and reflection services so
// orchestrators can probe the process over gRPC.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer serves grpc.health.v1 for the whole process and for service.
type HealthServer struct {
	service string
	server  *grpc.Server
	health  *health.Server
	logger  *slog.Logger
}

// NewHealthServer creates a server reporting SERVING for "" and service.
func NewHealthServer(service string, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)

	return &HealthServer{
		service: service,
		server:  s,
		health:  h,
		logger:  logger.With("component", "grpc"),
	}
}

// SetServing flips the status reported for the named service.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(s.service, status)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.server.GracefulStop()
	}()

	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Run listens on addr and serves until ctx is cancelled.
func (s *HealthServer) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}
