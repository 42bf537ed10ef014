// Package grpc implements the gRPC transport for voicebox.
//
// The server speaks the standard grpc.health.v1 protocol so orchestrators and
// load balancers can probe voicebox over gRPC, and registers server reflection
// for grpcurl-style tooling. Transcription itself is served over HTTP.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nadzzz/voicebox/internal/transport"
)

// ServiceName is the health-checked service name besides the server-wide "".
const ServiceName = "voicebox.Transcription"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Transport{port: port, server: srv, health: hs}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen binds the configured port and serves until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, svc)
}

// Serve serves on lis. The health status flips to SERVING once svc is
// attached and back to NOT_SERVING on shutdown.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, svc transport.Service) error {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if svc != nil {
		status = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus("", status)
	t.health.SetServingStatus(ServiceName, status)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		_ = t.Close()
	}()

	if err := t.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close marks the server NOT_SERVING and stops it gracefully.
func (t *Transport) Close() error {
	t.health.Shutdown()
	t.server.GracefulStop()
	return nil
}
