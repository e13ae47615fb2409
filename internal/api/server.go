package api

import (
	"context"
	"fmt"
	"net"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/bankinsight/churn-insights/internal/config"
)

// Server owns the gRPC listener for the churn insights service.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	health     *health.Server
}

// readiness is implemented by services that can report whether a dataset is loaded.
type readiness interface {
	Ready() bool
}

// NewServer listens on the configured address and builds the server.
func NewServer(cfg config.ServerConfig, service ChurnInsightsServer, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}
	return NewServerWithListener(lis, service, opts...), nil
}

// NewServerWithListener builds the server on an existing listener. The health
// status of ServiceName is NOT_SERVING until the service has a dataset.
func NewServerWithListener(lis net.Listener, service ChurnInsightsServer, opts ...grpc.ServerOption) *Server {
	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
	}, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	grpcServer.RegisterService(&ServiceDesc, service)
	grpc_prometheus.Register(grpcServer)

	healthSrv := health.NewServer()
	status := healthpb.HealthCheckResponse_SERVING
	if r, ok := service.(readiness); ok && !r.Ready() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, status)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	reflection.Register(grpcServer)

	return &Server{grpcServer: grpcServer, listener: lis, health: healthSrv}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown drains in-flight queries, forcing a stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address reports the bound listener address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
