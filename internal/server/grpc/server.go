// Package grpc exposes account lookup by session token to other services.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionResolver authenticates a user session token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Account, *models.Session, error)
}

type GRPCServer struct {
	address       string
	sessions      SessionResolver
	logger        logging.Logger
	serviceSecret []byte
	maxTokenLife  time.Duration
}

// NewGRPCServer builds the RPC surface. An empty serviceSecret disables
// service token checks; service tokens minted with a lifetime longer than
// serviceTokenValidity are refused.
func NewGRPCServer(address string, l logging.Logger, sessions SessionResolver, serviceSecret string, serviceTokenValidity time.Duration) *GRPCServer {
	return &GRPCServer{
		address:       address,
		logger:        l.With("module", "grpc_server"),
		sessions:      sessions,
		serviceSecret: []byte(serviceSecret),
		maxTokenLife:  serviceTokenValidity,
	}
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			s.recoveryInterceptor,
			s.loggingInterceptor,
			s.serviceTokenInterceptor,
		),
	)

	RegisterUserAuthServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}
