package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

// ServiceNameKey holds the authenticated calling service in the context.
const ServiceNameKey ctxKey = "serviceName"

const healthServicePrefix = "/grpc.health.v1.Health/"

func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "panic in handler", "method", info.FullMethod, "panic", p)
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "rpc served",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

// serviceTokenInterceptor requires a valid service token in the
// common.ServiceTokenMetadataKey metadata when a secret is configured. Health
// checks are always allowed.
func (s *GRPCServer) serviceTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if len(s.serviceSecret) == 0 || strings.HasPrefix(info.FullMethod, healthServicePrefix) {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.ServiceTokenMetadataKey); len(values) > 0 {
			token = values[0]
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing service token")
	}

	service, err := auth.ParseServiceToken(token, s.serviceSecret, s.maxTokenLife)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid service token")
	}

	return handler(context.WithValue(ctx, ServiceNameKey, service), req)
}
