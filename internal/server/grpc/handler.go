package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GetUser resolves the session token in req the same way the HTTP surface
// resolves its Authorization header.
func (s *GRPCServer) GetUser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	account, session, err := s.sessions.Resolve(ctx, req.GetValue())
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNoCredential):
			return nil, status.Error(codes.Unauthenticated, "no authorization token")
		case errors.Is(err, common.ErrMalformedCredential):
			return nil, status.Error(codes.Unauthenticated, "invalid authorization token")
		case errors.Is(err, common.ErrInvalidToken):
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	out, err := structpb.NewStruct(map[string]any{
		FieldID:             account.ID,
		FieldUserName:       account.UserName,
		FieldName:           account.Name,
		FieldLicensed:       account.Licensed(),
		FieldRefreshedToken: session.Token,
	})
	if err != nil {
		s.logger.Error(ctx, "encode user", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return out, nil
}
