package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/server/auth"
	gs "github.com/dmitrijs2005/licensegate/internal/server/grpc"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// UserView is the account behind a user session token as seen over RPC.
type UserView struct {
	ID             string
	UserName       string
	Name           string
	Licensed       bool
	RefreshedToken string
}

type userAuth interface {
	GetUser(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// RPCClient resolves user tokens through the RPC surface on behalf of a
// calling service.
type RPCClient struct {
	conn     *grpc.ClientConn
	client   userAuth
	service  string
	secret   []byte
	validity time.Duration
}

// NewRPCClient dials addr. When secret is non-empty every call carries a
// service token minted for service.
func NewRPCClient(addr, service, secret string, validity time.Duration) (*RPCClient, error) {
	c := &RPCClient{service: service, secret: []byte(secret), validity: validity}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(c.serviceTokenInterceptor),
	)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = gs.NewUserAuthClient(conn)
	return c, nil
}

func (c *RPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *RPCClient) serviceTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if len(c.secret) == 0 {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token, err := auth.GenerateServiceToken(c.service, c.secret, c.validity)
	if err != nil {
		return fmt.Errorf("service token: %w", err)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, common.ServiceTokenMetadataKey, token)
	return invoker(ctx, method, req, reply, cc, opts...)
}

// GetUser resolves a user session token. An unknown or malformed token
// yields ErrUnauthorized.
func (c *RPCClient) GetUser(ctx context.Context, token string) (*UserView, error) {
	out, err := c.client.GetUser(ctx, wrapperspb.String(token))
	if err != nil {
		return nil, mapRPCError(err)
	}

	f := out.GetFields()
	return &UserView{
		ID:             f[gs.FieldID].GetStringValue(),
		UserName:       f[gs.FieldUserName].GetStringValue(),
		Name:           f[gs.FieldName].GetStringValue(),
		Licensed:       f[gs.FieldLicensed].GetBoolValue(),
		RefreshedToken: f[gs.FieldRefreshedToken].GetStringValue(),
	}, nil
}

func mapRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
