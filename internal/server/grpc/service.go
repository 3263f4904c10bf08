package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The UserAuth service is described by hand. Its messages are protobuf
// well-known types, so no generated code is required on either side.
const (
	ServiceName   = "licensegate.v1.UserAuth"
	GetUserMethod = "/" + ServiceName + "/GetUser"
)

// Fields of the GetUser response struct.
const (
	FieldID             = "id"
	FieldUserName       = "username"
	FieldName           = "name"
	FieldLicensed       = "licensed"
	FieldRefreshedToken = "refreshed_token"
)

// UserAuthServer resolves a user session token into the owning account.
type UserAuthServer interface {
	GetUser(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func getUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserAuthServer).GetUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetUserMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UserAuthServer).GetUser(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var UserAuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserAuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetUser", Handler: getUserHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "licensegate/v1/user_auth.proto",
}

func RegisterUserAuthServer(s grpc.ServiceRegistrar, srv UserAuthServer) {
	s.RegisterService(&UserAuthServiceDesc, srv)
}

// UserAuthClient is the client side of UserAuthServiceDesc.
type UserAuthClient struct {
	cc grpc.ClientConnInterface
}

func NewUserAuthClient(cc grpc.ClientConnInterface) *UserAuthClient {
	return &UserAuthClient{cc: cc}
}

func (c *UserAuthClient) GetUser(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetUserMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
