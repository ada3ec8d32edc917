package syncapi

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "foodie.sync.v1.Sync"

const (
	Sync_RegisterUser_FullMethodName = "/" + ServiceName + "/RegisterUser"
	Sync_GetSalt_FullMethodName      = "/" + ServiceName + "/GetSalt"
	Sync_Login_FullMethodName        = "/" + ServiceName + "/Login"
	Sync_RefreshToken_FullMethodName = "/" + ServiceName + "/RefreshToken"
	Sync_Ping_FullMethodName         = "/" + ServiceName + "/Ping"
	Sync_Write_FullMethodName        = "/" + ServiceName + "/Write"
	Sync_Subscribe_FullMethodName    = "/" + ServiceName + "/Subscribe"
)

// SyncServer is implemented by the remote document store.
type SyncServer interface {
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Write(context.Context, *WriteRequest) (*WriteResponse, error)
	Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[Snapshot]) error
}

func RegisterSyncServer(s grpc.ServiceRegistrar, srv SyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req any, Res any](
	fullMethod string,
	call func(SyncServer, context.Context, *Req) (*Res, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SyncServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SyncServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _Sync_Subscribe_Handler(srv any, stream grpc.ServerStream) error {
	m := new(SubscribeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SyncServer).Subscribe(m, &grpc.GenericServerStream[SubscribeRequest, Snapshot]{ServerStream: stream})
}

// ServiceDesc is the grpc.ServiceDesc for the Sync service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RegisterUser",
			Handler:    unaryHandler(Sync_RegisterUser_FullMethodName, SyncServer.RegisterUser),
		},
		{
			MethodName: "GetSalt",
			Handler:    unaryHandler(Sync_GetSalt_FullMethodName, SyncServer.GetSalt),
		},
		{
			MethodName: "Login",
			Handler:    unaryHandler(Sync_Login_FullMethodName, SyncServer.Login),
		},
		{
			MethodName: "RefreshToken",
			Handler:    unaryHandler(Sync_RefreshToken_FullMethodName, SyncServer.RefreshToken),
		},
		{
			MethodName: "Ping",
			Handler:    unaryHandler(Sync_Ping_FullMethodName, SyncServer.Ping),
		},
		{
			MethodName: "Write",
			Handler:    unaryHandler(Sync_Write_FullMethodName, SyncServer.Write),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       _Sync_Subscribe_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "foodie/sync/v1/sync.json",
}

// SyncClient is the client API for the Sync service.
type SyncClient interface {
	RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error)
	GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Write(ctx context.Context, in *WriteRequest, opts ...grpc.CallOption) (*WriteResponse, error)
	Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Snapshot], error)
}

type syncClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncClient(cc grpc.ClientConnInterface) SyncClient {
	return &syncClient{cc: cc}
}

func invoke[Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncClient) RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error) {
	return invoke[RegisterUserResponse](ctx, c.cc, Sync_RegisterUser_FullMethodName, in, opts)
}

func (c *syncClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltResponse](ctx, c.cc, Sync_GetSalt_FullMethodName, in, opts)
}

func (c *syncClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, Sync_Login_FullMethodName, in, opts)
}

func (c *syncClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, Sync_RefreshToken_FullMethodName, in, opts)
}

func (c *syncClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, Sync_Ping_FullMethodName, in, opts)
}

func (c *syncClient) Write(ctx context.Context, in *WriteRequest, opts ...grpc.CallOption) (*WriteResponse, error) {
	return invoke[WriteResponse](ctx, c.cc, Sync_Write_FullMethodName, in, opts)
}

func (c *syncClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Snapshot], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], Sync_Subscribe_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[SubscribeRequest, Snapshot]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
