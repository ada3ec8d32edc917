package syncapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeServer struct {
	writes []*WriteRequest
}

func (f *fakeServer) RegisterUser(ctx context.Context, in *RegisterUserRequest) (*RegisterUserResponse, error) {
	if in.Email == "taken@example.com" {
		return nil, status.Error(codes.AlreadyExists, "already exists")
	}
	return &RegisterUserResponse{}, nil
}

func (f *fakeServer) GetSalt(ctx context.Context, in *GetSaltRequest) (*GetSaltResponse, error) {
	return &GetSaltResponse{Salt: []byte("salt-" + in.Email)}, nil
}

func (f *fakeServer) Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error) {
	return &LoginResponse{UserID: "u-1", AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeServer) RefreshToken(ctx context.Context, in *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return &RefreshTokenResponse{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (f *fakeServer) Ping(ctx context.Context, in *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (f *fakeServer) Write(ctx context.Context, in *WriteRequest) (*WriteResponse, error) {
	f.writes = append(f.writes, in)
	return &WriteResponse{Version: int64(len(f.writes))}, nil
}

func (f *fakeServer) Subscribe(in *SubscribeRequest, stream grpc.ServerStreamingServer[Snapshot]) error {
	for v := int64(1); v <= 2; v++ {
		if err := stream.Send(&Snapshot{Path: in.Path, Version: v, Document: json.RawMessage(`{"v":1}`)}); err != nil {
			return err
		}
	}
	return nil
}

func dial(t *testing.T, srv SyncServer, interceptor grpc.UnaryServerInterceptor) SyncClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	var opts []grpc.ServerOption
	if interceptor != nil {
		opts = append(opts, grpc.UnaryInterceptor(interceptor))
	}
	s := grpc.NewServer(opts...)
	RegisterSyncServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewSyncClient(conn)
}

func TestSyncService_Unary(t *testing.T) {
	fs := &fakeServer{}
	c := dial(t, fs, nil)
	ctx := context.Background()

	salt, err := c.GetSalt(ctx, &GetSaltRequest{Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, []byte("salt-a@b.c"), salt.Salt)

	resp, err := c.Write(ctx, &WriteRequest{Path: "users/u-1/history", Document: json.RawMessage(`[1,2]`)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Version)
	require.Len(t, fs.writes, 1)
	assert.JSONEq(t, `[1,2]`, string(fs.writes[0].Document))

	_, err = c.RegisterUser(ctx, &RegisterUserRequest{Email: "taken@example.com"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestSyncService_InterceptorSeesFullMethod(t *testing.T) {
	var seen []string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}
	c := dial(t, &fakeServer{}, interceptor)

	_, err := c.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{Sync_Ping_FullMethodName}, seen)
}

func TestSyncService_Subscribe(t *testing.T) {
	c := dial(t, &fakeServer{}, nil)

	stream, err := c.Subscribe(context.Background(), &SubscribeRequest{Path: "users/u-1/allergies"})
	require.NoError(t, err)

	var versions []int64
	for {
		snap, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "users/u-1/allergies", snap.Path)
		versions = append(versions, snap.Version)
	}
	assert.Equal(t, []int64{1, 2}, versions)
}
