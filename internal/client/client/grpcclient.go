package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/syncapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const subscriptionBuffer = 8

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      syncapi.SyncClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

// refresh trades the refresh token for a new pair.
func (s *GRPCClient) refresh(ctx context.Context) error {
	_, refreshToken := s.tokens()
	if refreshToken == "" {
		return ErrNotLoggedIn
	}

	resp, err := s.client.RefreshToken(ctx, &syncapi.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}

	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	accessToken, _ := s.tokens()

	err := invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	if rerr := s.refresh(ctx); rerr != nil {
		return err
	}

	accessToken, _ = s.tokens()
	return invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	accessToken, _ := s.tokens()
	return streamer(withAccessToken(ctx, accessToken), desc, cc, method, opts...)
}

func NewFoodieClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(syncapi.CodecName)),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = syncapi.NewSyncClient(conn)
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, userID, email, displayName string, salt, verifier []byte) error {
	req := &syncapi.RegisterUserRequest{
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		Salt:        salt,
		Verifier:    verifier,
	}

	if _, err := s.client.RegisterUser(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) GetSalt(ctx context.Context, email string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &syncapi.GetSaltRequest{Email: email})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, email string, verifier []byte) (*LoginResult, error) {
	resp, err := s.client.Login(ctx, &syncapi.LoginRequest{Email: email, Verifier: verifier})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.setTokens(resp.AccessToken, resp.RefreshToken)

	return &LoginResult{UserID: resp.UserID, DisplayName: resp.DisplayName}, nil
}

func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

// Credentials returns the current token pair so a caller can put it back
// with RestoreCredentials after a failed account switch.
func (s *GRPCClient) Credentials() (access, refresh string) {
	return s.tokens()
}

func (s *GRPCClient) RestoreCredentials(access, refresh string) {
	s.setTokens(access, refresh)
}

func (s *GRPCClient) Authenticated() bool {
	accessToken, _ := s.tokens()
	return accessToken != ""
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &syncapi.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Write(ctx context.Context, path string, document []byte) error {
	if !s.Authenticated() {
		return ErrNotLoggedIn
	}

	if _, err := s.client.Write(ctx, &syncapi.WriteRequest{Path: path, Document: document}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// openStream opens the subscription and waits for the first snapshot so
// that an expired access token can be refreshed once before giving up.
func (s *GRPCClient) openStream(ctx context.Context, path string) (grpc.ServerStreamingClient[syncapi.Snapshot], *syncapi.Snapshot, error) {
	for attempt := 0; ; attempt++ {
		stream, err := s.client.Subscribe(ctx, &syncapi.SubscribeRequest{Path: path})
		if err != nil {
			return nil, nil, err
		}

		first, err := stream.Recv()
		if err == nil || errors.Is(err, io.EOF) {
			return stream, first, nil
		}
		if attempt > 0 || !isTokenExpired(err) {
			return nil, nil, err
		}
		if rerr := s.refresh(ctx); rerr != nil {
			return nil, nil, err
		}
	}
}

func (s *GRPCClient) Subscribe(ctx context.Context, path string) (<-chan []byte, error) {
	if !s.Authenticated() {
		return nil, ErrNotLoggedIn
	}

	stream, first, err := s.openStream(ctx, path)
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make(chan []byte, subscriptionBuffer)

	go func() {
		defer close(out)

		snap := first
		for snap != nil {
			if !snap.Empty() {
				select {
				case out <- snap.Document:
				case <-ctx.Done():
					return
				}
			}

			next, err := stream.Recv()
			if err != nil {
				return
			}
			snap = next
		}
	}()

	return out, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrAlreadyExists
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
