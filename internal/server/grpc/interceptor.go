package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/server/auth"
	"github.com/dmitrijs2005/foodie/internal/syncapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// protectedMethods need a valid access token.
var protectedMethods = map[string]struct{}{
	syncapi.Sync_Write_FullMethodName:     {},
	syncapi.Sync_Subscribe_FullMethodName: {},
}

// UserIDFromContext returns the caller placed in ctx by the auth interceptors.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// authenticate resolves the access token in the incoming metadata.
// Expired tokens are reported with the common.ErrTokenExpired message so
// the client knows to refresh.
func (s *GRPCServer) authenticate(ctx context.Context) (context.Context, error) {
	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return context.WithValue(ctx, userIDKey, userID), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}
	ctx, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

// authStream overrides the stream context with the authenticated one.
type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authStream) Context() context.Context { return a.ctx }

func (s *GRPCServer) streamAccessTokenInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(srv, ss)
	}
	ctx, err := s.authenticate(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
}
