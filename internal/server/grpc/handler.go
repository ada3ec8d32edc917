package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/dmitrijs2005/foodie/internal/server/services"
	"github.com/dmitrijs2005/foodie/internal/syncapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes. Unknown errors are logged
// and hidden behind codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) RegisterUser(ctx context.Context, req *syncapi.RegisterUserRequest) (*syncapi.RegisterUserResponse, error) {
	_, err := s.users.Register(ctx, services.RegisterInput{
		UserID:      req.UserID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Salt:        req.Salt,
		Verifier:    req.Verifier,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", req.UserID)
	return &syncapi.RegisterUserResponse{}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *syncapi.GetSaltRequest) (*syncapi.GetSaltResponse, error) {
	salt, err := s.users.GetSalt(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncapi.GetSaltResponse{Salt: salt}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *syncapi.LoginRequest) (*syncapi.LoginResponse, error) {
	res, err := s.users.Login(ctx, req.Email, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &syncapi.LoginResponse{
		UserID:       res.UserID,
		DisplayName:  res.DisplayName,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *syncapi.RefreshTokenRequest) (*syncapi.RefreshTokenResponse, error) {
	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncapi.RefreshTokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *syncapi.PingRequest) (*syncapi.PingResponse, error) {
	return &syncapi.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Write(ctx context.Context, req *syncapi.WriteRequest) (*syncapi.WriteResponse, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	doc, err := s.documents.Write(ctx, userID, req.Path, req.Document)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if s.metrics != nil {
		s.metrics.writes.Inc()
	}

	s.logger.Debug(ctx, "Document written", "path", doc.Path, "version", doc.Version)
	return &syncapi.WriteResponse{Version: doc.Version}, nil
}

func (s *GRPCServer) Subscribe(req *syncapi.SubscribeRequest, stream grpc.ServerStreamingServer[syncapi.Snapshot]) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing token")
	}

	go func() {
		select {
		case <-s.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	if s.metrics != nil {
		s.metrics.SubscriptionOpened()
		defer s.metrics.SubscriptionClosed()
	}

	s.logger.Debug(ctx, "Subscription opened", "path", req.Path)
	err := s.documents.Subscribe(ctx, userID, req.Path, func(d models.Document) error {
		return stream.Send(ToSnapshot(d))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return s.toStatus(ctx, err)
	}
	return nil
}

// ToSnapshot converts a stored document into its wire form.
func ToSnapshot(d models.Document) *syncapi.Snapshot {
	return &syncapi.Snapshot{
		Path:      d.Path,
		Document:  d.Body,
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt,
	}
}
