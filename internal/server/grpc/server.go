// Package grpc exposes the user and document services over the Sync gRPC
// service described in syncapi.
package grpc

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/dmitrijs2005/foodie/internal/server/services"
	"github.com/dmitrijs2005/foodie/internal/syncapi"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	GetSalt(ctx context.Context, email string) ([]byte, error)
	Login(ctx context.Context, email string, verifier []byte) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type DocumentService interface {
	Write(ctx context.Context, userID, path string, body json.RawMessage) (*models.Document, error)
	Subscribe(ctx context.Context, userID, path string, send func(models.Document) error) error
}

type GRPCServer struct {
	address   string
	users     UserService
	documents DocumentService
	logger    logging.Logger
	jwtSecret []byte
	metrics   *Metrics

	// quit is closed on shutdown so open subscriptions end and
	// GracefulStop can finish.
	quit     chan struct{}
	quitOnce sync.Once
}

// NewGRPCServer wires the services. metrics may be nil.
func NewGRPCServer(a string, l logging.Logger, us UserService, ds DocumentService, secretKey string, m *Metrics) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		documents: ds,
		jwtSecret: []byte(secretKey),
		metrics:   m,
		quit:      make(chan struct{}),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	unary := []grpc.UnaryServerInterceptor{s.accessTokenInterceptor}
	stream := []grpc.StreamServerInterceptor{s.streamAccessTokenInterceptor}
	if s.metrics != nil {
		unary = append([]grpc.UnaryServerInterceptor{s.metrics.unaryInterceptor}, unary...)
		stream = append([]grpc.StreamServerInterceptor{s.metrics.streamInterceptor}, stream...)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)
	syncapi.RegisterSyncServer(srv, s)
	return srv
}

// Run listens on the configured address until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.quitOnce.Do(func() { close(s.quit) })
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
