// Package services contains the sync server's business logic: account
// registration and token issue in UserService, document storage and
// fan-out in DocumentService.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/cryptox"
	"github.com/dmitrijs2005/foodie/internal/dbx"
	"github.com/dmitrijs2005/foodie/internal/server/auth"
	"github.com/dmitrijs2005/foodie/internal/server/config"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/dmitrijs2005/foodie/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a single-use refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries a sign-up. UserID is generated by the client so
// its offline records keep their owner after promotion.
type RegisterInput struct {
	UserID      string
	Email       string
	DisplayName string
	Salt        []byte
	Verifier    []byte
}

// LoginResult identifies the account and carries its fresh tokens.
type LoginResult struct {
	UserID      string
	DisplayName string
	Tokens      *TokenPair
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the account. A taken id or email yields
// common.ErrorAlreadyExists; malformed input yields common.ErrValidation.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := uuid.Parse(in.UserID); err != nil {
		return nil, fmt.Errorf("%w: user id: %v", common.ErrValidation, err)
	}
	if email == "" || len(in.Salt) == 0 || len(in.Verifier) == 0 {
		return nil, common.ErrValidation
	}

	user := &models.User{
		ID:          in.UserID,
		Email:       email,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Salt:        in.Salt,
		Verifier:    in.Verifier,
	}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// GetSalt returns the stored salt, or a random one for unknown emails so
// the endpoint does not reveal which accounts exist.
func (s *UserService) GetSalt(ctx context.Context, email string) ([]byte, error) {
	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return cryptox.NewSalt(), nil
		}
		return nil, common.ErrorInternal
	}
	return user.Salt, nil
}

// Login checks verifierCandidate against the stored verifier.
func (s *UserService) Login(ctx context.Context, email string, verifierCandidate []byte) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !cryptox.CheckVerifier(user.Verifier, verifierCandidate) {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, err
	}
	return &LoginResult{UserID: user.ID, DisplayName: user.DisplayName, Tokens: pair}, nil
}

// RefreshToken consumes refreshToken and issues a new pair in one
// transaction. Unknown or already used tokens yield common.ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.ExpiredAt(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// PurgeExpiredTokens removes refresh tokens that can no longer be used.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	expires := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, expires); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
