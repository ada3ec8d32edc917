// Package auth issues and verifies the HS256 access tokens handed out by
// the sync server.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written into every token and checked on parse.
const Issuer = "foodie-sync"

// Claims carries the registered claims plus the owning user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// GetUserIDFromToken validates tokenString and returns its user id.
// Expired tokens yield common.ErrTokenExpired; every other failure
// yields common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
