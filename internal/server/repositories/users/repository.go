// Package users declares and implements storage of federated accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/foodie/internal/server/models"
)

type Repository interface {
	// Create inserts user with its client-chosen id. A taken id or email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
