// Package refreshtokens declares and implements storage of the single-use
// refresh tokens issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/foodie/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, valid until expires.
	Create(ctx context.Context, userID string, token string, expires time.Time) error

	// Find returns common.ErrorNotFound when the token is unknown.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete consumes token. It returns common.ErrorNotFound when nothing
	// was deleted, so concurrent refreshes with one token cannot both win.
	Delete(ctx context.Context, token string) error

	// DeleteExpired purges tokens that expired before t.
	DeleteExpired(ctx context.Context, t time.Time) (int64, error)
}
