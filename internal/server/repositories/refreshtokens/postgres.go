package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/dbx"
	"github.com/dmitrijs2005/foodie/internal/server/models"
)

// PostgresRepository works over dbx.DBTX, so it runs inside or outside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, token string, expires time.Time) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1
	`
	rt := &models.RefreshToken{Token: token}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&rt.ID, &rt.UserID, &rt.Expires, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, t)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
