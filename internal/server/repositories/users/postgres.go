package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/dbx"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint hit.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, display_name, salt, verifier)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.Salt, user.Verifier).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, display_name, verifier, salt FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.DisplayName, &user.Verifier, &user.Salt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
