package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/dbx"
	"github.com/dmitrijs2005/foodie/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert is last-writer-wins. A path owned by another user is never
// overwritten; that case returns common.ErrorForbidden.
func (r *PostgresRepository) Upsert(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (path, user_id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (path)
		DO UPDATE SET
			body = EXCLUDED.body,
			version = documents.version + 1,
			updated_at = now()
			WHERE documents.user_id = EXCLUDED.user_id
		RETURNING version, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, doc.Path, doc.UserID, []byte(doc.Body)).
		Scan(&doc.Version, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorForbidden
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, path string) (*models.Document, error) {
	query := `
		SELECT user_id, body, version, updated_at
		FROM documents
		WHERE path = $1
	`
	doc := &models.Document{Path: path}
	var body []byte
	err := r.db.QueryRowContext(ctx, query, path).Scan(&doc.UserID, &body, &doc.Version, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	doc.Body = body
	return doc, nil
}
