package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/foodie/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set document[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete document[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM documents WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents[%s*]: %w", prefix, err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if strings.HasPrefix(key, prefix) {
			result[key] = value
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document rows: %w", err)
	}

	return result, nil
}
