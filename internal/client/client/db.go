package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/foodie/internal/client/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite cache at dsn and brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; serialize at the pool.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
