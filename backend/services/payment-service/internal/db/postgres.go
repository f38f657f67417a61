package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	libdb "parkpay/backend/libs/db"
)

//go:embed schema.sql
var schema string

// NewPostgres returns shared DB connection.
func NewPostgres(dsn string) (*sql.DB, error) {
	return libdb.NewPostgresDB(dsn)
}

// Migrate creates the tables the service reads and writes if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db: apply schema: %w", err)
	}
	return nil
}
