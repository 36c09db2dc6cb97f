package persistence

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/go-faster/errors"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed schema/*.sql
var migrationsFS embed.FS

const migrationsDir = "schema"

// OpenDB opens a database/sql handle on the lib/pq driver for migrations.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	return db, nil
}

// Migrate applies the embedded workflow schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return errors.Wrap(err, "apply workflow migrations")
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *sql.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}
	if _, err := provider.Down(ctx); err != nil {
		return errors.Wrap(err, "rollback workflow migration")
	}
	return nil
}

// MigrationStatus lists the embedded migrations with their applied state.
func MigrationStatus(ctx context.Context, db *sql.DB) ([]*goose.MigrationStatus, error) {
	provider, err := newProvider(db)
	if err != nil {
		return nil, err
	}
	status, err := provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "workflow migration status")
	}
	return status, nil
}

func newProvider(db *sql.DB) (*goose.Provider, error) {
	schema, err := fs.Sub(migrationsFS, migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "migrations fs")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, schema)
	if err != nil {
		return nil, errors.Wrap(err, "goose provider")
	}
	return provider, nil
}
