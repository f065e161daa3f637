package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// NewMigrator returns a goose provider for the dialect of db.
// The provider shares db; Provider.Close closes db itself, so callers that keep using db must not call it.
func NewMigrator(db *sqlx.DB) (*goose.Provider, error) {
	var (
		dialect goose.Dialect
		dir     string
	)
	switch db.DriverName() {
	case driverPGX:
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	case driverSQLite:
		dialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	default:
		return nil, fmt.Errorf("no migrations for driver %q", db.DriverName())
	}

	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, db.DB, fsys)
}

// Migrate applies all pending migrations and returns how many ran.
func Migrate(ctx context.Context, db *sqlx.DB) (int, error) {
	p, err := NewMigrator(db)
	if err != nil {
		return 0, err
	}

	res, err := p.Up(ctx)
	if err != nil {
		return len(res), fmt.Errorf("migrate up: %w", err)
	}
	return len(res), nil
}

// Rollback reverts the most recently applied migration. It reports false when nothing was applied.
func Rollback(ctx context.Context, db *sqlx.DB) (bool, error) {
	p, err := NewMigrator(db)
	if err != nil {
		return false, err
	}

	if _, err := p.Down(ctx); err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return false, nil
		}
		return false, fmt.Errorf("migrate down: %w", err)
	}
	return true, nil
}
