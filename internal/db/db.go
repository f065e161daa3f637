// Package db opens the configured SQL store and applies schema migrations.
package db

import (
	"context"
	"fmt"
	"strings"

	"callnotes/internal/config"
	"callnotes/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	driverPGX    = "pgx"
	driverSQLite = "sqlite"
)

func init() {
	// sqlx knows "sqlite3" but not modernc's "sqlite" driver name.
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// Open connects to the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.DriverPostgres, "":
		return utils.OpenSQL(ctx, driverPGX, cfg.DSN(), utils.PoolConfig{})
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

// OpenSQLite opens a SQLite database file, or a private in-memory database for ":memory:".
// Timestamps are written in a sortable text format so range filters and ORDER BY behave
// as they do on Postgres.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	params := "_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	pool := utils.PoolConfig{}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		pool.MaxOpenConns = 1
	}
	return utils.OpenSQL(ctx, driverSQLite, path+sep+params, pool)
}
