// Package database opens connections from datasource URLs and defines the
// connection surface the migration engine runs on.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/dialect"
)

// ErrEmptyURL is returned when no datasource URL was configured.
var ErrEmptyURL = errors.New("database url is empty")

// Conn is a raw SQL capable connection. *sql.DB, *sql.Conn and *sql.Tx
// satisfy it. Session state such as PRAGMA foreign_keys or
// FOREIGN_KEY_CHECKS only carries across statements on a pinned *sql.Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ Conn = (*sql.Conn)(nil)

// DB is an open database together with its parsed configuration.
type DB struct {
	*sql.DB
	Config  *Config
	Dialect dialect.Dialect
}

// Open parses rawURL, opens the matching driver and pings the database.
// The driver has to be registered by the caller.
func Open(ctx context.Context, rawURL string) (*DB, error) {
	cfg, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return OpenConfig(ctx, cfg)
}

// OpenConfig opens a database from a parsed configuration.
func OpenConfig(ctx context.Context, cfg *Config) (*DB, error) {
	d, err := dialect.ForName(cfg.Provider)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Provider, err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	if d.Name() == dialect.SQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Redacted(), err)
	}

	debug.Debug("Connected to database", "provider", cfg.Provider, "driver", cfg.Driver, "schema", cfg.Schema)
	return &DB{DB: db, Config: cfg, Dialect: d}, nil
}
