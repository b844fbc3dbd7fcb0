// Package sqlstore implements the backend contracts over database/sql.
// The same queries serve SQLite (mattn/go-sqlite3) and Postgres (pgx stdlib);
// only the driver name and placeholder format differ.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/vouch/internal/backend"
)

// Store is a SQL backed backend.Backend.
type Store struct {
	conn    *sql.DB
	dialect string
	sq      squirrel.StatementBuilderType
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Seeder  = (*Store)(nil)
)

// Open opens (or creates) the database for dialect and applies the schema.
// For sqlite, dsn is a file path; for postgres, a connection URL.
func Open(dialect, dsn string, opts ...Option) (*Store, error) {
	var (
		driverName  string
		placeholder squirrel.PlaceholderFormat
	)
	switch dialect {
	case backend.DriverSQLite:
		driverName = "sqlite3"
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
		placeholder = squirrel.Question
	case backend.DriverPostgres:
		driverName = "pgx"
		placeholder = squirrel.Dollar
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	for _, stmt := range schemaSQL {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlstore: apply schema: %w", err)
		}
	}

	s := &Store{
		conn:    conn,
		dialect: dialect,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dialect returns the dialect the store was opened with.
func (s *Store) Dialect() string {
	return s.dialect
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlstore: ping: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}
