// Package sqlite implements the repo interfaces on an embedded SQLite
// database (modernc.org/sqlite, no cgo). It backs single-node deployments
// selected with a sqlite:// DATABASE_URL and the database-free test suite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/pkordes/quietlocations/backend/internal/repo"
	"github.com/pkordes/quietlocations/backend/migrations"
)

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// conn is satisfied by *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite repo.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database file at path and applies
// all pending migrations.
//
// Every pooled connection gets foreign keys, WAL and a busy timeout, and
// transactions begin IMMEDIATE so concurrent writers queue on the lock
// instead of failing on upgrade.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")
	dsn := path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQLiteFS())
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// PathFromURL extracts the file path from a sqlite:// URL.
// "sqlite://data/app.db" and "sqlite:///var/lib/app.db" give a relative and an
// absolute path respectively.
func PathFromURL(raw string) (string, error) {
	path, ok := strings.CutPrefix(raw, "sqlite://")
	if !ok || path == "" {
		return "", fmt.Errorf("sqlite.PathFromURL: %q is not a sqlite:// URL with a path", raw)
	}
	return path, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Repos returns repositories that run each statement in autocommit mode.
func (s *Store) Repos() repo.Repos {
	return s.repos(s.db)
}

// InTx runs fn with repositories bound to one transaction. The transaction
// commits when fn returns nil and rolls back on error or panic.
func (s *Store) InTx(ctx context.Context, fn func(repo.Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite.Store.InTx: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.repos(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite.Store.InTx: commit: %w", err)
	}
	return nil
}

func (s *Store) repos(c conn) repo.Repos {
	return repo.Repos{
		Locations:  &locationRepo{db: c, now: s.now},
		Tags:       &tagRepo{db: c, now: s.now},
		Reports:    &reportRepo{db: c, now: s.now},
		Reputation: &reputationRepo{db: c, now: s.now},
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
