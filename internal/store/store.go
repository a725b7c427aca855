// Package store opens the repo.Store selected by a DATABASE_URL and brings
// its schema up to date.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/quietlocations/backend/internal/repo"
	"github.com/pkordes/quietlocations/backend/internal/repo/sqlite"
	"github.com/pkordes/quietlocations/backend/migrations"
)

// Handle is an open store plus what it takes to check and release it.
type Handle struct {
	repo.Store
	ping  func(ctx context.Context) error
	Close func()
}

// Ping checks that the database is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	if err := h.ping(ctx); err != nil {
		return fmt.Errorf("store.Handle.Ping: %w", err)
	}
	return nil
}

// Open connects to databaseURL, applies pending migrations, and returns the
// store. postgres:// and postgresql:// use a pgx pool; sqlite:// opens a file.
func Open(ctx context.Context, databaseURL string, log *slog.Logger) (*Handle, error) {
	if strings.HasPrefix(databaseURL, "sqlite://") {
		path, err := sqlite.PathFromURL(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		log.Info("sqlite store ready", "path", path)
		return &Handle{Store: s, ping: s.Ping, Close: func() { _ = s.Close() }}, nil
	}

	// New() does not open connections immediately; Ping does.
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store.Open: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store.Open: ping: %w", err)
	}
	if err := migratePostgres(ctx, pool, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	log.Info("database connection established")
	return &Handle{Store: repo.NewPGStore(pool), ping: pool.Ping, Close: pool.Close}, nil
}

// migratePostgres runs goose over a database/sql view of the pool.
func migratePostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.PostgresFS())
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", "version", r.Source.Version, "path", r.Source.Path)
	}
	return nil
}
