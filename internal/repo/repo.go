// Package repo contains all database access logic for the Quiet Locations API.
// Each resource has its own file with an interface and a Postgres implementation;
// the sqlite subpackage implements the same interfaces for single-node use.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txBeginner is a db that can also open a transaction. pgx.Tx satisfies it
// too, in which case InTx runs inside a savepoint.
type txBeginner interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Repos groups every repository bound to the same connection or transaction.
type Repos struct {
	Locations  LocationRepo
	Tags       TagRepo
	Reports    ReportRepo
	Reputation ReputationRepo
}

// Store hands out repositories. Repos() runs each statement on its own;
// InTx binds all of them to one transaction that commits when fn returns nil
// and rolls back otherwise.
type Store interface {
	Repos() Repos
	InTx(ctx context.Context, fn func(Repos) error) error
}

// PGStore is the Postgres Store.
type PGStore struct {
	conn txBeginner
}

// NewPGStore wraps a pool (or, in tests, an open transaction).
func NewPGStore(conn txBeginner) *PGStore {
	return &PGStore{conn: conn}
}

// Repos returns repositories that run directly on the pool.
func (s *PGStore) Repos() Repos {
	return newRepos(s.conn)
}

// InTx runs fn with repositories bound to a single transaction.
func (s *PGStore) InTx(ctx context.Context, fn func(Repos) error) error {
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}

func newRepos(d db) Repos {
	return Repos{
		Locations:  NewLocationRepo(d),
		Tags:       NewTagRepo(d),
		Reports:    NewReportRepo(d),
		Reputation: NewReputationRepo(d),
	}
}

// SQLSTATEs mapped to domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
