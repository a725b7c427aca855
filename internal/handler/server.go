// Package handler implements the HTTP handlers for the Quiet Locations API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, location.go, occupancy.go, etc.) but all share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/service"
)

// CatalogServicer defines the catalog operations the location handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type CatalogServicer interface {
	Create(ctx context.Context, loc domain.Location) (domain.Location, error)
	Get(ctx context.Context, id string) (domain.Location, error)
	List(ctx context.Context, filter []string) ([]domain.Location, error)
	Update(ctx context.Context, id string, patch domain.LocationPatch) (domain.Location, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context) ([]domain.CatalogRecord, error)
}

// TagServicer defines the tag dictionary operations used by GET /tags.
type TagServicer interface {
	List(ctx context.Context, prefix string) ([]domain.Tag, error)
}

// OccupancyServicer defines the report ledger operations.
type OccupancyServicer interface {
	SubmitReport(ctx context.Context, id *domain.Identity, in domain.ReportInput) (service.Submission, error)
	Current(ctx context.Context, locationID string) (domain.CurrentOccupancy, error)
	History(ctx context.Context, locationID string, p domain.PaginationParams) (domain.Page[domain.OccupancyReport], error)
	LastByReporter(ctx context.Context, locationID, userID string) (*domain.OccupancyReport, error)
	Reputation(ctx context.Context, userID string) (int, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies of every handler.
// Wire it into an http.Handler with NewRouter.
type Server struct {
	catalog   CatalogServicer
	tags      TagServicer
	occupancy OccupancyServicer
	pinger    Pinger
	log       *slog.Logger

	storeTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for internal errors. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithPinger sets the store check behind GET /readyz. Without one the
// endpoint always reports ready.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithStoreTimeout bounds every service call made by a handler.
// Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Server) { s.storeTimeout = d }
}

// NewServer constructs the Server with all its dependencies.
func NewServer(catalog CatalogServicer, tags TagServicer, occupancy OccupancyServicer, opts ...Option) *Server {
	s := &Server{
		catalog:   catalog,
		tags:      tags,
		occupancy: occupancy,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storeContext derives the context for a service call from the request context.
func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
