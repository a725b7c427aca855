package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/repo"
)

// ---- mock Store ------------------------------------------------------------

// mockStore hands out the same repos for autocommit and transactional use and
// counts transactions.
type mockStore struct {
	repos   repo.Repos
	txCalls int
}

func (m *mockStore) Repos() repo.Repos { return m.repos }

func (m *mockStore) InTx(_ context.Context, fn func(repo.Repos) error) error {
	m.txCalls++
	return fn(m.repos)
}

var _ repo.Store = (*mockStore)(nil)

// ---- mock repos ------------------------------------------------------------

type mockLocationRepo struct {
	create    func(ctx context.Context, loc domain.Location) (domain.Location, error)
	getByID   func(ctx context.Context, id string) (domain.Location, error)
	list      func(ctx context.Context, tags []string) ([]domain.Location, error)
	update    func(ctx context.Context, loc domain.Location) (domain.Location, error)
	delete    func(ctx context.Context, id string) error
	clearTags func(ctx context.Context, id string) error
}

func (m *mockLocationRepo) Create(ctx context.Context, loc domain.Location) (domain.Location, error) {
	return m.create(ctx, loc)
}
func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (domain.Location, error) {
	return m.getByID(ctx, id)
}
func (m *mockLocationRepo) List(ctx context.Context, tags []string) ([]domain.Location, error) {
	return m.list(ctx, tags)
}
func (m *mockLocationRepo) Update(ctx context.Context, loc domain.Location) (domain.Location, error) {
	return m.update(ctx, loc)
}
func (m *mockLocationRepo) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}
func (m *mockLocationRepo) ClearTags(ctx context.Context, id string) error {
	return m.clearTags(ctx, id)
}

type mockTagRepo struct {
	upsert func(ctx context.Context, name string) (domain.Tag, error)
	link   func(ctx context.Context, locationID string, tagID uuid.UUID) error
	list   func(ctx context.Context, prefix string) ([]domain.Tag, error)
}

func (m *mockTagRepo) Upsert(ctx context.Context, name string) (domain.Tag, error) {
	return m.upsert(ctx, name)
}
func (m *mockTagRepo) Link(ctx context.Context, locationID string, tagID uuid.UUID) error {
	return m.link(ctx, locationID, tagID)
}
func (m *mockTagRepo) List(ctx context.Context, prefix string) ([]domain.Tag, error) {
	return m.list(ctx, prefix)
}

type mockReportRepo struct {
	create           func(ctx context.Context, r domain.OccupancyReport) (domain.OccupancyReport, error)
	latest           func(ctx context.Context, locationID string, since time.Time) (*domain.OccupancyReport, int, error)
	latestByReporter func(ctx context.Context, locationID, reporterID string) (domain.OccupancyReport, error)
	listByLocation   func(ctx context.Context, locationID string, p domain.PaginationParams) ([]domain.OccupancyReport, int64, error)
}

func (m *mockReportRepo) Create(ctx context.Context, r domain.OccupancyReport) (domain.OccupancyReport, error) {
	return m.create(ctx, r)
}
func (m *mockReportRepo) Latest(ctx context.Context, locationID string, since time.Time) (*domain.OccupancyReport, int, error) {
	return m.latest(ctx, locationID, since)
}
func (m *mockReportRepo) LatestByReporter(ctx context.Context, locationID, reporterID string) (domain.OccupancyReport, error) {
	return m.latestByReporter(ctx, locationID, reporterID)
}
func (m *mockReportRepo) ListByLocation(ctx context.Context, locationID string, p domain.PaginationParams) ([]domain.OccupancyReport, int64, error) {
	return m.listByLocation(ctx, locationID, p)
}

type mockReputationRepo struct {
	increment func(ctx context.Context, userID, email string, delta int) (int, error)
	get       func(ctx context.Context, userID string) (int, error)
}

func (m *mockReputationRepo) Increment(ctx context.Context, userID, email string, delta int) (int, error) {
	return m.increment(ctx, userID, email, delta)
}
func (m *mockReputationRepo) Get(ctx context.Context, userID string) (int, error) {
	return m.get(ctx, userID)
}

// compile-time checks
var (
	_ repo.LocationRepo   = (*mockLocationRepo)(nil)
	_ repo.TagRepo        = (*mockTagRepo)(nil)
	_ repo.ReportRepo     = (*mockReportRepo)(nil)
	_ repo.ReputationRepo = (*mockReputationRepo)(nil)
)

// mockConsent records whether it was consulted.
type mockConsent struct {
	allow  bool
	err    error
	called bool
}

func (m *mockConsent) HasReportingConsent(context.Context, string) (bool, error) {
	m.called = true
	return m.allow, m.err
}
