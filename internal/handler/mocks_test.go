package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/quietlocations/backend/internal/auth"
	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/handler"
	"github.com/pkordes/quietlocations/backend/internal/service"
)

// mockCatalog is a test double for handler.CatalogServicer.
// Set only the method fields your test needs.
type mockCatalog struct {
	create func(ctx context.Context, loc domain.Location) (domain.Location, error)
	get    func(ctx context.Context, id string) (domain.Location, error)
	list   func(ctx context.Context, filter []string) ([]domain.Location, error)
	update func(ctx context.Context, id string, patch domain.LocationPatch) (domain.Location, error)
	delete func(ctx context.Context, id string) error
	export func(ctx context.Context) ([]domain.CatalogRecord, error)
}

func (m *mockCatalog) Create(ctx context.Context, loc domain.Location) (domain.Location, error) {
	return m.create(ctx, loc)
}
func (m *mockCatalog) Get(ctx context.Context, id string) (domain.Location, error) {
	return m.get(ctx, id)
}
func (m *mockCatalog) List(ctx context.Context, filter []string) ([]domain.Location, error) {
	return m.list(ctx, filter)
}
func (m *mockCatalog) Update(ctx context.Context, id string, patch domain.LocationPatch) (domain.Location, error) {
	return m.update(ctx, id, patch)
}
func (m *mockCatalog) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}
func (m *mockCatalog) Export(ctx context.Context) ([]domain.CatalogRecord, error) {
	return m.export(ctx)
}

type mockTags struct {
	list func(ctx context.Context, prefix string) ([]domain.Tag, error)
}

func (m *mockTags) List(ctx context.Context, prefix string) ([]domain.Tag, error) {
	return m.list(ctx, prefix)
}

type mockOccupancy struct {
	submit         func(ctx context.Context, id *domain.Identity, in domain.ReportInput) (service.Submission, error)
	current        func(ctx context.Context, locationID string) (domain.CurrentOccupancy, error)
	history        func(ctx context.Context, locationID string, p domain.PaginationParams) (domain.Page[domain.OccupancyReport], error)
	lastByReporter func(ctx context.Context, locationID, userID string) (*domain.OccupancyReport, error)
	reputation     func(ctx context.Context, userID string) (int, error)
}

func (m *mockOccupancy) SubmitReport(ctx context.Context, id *domain.Identity, in domain.ReportInput) (service.Submission, error) {
	return m.submit(ctx, id, in)
}
func (m *mockOccupancy) Current(ctx context.Context, locationID string) (domain.CurrentOccupancy, error) {
	return m.current(ctx, locationID)
}
func (m *mockOccupancy) History(ctx context.Context, locationID string, p domain.PaginationParams) (domain.Page[domain.OccupancyReport], error) {
	return m.history(ctx, locationID, p)
}
func (m *mockOccupancy) LastByReporter(ctx context.Context, locationID, userID string) (*domain.OccupancyReport, error) {
	return m.lastByReporter(ctx, locationID, userID)
}
func (m *mockOccupancy) Reputation(ctx context.Context, userID string) (int, error) {
	return m.reputation(ctx, userID)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.CatalogServicer   = (*mockCatalog)(nil)
	_ handler.TagServicer       = (*mockTags)(nil)
	_ handler.OccupancyServicer = (*mockOccupancy)(nil)
)

// ---- helpers ---------------------------------------------------------------

const testSecret = "handler-test-secret-0123456789abcdef"

func newTestVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)
	return v
}

type mockPinger struct {
	ping func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.ping(ctx) }

// bearer issues a valid token for userID and returns the Authorization value.
func bearer(t *testing.T, v *auth.Verifier, userID string) string {
	t.Helper()
	token, err := v.Issue(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// editor returns an Authorization value for catalog writes.
func editor(t *testing.T) string {
	t.Helper()
	return bearer(t, newTestVerifier(t), "editor-1")
}

// deps bundles the mocks a router is built from. Nil fields get empty mocks
// whose methods panic when called.
type deps struct {
	catalog   *mockCatalog
	tags      *mockTags
	occupancy *mockOccupancy
	verifier  *auth.Verifier
	pinger    handler.Pinger
	rateLimit int
}

// newHTTPHandler wires a Server with the given mocks into the real router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(t *testing.T, d deps) http.Handler {
	t.Helper()
	if d.catalog == nil {
		d.catalog = &mockCatalog{}
	}
	if d.tags == nil {
		d.tags = &mockTags{}
	}
	if d.occupancy == nil {
		d.occupancy = &mockOccupancy{}
	}
	if d.verifier == nil {
		d.verifier = newTestVerifier(t)
	}
	var opts []handler.Option
	if d.pinger != nil {
		opts = append(opts, handler.WithPinger(d.pinger))
	}
	srv := handler.NewServer(d.catalog, d.tags, d.occupancy, opts...)
	return handler.NewRouter(srv, handler.RouterConfig{
		Verifier:         d.verifier,
		MaxBodyBytes:     1 << 20,
		ReportRateLimit:  d.rateLimit,
		ReportRateWindow: time.Minute,
		OpenAPI:          []byte("openapi: 3.0.3\n"),
	})
}

// do sends a request with an optional JSON body and Authorization header.
func do(t *testing.T, h http.Handler, method, path string, body any, authz string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the recorder's body into a fresh T.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error        string   `json:"error"`
	Code         string   `json:"code"`
	DistanceM    *int     `json:"distance_m"`
	MaxDistanceM *int     `json:"max_distance_m"`
	Allowed      []string `json:"allowed"`
}
