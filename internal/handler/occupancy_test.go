package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/quietlocations/backend/internal/auth"
	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/metrics"
	"github.com/pkordes/quietlocations/backend/internal/service"
)

type reportBody struct {
	ID             uuid.UUID `json:"id"`
	LocationID     string    `json:"location_id"`
	OccupancyLevel int       `json:"occupancy_level"`
	OccupancyLabel string    `json:"occupancy_label"`
	DeviceType     string    `json:"device_type"`
}

func reportFixture(level domain.OccupancyLevel) domain.OccupancyReport {
	return domain.OccupancyReport{
		ID:         uuid.New(),
		LocationID: "central-library",
		ReporterID: "user-1",
		Level:      level,
		Latitude:   40,
		Longitude:  -74,
		DeviceType: "web",
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func validReport() map[string]any {
	return map[string]any{
		"location_id": "central-library", "occupancy_level": 2,
		"latitude": 40.0, "longitude": -74.0,
	}
}

func TestSubmitReport_201(t *testing.T) {
	v := newTestVerifier(t)
	var gotID *domain.Identity
	var gotIn domain.ReportInput
	occ := &mockOccupancy{
		submit: func(_ context.Context, id *domain.Identity, in domain.ReportInput) (service.Submission, error) {
			gotID, gotIn = id, in
			return service.Submission{Report: reportFixture(domain.LevelFewPeople), ReputationScore: 7, DistanceKm: 0.01}, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ, verifier: v})
	before := testutil.ToFloat64(metrics.ReportsAccepted)

	rec := do(t, h, http.MethodPost, "/occupancy/report", validReport(), bearer(t, v, "user-1"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, gotID)
	assert.Equal(t, "user-1", gotID.UserID)
	assert.Equal(t, "central-library", gotIn.LocationID)
	require.NotNil(t, gotIn.Level)
	assert.Equal(t, 2.0, *gotIn.Level)

	body := decode[struct {
		Report          reportBody `json:"report"`
		ReputationScore int        `json:"reputation_score"`
	}](t, rec)
	assert.Equal(t, 7, body.ReputationScore)
	assert.Equal(t, 2, body.Report.OccupancyLevel)
	assert.Equal(t, "Few People", body.Report.OccupancyLabel)
	assert.NotContains(t, rec.Body.String(), "reporter_id")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ReportsAccepted))
}

// TestSubmitReport_401 verifies each auth failure carries its own code and the
// ledger is never reached.
func TestSubmitReport_401(t *testing.T) {
	v := newTestVerifier(t)
	expiredIssuer, err := auth.NewVerifier(testSecret, auth.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	require.NoError(t, err)
	expired, err := expiredIssuer.Issue("user-1", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
		msg    string
	}{
		{"missing", "", "auth_required", "Authentication required. Please log in."},
		{"malformed", "Token abc", "auth_required", "Invalid authorization format. Use: Bearer <token>"},
		{"invalid", "Bearer not.a.jwt", "token_invalid", "Invalid token"},
		{"expired", "Bearer " + expired, "token_expired", "Token expired. Please log in again."},
	}
	h := newHTTPHandler(t, deps{verifier: v})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			counter := metrics.ReportsRejected.WithLabelValues(metrics.RejectUnauthenticated)
			before := testutil.ToFloat64(counter)

			rec := do(t, h, http.MethodPost, "/occupancy/report", validReport(), tc.header)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decode[errorBody](t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.msg, body.Error)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestSubmitReport_403_TooFar(t *testing.T) {
	v := newTestVerifier(t)
	occ := &mockOccupancy{
		submit: func(context.Context, *domain.Identity, domain.ReportInput) (service.Submission, error) {
			return service.Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w",
				&domain.ProximityError{DistanceKm: 11.1195, MaxKm: 0.5})
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ, verifier: v})
	counter := metrics.ReportsRejected.WithLabelValues(metrics.RejectTooFar)
	before := testutil.ToFloat64(counter)

	rec := do(t, h, http.MethodPost, "/occupancy/report", validReport(), bearer(t, v, "user-1"))

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "too_far", body.Code)
	assert.Equal(t, "You must be within 500m of the location to report occupancy. You are currently 11120m away.", body.Error)
	require.NotNil(t, body.DistanceM)
	require.NotNil(t, body.MaxDistanceM)
	assert.Equal(t, 11120, *body.DistanceM)
	assert.Equal(t, 500, *body.MaxDistanceM)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestSubmitReport_ErrorMapping(t *testing.T) {
	v := newTestVerifier(t)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		reason string
	}{
		{"no consent", fmt.Errorf("svc: %w", domain.ErrPermission), http.StatusForbidden, "consent_required", metrics.RejectNoConsent},
		{"unknown location", fmt.Errorf("svc: %w", domain.ErrNotFound), http.StatusNotFound, "not_found", metrics.RejectNotFound},
		{"bad level", fmt.Errorf("svc: %w: occupancy_level must be an integer between 1 and 5", domain.ErrValidation), http.StatusBadRequest, "validation_error", metrics.RejectInvalid},
		{"store failure", fmt.Errorf("svc: boom"), http.StatusInternalServerError, "internal_error", metrics.RejectError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			occ := &mockOccupancy{
				submit: func(context.Context, *domain.Identity, domain.ReportInput) (service.Submission, error) {
					return service.Submission{}, tc.err
				},
			}
			h := newHTTPHandler(t, deps{occupancy: occ, verifier: v})
			counter := metrics.ReportsRejected.WithLabelValues(tc.reason)
			before := testutil.ToFloat64(counter)

			rec := do(t, h, http.MethodPost, "/occupancy/report", validReport(), bearer(t, v, "user-1"))

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decode[errorBody](t, rec).Code)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestSubmitReport_429(t *testing.T) {
	v := newTestVerifier(t)
	occ := &mockOccupancy{
		submit: func(context.Context, *domain.Identity, domain.ReportInput) (service.Submission, error) {
			return service.Submission{Report: reportFixture(domain.LevelEmpty), ReputationScore: 1}, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ, verifier: v, rateLimit: 1})
	authz := bearer(t, v, "user-1")

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/occupancy/report", validReport(), authz).Code)
	rec := do(t, h, http.MethodPost, "/occupancy/report", validReport(), authz)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[errorBody](t, rec).Code)
}

func TestGetOccupancy_Anonymous(t *testing.T) {
	latest := reportFixture(domain.LevelBusy)
	occ := &mockOccupancy{
		current: func(_ context.Context, id string) (domain.CurrentOccupancy, error) {
			return domain.CurrentOccupancy{LocationID: id, Latest: &latest, RecentReports: 3, Window: 2 * time.Hour}, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ})

	rec := do(t, h, http.MethodGet, "/locations/central-library/occupancy", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, 3, body["recent_reports"])
	assert.EqualValues(t, 120, body["window_minutes"])
	assert.Equal(t, false, body["stale"])
	assert.NotContains(t, body, "your_last_report")
	assert.EqualValues(t, 4, body["latest"].(map[string]any)["occupancy_level"])
}

func TestGetOccupancy_NoReportsYet(t *testing.T) {
	occ := &mockOccupancy{
		current: func(_ context.Context, id string) (domain.CurrentOccupancy, error) {
			return domain.CurrentOccupancy{LocationID: id, Window: time.Hour}, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ})

	rec := do(t, h, http.MethodGet, "/locations/central-library/occupancy", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Contains(t, body, "latest")
	assert.Nil(t, body["latest"])
}

func TestGetOccupancy_AuthenticatedAddsOwnReport(t *testing.T) {
	v := newTestVerifier(t)
	mine := reportFixture(domain.LevelModerate)
	occ := &mockOccupancy{
		current: func(_ context.Context, id string) (domain.CurrentOccupancy, error) {
			return domain.CurrentOccupancy{LocationID: id, Window: time.Hour}, nil
		},
		lastByReporter: func(_ context.Context, locationID, userID string) (*domain.OccupancyReport, error) {
			assert.Equal(t, "central-library", locationID)
			assert.Equal(t, "user-1", userID)
			return &mine, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ, verifier: v})

	rec := do(t, h, http.MethodGet, "/locations/central-library/occupancy", nil, bearer(t, v, "user-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Contains(t, body, "your_last_report")
	assert.EqualValues(t, 3, body["your_last_report"].(map[string]any)["occupancy_level"])
}

// TestGetOccupancy_BadTokenIsAnonymous verifies optional auth never rejects.
func TestGetOccupancy_BadTokenIsAnonymous(t *testing.T) {
	occ := &mockOccupancy{
		current: func(_ context.Context, id string) (domain.CurrentOccupancy, error) {
			return domain.CurrentOccupancy{LocationID: id, Window: time.Hour}, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ})

	rec := do(t, h, http.MethodGet, "/locations/central-library/occupancy", nil, "Bearer garbage")

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOccupancy_404(t *testing.T) {
	occ := &mockOccupancy{
		current: func(context.Context, string) (domain.CurrentOccupancy, error) {
			return domain.CurrentOccupancy{}, domain.ErrNotFound
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ})

	rec := do(t, h, http.MethodGet, "/locations/missing/occupancy", nil, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "location not found", decode[errorBody](t, rec).Error)
}

func TestListReports_Pagination(t *testing.T) {
	var got domain.PaginationParams
	occ := &mockOccupancy{
		history: func(_ context.Context, _ string, p domain.PaginationParams) (domain.Page[domain.OccupancyReport], error) {
			got = p
			return domain.Page[domain.OccupancyReport]{
				Items:  []domain.OccupancyReport{reportFixture(domain.LevelEmpty)},
				Total:  11,
				Params: p,
			}, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ})

	rec := do(t, h, http.MethodGet, "/locations/central-library/reports?page=2&limit=500", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 2, Limit: domain.MaxPageLimit}, got)
	body := decode[struct {
		Data       []reportBody `json:"data"`
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"pagination"`
	}](t, rec)
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 2, body.Pagination.Page)
	assert.Equal(t, 100, body.Pagination.Limit)
	assert.Equal(t, 11, body.Pagination.Total)
}

func TestListReports_BadPage_400(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	rec := do(t, h, http.MethodGet, "/locations/central-library/reports?page=two", nil, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "page must be an integer", decode[errorBody](t, rec).Error)
}

func TestListReports_PageTooLarge_400(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	rec := do(t, h, http.MethodGet, "/locations/central-library/reports?page=9223372036854775807&limit=100", nil, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "validation_error", body.Code)
	assert.Equal(t, "page must be at most 1000000", body.Error)
}

func TestGetMe(t *testing.T) {
	v := newTestVerifier(t)
	occ := &mockOccupancy{
		reputation: func(_ context.Context, userID string) (int, error) {
			assert.Equal(t, "user-9", userID)
			return 4, nil
		},
	}
	h := newHTTPHandler(t, deps{occupancy: occ, verifier: v})

	rec := do(t, h, http.MethodGet, "/me", nil, bearer(t, v, "user-9"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"user-9","email":"user-9@example.com","reputation_score":4}`, rec.Body.String())
}

func TestGetMe_401(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	rec := do(t, h, http.MethodGet, "/me", nil, "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "auth_required", decode[errorBody](t, rec).Code)
}
