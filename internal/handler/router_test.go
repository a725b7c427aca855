package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetHealth_returns200WithOKStatus verifies that GET /healthz returns
// HTTP 200 and a JSON body of {"status":"ok"}.
func TestGetHealth_returns200WithOKStatus(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	rec := do(t, h, http.MethodGet, "/healthz", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	require.Equal(t, "ok", body["status"])
}

func TestGetReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{"store reachable", nil, http.StatusOK, `{"status":"ready"}`},
		{"store down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable,
			`{"error":"store unavailable","code":"unavailable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinged := false
			h := newHTTPHandler(t, deps{pinger: &mockPinger{ping: func(context.Context) error {
				pinged = true
				return tt.pingErr
			}}})

			rec := do(t, h, http.MethodGet, "/readyz", nil, "")

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.True(t, pinged)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestUnknownRoute_404JSON(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	rec := do(t, h, http.MethodGet, "/nope", nil, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Code)
}

func TestMethodNotAllowed_ListsAllowedMethods(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	tests := []struct {
		method, path string
		allowed      []string
	}{
		{http.MethodPatch, "/locations", []string{"GET", "POST"}},
		{http.MethodPost, "/locations/abc", []string{"GET", "PUT", "DELETE"}},
		{http.MethodGet, "/occupancy/report", []string{"POST"}},
		{http.MethodDelete, "/tags", []string{"GET"}},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, nil, "")

			require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, strings.Join(tc.allowed, ", "), rec.Header().Get("Allow"))
			body := decode[errorBody](t, rec)
			assert.Equal(t, "method_not_allowed", body.Code)
			assert.Equal(t, tc.allowed, body.Allowed)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	// One request so the HTTP counter has a sample.
	do(t, h, http.MethodGet, "/healthz", nil, "")
	rec := do(t, h, http.MethodGet, "/metrics", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quietlocations_http_requests_total")
}

func TestOpenAPIEndpoint(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	rec := do(t, h, http.MethodGet, "/openapi.yaml", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "openapi: 3.0.3\n", rec.Body.String())
}

func TestBodyTooLarge_413(t *testing.T) {
	h := newHTTPHandler(t, deps{})

	rec := do(t, h, http.MethodPost, "/locations", strings.Repeat("x", 2<<20), "")

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body_too_large", decode[errorBody](t, rec).Code)
}
