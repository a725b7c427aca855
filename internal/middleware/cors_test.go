package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/quietlocations/backend/internal/middleware"
)

// trivialHandler is a minimal http.Handler that always returns 200.
var trivialHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var mapClients = []string{"http://localhost:5173", "https://quietlocations.app"}

// TestCORSHandler_SimpleRequests checks which origins get an
// Access-Control-Allow-Origin header on a plain GET. A disallowed origin
// still gets its 200; the browser is what blocks the response.
func TestCORSHandler_SimpleRequests(t *testing.T) {
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:5173", true},
		{"https://quietlocations.app", true},
		{"http://evil.example.com", false},
		{"https://quietlocations.app.evil.example.com", false},
	}
	h := middleware.NewCORSHandler(mapClients)(trivialHandler)
	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/locations", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			if tc.allowed {
				assert.Equal(t, tc.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

// TestCORSHandler_Preflight verifies the OPTIONS preflight a browser sends
// before a report submission: POST with bearer and JSON headers.
func TestCORSHandler_Preflight(t *testing.T) {
	h := middleware.NewCORSHandler(mapClients)(trivialHandler)

	req := httptest.NewRequest(http.MethodOptions, "/occupancy/report", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	// Browsers send Access-Control-Request-Headers in lowercase and rs/cors
	// compares verbatim.
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// rs/cors returns 204 for OPTIONS preflights.
	assert.True(t, rec.Code == http.StatusNoContent || rec.Code == http.StatusOK,
		"expected 2xx for OPTIONS preflight, got %d", rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSHandler_PreflightRejectsPatch(t *testing.T) {
	h := middleware.NewCORSHandler(mapClients)(trivialHandler)

	req := httptest.NewRequest(http.MethodOptions, "/locations/a", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}
