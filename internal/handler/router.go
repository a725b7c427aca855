package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkordes/quietlocations/backend/internal/middleware"
)

// RouterConfig carries the HTTP-level settings of NewRouter.
type RouterConfig struct {
	Verifier     middleware.Verifier
	Logger       *slog.Logger
	CORSOrigins  []string
	MaxBodyBytes int64

	// ReportRateLimit submissions per ReportRateWindow per client IP.
	// Zero disables the limit.
	ReportRateLimit  int
	ReportRateWindow time.Duration

	// OpenAPI is served verbatim at /openapi.yaml when non-empty.
	OpenAPI []byte
}

// probeMethods are the methods tried when building an Allow header.
var probeMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
}

// NewRouter wires every route of the API onto a chi router.
// Middleware is applied in order: RequestID → RealIP → SlogLogger →
// Prometheus → Recoverer → CORS → MaxBodySize.
// RequestID generates a unique trace ID per request.
// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
// Recoverer catches panics and returns HTTP 500 instead of crashing.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.NewPrometheus())
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(methodNotAllowed(r))

	r.Get("/healthz", s.GetHealth)
	r.Get("/readyz", s.GetReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if len(cfg.OpenAPI) > 0 {
		doc := cfg.OpenAPI
		r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, "application/yaml", doc)
		})
	}

	r.Get("/locations", s.ListLocations)
	r.Get("/locations/{id}", s.GetLocation)
	r.Get("/locations/{id}/reports", s.ListReports)
	r.Get("/tags", s.ListTags)
	r.Get("/export", s.GetExport)

	r.With(middleware.NewOptionalAuth(cfg.Verifier)).
		Get("/locations/{id}/occupancy", s.GetOccupancy)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRequireAuth(cfg.Verifier, s.denyAuth))
		r.Post("/locations", s.CreateLocation)
		r.Put("/locations/{id}", s.UpdateLocation)
		r.Delete("/locations/{id}", s.DeleteLocation)
		r.Get("/me", s.GetMe)
	})

	report := []func(http.Handler) http.Handler{}
	if cfg.ReportRateLimit > 0 {
		report = append(report, middleware.NewRateLimit(cfg.ReportRateLimit, cfg.ReportRateWindow, s.reportRateLimited))
	}
	report = append(report, middleware.NewRequireAuth(cfg.Verifier, s.denyReport))
	r.With(report...).Post("/occupancy/report", s.SubmitReport)

	return r
}

// methodNotAllowed answers 405 with the methods the path does support,
// found by matching each candidate method against the router.
func methodNotAllowed(mux *chi.Mux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, m := range probeMethods {
			if mux.Match(chi.NewRouteContext(), m, r.URL.Path) {
				allowed = append(allowed, m)
			}
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Error:   "method " + r.Method + " not allowed",
			Code:    codeMethodNotAllowed,
			Allowed: allowed,
		})
	}
}
