package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/quietlocations/backend/internal/auth"
	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/metrics"
)

// reportRequest is the body of POST /occupancy/report. The level is decoded
// as a number so 2.5 is reported as out of range rather than as bad JSON.
type reportRequest struct {
	LocationID     string   `json:"location_id"`
	OccupancyLevel *float64 `json:"occupancy_level"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	DeviceType     string   `json:"device_type"`
}

type reportResponse struct {
	ID             uuid.UUID `json:"id"`
	LocationID     string    `json:"location_id"`
	OccupancyLevel int       `json:"occupancy_level"`
	OccupancyLabel string    `json:"occupancy_label"`
	DeviceType     string    `json:"device_type"`
	CreatedAt      time.Time `json:"created_at"`
}

type submitReportResponse struct {
	Report          reportResponse `json:"report"`
	ReputationScore int            `json:"reputation_score"`
}

type occupancyResponse struct {
	LocationID     string          `json:"location_id"`
	Latest         *reportResponse `json:"latest"`
	RecentReports  int             `json:"recent_reports"`
	WindowMinutes  int             `json:"window_minutes"`
	Stale          bool            `json:"stale"`
	YourLastReport *reportResponse `json:"your_last_report,omitempty"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type reportListResponse struct {
	Data       []reportResponse `json:"data"`
	Pagination pagination       `json:"pagination"`
}

type meResponse struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email,omitempty"`
	ReputationScore int    `json:"reputation_score"`
}

// Reporter coordinates and id stay server-side; only the level and metadata
// are published.
func reportToResponse(r domain.OccupancyReport) reportResponse {
	return reportResponse{
		ID:             r.ID,
		LocationID:     r.LocationID,
		OccupancyLevel: int(r.Level),
		OccupancyLabel: r.Level.Label(),
		DeviceType:     r.DeviceType,
		CreatedAt:      r.CreatedAt,
	}
}

func optionalReport(r *domain.OccupancyReport) *reportResponse {
	if r == nil {
		return nil
	}
	resp := reportToResponse(*r)
	return &resp
}

// SubmitReport handles POST /occupancy/report.
// The route requires a bearer token; the ledger checks the rest in order.
func (s *Server) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		metrics.ReportsRejected.WithLabelValues(rejectReason(err)).Inc()
		s.writeServiceError(w, r, err, "")
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	sub, err := s.occupancy.SubmitReport(ctx, auth.IdentityFrom(r.Context()), domain.ReportInput{
		LocationID: req.LocationID,
		Level:      req.OccupancyLevel,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		DeviceType: req.DeviceType,
	})
	if err != nil {
		var proxErr *domain.ProximityError
		if errors.As(err, &proxErr) {
			metrics.ReportDistance.Observe(proxErr.DistanceKm * 1000)
		}
		metrics.ReportsRejected.WithLabelValues(rejectReason(err)).Inc()
		s.writeServiceError(w, r, err, "location not found")
		return
	}

	metrics.ReportsAccepted.Inc()
	metrics.ReportDistance.Observe(sub.DistanceKm * 1000)
	writeJSON(w, http.StatusCreated, submitReportResponse{
		Report:          reportToResponse(sub.Report),
		ReputationScore: sub.ReputationScore,
	})
}

// rejectReason classifies a refused submission for the rejection counter.
func rejectReason(err error) string {
	var (
		authErr *domain.AuthError
		proxErr *domain.ProximityError
	)
	switch {
	case errors.As(err, &authErr):
		return metrics.RejectUnauthenticated
	case errors.As(err, &proxErr):
		return metrics.RejectTooFar
	case errors.Is(err, domain.ErrPermission):
		return metrics.RejectNoConsent
	case errors.Is(err, domain.ErrNotFound):
		return metrics.RejectNotFound
	case errors.Is(err, domain.ErrValidation):
		return metrics.RejectInvalid
	default:
		return metrics.RejectError
	}
}

// denyReport rejects an unauthenticated submission.
func (s *Server) denyReport(w http.ResponseWriter, r *http.Request, err error) {
	metrics.ReportsRejected.WithLabelValues(metrics.RejectUnauthenticated).Inc()
	s.writeServiceError(w, r, err, "")
}

// reportRateLimited is the 429 handler of the report route.
func (s *Server) reportRateLimited(w http.ResponseWriter, _ *http.Request) {
	metrics.ReportsRejected.WithLabelValues(metrics.RejectRateLimited).Inc()
	writeError(w, http.StatusTooManyRequests, codeRateLimited, "Too many reports. Please try again later.")
}

// GetOccupancy handles GET /locations/{id}/occupancy.
// Authenticated callers also get their own newest report for the location.
func (s *Server) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	cur, err := s.occupancy.Current(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err, "location not found")
		return
	}
	resp := occupancyResponse{
		LocationID:    cur.LocationID,
		Latest:        optionalReport(cur.Latest),
		RecentReports: cur.RecentReports,
		WindowMinutes: int(cur.Window / time.Minute),
		Stale:         cur.Stale,
	}

	if caller := auth.IdentityFrom(r.Context()); caller != nil {
		mine, err := s.occupancy.LastByReporter(ctx, id, caller.UserID)
		if err != nil {
			s.writeServiceError(w, r, err, "location not found")
			return
		}
		resp.YourLastReport = optionalReport(mine)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListReports handles GET /locations/{id}/reports.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	params, err := queryPagination(r)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	page, err := s.occupancy.History(ctx, chi.URLParam(r, "id"), params)
	if err != nil {
		s.writeServiceError(w, r, err, "location not found")
		return
	}

	data := make([]reportResponse, len(page.Items))
	for i, rep := range page.Items {
		data[i] = reportToResponse(rep)
	}
	writeJSON(w, http.StatusOK, reportListResponse{
		Data: data,
		Pagination: pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(page.Total),
		},
	})
}

// GetMe handles GET /me.
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFrom(r.Context())
	if caller == nil {
		s.writeServiceError(w, r, &domain.AuthError{
			Reason:  domain.AuthMissingOrMalformed,
			Message: "Authentication required. Please log in.",
		}, "")
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	score, err := s.occupancy.Reputation(ctx, caller.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{UserID: caller.UserID, Email: caller.Email, ReputationScore: score})
}
