package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/geo"
)

// Machine-readable error codes. Clients branch on these, humans read "error".
const (
	codeValidation       = "validation_error"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeAuthRequired     = "auth_required"
	codeTokenInvalid     = "token_invalid"
	codeTokenExpired     = "token_expired"
	codeTooFar           = "too_far"
	codeConsentRequired  = "consent_required"
	codeBodyTooLarge     = "body_too_large"
	codeMethodNotAllowed = "method_not_allowed"
	codeRateLimited      = "rate_limited"
	codeTimeout          = "timeout"
	codeUnavailable      = "unavailable"
	codeInternal         = "internal_error"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error        string   `json:"error"`
	Code         string   `json:"code"`
	DistanceM    *int     `json:"distance_m,omitempty"`
	MaxDistanceM *int     `json:"max_distance_m,omitempty"`
	Allowed      []string `json:"allowed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// authCode maps a verifier reason to its response code.
func authCode(reason domain.AuthReason) string {
	switch reason {
	case domain.AuthExpired:
		return codeTokenExpired
	case domain.AuthInvalid:
		return codeTokenInvalid
	default:
		return codeAuthRequired
	}
}

// writeServiceError maps a service error to its HTTP response.
// notFound is the message used for domain.ErrNotFound, e.g. "location not found",
// because the handler is the layer that knows what was being looked up.
// Anything unmapped is logged and reported as a bare 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var (
		authErr  *domain.AuthError
		proxErr  *domain.ProximityError
		bytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &authErr):
		writeError(w, http.StatusUnauthorized, authCode(authErr.Reason), authErr.Message)
	case errors.As(err, &proxErr):
		dist := geo.Meters(proxErr.DistanceKm)
		limit := geo.Meters(proxErr.MaxKm)
		writeJSON(w, http.StatusForbidden, errorResponse{
			Error: fmt.Sprintf("You must be within %dm of the location to report occupancy. You are currently %dm away.",
				limit, dist),
			Code:         codeTooFar,
			DistanceM:    &dist,
			MaxDistanceM: &limit,
		})
	case errors.Is(err, domain.ErrPermission):
		writeError(w, http.StatusForbidden, codeConsentRequired, "Reporting consent required. Enable data collection in your privacy settings.")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, notFound)
	case errors.Is(err, domain.ErrLocationInUse):
		writeError(w, http.StatusConflict, codeConflict, "location has occupancy reports and cannot be deleted")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, "a location with this id already exists")
	case errors.As(err, &bytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "request body too large")
	case errors.Is(err, context.DeadlineExceeded):
		s.log.WarnContext(r.Context(), "store timeout",
			"error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusServiceUnavailable, codeTimeout, "request timed out, please retry")
	default:
		s.log.ErrorContext(r.Context(), "internal error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.CatalogService.Create: validation error: name is required" → "name is required"
func unwrapMessage(err error, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 && len(msg) > i+len(prefix) {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}

// denyAuth is the RequireAuth rejection handler.
func (s *Server) denyAuth(w http.ResponseWriter, r *http.Request, err error) {
	s.writeServiceError(w, r, err, "")
}
