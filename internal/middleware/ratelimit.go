package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// NewRateLimit limits each client IP to requests per window. The client IP is
// taken from True-Client-IP / X-Real-IP / X-Forwarded-For when present, as set
// by the reverse proxy. onLimited writes the 429 response; nil uses the
// standard JSON error body.
func NewRateLimit(requests int, window time.Duration, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimited == nil {
		onLimited = func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "rate_limited")
		}
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(onLimited),
	)
}
