package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/quietlocations/backend/internal/metrics"
)

// NewPrometheus returns a middleware that counts requests and observes their
// latency, labelled by the matched chi route pattern.
func NewPrometheus() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.RecordHTTP(r.Method, routePattern(r), status, time.Since(start))
		})
	}
}
