package handler

import "net/http"

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetReady handles GET /readyz.
// It returns 200 once the store answers a ping and 503 while it does not.
func (s *Server) GetReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := s.storeContext(r.Context())
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.log.WarnContext(r.Context(), "readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, codeUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
