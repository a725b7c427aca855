package middleware

import (
	"net/http"

	"github.com/goccy/go-json"
)

// writeError writes the API's standard error body. Handlers use the same
// {"error","code"} shape.
func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
