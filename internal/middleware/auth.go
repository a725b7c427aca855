package middleware

import (
	"net/http"

	"github.com/pkordes/quietlocations/backend/internal/auth"
	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// Verifier is the part of auth.Verifier the middleware needs.
type Verifier interface {
	Verify(header string) (domain.Identity, error)
	VerifyOptional(header string) (domain.Identity, bool)
}

// NewRequireAuth rejects requests without a valid bearer token by calling
// deny with the verifier's error, and otherwise stores the identity in the
// request context for auth.IdentityFrom.
func NewRequireAuth(v Verifier, deny func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Header.Get("Authorization"))
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// NewOptionalAuth stores the identity when the request carries a valid
// token and passes every request through regardless.
func NewOptionalAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := v.VerifyOptional(r.Header.Get("Authorization")); ok {
				r = r.WithContext(auth.WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
