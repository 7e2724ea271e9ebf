package middleware

import (
	"net/http"

	"github.com/samber/lo"
)

// RequireRole lets a request through only when the caller's role claim is
// one of allowed. It must run after Auth.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !lo.Contains(allowed, claims.Role) {
				writeJSONError(w, http.StatusForbidden, "role "+claims.Role+" may not call this endpoint")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
