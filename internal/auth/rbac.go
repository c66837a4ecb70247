package auth

import (
	"net/http"
)

// RequireMaster allows only master accounts through. It must run after
// Authenticate.
func RequireMaster(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusForbidden, "no user in context")
			return
		}
		if !user.IsMaster {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}
