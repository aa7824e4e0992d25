package rbac

import (
	"net/http"

	"github.com/platinummonkey/venuedesk/pkg/httputil"
	"github.com/platinummonkey/venuedesk/pkg/modules"
)

// AllowedFunc returns the module set of the session making r. ok is false
// when there is no authenticated session.
type AllowedFunc func(r *http.Request) (allowed modules.Set, ok bool)

// RequireModule creates middleware that requires module id. It answers in
// JSON and is meant for API routes; pages go through the route guard.
func RequireModule(id modules.ID, allowed AllowedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set, ok := allowed(r)
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if !CanAccessModule(set, id) {
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
