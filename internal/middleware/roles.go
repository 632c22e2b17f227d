package middleware

import (
	"net/http"

	"github.com/greenloop/carbon-market/internal/api/httpx"
	"github.com/greenloop/carbon-market/internal/models"
)

// RequireRole allows only actors holding one of the given roles. Admin
// passes everywhere.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := map[models.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authentication", nil)
				return
			}
			if _, ok := allowed[actor.Role]; !ok && !actor.IsAdmin() {
				httpx.WriteError(w, http.StatusForbidden, "UNAUTHORIZED", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
