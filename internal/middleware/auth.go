package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/greenloop/carbon-market/internal/api/httpx"
	"github.com/greenloop/carbon-market/internal/auth"
	"github.com/greenloop/carbon-market/internal/models"
)

type actorKey struct{}

// ActorFrom returns the authenticated actor resolved by Auth. Handlers pass
// it explicitly into every core operation.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(models.Actor)
	return a, ok
}

func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

type AuthMiddleware struct {
	TM *auth.TokenManager
}

func NewAuthMiddleware(tm *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{TM: tm}
}

// Auth requires a Bearer access token and puts the resolved Actor into the
// request context.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		claims, isRefresh, err := m.TM.ParseAny(token)
		if err != nil || isRefresh {
			httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
			return
		}
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid role claim", nil)
			return
		}
		ctx := WithActor(r.Context(), models.Actor{UserID: claims.UserID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
