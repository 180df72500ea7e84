package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/buddy/internal/server/models"
)

type ctxKey string

const userKey ctxKey = "auth_user"

// UserFromContext returns the authenticated user placed in the context by
// the authenticate middleware, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// authenticate extracts the bearer token from the Authorization header,
// resolves it to a user, and stores the user in the request context. Every
// failure mode collapses to the same 401.
func (h *Handler) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Could not validate token")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "Could not validate token")
			return
		}

		user, err := h.auth.CurrentUser(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Could not validate token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next(w, r.WithContext(ctx))
	}
}

// requireActive admits admins and regular users; inactive accounts are
// rejected. The switch is exhaustive over the closed role set.
func (h *Handler) requireActive(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		switch user.Role {
		case models.RoleAdmin, models.RoleUser:
			next(w, r)
		case models.RoleInactive:
			writeError(w, http.StatusForbidden, "Unauthorized access is forbidden")
		default:
			writeError(w, http.StatusForbidden, "Unauthorized access is forbidden")
		}
	}
}

// requireAdmin admits admins only.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		switch user.Role {
		case models.RoleAdmin:
			next(w, r)
		case models.RoleUser, models.RoleInactive:
			writeError(w, http.StatusForbidden, "Unauthorized access is forbidden")
		default:
			writeError(w, http.StatusForbidden, "Unauthorized access is forbidden")
		}
	}
}
