// Package httpapi exposes the authentication gateway over HTTP. Routing and
// request binding are intentionally thin; the contract that matters is the
// status codes, the token response body, and the refresh_token cookie
// attributes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/buddy/internal/common"
	"github.com/dmitrijs2005/buddy/internal/logging"
	"github.com/dmitrijs2005/buddy/internal/server/models"
	"github.com/dmitrijs2005/buddy/internal/server/services"
)

const refreshCookieName = "refresh_token"

const maxJSONBodyBytes = 1 << 20

// AuthService is the gateway surface the HTTP layer depends on.
type AuthService interface {
	Signup(ctx context.Context, username string, password string) (*models.User, error)
	Login(ctx context.Context, username string, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// UserService covers user-record operations exposed over HTTP.
type UserService interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ChangePassword(ctx context.Context, user *models.User, newPassword string) (bool, error)
	Delete(ctx context.Context, user *models.User) error
}

type Handler struct {
	auth   AuthService
	users  UserService
	logger logging.Logger
}

func NewHandler(auth AuthService, users UserService, logger logging.Logger) *Handler {
	return &Handler{auth: auth, users: users, logger: logger}
}

// Register attaches all routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("POST /token", h.Login)
	mux.HandleFunc("POST /refresh", h.Refresh)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("PATCH /passwd", h.authenticate(h.requireActive(h.ChangePassword)))
	mux.HandleFunc("GET /users/me", h.authenticate(h.requireActive(h.GetMe)))
	mux.HandleFunc("GET /users/id/{id}", h.authenticate(h.requireAdmin(h.GetUserByID)))
	mux.HandleFunc("GET /users/username/{username}", h.authenticate(h.requireAdmin(h.GetUserByUsername)))
	mux.HandleFunc("DELETE /users/delete/me", h.authenticate(h.requireActive(h.DeleteMe)))
	mux.HandleFunc("DELETE /users/delete/id/{id}", h.authenticate(h.requireAdmin(h.DeleteUserByID)))
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Password string `json:"password"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	_, err := h.auth.Signup(r.Context(), body.Username, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			writeError(w, http.StatusBadRequest, "Username '"+body.Username+"' already exists")
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "username and password must not be empty")
		default:
			h.logger.Error(r.Context(), "signup failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to sign up")
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	pair, err := h.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.logger.Error(r.Context(), "login failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	setRefreshCookie(w, pair.Refresh, http.SameSiteLaxMode)
	writeJSON(w, http.StatusCreated, accessTokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		// Indistinguishable from an invalid token.
		writeError(w, http.StatusUnauthorized, "Please sign in.")
		return
	}

	pair, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Please sign in.")
			return
		}
		h.logger.Error(r.Context(), "refresh failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	setRefreshCookie(w, pair.Refresh, http.SameSiteStrictMode)
	writeJSON(w, http.StatusCreated, accessTokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error(r.Context(), "logout failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to logout")
			return
		}
	}

	clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var body passwordResetRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	ok, err := h.users.ChangePassword(r.Context(), user, body.Password)
	if err != nil {
		h.logger.Error(r.Context(), "password change failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "password must not be empty")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.UserName, Role: string(user.Role)})
}

func (h *Handler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "User with ID '"+r.PathValue("id")+"' not found")
			return
		}
		h.logger.Error(r.Context(), "user lookup failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to look up user")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.UserName, Role: string(user.Role)})
}

func (h *Handler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "User with username '"+username+"' not found")
			return
		}
		h.logger.Error(r.Context(), "user lookup failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to look up user")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.UserName, Role: string(user.Role)})
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := h.users.Delete(r.Context(), user); err != nil {
		h.logger.Error(r.Context(), "user delete failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "User with ID '"+r.PathValue("id")+"' not found")
			return
		}
		h.logger.Error(r.Context(), "user lookup failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	if err := h.users.Delete(r.Context(), user); err != nil {
		h.logger.Error(r.Context(), "user delete failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setRefreshCookie sets the refresh_token cookie with Max-Age equal to the
// remaining seconds until the record's expiry. Login uses SameSite=Lax so
// the cookie survives top-level navigation right after signing in; rotation
// uses SameSite=Strict.
func setRefreshCookie(w http.ResponseWriter, rt *models.RefreshToken, sameSite http.SameSite) {
	maxAge := int(time.Until(rt.Expires).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    rt.Token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
