package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/buddy/internal/common"
	"github.com/dmitrijs2005/buddy/internal/logging"
	"github.com/dmitrijs2005/buddy/internal/server/models"
	"github.com/dmitrijs2005/buddy/internal/server/services"
)

// --- stubs ---

type stubAuth struct {
	signupUser *models.User
	signupErr  error

	loginPair *services.TokenPair
	loginErr  error

	refreshPair *services.TokenPair
	refreshErr  error

	logoutErr error
	loggedOut []string

	currentUser *models.User
	currentErr  error
}

func (s *stubAuth) Signup(ctx context.Context, username, password string) (*models.User, error) {
	if s.signupErr != nil {
		return nil, s.signupErr
	}
	return s.signupUser, nil
}

func (s *stubAuth) Login(ctx context.Context, username, password string) (*services.TokenPair, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginPair, nil
}

func (s *stubAuth) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshPair, nil
}

func (s *stubAuth) Logout(ctx context.Context, refreshToken string) error {
	if s.logoutErr != nil {
		return s.logoutErr
	}
	s.loggedOut = append(s.loggedOut, refreshToken)
	return nil
}

func (s *stubAuth) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	if s.currentErr != nil {
		return nil, s.currentErr
	}
	return s.currentUser, nil
}

type stubUsers struct {
	user    *models.User
	getErr  error
	pwOK    bool
	pwErr   error
	delErr  error
	deleted []int64
}

func (s *stubUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.user, nil
}

func (s *stubUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.user, nil
}

func (s *stubUsers) ChangePassword(ctx context.Context, user *models.User, newPassword string) (bool, error) {
	if s.pwErr != nil {
		return false, s.pwErr
	}
	return s.pwOK, nil
}

func (s *stubUsers) Delete(ctx context.Context, user *models.User) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.deleted = append(s.deleted, user.ID)
	return nil
}

func newTestServer(t *testing.T, auth *stubAuth, users *stubUsers) *httptest.Server {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := NewHandler(auth, users, logger)
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, headers map[string]string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func testPair(validity time.Duration) *services.TokenPair {
	return &services.TokenPair{
		AccessToken: "jwt-string",
		Refresh: &models.RefreshToken{
			Token:   "refresh-string",
			UserID:  1,
			Expires: time.Now().UTC().Add(validity),
		},
	}
}

// --- tests ---

func TestSignup_Created(t *testing.T) {
	auth := &stubAuth{signupUser: &models.User{ID: 1, UserName: "alice", Role: models.RoleAdmin}}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/signup", `{"username":"alice","password":"pw1"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d", resp.StatusCode)
	}
}

func TestSignup_Conflict(t *testing.T) {
	auth := &stubAuth{signupErr: common.ErrorAlreadyExists}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/signup", `{"username":"alice","password":"pw1"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func TestSignup_InvalidBody(t *testing.T) {
	srv := newTestServer(t, &stubAuth{}, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/signup", `{not json`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func TestLogin_SetsLaxCookieAndBody(t *testing.T) {
	auth := &stubAuth{loginPair: testPair(24 * time.Hour)}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/token", `{"username":"alice","password":"pw1"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d", resp.StatusCode)
	}

	var body accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.AccessToken != "jwt-string" || body.TokenType != "bearer" {
		t.Fatalf("unexpected body: %+v", body)
	}

	cookie := findCookie(t, resp, refreshCookieName)
	if cookie == nil {
		t.Fatalf("refresh_token cookie not set")
	}
	if cookie.Value != "refresh-string" || !cookie.HttpOnly {
		t.Fatalf("unexpected cookie: %+v", cookie)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("login cookie must be SameSite=Lax, got %v", cookie.SameSite)
	}
	// Max-Age equals the remaining seconds until expiry.
	if cookie.MaxAge < 24*3600-5 || cookie.MaxAge > 24*3600 {
		t.Fatalf("unexpected Max-Age: %d", cookie.MaxAge)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	auth := &stubAuth{loginErr: common.ErrInvalidCredentials}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/token", `{"username":"bob","password":"wrong"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestRefresh_SetsStrictCookie(t *testing.T) {
	auth := &stubAuth{refreshPair: testPair(24 * time.Hour)}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/refresh", "", nil,
		&http.Cookie{Name: refreshCookieName, Value: "old-token"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d", resp.StatusCode)
	}

	cookie := findCookie(t, resp, refreshCookieName)
	if cookie == nil {
		t.Fatalf("refresh_token cookie not set")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("rotation cookie must be SameSite=Strict, got %v", cookie.SameSite)
	}
}

func TestRefresh_MissingCookie(t *testing.T) {
	srv := newTestServer(t, &stubAuth{}, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/refresh", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestRefresh_StaleToken(t *testing.T) {
	auth := &stubAuth{refreshErr: common.ErrorUnauthorized}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/refresh", "", nil,
		&http.Cookie{Name: refreshCookieName, Value: "rotated-away"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestLogout_DeletesTokenAndClearsCookie(t *testing.T) {
	auth := &stubAuth{}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/logout", "", nil,
		&http.Cookie{Name: refreshCookieName, Value: "tok"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("want 204, got %d", resp.StatusCode)
	}
	if len(auth.loggedOut) != 1 || auth.loggedOut[0] != "tok" {
		t.Fatalf("token not passed to Logout: %v", auth.loggedOut)
	}

	cookie := findCookie(t, resp, refreshCookieName)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("cookie must be cleared, got %+v", cookie)
	}
}

func TestLogout_WithoutCookie(t *testing.T) {
	srv := newTestServer(t, &stubAuth{}, &stubUsers{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/logout", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("want 204, got %d", resp.StatusCode)
	}
}

func TestChangePassword_NoContent(t *testing.T) {
	auth := &stubAuth{currentUser: &models.User{ID: 1, UserName: "alice", Role: models.RoleUser}}
	users := &stubUsers{pwOK: true}
	srv := newTestServer(t, auth, users)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/passwd", `{"password":"pw1-new"}`,
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("want 204, got %d", resp.StatusCode)
	}
}

func TestChangePassword_EmptyPassword(t *testing.T) {
	auth := &stubAuth{currentUser: &models.User{ID: 1, UserName: "alice", Role: models.RoleUser}}
	users := &stubUsers{pwOK: false}
	srv := newTestServer(t, auth, users)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/passwd", `{"password":""}`,
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_RejectsBadHeaders(t *testing.T) {
	auth := &stubAuth{currentErr: common.ErrorUnauthorized}
	srv := newTestServer(t, auth, &stubUsers{})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"rejected token", "Bearer bad"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			resp := doJSON(t, http.MethodGet, srv.URL+"/users/me", "", headers)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("want 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestGetMe(t *testing.T) {
	auth := &stubAuth{currentUser: &models.User{ID: 7, UserName: "alice", Role: models.RoleAdmin}}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/users/me", "",
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.ID != 7 || body.Username != "alice" || body.Role != "admin" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAdminEndpoints_ForbiddenForRegularUser(t *testing.T) {
	auth := &stubAuth{currentUser: &models.User{ID: 2, UserName: "bob", Role: models.RoleUser}}
	srv := newTestServer(t, auth, &stubUsers{user: &models.User{ID: 1, UserName: "alice", Role: models.RoleAdmin}})

	for _, url := range []string{"/users/id/1", "/users/username/alice"} {
		resp := doJSON(t, http.MethodGet, srv.URL+url, "",
			map[string]string{"Authorization": "Bearer jwt"})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s: want 403, got %d", url, resp.StatusCode)
		}
	}
}

func TestInactiveUser_Forbidden(t *testing.T) {
	auth := &stubAuth{currentUser: &models.User{ID: 3, UserName: "carol", Role: models.RoleInactive}}
	srv := newTestServer(t, auth, &stubUsers{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/users/me", "",
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403, got %d", resp.StatusCode)
	}
}

func TestGetUserByID_AdminOKAndNotFound(t *testing.T) {
	admin := &models.User{ID: 1, UserName: "alice", Role: models.RoleAdmin}

	auth := &stubAuth{currentUser: admin}
	users := &stubUsers{user: &models.User{ID: 2, UserName: "bob", Role: models.RoleUser}}
	srv := newTestServer(t, auth, users)

	resp := doJSON(t, http.MethodGet, srv.URL+"/users/id/2", "",
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}

	users.getErr = common.ErrorNotFound
	resp = doJSON(t, http.MethodGet, srv.URL+"/users/id/404", "",
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
}

func TestDeleteMe(t *testing.T) {
	auth := &stubAuth{currentUser: &models.User{ID: 2, UserName: "bob", Role: models.RoleUser}}
	users := &stubUsers{}
	srv := newTestServer(t, auth, users)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/users/delete/me", "",
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("want 204, got %d", resp.StatusCode)
	}
	if len(users.deleted) != 1 || users.deleted[0] != 2 {
		t.Fatalf("delete not forwarded: %v", users.deleted)
	}
}

func TestDeleteUserByID_AdminOnly(t *testing.T) {
	auth := &stubAuth{currentUser: &models.User{ID: 1, UserName: "alice", Role: models.RoleAdmin}}
	users := &stubUsers{user: &models.User{ID: 2, UserName: "bob", Role: models.RoleUser}}
	srv := newTestServer(t, auth, users)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/users/delete/id/2", "",
		map[string]string{"Authorization": "Bearer jwt"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("want 204, got %d", resp.StatusCode)
	}
	if len(users.deleted) != 1 || users.deleted[0] != 2 {
		t.Fatalf("delete not forwarded: %v", users.deleted)
	}
}
