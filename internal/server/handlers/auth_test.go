package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/auth"
	"github.com/zenga/cms/internal/server/session"
	"github.com/zenga/cms/internal/server/storage/sqlite"
	"github.com/zenga/cms/pkg/api"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

type revokedToken struct {
	expiresAt time.Time
	id        string
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked []revokedToken
}

func (f *fakeRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, revokedToken{id: tokenID, expiresAt: expiresAt})
	return nil
}

func (f *fakeRevoker) RevokeUserBefore(context.Context, int64, time.Time) error {
	return nil
}

type loginEvent struct {
	method string
	ok     bool
}

type fakeLoginRecorder struct {
	events []loginEvent
}

func (f *fakeLoginRecorder) RecordLogin(method string, ok bool) {
	f.events = append(f.events, loginEvent{method: method, ok: ok})
}

type authFixture struct {
	handler  *AuthHandler
	store    *sqlite.Storage
	sessions *session.Manager
	revoker  *fakeRevoker
	logins   *fakeLoginRecorder
	user     *models.User
}

func setupAuthHandler(t *testing.T) *authFixture {
	t.Helper()

	store := setupTestStore(t)
	revoker := &fakeRevoker{}

	accounts, err := auth.NewService(store, revoker, testLogger(), bcrypt.MinCost)
	require.NoError(t, err)

	sessions, err := session.NewManager(testSecret, time.Hour)
	require.NoError(t, err)

	user, err := accounts.CreateUserWithPassword(context.Background(), "editor@zenga.com", "editor-pass", "Editor", models.RoleUser)
	require.NoError(t, err)

	logins := &fakeLoginRecorder{}
	return &authFixture{
		handler:  NewAuthHandler(testLogger(), accounts, sessions, revoker, logins),
		store:    store,
		sessions: sessions,
		revoker:  revoker,
		logins:   logins,
		user:     user,
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", session.CookieName)
	return nil
}

func TestAuthHandler_Login(t *testing.T) {
	f := setupAuthHandler(t)

	w := httptest.NewRecorder()
	f.handler.Login(w, newRequest(t, http.MethodPost, "/api/auth/login",
		api.LoginRequest{Email: "Editor@Zenga.com", Password: "editor-pass"}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse[api.LoginResponse](t, w)
	assert.Equal(t, f.user.ID, resp.User.ID)
	assert.Equal(t, "user", resp.User.Role)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	claims, err := f.sessions.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)

	assert.Equal(t, []loginEvent{{method: models.LoginMethodEmail, ok: true}}, f.logins.events)
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	f := setupAuthHandler(t)

	tests := []struct {
		body       any
		name       string
		wantStatus int
	}{
		{name: "wrong password", body: api.LoginRequest{Email: "editor@zenga.com", Password: "wrong-pass"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown email", body: api.LoginRequest{Email: "ghost@zenga.com", Password: "editor-pass"}, wantStatus: http.StatusUnauthorized},
		{name: "missing password", body: api.LoginRequest{Email: "editor@zenga.com"}, wantStatus: http.StatusBadRequest},
		{name: "blank email", body: api.LoginRequest{Email: "  ", Password: "x"}, wantStatus: http.StatusBadRequest},
		{name: "garbage", body: "{", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.handler.Login(w, newRequest(t, http.MethodPost, "/api/auth/login", tt.body, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Empty(t, w.Result().Cookies())

			if tt.wantStatus == http.StatusUnauthorized {
				// одинаковый ответ для неизвестного email и неверного пароля
				resp := decodeResponse[api.ErrorResponse](t, w)
				assert.Equal(t, auth.ErrInvalidCredentials.Error(), resp.Message)
			}
		})
	}

	assert.Equal(t, []loginEvent{
		{method: models.LoginMethodEmail, ok: false},
		{method: models.LoginMethodEmail, ok: false},
	}, f.logins.events)
}

func TestAuthHandler_Logout(t *testing.T) {
	f := setupAuthHandler(t)

	token, claims, err := f.sessions.Issue(f.user.ID, "editor@zenga.com", "Editor")
	require.NoError(t, err)

	r := newRequest(t, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})

	w := httptest.NewRecorder()
	f.handler.Logout(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	cleared := sessionCookie(t, w)
	assert.Equal(t, -1, cleared.MaxAge)

	require.Len(t, f.revoker.revoked, 1)
	assert.Equal(t, claims.TokenID(), f.revoker.revoked[0].id)
	assert.True(t, claims.ExpiresTime().Equal(f.revoker.revoked[0].expiresAt))
}

func TestAuthHandler_Logout_WithoutSession(t *testing.T) {
	f := setupAuthHandler(t)

	r := newRequest(t, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged"})

	w := httptest.NewRecorder()
	f.handler.Logout(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, f.revoker.revoked)
}

func TestAuthHandler_Me(t *testing.T) {
	f := setupAuthHandler(t)

	w := httptest.NewRecorder()
	f.handler.Me(w, newRequest(t, http.MethodGet, "/api/v1/auth/me", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	w = httptest.NewRecorder()
	f.handler.Me(w, withUser(newRequest(t, http.MethodGet, "/api/v1/auth/me", nil, nil), f.user))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse[api.MeResponse](t, w)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Editor", resp.User.Name)
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	f := setupAuthHandler(t)

	change := func(user *models.User, body any) *httptest.ResponseRecorder {
		r := newRequest(t, http.MethodPost, "/api/v1/auth/password", body, nil)
		if user != nil {
			r = withUser(r, user)
		}
		w := httptest.NewRecorder()
		f.handler.ChangePassword(w, r)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized,
		change(nil, api.ChangePasswordRequest{OldPassword: "editor-pass", NewPassword: "new-password"}).Code)

	assert.Equal(t, http.StatusForbidden,
		change(f.user, api.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"}).Code)

	assert.Equal(t, http.StatusBadRequest,
		change(f.user, api.ChangePasswordRequest{OldPassword: "editor-pass", NewPassword: "123"}).Code)

	w := change(f.user, api.ChangePasswordRequest{OldPassword: "editor-pass", NewPassword: "new-password"})
	require.Equal(t, http.StatusNoContent, w.Code)
	// текущий клиент получает новую сессию
	sessionCookie(t, w)

	login := httptest.NewRecorder()
	f.handler.Login(login, newRequest(t, http.MethodPost, "/api/auth/login",
		api.LoginRequest{Email: "editor@zenga.com", Password: "new-password"}, nil))
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestAuthHandler_CreateUser(t *testing.T) {
	f := setupAuthHandler(t)

	tests := []struct {
		body       api.CreateUserRequest
		name       string
		wantStatus int
	}{
		{name: "admin", body: api.CreateUserRequest{Email: "new@zenga.com", Password: "secret-pass", Role: "admin"}, wantStatus: http.StatusCreated},
		{name: "duplicate", body: api.CreateUserRequest{Email: "editor@zenga.com", Password: "secret-pass"}, wantStatus: http.StatusConflict},
		{name: "bad role", body: api.CreateUserRequest{Email: "x@zenga.com", Password: "secret-pass", Role: "root"}, wantStatus: http.StatusBadRequest},
		{name: "bad email", body: api.CreateUserRequest{Email: "x", Password: "secret-pass"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.handler.CreateUser(w, newRequest(t, http.MethodPost, "/api/v1/admin/users", tt.body, nil))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	created, err := f.store.GetUserByEmail(context.Background(), "new@zenga.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.Equal(t, "new", created.Name)
}

func TestAuthHandler_ListUsers(t *testing.T) {
	f := setupAuthHandler(t)

	_, err := f.store.UpsertUser(context.Background(), "gh-1", models.Patch{"name": "Octo"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	f.handler.ListUsers(w, newRequest(t, http.MethodGet, "/api/v1/admin/users", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)

	users := decodeResponse[[]api.User](t, w)
	require.Len(t, users, 2)
	assert.Equal(t, "Editor", users[0].Name)
	assert.Equal(t, "Octo", users[1].Name)
	assert.NotContains(t, w.Body.String(), "$2a$")
}
