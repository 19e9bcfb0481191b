package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/auth"
	"github.com/zenga/cms/internal/server/session"
	"github.com/zenga/cms/pkg/api"
)

// AccountService manages local email/password accounts
type AccountService interface {
	VerifyPassword(ctx context.Context, email, candidate string) (*models.User, error)
	CreateUserWithPassword(ctx context.Context, email, password, name string, role models.Role) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// TokenRevoker puts a session token on the deny-list
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// LoginRecorder counts interactive logins
type LoginRecorder interface {
	RecordLogin(method string, ok bool)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	responder
	accounts    AccountService
	sessions    *session.Manager
	revocations TokenRevoker
	logins      LoginRecorder
}

// NewAuthHandler создает новый handler для авторизации.
// revocations и logins могут быть nil.
func NewAuthHandler(
	logger *slog.Logger,
	accounts AccountService,
	sessions *session.Manager,
	revocations TokenRevoker,
	logins LoginRecorder,
) *AuthHandler {
	return &AuthHandler{
		responder:   responder{logger: logger},
		accounts:    accounts,
		sessions:    sessions,
		revocations: revocations,
		logins:      logins,
	}
}

// Login обрабатывает POST /api/auth/login
// Проверяет email/пароль и выставляет cookie сессии
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.sendError(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := h.accounts.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.recordLogin(false)
			h.logger.WarnContext(ctx, "login failed: invalid credentials")
			h.sendError(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}
		h.sendStorageError(ctx, w, "login", err)
		return
	}

	if !h.startSession(ctx, w, r, user) {
		return
	}
	h.recordLogin(true)

	h.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))

	h.sendJSON(w, api.LoginResponse{
		User:      userResponse(user),
		ExpiresIn: int64(h.sessions.TTL().Seconds()),
	}, http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Токен текущей сессии попадает в deny-list, cookie удаляется
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token, ok := session.TokenFromRequest(r); ok && h.revocations != nil {
		claims, err := h.sessions.Verify(token)
		if err == nil {
			if err := h.revocations.Revoke(ctx, claims.TokenID(), claims.ExpiresTime()); err != nil {
				h.sendStorageError(ctx, w, "logout", err)
				return
			}
			h.logger.InfoContext(ctx, "user logged out", slog.Int64("user_id", claims.UserID))
		}
	}

	session.ClearCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Me обрабатывает GET /api/v1/auth/me
// Для анонимного запроса возвращает {"user": null}
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	resp := api.MeResponse{}
	if user := auth.UserFromContext(r.Context()); user != nil {
		u := userResponse(user)
		resp.User = &u
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// ChangePassword обрабатывает POST /api/v1/auth/password
// Все прежние сессии отзываются, текущему клиенту выдается новая
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)
	if user == nil {
		h.sendError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req api.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.accounts.ChangePassword(ctx, user.ID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.sendError(w, "current password is incorrect", http.StatusForbidden)
			return
		}
		h.sendStorageError(ctx, w, "change password", err)
		return
	}

	if !h.startSession(ctx, w, r, user) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateUser обрабатывает POST /api/v1/admin/users
// Администратор создает локальный аккаунт
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.accounts.CreateUserWithPassword(ctx, req.Email, req.Password, req.Name, models.Role(req.Role))
	if err != nil {
		h.sendStorageError(ctx, w, "create user", err)
		return
	}

	h.sendJSON(w, userResponse(user), http.StatusCreated)
}

// ListUsers обрабатывает GET /api/v1/admin/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.accounts.ListUsers(ctx)
	if err != nil {
		h.sendStorageError(ctx, w, "list users", err)
		return
	}

	resp := make([]api.User, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse(u))
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// startSession выдает токен сессии и выставляет cookie
func (h *AuthHandler) startSession(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) bool {
	token, _, err := h.sessions.Issue(user.ID, user.EmailOrEmpty(), user.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return false
	}

	session.SetCookie(w, r, token, h.sessions.TTL())
	return true
}

func (h *AuthHandler) recordLogin(ok bool) {
	if h.logins != nil {
		h.logins.RecordLogin(models.LoginMethodEmail, ok)
	}
}
