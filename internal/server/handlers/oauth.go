package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/zenga/cms/internal/crypto"
	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/auth"
	"github.com/zenga/cms/internal/server/session"
)

const (
	// stateCookieName - cookie с OAuth state
	stateCookieName = "oauth_state"
	stateCookiePath = "/api/oauth"
	stateTTL        = 10 * time.Minute
)

// OAuthClient runs the authorization code flow with the identity provider
type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

// OAuthHandler обрабатывает вход через внешний OAuth провайдер
type OAuthHandler struct {
	responder
	client   OAuthClient
	users    auth.UserUpserter
	sessions *session.Manager
	logins   LoginRecorder
	now      func() time.Time
}

// NewOAuthHandler создает handler OAuth входа. logins может быть nil.
func NewOAuthHandler(
	logger *slog.Logger,
	client OAuthClient,
	users auth.UserUpserter,
	sessions *session.Manager,
	logins LoginRecorder,
) *OAuthHandler {
	return &OAuthHandler{
		responder: responder{logger: logger},
		client:    client,
		users:     users,
		sessions:  sessions,
		logins:    logins,
		now:       time.Now,
	}
}

// Login обрабатывает GET /api/oauth/login
// Запоминает state в cookie и перенаправляет на страницу провайдера
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := crypto.GenerateToken()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate oauth state", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   session.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.client.AuthCodeURL(state), http.StatusFound)
}

// Callback обрабатывает GET /api/oauth/callback
// Проверяет state, обменивает code на профиль, синхронизирует пользователя и выдает сессию
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.sendError(w, "code and state are required", http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		h.logger.WarnContext(ctx, "oauth callback: state mismatch")
		h.sendError(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	// state одноразовый
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     stateCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   session.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	identity, err := h.client.Exchange(ctx, code)
	if err != nil {
		h.recordLogin("oauth", false)
		h.logger.WarnContext(ctx, "oauth callback: exchange failed", slog.Any("error", err))
		h.sendError(w, "oauth login failed", http.StatusBadGateway)
		return
	}

	user, err := auth.SyncIdentity(ctx, h.users, identity, h.now())
	if err != nil {
		h.recordLogin(identity.Provider, false)
		h.sendStorageError(ctx, w, "oauth callback", err)
		return
	}

	token, _, err := h.sessions.Issue(user.ID, user.EmailOrEmpty(), user.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	session.SetCookie(w, r, token, h.sessions.TTL())
	h.recordLogin(identity.Provider, true)

	h.logger.InfoContext(ctx, "user logged in via oauth",
		slog.Int64("user_id", user.ID),
		slog.String("provider", identity.Provider),
	)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *OAuthHandler) recordLogin(method string, ok bool) {
	if method == "" {
		method = "oauth"
	}
	if h.logins != nil {
		h.logins.RecordLogin(method, ok)
	}
}
