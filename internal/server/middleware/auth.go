package middleware

import (
	"log/slog"
	"net/http"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/auth"
)

// UserResolver resolves the current user of a request (nil for anonymous)
type UserResolver interface {
	Resolve(r *http.Request) *models.User
}

// Authenticate resolves the current user and stores it in the request context.
// Anonymous requests pass through.
func Authenticate(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolver.Resolve(r)
			ctx := auth.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests with 401
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFromContext(r.Context()) == nil {
			writeError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				writeError(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if !user.IsAdmin() {
				logger.WarnContext(r.Context(), "Admin access denied",
					slog.Int64("user_id", user.ID),
					slog.String("path", r.URL.Path),
				)
				writeError(w, "admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
