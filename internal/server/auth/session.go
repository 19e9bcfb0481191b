package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/session"
	"github.com/zenga/cms/internal/server/storage"
)

// UserLookup finds users by id
type UserLookup interface {
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
}

// RevocationChecker answers whether a session was revoked
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string, userID int64, issuedAt time.Time) (bool, error)
}

// SessionAuthenticator authenticates requests by the local session cookie
type SessionAuthenticator struct {
	sessions    *session.Manager
	users       UserLookup
	revocations RevocationChecker
}

// NewSessionAuthenticator creates the cookie authenticator. revocations may be nil.
func NewSessionAuthenticator(sessions *session.Manager, users UserLookup, revocations RevocationChecker) *SessionAuthenticator {
	return &SessionAuthenticator{
		sessions:    sessions,
		users:       users,
		revocations: revocations,
	}
}

// Name returns the authenticator name used in logs and metrics
func (a *SessionAuthenticator) Name() string {
	return "session"
}

// Authenticate verifies the session cookie and loads its user
func (a *SessionAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*models.User, error) {
	token, ok := session.TokenFromRequest(r)
	if !ok {
		return nil, nil
	}

	claims, err := a.sessions.Verify(token)
	if err != nil {
		// невалидная cookie равносильна ее отсутствию
		return nil, nil
	}

	if a.revocations != nil {
		revoked, err := a.revocations.IsRevoked(ctx, claims.TokenID(), claims.UserID, claims.IssuedTime())
		if err != nil {
			return nil, fmt.Errorf("failed to check session revocation: %w", err)
		}
		if revoked {
			return nil, nil
		}
	}

	user, err := a.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return user, nil
}
