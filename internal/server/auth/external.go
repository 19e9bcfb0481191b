package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/validation"
)

// DefaultExternalTimeout bounds one call to the identity provider
const DefaultExternalTimeout = 5 * time.Second

// IdentityVerifier verifies credentials issued by an external identity provider.
// (nil, nil) means the request carries no such credentials.
type IdentityVerifier interface {
	VerifyExternalIdentity(ctx context.Context, r *http.Request) (*models.ExternalIdentity, error)
}

// UserUpserter stores users keyed by their external open id
type UserUpserter interface {
	UpsertUser(ctx context.Context, openID string, patch models.Patch) (*models.User, error)
}

// ExternalAuthenticator authenticates requests with the external identity provider
// and keeps the local user record in sync with the identity
type ExternalAuthenticator struct {
	verifier IdentityVerifier
	users    UserUpserter
	now      func() time.Time
	timeout  time.Duration
}

// NewExternalAuthenticator creates the delegated authenticator. timeout <= 0 means DefaultExternalTimeout.
func NewExternalAuthenticator(verifier IdentityVerifier, users UserUpserter, timeout time.Duration) *ExternalAuthenticator {
	if timeout <= 0 {
		timeout = DefaultExternalTimeout
	}
	return &ExternalAuthenticator{
		verifier: verifier,
		users:    users,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Name returns the authenticator name used in logs and metrics
func (a *ExternalAuthenticator) Name() string {
	return "external"
}

// Authenticate verifies the external identity and upserts its user
func (a *ExternalAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	identity, err := a.verify(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to verify external identity: %w", err)
	}
	if identity == nil {
		return nil, nil
	}

	return SyncIdentity(ctx, a.users, identity, a.now())
}

type verifyResult struct {
	identity *models.ExternalIdentity
	err      error
}

// verify waits for the verifier at most until ctx is done.
// A verifier that ignores ctx is left running, its result is dropped.
func (a *ExternalAuthenticator) verify(ctx context.Context, r *http.Request) (*models.ExternalIdentity, error) {
	done := make(chan verifyResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- verifyResult{err: fmt.Errorf("verifier panic: %v", rec)}
			}
		}()

		identity, err := a.verifier.VerifyExternalIdentity(ctx, r)
		done <- verifyResult{identity: identity, err: err}
	}()

	select {
	case res := <-done:
		return res.identity, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SyncIdentity upserts the user of an external identity and marks the sign-in
func SyncIdentity(ctx context.Context, users UserUpserter, identity *models.ExternalIdentity, now time.Time) (*models.User, error) {
	if identity.OpenID == "" {
		return nil, fmt.Errorf("external identity has no open id")
	}

	patch := models.Patch{
		"lastSignedIn": now.UTC(),
	}
	if identity.Name != "" {
		patch.Set("name", identity.Name)
	}
	if identity.Email != "" {
		patch.Set("email", validation.NormalizeEmail(identity.Email))
	}
	if identity.Provider != "" {
		patch.Set("loginMethod", identity.Provider)
	}

	user, err := users.UpsertUser(ctx, identity.OpenID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to sync external user: %w", err)
	}

	return user, nil
}
