package storage

import (
	"context"
	"time"
)

// SessionRevocations defines the deny-list of revoked session tokens
type SessionRevocations interface {
	// Revoke puts a session token id on the deny-list until expiresAt
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error

	// RevokeUserBefore revokes every session of the user issued before t
	RevokeUserBefore(ctx context.Context, userID int64, t time.Time) error

	// IsRevoked reports whether the token id is denied or was issued
	// before the user's revocation cutoff
	IsRevoked(ctx context.Context, tokenID string, userID int64, issuedAt time.Time) (bool, error)

	// PurgeExpired removes deny-list entries whose tokens already expired
	// Returns number of removed entries
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
