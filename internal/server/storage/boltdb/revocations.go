package boltdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

// Revoke puts the token id on the deny-list until the token would expire anyway
func (s *Storage) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("token id is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRevokedTokens)
		if bucket == nil {
			return fmt.Errorf("revoked tokens bucket not found")
		}

		if err := bucket.Put([]byte(tokenID), encodeTime(expiresAt)); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}

		return nil
	})
}

// RevokeUserBefore revokes every session of the user issued before t.
// The cutoff keeps full precision: sessions issued later in the same second stay valid.
func (s *Storage) RevokeUserBefore(ctx context.Context, userID int64, t time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketUserCutoffs)
		if bucket == nil {
			return fmt.Errorf("user cutoffs bucket not found")
		}

		if err := bucket.Put(userKey(userID), encodeTime(t)); err != nil {
			return fmt.Errorf("failed to save user cutoff: %w", err)
		}

		return nil
	})
}

// IsRevoked reports whether the token id is denied or was issued before the user's cutoff
func (s *Storage) IsRevoked(ctx context.Context, tokenID string, userID int64, issuedAt time.Time) (bool, error) {
	revoked := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		tokens := tx.Bucket(bucketRevokedTokens)
		cutoffs := tx.Bucket(bucketUserCutoffs)
		if tokens == nil || cutoffs == nil {
			return fmt.Errorf("revocation buckets not found")
		}

		if tokenID != "" && tokens.Get([]byte(tokenID)) != nil {
			revoked = true
			return nil
		}

		data := cutoffs.Get(userKey(userID))
		if data == nil {
			return nil
		}

		cutoff, err := decodeTime(data)
		if err != nil {
			return fmt.Errorf("failed to decode user cutoff: %w", err)
		}
		revoked = issuedAt.Before(cutoff)

		return nil
	})
	if err != nil {
		return false, err
	}

	return revoked, nil
}

// PurgeExpired removes deny-list entries of tokens that already expired
func (s *Storage) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRevokedTokens)
		if bucket == nil {
			return fmt.Errorf("revoked tokens bucket not found")
		}

		// Собираем ключи, удалять во время обхода курсором нельзя
		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			expiresAt, err := decodeTime(v)
			if err != nil || !expiresAt.After(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete revoked token: %w", err)
			}
		}
		removed = len(expired)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}

	return removed, nil
}

func userKey(userID int64) []byte {
	return []byte(strconv.FormatInt(userID, 10))
}

func encodeTime(t time.Time) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano))
}

func decodeTime(data []byte) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, string(data))
}
