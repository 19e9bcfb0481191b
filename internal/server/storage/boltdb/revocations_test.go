package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/zenga/cms/internal/server/storage"
)

var _ storage.SessionRevocations = (*Storage)(nil)

func setupTestStorage(t *testing.T) (*Storage, string) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s, dbPath
}

func TestNew_Success(t *testing.T) {
	s, dbPath := setupTestStorage(t)

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// Проверяем, что бакеты существуют
	err = s.db.View(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRevokedTokens, bucketUserCutoffs} {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)
	issued := time.Now()

	revoked, err := s.IsRevoked(ctx, "jti-1", 7, issued)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = s.IsRevoked(ctx, "jti-1", 7, issued)
	require.NoError(t, err)
	assert.True(t, revoked)

	// другой токен того же пользователя жив
	revoked, err = s.IsRevoked(ctx, "jti-2", 7, issued)
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.Error(t, s.Revoke(ctx, "", time.Now()))
}

func TestRevokeUserBefore(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)

	cutoff := time.Date(2025, 5, 1, 12, 0, 0, 500, time.UTC)
	require.NoError(t, s.RevokeUserBefore(ctx, 7, cutoff))

	tests := []struct {
		issuedAt time.Time
		name     string
		userID   int64
		want     bool
	}{
		{name: "issued before cutoff", userID: 7, issuedAt: cutoff.Add(-time.Minute), want: true},
		{name: "issued earlier in cutoff second", userID: 7, issuedAt: cutoff.Truncate(time.Second), want: true},
		{name: "issued at cutoff", userID: 7, issuedAt: cutoff, want: false},
		{name: "issued later in cutoff second", userID: 7, issuedAt: cutoff.Add(time.Millisecond), want: false},
		{name: "issued after cutoff", userID: 7, issuedAt: cutoff.Add(time.Minute), want: false},
		{name: "other user", userID: 8, issuedAt: cutoff.Add(-time.Minute), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revoked, err := s.IsRevoked(ctx, "jti", tt.userID, tt.issuedAt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, revoked)
		})
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	s, dbPath := setupTestStorage(t)
	now := time.Now()

	require.NoError(t, s.Revoke(ctx, "old", now.Add(-time.Hour)))
	require.NoError(t, s.Revoke(ctx, "fresh", now.Add(time.Hour)))

	removed, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	revoked, err := s.IsRevoked(ctx, "fresh", 1, now)
	require.NoError(t, err)
	assert.True(t, revoked)

	// запись переживает перезапуск
	require.NoError(t, s.Close())
	reopened, err := New(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	revoked, err = reopened.IsRevoked(ctx, "fresh", 1, now)
	require.NoError(t, err)
	assert.True(t, revoked)
}
