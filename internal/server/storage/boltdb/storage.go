package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketRevokedTokens = []byte("revoked_tokens")
	bucketUserCutoffs   = []byte("user_cutoffs")
)

// Storage is the BoltDB-backed session deny-list
type Storage struct {
	db *bbolt.DB
}

// New opens the deny-list file and drops entries of already expired tokens
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	if _, err := s.PurgeExpired(ctx, time.Now()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database file
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRevokedTokens); err != nil {
			return fmt.Errorf("failed to create revoked tokens bucket: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists(bucketUserCutoffs); err != nil {
			return fmt.Errorf("failed to create user cutoffs bucket: %w", err)
		}

		return nil
	})
}
