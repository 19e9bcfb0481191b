package storage

import (
	"context"
	"time"

	"github.com/zenga/cms/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage and sets user.ID
	// Returns ErrUserAlreadyExists if email or open id is taken
	CreateUser(ctx context.Context, user *models.User) error

	// UpsertUser inserts or sparsely updates the user keyed by external open id
	// Returns ErrInvalidKey if openID is empty
	UpsertUser(ctx context.Context, openID string, patch models.Patch) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)

	// GetUserByOpenID retrieves user by external open id
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByOpenID(ctx context.Context, openID string) (*models.User, error)

	// GetUserByEmail retrieves user by email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// ListUsers returns all users ordered by id
	ListUsers(ctx context.Context) ([]*models.User, error)

	// UpdatePasswordHash replaces the password hash of a local account
	// Returns ErrUserNotFound if user doesn't exist
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error

	// UpdateLastSignedIn updates the last sign-in timestamp
	UpdateLastSignedIn(ctx context.Context, userID int64, t time.Time) error
}
