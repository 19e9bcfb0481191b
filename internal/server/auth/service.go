package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zenga/cms/internal/crypto"
	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
	"github.com/zenga/cms/internal/validation"
)

// ErrInvalidCredentials is the single error for every failed password check:
// unknown email, account without a password and wrong password look the same
var ErrInvalidCredentials = errors.New("invalid email or password")

// Revoker revokes all sessions of a user issued before a point in time
type Revoker interface {
	RevokeUserBefore(ctx context.Context, userID int64, t time.Time) error
}

// Service manages local email/password accounts
type Service struct {
	users       storage.UserStorage
	revocations Revoker
	logger      *slog.Logger
	now         func() time.Time
	dummyHash   string
	cost        int
}

// NewService creates the local account service. revocations may be nil.
func NewService(users storage.UserStorage, revocations Revoker, logger *slog.Logger, cost int) (*Service, error) {
	// хеш для сравнения, когда пользователя нет: время ответа не выдает причину отказа
	dummyHash, err := crypto.HashPassword("dummy-password-for-timing", cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		users:       users,
		revocations: revocations,
		logger:      logger,
		now:         time.Now,
		dummyHash:   dummyHash,
		cost:        cost,
	}, nil
}

// CreateUserWithPassword creates a local account. The name defaults to the local part of the email.
// Returns storage.ErrUserAlreadyExists if the email is taken.
func (s *Service) CreateUserWithPassword(
	ctx context.Context,
	email, password, name string,
	role models.Role,
) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", validation.ErrInvalid, role)
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, storage.ErrUserAlreadyExists
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := crypto.HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := s.now().UTC()
	user := &models.User{
		Name:         name,
		Email:        &email,
		PasswordHash: &hash,
		LoginMethod:  models.LoginMethodEmail,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastSignedIn: now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Local user created",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(role)),
	)

	return user, nil
}

// VerifyPassword checks email/password credentials and records the sign-in.
// Any mismatch returns ErrInvalidCredentials; storage failures are returned as is.
func (s *Service) VerifyPassword(ctx context.Context, email, candidate string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user == nil || !user.IsLocal() {
		_ = crypto.ComparePassword(s.dummyHash, candidate)
		return nil, ErrInvalidCredentials
	}

	if err := crypto.ComparePassword(*user.PasswordHash, candidate); err != nil {
		if !errors.Is(err, crypto.ErrPasswordMismatch) {
			s.logger.ErrorContext(ctx, "Stored password hash is unusable",
				slog.Int64("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastSignedIn(ctx, user.ID, now); err != nil {
		s.logger.WarnContext(ctx, "Failed to update last sign-in",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	} else {
		user.LastSignedIn = now
	}

	return user, nil
}

// ListUsers returns all accounts ordered by id
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.ListUsers(ctx)
}

// ChangePassword replaces the password of a local account and revokes its older sessions
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsLocal() {
		_ = crypto.ComparePassword(s.dummyHash, oldPassword)
		return ErrInvalidCredentials
	}
	if err := crypto.ComparePassword(*user.PasswordHash, oldPassword); err != nil {
		return ErrInvalidCredentials
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := crypto.HashPassword(newPassword, s.cost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}

	if s.revocations != nil {
		if err := s.revocations.RevokeUserBefore(ctx, userID, s.now()); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Password changed", slog.Int64("user_id", userID))

	return nil
}
