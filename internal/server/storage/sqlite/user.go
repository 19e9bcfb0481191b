package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
)

const userColumns = `id, open_id, name, email, login_method, password_hash, role, created_at, updated_at, last_signed_in`

// userPatchColumns maps patch fields accepted by UpsertUser to columns.
// Anything else in the patch is filtered out.
var userPatchColumns = map[string]string{
	"name":         "name",
	"email":        "email",
	"loginMethod":  "login_method",
	"role":         "role",
	"lastSignedIn": "last_signed_in",
}

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.LastSignedIn.IsZero() {
		user.LastSignedIn = now
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	id, err := s.insertReturningID(ctx, "users", map[string]any{
		"open_id":        nullable(user.OpenID),
		"name":           user.Name,
		"email":          nullable(user.Email),
		"login_method":   user.LoginMethod,
		"password_hash":  nullable(user.PasswordHash),
		"role":           string(user.Role),
		"created_at":     user.CreatedAt,
		"updated_at":     user.UpdatedAt,
		"last_signed_in": user.LastSignedIn,
	})
	if err != nil {
		// Проверяем на duplicate email / open_id
		if errors.Is(err, storage.ErrConflict) {
			return storage.ErrUserAlreadyExists
		}
		return err
	}

	user.ID = id
	return nil
}

// UpsertUser inserts or sparsely updates the user keyed by open id.
//
// Role policy: without an explicit role in the patch the configured owner open id
// always resolves to admin; other users keep their role and new ones start as user.
// An update with nothing to set still touches last_signed_in.
func (s *Storage) UpsertUser(ctx context.Context, openID string, patch models.Patch) (*models.User, error) {
	if strings.TrimSpace(openID) == "" {
		return nil, fmt.Errorf("upsert user: %w", storage.ErrInvalidKey)
	}

	now := s.now()
	fields := make(map[string]any)
	for field, value := range patch {
		col, ok := userPatchColumns[field]
		if !ok {
			continue
		}
		switch col {
		case "role":
			role, err := parseRole(value)
			if err != nil {
				return nil, err
			}
			value = string(role)
		case "last_signed_in":
			t, ok := value.(time.Time)
			if !ok {
				return nil, fmt.Errorf("%w: lastSignedIn must be a time", storage.ErrInvalidInput)
			}
			value = t.UTC()
		}
		fields[col] = value
	}

	if _, ok := fields["role"]; !ok && s.ownerOpenID != "" && openID == s.ownerOpenID {
		fields["role"] = string(models.RoleAdmin)
	}

	update := cloneValues(fields)
	if len(update) == 0 {
		update["last_signed_in"] = now
	} else {
		update["updated_at"] = now
	}

	insert := cloneValues(fields)
	insert["open_id"] = openID
	insert["created_at"] = now
	insert["updated_at"] = now
	if _, ok := insert["role"]; !ok {
		insert["role"] = string(models.RoleUser)
	}
	if _, ok := insert["last_signed_in"]; !ok {
		insert["last_signed_in"] = now
	}

	err := s.upsert(ctx, upsertPlan{
		entity: "user",
		key:    naturalKey{table: "users", column: "open_id", value: openID},
		update: update,
		insert: insert,
	})
	if err != nil {
		// конфликт по email с другим аккаунтом
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("upsert user: %w", storage.ErrUserAlreadyExists)
		}
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return s.GetUserByOpenID(ctx, openID)
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	return s.getUser(ctx, "id", userID)
}

// GetUserByOpenID retrieves user by external open id
func (s *Storage) GetUserByOpenID(ctx context.Context, openID string) (*models.User, error) {
	return s.getUser(ctx, "open_id", openID)
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

// ListUsers returns all users ordered by id
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", classify(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return users, nil
}

// UpdatePasswordHash replaces the password hash of a user
func (s *Storage) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, hash, s.now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// UpdateLastSignedIn updates the last sign-in timestamp
func (s *Storage) UpdateLastSignedIn(ctx context.Context, userID int64, t time.Time) error {
	query := `UPDATE users SET last_signed_in = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, t.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last sign-in: %w", classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (s *Storage) getUser(ctx context.Context, column string, value any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? LIMIT 1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", classify(err))
	}

	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var (
		openID, email, passwordHash sql.NullString
		role                        string
	)

	err := row.Scan(
		&user.ID,
		&openID,
		&user.Name,
		&email,
		&user.LoginMethod,
		&passwordHash,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastSignedIn,
	)
	if err != nil {
		return nil, err
	}

	user.OpenID = nullString(openID)
	user.Email = nullString(email)
	user.PasswordHash = nullString(passwordHash)
	user.Role = models.Role(role)

	return user, nil
}

func parseRole(v any) (models.Role, error) {
	var s string
	switch r := v.(type) {
	case string:
		s = r
	case models.Role:
		s = string(r)
	default:
		return "", fmt.Errorf("%w: role must be a string", storage.ErrInvalidInput)
	}

	switch models.Role(s) {
	case models.RoleUser, models.RoleAdmin:
		return models.Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", storage.ErrInvalidInput, s)
}

// nullable converts an optional string into a driver value
func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
