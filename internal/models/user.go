package models

import "time"

// Role определяет уровень доступа пользователя
type Role string

const (
	// RoleUser обычный пользователь (по умолчанию)
	RoleUser Role = "user"
	// RoleAdmin администратор CMS
	RoleAdmin Role = "admin"
)

// LoginMethodEmail помечает аккаунты, созданные по email/паролю
const LoginMethodEmail = "email"

// User представляет аккаунт пользователя.
// Аккаунт имеет ровно один способ аутентификации: либо OpenID (OAuth), либо PasswordHash (локальный).
type User struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastSignedIn time.Time `json:"lastSignedIn"`
	OpenID       *string   `json:"openId,omitempty"` // идентификатор у внешнего провайдера (только OAuth)
	Email        *string   `json:"email,omitempty"`  // уникальный email, если указан
	PasswordHash *string   `json:"-"`                // bcrypt хеш (только локальные аккаунты)
	Name         string    `json:"name"`             // отображаемое имя
	LoginMethod  string    `json:"loginMethod"`      // "email" или имя провайдера
	Role         Role      `json:"role"`             // user | admin
	ID           int64     `json:"id"`               // автоинкремент
}

// IsAdmin сообщает, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsLocal сообщает, что аккаунт использует вход по email/паролю
func (u *User) IsLocal() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}

// EmailOrEmpty возвращает email или пустую строку
func (u *User) EmailOrEmpty() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}

// ExternalIdentity is the identity confirmed by an external OAuth provider.
type ExternalIdentity struct {
	OpenID   string // subject at the provider
	Name     string
	Email    string
	Provider string // "google", "github", ...
}
