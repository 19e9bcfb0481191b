package api

import "time"

// LoginRequest представляет запрос на вход по email и паролю
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User представляет текущего пользователя в ответах API
// Хеш пароля и внутренние поля наружу не отдаются
type User struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastSignedIn time.Time `json:"lastSignedIn"`
	OpenID       *string   `json:"openId"`
	Email        *string   `json:"email"`
	Name         string    `json:"name"`
	LoginMethod  string    `json:"loginMethod"`
	Role         string    `json:"role"`
	ID           int64     `json:"id"`
}

// LoginResponse представляет ответ на успешный вход
// Сам токен передается только в HttpOnly cookie
type LoginResponse struct {
	User      User  `json:"user"`
	ExpiresIn int64 `json:"expiresIn"` // время жизни сессии в секундах
}

// MeResponse представляет ответ GET /auth/me; User = nil для анонимного запроса
type MeResponse struct {
	User *User `json:"user"`
}

// ChangePasswordRequest представляет запрос на смену пароля
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// CreateUserRequest представляет запрос администратора на создание локального аккаунта
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
