package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("validation failed")

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 6
	// MaxPasswordLen максимальная длина пароля в байтах (ограничение bcrypt)
	MaxPasswordLen = 72
	// MaxSettingKeyLen максимальная длина ключа настройки
	MaxSettingKeyLen = 64
)

// SettingKeyPattern определяет допустимый формат ключа настройки сайта
// Латинские буквы в нижнем регистре, цифры, "_", "." и "-"
var SettingKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.\-]*$`)

// SlugPattern определяет формат slug проекта
var SlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeEmail приводит email к каноническому виду (trim + lower case)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email адреса
// Допускается только "голый" адрес без отображаемого имени
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrInvalid)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: email %q is not a valid address", ErrInvalid, email)
	}

	return nil
}

// ValidatePassword проверяет требования к паролю локального аккаунта
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalid)
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalid, MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("%w: password must not exceed %d bytes", ErrInvalid, MaxPasswordLen)
	}

	return nil
}

// ValidateSettingKey проверяет ключ настройки сайта
func ValidateSettingKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: setting key cannot be empty", ErrInvalid)
	}

	if len(key) > MaxSettingKeyLen {
		return fmt.Errorf("%w: setting key must not exceed %d characters", ErrInvalid, MaxSettingKeyLen)
	}

	if !SettingKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: setting key can only contain a-z, 0-9, '_', '.' and '-'", ErrInvalid)
	}

	return nil
}

// ValidateSlug проверяет slug проекта
func ValidateSlug(slug string) error {
	if !SlugPattern.MatchString(slug) {
		return fmt.Errorf("%w: slug %q must be lower-case words separated by '-'", ErrInvalid, slug)
	}
	return nil
}
