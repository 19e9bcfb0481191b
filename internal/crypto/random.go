package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenSize - размер случайного токена в байтах
const TokenSize = 32

// GenerateToken возвращает криптографически случайную строку (base64url без паддинга)
// Используется для OAuth state
func GenerateToken() (string, error) {
	buf := make([]byte, TokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
