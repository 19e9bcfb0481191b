// Package handlers implements the JSON HTTP API of the CMS.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
	"github.com/zenga/cms/internal/validation"
	"github.com/zenga/cms/pkg/api"
)

// maxBodySize ограничивает размер JSON тела запроса
const maxBodySize = 1 << 20

// responder содержит общие для всех handlers методы ответа
type responder struct {
	logger *slog.Logger
}

// sendJSON отправляет JSON ответ
func (h responder) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h responder) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}

// sendStorageError переводит ошибку хранилища или валидации в HTTP ответ
func (h responder) sendStorageError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, validation.ErrInvalid):
		h.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrUserNotFound):
		h.sendError(w, "not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrAlreadyExists), errors.Is(err, storage.ErrUserAlreadyExists):
		h.sendError(w, "already exists", http.StatusConflict)
	case errors.Is(err, storage.ErrUnavailable):
		h.logger.ErrorContext(ctx, "storage unavailable", slog.String("op", op), slog.Any("error", err))
		h.sendError(w, "service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.ErrorContext(ctx, "request failed", slog.String("op", op), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON читает JSON тело запроса в v.
// Числа декодируются как json.Number, чтобы целые не теряли точность.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodePatch читает JSON объект как разреженный патч
func decodePatch(r *http.Request) (models.Patch, error) {
	var patch models.Patch
	if err := decodeJSON(r, &patch); err != nil {
		return nil, err
	}
	if patch == nil {
		return nil, fmt.Errorf("invalid request body: expected JSON object")
	}
	return patch, nil
}

// userResponse конвертирует пользователя в DTO без секретных полей
func userResponse(u *models.User) api.User {
	return api.User{
		ID:           u.ID,
		OpenID:       u.OpenID,
		Name:         u.Name,
		Email:        u.Email,
		LoginMethod:  u.LoginMethod,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastSignedIn: u.LastSignedIn,
	}
}
