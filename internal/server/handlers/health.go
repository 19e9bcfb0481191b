package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zenga/cms/pkg/api"
)

// healthTimeout ограничивает проверку базы данных
const healthTimeout = 2 * time.Second

// Pinger checks that the database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	responder
	db      Pinger
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		responder: responder{logger: logger},
		db:        db,
		version:   version,
	}
}

// Health обрабатывает GET /api/v1/health
// 503, если база данных недоступна
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := api.HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Database: "ok",
	}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check: database ping failed", slog.Any("error", err))
		resp.Status = "degraded"
		resp.Database = "unavailable"
		h.sendJSON(w, resp, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, resp, http.StatusOK)
}
