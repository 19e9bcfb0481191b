package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/security"
	"github.com/zenga/cms/internal/server/storage"
	"github.com/zenga/cms/internal/validation"
	"github.com/zenga/cms/pkg/api"
)

var aboutPolicies = map[string]storage.TextPolicy{
	"title":   storage.TextPlain,
	"content": storage.TextRich,
}

var contactInfoPolicies = map[string]storage.TextPolicy{
	"address": storage.TextPlain,
	"phone":   storage.TextPlain,
	"email":   storage.TextPlain,
}

// ContentHandler обрабатывает запросы к записям с естественным ключом:
// секции "О нас", настройки сайта и контактная информация
type ContentHandler struct {
	responder
	store     storage.ContentStorage
	sanitizer *security.Sanitizer
}

// NewContentHandler создает handler контента
func NewContentHandler(logger *slog.Logger, store storage.ContentStorage, sanitizer *security.Sanitizer) *ContentHandler {
	return &ContentHandler{
		responder: responder{logger: logger},
		store:     store,
		sanitizer: sanitizer,
	}
}

// About обрабатывает GET /api/v1/about
func (h *ContentHandler) About(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sections, err := h.store.GetAboutContent(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "about content degraded to empty", slog.Any("error", err))
		sections = []*models.AboutContent{}
	}

	h.sendJSON(w, sections, http.StatusOK)
}

// UpsertAbout обрабатывает PUT /api/v1/admin/about/{section}
func (h *ContentHandler) UpsertAbout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	section := models.AboutSection(chi.URLParam(r, "section"))

	patch, err := decodePatch(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := h.store.UpsertAboutContent(ctx, section, h.sanitizer.Fields(aboutPolicies, patch))
	if err != nil {
		h.sendStorageError(ctx, w, "upsert about", err)
		return
	}

	h.sendJSON(w, content, http.StatusOK)
}

// Settings обрабатывает GET /api/v1/settings
func (h *ContentHandler) Settings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.store.GetSiteSettings(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "settings degraded to empty", slog.Any("error", err))
		settings = []*models.SiteSetting{}
	}

	h.sendJSON(w, settings, http.StatusOK)
}

// Setting обрабатывает GET /api/v1/settings/{key}
func (h *ContentHandler) Setting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	setting, err := h.store.GetSiteSetting(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.WarnContext(ctx, "setting lookup failed", slog.String("key", key), slog.Any("error", err))
		}
		h.sendError(w, "setting not found", http.StatusNotFound)
		return
	}

	h.sendJSON(w, setting, http.StatusOK)
}

// PutSetting обрабатывает PUT /api/v1/admin/settings/{key}
func (h *ContentHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	if err := validation.ValidateSettingKey(key); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req api.SettingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	setting, err := h.store.UpsertSiteSetting(ctx, key, req.Value)
	if err != nil {
		h.sendStorageError(ctx, w, "upsert setting", err)
		return
	}

	h.sendJSON(w, setting, http.StatusOK)
}

// ContactInfo обрабатывает GET /api/v1/contact-info
func (h *ContentHandler) ContactInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.store.GetContactInfo(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.WarnContext(ctx, "contact info lookup failed", slog.Any("error", err))
		}
		h.sendError(w, "contact info not found", http.StatusNotFound)
		return
	}

	h.sendJSON(w, info, http.StatusOK)
}

// PutContactInfo обрабатывает PUT /api/v1/admin/contact-info
func (h *ContentHandler) PutContactInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patch, err := decodePatch(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.store.UpsertContactInfo(ctx, h.sanitizer.Fields(contactInfoPolicies, patch))
	if err != nil {
		h.sendStorageError(ctx, w, "upsert contact info", err)
		return
	}

	h.sendJSON(w, info, http.StatusOK)
}
