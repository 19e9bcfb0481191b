package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/security"
	"github.com/zenga/cms/internal/server/storage"
	"github.com/zenga/cms/internal/validation"
	"github.com/zenga/cms/pkg/api"
)

// featuredLimit - сколько избранных проектов показывает главная страница
const featuredLimit = 3

// CollectionHandler обрабатывает CRUD запросы к коллекциям контента
type CollectionHandler struct {
	responder
	store     storage.CollectionStorage
	sanitizer *security.Sanitizer
}

// NewCollectionHandler создает handler коллекций
func NewCollectionHandler(logger *slog.Logger, store storage.CollectionStorage, sanitizer *security.Sanitizer) *CollectionHandler {
	return &CollectionHandler{
		responder: responder{logger: logger},
		store:     store,
		sanitizer: sanitizer,
	}
}

// List обрабатывает GET /api/v1/{collection}
// Публичный список: применяется публичный фильтр коллекции, ошибки чтения дают пустой список
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	if !c.Public {
		h.sendError(w, "not found", http.StatusNotFound)
		return
	}

	filter, err := queryFilter(c, r.URL.Query())
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// публичный фильтр нельзя переопределить из query
	for field, v := range c.PublicFilter {
		filter[field] = v
	}

	records, err := h.store.ListRecords(ctx, c, filter, 0)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.WarnContext(ctx, "public list degraded to empty",
			slog.String("collection", c.Name),
			slog.Any("error", err),
		)
		records = []models.Record{}
	}

	h.sendJSON(w, records, http.StatusOK)
}

// Featured обрабатывает GET /api/v1/projects/featured
func (h *CollectionHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := storage.Filter{"status": "active", "isFeatured": true}
	records, err := h.store.ListRecords(ctx, storage.Projects, filter, featuredLimit)
	if err != nil {
		h.logger.WarnContext(ctx, "featured projects degraded to empty", slog.Any("error", err))
		records = []models.Record{}
	}

	h.sendJSON(w, records, http.StatusOK)
}

// ProjectBySlug обрабатывает GET /api/v1/projects/slug/{slug}
func (h *CollectionHandler) ProjectBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	record, err := h.store.GetRecordBy(ctx, storage.Projects, "slug", slug)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.WarnContext(ctx, "project lookup failed", slog.String("slug", slug), slog.Any("error", err))
		}
		h.sendError(w, "project not found", http.StatusNotFound)
		return
	}

	h.sendJSON(w, record, http.StatusOK)
}

// CreatePublic обрабатывает POST /api/v1/contact-messages
// Посетитель не может задать служебные поля (статус)
func (h *CollectionHandler) CreatePublic(c *storage.Collection, readOnly ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		patch, err := decodePatch(r)
		if err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, field := range readOnly {
			delete(patch, field)
		}

		if email, ok := patch.String("email"); ok {
			email = validation.NormalizeEmail(email)
			if err := validation.ValidateEmail(email); err != nil {
				h.sendError(w, err.Error(), http.StatusBadRequest)
				return
			}
			patch.Set("email", email)
		}

		record, err := h.store.CreateRecord(ctx, c, h.sanitizer.Collection(c, patch))
		if err != nil {
			h.sendStorageError(ctx, w, "create "+c.Name, err)
			return
		}

		h.sendJSON(w, record, http.StatusCreated)
	}
}

// Subscribe обрабатывает POST /api/v1/subscribers
// Повторная подписка возвращает существующую запись
func (h *CollectionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	email := validation.NormalizeEmail(req.Email)
	if err := validation.ValidateEmail(email); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.store.SubscribeEmail(ctx, email)
	if err != nil {
		h.sendStorageError(ctx, w, "subscribe", err)
		return
	}

	h.sendJSON(w, record, http.StatusOK)
}

// AdminList обрабатывает GET /api/v1/admin/{collection}
// Администратор видит все записи, включая черновики и неактивные
func (h *CollectionHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	filter, err := queryFilter(c, r.URL.Query())
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.store.ListRecords(ctx, c, filter, 0)
	if err != nil {
		h.sendStorageError(ctx, w, "list "+c.Name, err)
		return
	}

	h.sendJSON(w, records, http.StatusOK)
}

// AdminGet обрабатывает GET /api/v1/admin/{collection}/{id}
func (h *CollectionHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, id, ok := h.collectionAndID(w, r)
	if !ok {
		return
	}

	record, err := h.store.GetRecord(ctx, c, id)
	if err != nil {
		h.sendStorageError(ctx, w, "get "+c.Name, err)
		return
	}

	h.sendJSON(w, record, http.StatusOK)
}

// AdminCreate обрабатывает POST /api/v1/admin/{collection}
func (h *CollectionHandler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	patch, err := decodePatch(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := checkSlug(patch); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.store.CreateRecord(ctx, c, h.sanitizer.Collection(c, patch))
	if err != nil {
		h.sendStorageError(ctx, w, "create "+c.Name, err)
		return
	}

	h.logger.InfoContext(ctx, "record created",
		slog.String("collection", c.Name),
		slog.Int64("id", record.ID()),
	)

	h.sendJSON(w, record, http.StatusCreated)
}

// AdminUpdate обрабатывает PATCH /api/v1/admin/{collection}/{id}
// Обновляются только переданные поля
func (h *CollectionHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, id, ok := h.collectionAndID(w, r)
	if !ok {
		return
	}

	patch, err := decodePatch(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := checkSlug(patch); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.store.UpdateRecord(ctx, c, id, h.sanitizer.Collection(c, patch))
	if err != nil {
		h.sendStorageError(ctx, w, "update "+c.Name, err)
		return
	}

	h.sendJSON(w, record, http.StatusOK)
}

// AdminDelete обрабатывает DELETE /api/v1/admin/{collection}/{id}
func (h *CollectionHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, id, ok := h.collectionAndID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteRecord(ctx, c, id); err != nil {
		h.sendStorageError(ctx, w, "delete "+c.Name, err)
		return
	}

	h.logger.InfoContext(ctx, "record deleted",
		slog.String("collection", c.Name),
		slog.Int64("id", id),
	)

	w.WriteHeader(http.StatusNoContent)
}

// collection находит коллекцию по параметру пути
func (h *CollectionHandler) collection(w http.ResponseWriter, r *http.Request) (*storage.Collection, bool) {
	c, ok := storage.LookupCollection(chi.URLParam(r, "collection"))
	if !ok {
		h.sendError(w, "unknown collection", http.StatusNotFound)
		return nil, false
	}
	return c, true
}

func (h *CollectionHandler) collectionAndID(w http.ResponseWriter, r *http.Request) (*storage.Collection, int64, bool) {
	c, ok := h.collection(w, r)
	if !ok {
		return nil, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, "invalid id", http.StatusBadRequest)
		return nil, 0, false
	}

	return c, id, true
}

// queryFilter строит фильтр из query параметров.
// Фильтровать можно только по полям-перечислениям и булевым полям.
func queryFilter(c *storage.Collection, query url.Values) (storage.Filter, error) {
	filter := storage.Filter{}

	for _, col := range c.Columns {
		raw := query.Get(col.Field)
		if raw == "" {
			continue
		}

		switch {
		case col.Kind == storage.KindBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be true or false", validation.ErrInvalid, col.Field)
			}
			filter[col.Field] = b
		case len(col.Enum) > 0:
			filter[col.Field] = raw
		}
	}

	return filter, nil
}

// checkSlug проверяет формат slug, если он есть в патче
func checkSlug(patch models.Patch) error {
	slug, ok := patch.String("slug")
	if !ok {
		return nil
	}
	return validation.ValidateSlug(slug)
}
