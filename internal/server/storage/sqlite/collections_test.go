package sqlite

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
)

func createProject(t *testing.T, ctx context.Context, s *Storage, slug string, patch models.Patch) models.Record {
	t.Helper()

	p := models.Patch{
		"title":    "Project " + slug,
		"slug":     slug,
		"category": "film",
	}
	for k, v := range patch {
		p[k] = v
	}

	record, err := s.CreateRecord(ctx, storage.Projects, p)
	require.NoError(t, err)
	return record
}

func TestCollectionStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	record := createProject(t, ctx, s, "kara-kutu", models.Patch{
		"gallery":    []any{"/a.jpg", "/b.jpg"},
		"year":       float64(2024),
		"isFeatured": true,
		"status":     "active",
	})

	assert.NotZero(t, record.ID())
	assert.Equal(t, "kara-kutu", record["slug"])
	assert.Equal(t, int64(2024), record["year"])
	assert.Equal(t, true, record["isFeatured"])
	assert.JSONEq(t, `["/a.jpg","/b.jpg"]`, string(record["gallery"].(json.RawMessage)))
	assert.Contains(t, record, "createdAt")
	assert.Contains(t, record, "updatedAt")

	got, err := s.GetRecord(ctx, storage.Projects, record.ID())
	require.NoError(t, err)
	assert.Equal(t, record["title"], got["title"])

	_, err = s.GetRecord(ctx, storage.Projects, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCollectionStorage_CreateValidation(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		patch models.Patch
		name  string
	}{
		{name: "missing required", patch: models.Patch{"title": "x", "category": "film"}},
		{name: "unknown field", patch: models.Patch{"title": "x", "slug": "x", "category": "film", "owner": "me"}},
		{name: "bad enum", patch: models.Patch{"title": "x", "slug": "x", "category": "opera"}},
		{name: "fractional int", patch: models.Patch{"title": "x", "slug": "x", "category": "film", "year": 2024.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateRecord(ctx, storage.Projects, tt.patch)
			assert.ErrorIs(t, err, storage.ErrInvalidInput)
		})
	}
}

func TestCollectionStorage_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createProject(t, ctx, s, "same", nil)

	_, err := s.CreateRecord(ctx, storage.Projects, models.Patch{"title": "b", "slug": "same", "category": "film"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	other := createProject(t, ctx, s, "other", nil)
	_, err = s.UpdateRecord(ctx, storage.Projects, other.ID(), models.Patch{"slug": "same"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestCollectionStorage_ListRecords(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createProject(t, ctx, s, "c", models.Patch{"status": "active", "sortOrder": float64(3)})
	createProject(t, ctx, s, "a", models.Patch{"status": "active", "sortOrder": float64(1), "isFeatured": true})
	createProject(t, ctx, s, "draft", models.Patch{"status": "draft", "sortOrder": float64(0)})
	createProject(t, ctx, s, "b", models.Patch{"status": "active", "sortOrder": float64(2), "isFeatured": true})

	all, err := s.ListRecords(ctx, storage.Projects, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	active, err := s.ListRecords(ctx, storage.Projects, storage.Projects.PublicFilter, 0)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "a", active[0]["slug"])
	assert.Equal(t, "b", active[1]["slug"])
	assert.Equal(t, "c", active[2]["slug"])

	featured, err := s.ListRecords(ctx, storage.Projects, storage.Filter{"status": "active", "isFeatured": true}, 1)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "a", featured[0]["slug"])

	_, err = s.ListRecords(ctx, storage.Projects, storage.Filter{"passwordHash": "x"}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCollectionStorage_GetRecordBy(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createProject(t, ctx, s, "kara-kutu", nil)

	record, err := s.GetRecordBy(ctx, storage.Projects, "slug", "kara-kutu")
	require.NoError(t, err)
	assert.Equal(t, "Project kara-kutu", record["title"])

	_, err = s.GetRecordBy(ctx, storage.Projects, "slug", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCollectionStorage_UpdateRecord(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	msg, err := s.CreateRecord(ctx, storage.ContactMessages, models.Patch{
		"name":    "Ali",
		"email":   "ali@example.com",
		"message": "Merhaba",
	})
	require.NoError(t, err)
	assert.Equal(t, "unread", msg["status"])

	updated, err := s.UpdateRecord(ctx, storage.ContactMessages, msg.ID(), models.Patch{"status": "read"})
	require.NoError(t, err)
	assert.Equal(t, "read", updated["status"])
	assert.Equal(t, "Merhaba", updated["message"])

	_, err = s.UpdateRecord(ctx, storage.ContactMessages, 999, models.Patch{"status": "read"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.UpdateRecord(ctx, storage.ContactMessages, msg.ID(), models.Patch{"status": "spam"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCollectionStorage_UpdateRecord_NoUpdatedAtColumn(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	value, err := s.CreateRecord(ctx, storage.CompanyValues, models.Patch{"title": "Cesaret"})
	require.NoError(t, err)
	assert.NotContains(t, value, "updatedAt")

	// пустой патч просто возвращает запись
	same, err := s.UpdateRecord(ctx, storage.CompanyValues, value.ID(), models.Patch{})
	require.NoError(t, err)
	assert.Equal(t, "Cesaret", same["title"])

	_, err = s.UpdateRecord(ctx, storage.CompanyValues, 999, models.Patch{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCollectionStorage_DeleteRecord(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	partner, err := s.CreateRecord(ctx, storage.Partners, models.Patch{"name": "Arçelik"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, storage.Partners, partner.ID()))

	err = s.DeleteRecord(ctx, storage.Partners, partner.ID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCollectionStorage_SubscribeEmail(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	first, err := s.SubscribeEmail(ctx, "fan@example.com")
	require.NoError(t, err)
	assert.Equal(t, true, first["isActive"])
	assert.Contains(t, first, "subscribedAt")

	// повторная подписка возвращает ту же строку
	second, err := s.SubscribeEmail(ctx, " fan@example.com ")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	all, err := s.ListRecords(ctx, storage.EmailSubscribers, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.SubscribeEmail(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestCollectionStorage_AllCollectionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	samples := map[string]models.Patch{
		"projects":         {"title": "t", "slug": "s", "category": "reklam"},
		"coming-soon":      {"title": "t", "releaseDate": "2026-01-02T15:04:05Z"},
		"subscribers":      {"email": "a@x.com"},
		"team-members":     {"name": "n", "position": "p", "department": "kreatif"},
		"org-positions":    {"title": "t", "parentId": float64(1)},
		"company-values":   {"title": "t"},
		"achievements":     {"title": "t", "year": float64(2020), "type": "award"},
		"partners":         {"name": "n"},
		"contact-messages": {"name": "n", "email": "e@x.com", "message": "m", "projectType": "diger"},
	}

	for _, c := range storage.Collections {
		t.Run(c.Name, func(t *testing.T) {
			patch, ok := samples[c.Name]
			require.True(t, ok)

			record, err := s.CreateRecord(ctx, c, patch)
			require.NoError(t, err)

			list, err := s.ListRecords(ctx, c, nil, 0)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, record.ID(), list[0].ID())
		})
	}
}
