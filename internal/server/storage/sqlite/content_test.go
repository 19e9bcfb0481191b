package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
)

func TestContentStorage_UpsertSiteSetting(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.UpsertSiteSetting(ctx, "theme", models.Ptr("dark"))
	require.NoError(t, err)

	setting, err := s.UpsertSiteSetting(ctx, "theme", models.Ptr("light"))
	require.NoError(t, err)
	assert.Equal(t, "theme", setting.Key)
	require.NotNil(t, setting.Value)
	assert.Equal(t, "light", *setting.Value)

	settings, err := s.GetSiteSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "light", *settings[0].Value)
}

func TestContentStorage_SiteSettingNullValue(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.UpsertSiteSetting(ctx, "banner", models.Ptr("on"))
	require.NoError(t, err)

	setting, err := s.UpsertSiteSetting(ctx, "banner", nil)
	require.NoError(t, err)
	assert.Nil(t, setting.Value)
}

func TestContentStorage_GetSiteSetting(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetSiteSetting(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for _, key := range []string{"b_key", "a_key"} {
		_, err := s.UpsertSiteSetting(ctx, key, models.Ptr(key))
		require.NoError(t, err)
	}

	settings, err := s.GetSiteSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, "a_key", settings[0].Key)
	assert.Equal(t, "b_key", settings[1].Key)
}

func TestContentStorage_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.UpsertSiteSetting(ctx, "", models.Ptr("x"))
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = s.UpsertAboutContent(ctx, "", models.Patch{"title": "x"})
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = s.UpsertAboutContent(ctx, "history", models.Patch{"title": "x"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// ничего не записано
	sections, err := s.GetAboutContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestContentStorage_UpsertAboutContent(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	s, cleanup := setupTestStorage(t, WithClock(func() time.Time { return now }))
	defer cleanup()

	first, err := s.UpsertAboutContent(ctx, models.SectionVision, models.Patch{
		"title":   "Vizyon",
		"content": "<p>Hikaye anlatıcılığı</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SectionVision, first.Section)
	assert.Nil(t, first.Image)

	now = t0.Add(time.Minute)
	second, err := s.UpsertAboutContent(ctx, models.SectionVision, models.Patch{"image": "/img/vision.jpg"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Vizyon", *second.Title)
	assert.Equal(t, "<p>Hikaye anlatıcılığı</p>", *second.Content)
	assert.Equal(t, "/img/vision.jpg", *second.Image)
	assert.True(t, now.Equal(second.UpdatedAt))

	_, err = s.UpsertAboutContent(ctx, models.SectionMission, models.Patch{"title": "Misyon"})
	require.NoError(t, err)

	sections, err := s.GetAboutContent(ctx)
	require.NoError(t, err)
	assert.Len(t, sections, 2)
}

func TestContentStorage_UpsertAboutContent_UnknownField(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.UpsertAboutContent(ctx, models.SectionStory, models.Patch{"section": "mission"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = s.UpsertAboutContent(ctx, models.SectionStory, models.Patch{"title": 12})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestContentStorage_ContactInfoSingleton(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetContactInfo(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	info, err := s.UpsertContactInfo(ctx, models.Patch{
		"address": "Istanbul",
		"phone":   "+90 212 000 00 00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Istanbul", *info.Address)

	info, err = s.UpsertContactInfo(ctx, models.Patch{"instagram": "@zenga", "phone": nil})
	require.NoError(t, err)
	assert.Equal(t, "Istanbul", *info.Address)
	assert.Equal(t, "@zenga", *info.Instagram)
	assert.Nil(t, info.Phone)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM contact_info`).Scan(&n))
	assert.Equal(t, 1, n)

	// вторую строку вставить нельзя
	_, err = s.DB().Exec(`INSERT INTO contact_info (singleton, updated_at) VALUES (1, CURRENT_TIMESTAMP)`)
	assert.Error(t, err)
}
