package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
)

var aboutPatchColumns = map[string]string{
	"title":   "title",
	"content": "content",
	"image":   "image",
}

var contactInfoPatchColumns = map[string]string{
	"address":   "address",
	"phone":     "phone",
	"email":     "email",
	"mapLat":    "map_lat",
	"mapLng":    "map_lng",
	"facebook":  "facebook",
	"instagram": "instagram",
	"twitter":   "twitter",
	"youtube":   "youtube",
	"linkedin":  "linkedin",
}

const (
	aboutColumns       = `id, section, title, content, image, updated_at`
	settingColumns     = `id, setting_key, setting_value, updated_at`
	contactInfoColumns = `id, address, phone, email, map_lat, map_lng, facebook, instagram, twitter, youtube, linkedin, updated_at`
)

// GetAboutContent returns all about-page sections
func (s *Storage) GetAboutContent(ctx context.Context) ([]*models.AboutContent, error) {
	query := `SELECT ` + aboutColumns + ` FROM about_content ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query about content: %w", classify(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	sections := []*models.AboutContent{}
	for rows.Next() {
		section, err := scanAbout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan about content: %w", err)
		}
		sections = append(sections, section)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sections, nil
}

// UpsertAboutContent inserts or sparsely updates an about-page section
func (s *Storage) UpsertAboutContent(
	ctx context.Context,
	section models.AboutSection,
	patch models.Patch,
) (*models.AboutContent, error) {
	if strings.TrimSpace(string(section)) == "" {
		return nil, fmt.Errorf("upsert about content: %w", storage.ErrInvalidKey)
	}
	if !slices.Contains(models.AboutSections, section) {
		return nil, fmt.Errorf("%w: unknown section %q", storage.ErrInvalidInput, section)
	}

	fields, err := textFields(patch, aboutPatchColumns)
	if err != nil {
		return nil, err
	}

	now := s.now()
	update := cloneValues(fields)
	update["updated_at"] = now

	insert := cloneValues(fields)
	insert["section"] = string(section)
	insert["updated_at"] = now

	err = s.upsert(ctx, upsertPlan{
		entity: "about_content",
		key:    naturalKey{table: "about_content", column: "section", value: string(section)},
		update: update,
		insert: insert,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert about content: %w", err)
	}

	query := `SELECT ` + aboutColumns + ` FROM about_content WHERE section = ?`
	row, err := scanAbout(s.db.QueryRowContext(ctx, query, string(section)))
	if err != nil {
		return nil, fmt.Errorf("failed to read about content: %w", classify(err))
	}

	return row, nil
}

// GetSiteSettings returns all settings ordered by key
func (s *Storage) GetSiteSettings(ctx context.Context) ([]*models.SiteSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM site_settings ORDER BY setting_key ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", classify(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	settings := []*models.SiteSetting{}
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, setting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return settings, nil
}

// GetSiteSetting returns a setting by key
func (s *Storage) GetSiteSetting(ctx context.Context, key string) (*models.SiteSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM site_settings WHERE setting_key = ?`

	setting, err := scanSetting(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get setting: %w", classify(err))
	}

	return setting, nil
}

// UpsertSiteSetting sets the value of a setting, creating it if needed
func (s *Storage) UpsertSiteSetting(ctx context.Context, key string, value *string) (*models.SiteSetting, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("upsert setting: %w", storage.ErrInvalidKey)
	}

	now := s.now()
	err := s.upsert(ctx, upsertPlan{
		entity: "site_setting",
		key:    naturalKey{table: "site_settings", column: "setting_key", value: key},
		update: map[string]any{
			"setting_value": nullable(value),
			"updated_at":    now,
		},
		insert: map[string]any{
			"setting_key":   key,
			"setting_value": nullable(value),
			"updated_at":    now,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upsert setting: %w", err)
	}

	return s.GetSiteSetting(ctx, key)
}

// GetContactInfo returns the singleton contact info row
func (s *Storage) GetContactInfo(ctx context.Context) (*models.ContactInfo, error) {
	query := `SELECT ` + contactInfoColumns + ` FROM contact_info WHERE singleton = 1`

	info, err := scanContactInfo(s.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact info: %w", classify(err))
	}

	return info, nil
}

// UpsertContactInfo inserts or sparsely updates the singleton contact info row
func (s *Storage) UpsertContactInfo(ctx context.Context, patch models.Patch) (*models.ContactInfo, error) {
	fields, err := textFields(patch, contactInfoPatchColumns)
	if err != nil {
		return nil, err
	}

	now := s.now()
	update := cloneValues(fields)
	update["updated_at"] = now

	insert := cloneValues(fields)
	insert["singleton"] = 1
	insert["updated_at"] = now

	err = s.upsert(ctx, upsertPlan{
		entity: "contact_info",
		key:    naturalKey{table: "contact_info", column: "singleton", value: 1},
		update: update,
		insert: insert,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert contact info: %w", err)
	}

	return s.GetContactInfo(ctx)
}

// textFields maps a patch of nullable strings onto columns.
// Unknown fields are rejected.
func textFields(patch models.Patch, columns map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(patch))
	for field, value := range patch {
		col, ok := columns[field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", storage.ErrInvalidInput, field)
		}
		switch v := value.(type) {
		case nil:
			out[col] = nil
		case string:
			out[col] = v
		case *string:
			out[col] = nullable(v)
		default:
			return nil, fmt.Errorf("%w: field %q must be a string", storage.ErrInvalidInput, field)
		}
	}
	return out, nil
}

func scanAbout(row rowScanner) (*models.AboutContent, error) {
	a := &models.AboutContent{}
	var (
		section               string
		title, content, image sql.NullString
	)

	if err := row.Scan(&a.ID, &section, &title, &content, &image, &a.UpdatedAt); err != nil {
		return nil, err
	}

	a.Section = models.AboutSection(section)
	a.Title = nullString(title)
	a.Content = nullString(content)
	a.Image = nullString(image)

	return a, nil
}

func scanSetting(row rowScanner) (*models.SiteSetting, error) {
	st := &models.SiteSetting{}
	var value sql.NullString

	if err := row.Scan(&st.ID, &st.Key, &value, &st.UpdatedAt); err != nil {
		return nil, err
	}

	st.Value = nullString(value)
	return st, nil
}

func scanContactInfo(row rowScanner) (*models.ContactInfo, error) {
	c := &models.ContactInfo{}
	var address, phone, email, mapLat, mapLng, facebook, instagram, twitter, youtube, linkedin sql.NullString

	err := row.Scan(
		&c.ID,
		&address,
		&phone,
		&email,
		&mapLat,
		&mapLng,
		&facebook,
		&instagram,
		&twitter,
		&youtube,
		&linkedin,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Address = nullString(address)
	c.Phone = nullString(phone)
	c.Email = nullString(email)
	c.MapLat = nullString(mapLat)
	c.MapLng = nullString(mapLng)
	c.Facebook = nullString(facebook)
	c.Instagram = nullString(instagram)
	c.Twitter = nullString(twitter)
	c.YouTube = nullString(youtube)
	c.LinkedIn = nullString(linkedin)

	return c, nil
}
