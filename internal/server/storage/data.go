package storage

import (
	"context"

	"github.com/zenga/cms/internal/models"
)

// ContentStorage defines interface for natural-key content records
type ContentStorage interface {
	// GetAboutContent returns all about-page sections
	GetAboutContent(ctx context.Context) ([]*models.AboutContent, error)

	// UpsertAboutContent inserts or sparsely updates a section
	// Returns ErrInvalidKey if section is empty
	UpsertAboutContent(ctx context.Context, section models.AboutSection, patch models.Patch) (*models.AboutContent, error)

	// GetSiteSettings returns all settings ordered by key
	GetSiteSettings(ctx context.Context) ([]*models.SiteSetting, error)

	// GetSiteSetting returns a setting by key
	// Returns ErrNotFound if the key doesn't exist
	GetSiteSetting(ctx context.Context, key string) (*models.SiteSetting, error)

	// UpsertSiteSetting sets the value of a setting
	// Returns ErrInvalidKey if key is empty
	UpsertSiteSetting(ctx context.Context, key string, value *string) (*models.SiteSetting, error)

	// GetContactInfo returns the singleton contact info row
	// Returns ErrNotFound if it was never written
	GetContactInfo(ctx context.Context) (*models.ContactInfo, error)

	// UpsertContactInfo inserts or sparsely updates the singleton contact info row
	UpsertContactInfo(ctx context.Context, patch models.Patch) (*models.ContactInfo, error)
}

// CollectionStorage defines generic CRUD over content collections
type CollectionStorage interface {
	// ListRecords returns records matching filter in the collection order
	// limit <= 0 means no limit
	ListRecords(ctx context.Context, c *Collection, filter Filter, limit int) ([]models.Record, error)

	// GetRecord returns a record by id
	// Returns ErrNotFound if it doesn't exist
	GetRecord(ctx context.Context, c *Collection, id int64) (models.Record, error)

	// GetRecordBy returns the first record whose field equals value
	// Returns ErrNotFound if none matches
	GetRecordBy(ctx context.Context, c *Collection, field string, value any) (models.Record, error)

	// CreateRecord inserts a record and returns it
	// Returns ErrAlreadyExists on unique field conflicts
	CreateRecord(ctx context.Context, c *Collection, patch models.Patch) (models.Record, error)

	// UpdateRecord sparsely updates a record and returns it
	// Returns ErrNotFound if it doesn't exist
	UpdateRecord(ctx context.Context, c *Collection, id int64, patch models.Patch) (models.Record, error)

	// DeleteRecord deletes a record by id
	// Returns ErrNotFound if it doesn't exist
	DeleteRecord(ctx context.Context, c *Collection, id int64) error

	// SubscribeEmail adds an email subscriber if absent and returns the row
	SubscribeEmail(ctx context.Context, email string) (models.Record, error)
}
