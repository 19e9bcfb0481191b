package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/zenga/cms/internal/models"
)

// Kind is the value type of a collection column
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindBool
	KindTime
	KindJSON
)

// TextPolicy tells the HTTP layer how to sanitize a text column
type TextPolicy int

const (
	// TextRaw leaves the value as is (urls, enums, slugs)
	TextRaw TextPolicy = iota
	// TextPlain strips all markup
	TextPlain
	// TextRich keeps safe formatting markup
	TextRich
)

// Column describes one column of a collection table
type Column struct {
	Field    string // имя поля в JSON
	Name     string // имя колонки в SQLite
	Enum     []string
	Kind     Kind
	Text     TextPolicy
	Required bool // обязательно при создании
	Unique   bool
}

// Filter is an equality filter keyed by JSON field name
type Filter map[string]any

// Collection describes a plain content table served by the generic CRUD layer
type Collection struct {
	PublicFilter Filter // условия для публичного списка
	Name         string // имя в URL, например "team-members"
	Table        string
	OrderBy      string // ORDER BY выражение
	CreatedAt    string // колонка времени создания ("" если нет)
	UpdatedAt    string // колонка времени обновления ("" если нет)
	Columns      []Column
	Public       bool // список доступен без авторизации
	PublicCreate bool // создание доступно без авторизации
}

// Column returns the column bound to a JSON field name
func (c *Collection) Column(field string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Field == field {
			return col, true
		}
	}
	return Column{}, false
}

// SelectColumns returns the SQL column list in a stable order:
// id, declared columns, then the timestamp columns.
func (c *Collection) SelectColumns() []string {
	cols := []string{"id"}
	for _, col := range c.Columns {
		cols = append(cols, col.Name)
	}
	if c.CreatedAt != "" {
		cols = append(cols, c.CreatedAt)
	}
	if c.UpdatedAt != "" {
		cols = append(cols, c.UpdatedAt)
	}
	return cols
}

// Normalize validates a patch against the collection schema and converts it into
// column name -> driver value. Unknown fields and bad values fail with ErrInvalidInput.
// When create is true, required columns must be present and non-null.
func (c *Collection) Normalize(patch models.Patch, create bool) (map[string]any, error) {
	out := make(map[string]any, len(patch))

	fields := make([]string, 0, len(patch))
	for field := range patch {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		col, ok := c.Column(field)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, field)
		}
		v, err := col.convert(patch[field])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidInput, field, err)
		}
		out[col.Name] = v
	}

	if create {
		for _, col := range c.Columns {
			if !col.Required {
				continue
			}
			if v, ok := out[col.Name]; !ok || v == nil || v == "" {
				return nil, fmt.Errorf("%w: field %q is required", ErrInvalidInput, col.Field)
			}
		}
	}

	return out, nil
}

// Decode converts a raw scanned column value into its JSON representation
func (col Column) Decode(v any) any {
	if v == nil {
		return nil
	}
	switch col.Kind {
	case KindBool:
		switch b := v.(type) {
		case int64:
			return b != 0
		case bool:
			return b
		}
	case KindJSON:
		switch s := v.(type) {
		case string:
			return json.RawMessage(s)
		case []byte:
			return json.RawMessage(s)
		}
	case KindText:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	}
	return v
}

// convert приводит значение из JSON к типу колонки
func (col Column) convert(v any) (any, error) {
	if v == nil {
		if col.Required {
			return nil, fmt.Errorf("cannot be null")
		}
		return nil, nil
	}

	switch col.Kind {
	case KindText:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string")
		}
		if len(col.Enum) > 0 && !slices.Contains(col.Enum, s) {
			return nil, fmt.Errorf("must be one of %v", col.Enum)
		}
		return s, nil
	case KindInt:
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer")
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case json.Number:
			return n.Int64()
		}
		return nil, fmt.Errorf("expected integer")
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean")
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339, t)
			if err != nil {
				return nil, fmt.Errorf("expected RFC3339 time")
			}
			return parsed.UTC(), nil
		}
		return nil, fmt.Errorf("expected RFC3339 time")
	case KindJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("expected JSON value")
		}
		return string(raw), nil
	}

	return nil, fmt.Errorf("unsupported column kind")
}

var (
	projectCategories = []string{"film", "reklam", "belgesel", "muzik_video"}
	projectStatuses   = []string{"active", "coming_soon", "draft"}
	departments       = []string{"yonetim", "kreatif", "produksiyon", "teknik"}
	messageStatuses   = []string{"unread", "read", "replied", "archived"}
)

// Projects - проекты (фильмы, реклама, документалистика, клипы)
var Projects = &Collection{
	Name:  "projects",
	Table: "projects",
	Columns: []Column{
		{Field: "title", Name: "title", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "slug", Name: "slug", Kind: KindText, Required: true, Unique: true},
		{Field: "category", Name: "category", Kind: KindText, Required: true, Enum: projectCategories},
		{Field: "shortDescription", Name: "short_description", Kind: KindText, Text: TextPlain},
		{Field: "fullDescription", Name: "full_description", Kind: KindText, Text: TextRich},
		{Field: "thumbnail", Name: "thumbnail", Kind: KindText},
		{Field: "gallery", Name: "gallery", Kind: KindJSON},
		{Field: "videoUrl", Name: "video_url", Kind: KindText},
		{Field: "director", Name: "director", Kind: KindText, Text: TextPlain},
		{Field: "camera", Name: "camera", Kind: KindText, Text: TextPlain},
		{Field: "duration", Name: "duration", Kind: KindText, Text: TextPlain},
		{Field: "year", Name: "year", Kind: KindInt},
		{Field: "crew", Name: "crew", Kind: KindText, Text: TextRich},
		{Field: "status", Name: "status", Kind: KindText, Enum: projectStatuses},
		{Field: "sortOrder", Name: "sort_order", Kind: KindInt},
		{Field: "isFeatured", Name: "is_featured", Kind: KindBool},
	},
	OrderBy:      "sort_order ASC, id ASC",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
	Public:       true,
	PublicFilter: Filter{"status": "active"},
}

// ComingSoonProjects - анонсы "скоро"
var ComingSoonProjects = &Collection{
	Name:  "coming-soon",
	Table: "coming_soon_projects",
	Columns: []Column{
		{Field: "title", Name: "title", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "teaserImage", Name: "teaser_image", Kind: KindText},
		{Field: "teaserVideo", Name: "teaser_video", Kind: KindText},
		{Field: "description", Name: "description", Kind: KindText, Text: TextRich},
		{Field: "releaseDate", Name: "release_date", Kind: KindTime},
		{Field: "isActive", Name: "is_active", Kind: KindBool},
		{Field: "sortOrder", Name: "sort_order", Kind: KindInt},
	},
	OrderBy:      "sort_order ASC, id ASC",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
	Public:       true,
	PublicFilter: Filter{"isActive": true},
}

// EmailSubscribers - подписчики на уведомления (ключ - email)
var EmailSubscribers = &Collection{
	Name:  "subscribers",
	Table: "email_subscribers",
	Columns: []Column{
		{Field: "email", Name: "email", Kind: KindText, Required: true, Unique: true},
		{Field: "isActive", Name: "is_active", Kind: KindBool},
	},
	OrderBy:   "id ASC",
	CreatedAt: "subscribed_at",
}

// TeamMembers - команда
var TeamMembers = &Collection{
	Name:  "team-members",
	Table: "team_members",
	Columns: []Column{
		{Field: "name", Name: "name", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "position", Name: "position", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "department", Name: "department", Kind: KindText, Required: true, Enum: departments},
		{Field: "photo", Name: "photo", Kind: KindText},
		{Field: "shortBio", Name: "short_bio", Kind: KindText, Text: TextPlain},
		{Field: "fullBio", Name: "full_bio", Kind: KindText, Text: TextRich},
		{Field: "linkedinUrl", Name: "linkedin_url", Kind: KindText},
		{Field: "imdbUrl", Name: "imdb_url", Kind: KindText},
		{Field: "sortOrder", Name: "sort_order", Kind: KindInt},
		{Field: "isActive", Name: "is_active", Kind: KindBool},
	},
	OrderBy:      "sort_order ASC, id ASC",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
	Public:       true,
	PublicFilter: Filter{"isActive": true},
}

// OrgPositions - организационная структура
var OrgPositions = &Collection{
	Name:  "org-positions",
	Table: "org_positions",
	Columns: []Column{
		{Field: "title", Name: "title", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "name", Name: "name", Kind: KindText, Text: TextPlain},
		{Field: "department", Name: "department", Kind: KindText, Text: TextPlain},
		{Field: "parentId", Name: "parent_id", Kind: KindInt},
		{Field: "photo", Name: "photo", Kind: KindText},
		{Field: "bio", Name: "bio", Kind: KindText, Text: TextRich},
		{Field: "sortOrder", Name: "sort_order", Kind: KindInt},
	},
	OrderBy:   "sort_order ASC, id ASC",
	CreatedAt: "created_at",
	UpdatedAt: "updated_at",
	Public:    true,
}

// CompanyValues - ценности компании
var CompanyValues = &Collection{
	Name:  "company-values",
	Table: "company_values",
	Columns: []Column{
		{Field: "title", Name: "title", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "description", Name: "description", Kind: KindText, Text: TextRich},
		{Field: "icon", Name: "icon", Kind: KindText},
		{Field: "sortOrder", Name: "sort_order", Kind: KindInt},
	},
	OrderBy:   "sort_order ASC, id ASC",
	CreatedAt: "created_at",
	Public:    true,
}

// Achievements - награды и вехи, новые сверху
var Achievements = &Collection{
	Name:  "achievements",
	Table: "achievements",
	Columns: []Column{
		{Field: "title", Name: "title", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "description", Name: "description", Kind: KindText, Text: TextRich},
		{Field: "year", Name: "year", Kind: KindInt, Required: true},
		{Field: "type", Name: "type", Kind: KindText, Enum: []string{"award", "milestone"}},
		{Field: "sortOrder", Name: "sort_order", Kind: KindInt},
	},
	OrderBy:   "year DESC, id DESC",
	CreatedAt: "created_at",
	Public:    true,
}

// Partners - партнеры и клиенты
var Partners = &Collection{
	Name:  "partners",
	Table: "partners",
	Columns: []Column{
		{Field: "name", Name: "name", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "logo", Name: "logo", Kind: KindText},
		{Field: "website", Name: "website", Kind: KindText},
		{Field: "sortOrder", Name: "sort_order", Kind: KindInt},
		{Field: "isActive", Name: "is_active", Kind: KindBool},
	},
	OrderBy:      "sort_order ASC, id ASC",
	CreatedAt:    "created_at",
	Public:       true,
	PublicFilter: Filter{"isActive": true},
}

// ContactMessages - сообщения из формы обратной связи, новые сверху
var ContactMessages = &Collection{
	Name:  "contact-messages",
	Table: "contact_messages",
	Columns: []Column{
		{Field: "name", Name: "name", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "email", Name: "email", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "phone", Name: "phone", Kind: KindText, Text: TextPlain},
		{Field: "projectType", Name: "project_type", Kind: KindText, Enum: append(slices.Clone(projectCategories), "diger")},
		{Field: "message", Name: "message", Kind: KindText, Text: TextPlain, Required: true},
		{Field: "status", Name: "status", Kind: KindText, Enum: messageStatuses},
	},
	OrderBy:      "created_at DESC, id DESC",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
	PublicCreate: true,
}

// Collections lists every collection served by the generic CRUD layer
var Collections = []*Collection{
	Projects,
	ComingSoonProjects,
	EmailSubscribers,
	TeamMembers,
	OrgPositions,
	CompanyValues,
	Achievements,
	Partners,
	ContactMessages,
}

// LookupCollection finds a collection by its URL name
func LookupCollection(name string) (*Collection, bool) {
	for _, c := range Collections {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
