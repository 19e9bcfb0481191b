// Package security sanitizes user-supplied content before it is stored.
//
// Rich text columns keep a small allow-list of formatting markup,
// plain text columns lose all markup.
package security

import (
	"html"
	"net/url"

	"github.com/microcosm-cc/bluemonday"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage"
)

// Sanitizer applies the text policies of collection columns to patches.
// Safe for concurrent use.
type Sanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewSanitizer builds the rich text and plain text policies
func NewSanitizer() *Sanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em", "b", "i", "u",
		"h2", "h3", "h4",
	)

	// ссылки: только http(s) и mailto, внешние открываются в новой вкладке
	rich.AllowAttrs("href").OnElements("a")
	rich.AllowURLSchemes("http", "https", "mailto")
	rich.AllowRelativeURLs(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	rich.RequireNoReferrerOnLinks(true)

	// картинки только по https или относительному пути
	rich.AllowAttrs("src", "alt").OnElements("img")
	rich.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &Sanitizer{
		rich:  rich,
		plain: bluemonday.StrictPolicy(),
	}
}

// Rich returns HTML reduced to the formatting allow-list
func (s *Sanitizer) Rich(raw string) string {
	return s.rich.Sanitize(raw)
}

// Plain returns the text with all markup removed
func (s *Sanitizer) Plain(raw string) string {
	// StrictPolicy экранирует сущности, а храним мы обычный текст
	return html.UnescapeString(s.plain.Sanitize(raw))
}

// Apply sanitizes one value according to policy. Non-string values pass through.
func (s *Sanitizer) Apply(policy storage.TextPolicy, v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}

	switch policy {
	case storage.TextPlain:
		return s.Plain(str)
	case storage.TextRich:
		return s.Rich(str)
	}
	return str
}

// Collection returns a copy of the patch with the text policy of each column applied
func (s *Sanitizer) Collection(c *storage.Collection, patch models.Patch) models.Patch {
	out := patch.Clone()
	for field, v := range out {
		col, ok := c.Column(field)
		if !ok {
			continue
		}
		out[field] = s.Apply(col.Text, v)
	}
	return out
}

// Fields returns a copy of the patch with per-field policies applied.
// Fields without a policy are left as is.
func (s *Sanitizer) Fields(policies map[string]storage.TextPolicy, patch models.Patch) models.Patch {
	out := patch.Clone()
	for field, v := range out {
		if policy, ok := policies[field]; ok {
			out[field] = s.Apply(policy, v)
		}
	}
	return out
}
