package domain

import "strings"

// EntityMedia is the entity name carried by media write events
const EntityMedia = "media"

// MediaRecord is the metadata the source system holds about one uploaded file
type MediaRecord struct {
	ID           string                 `json:"id"`
	URL          string                 `json:"url"`
	MimeType     string                 `json:"mimeType"`
	HasFile      bool                   `json:"hasFile"`
	Private      bool                   `json:"private"`
	CustomFields map[string]interface{} `json:"customFields"`
}

// ExistingHash returns the hash already stored in the given custom field, if any
func (m *MediaRecord) ExistingHash(field string) string {
	if m.CustomFields == nil {
		return ""
	}
	hash, _ := m.CustomFields[field].(string)
	return hash
}

// FileType derives the format passed to the hash service, e.g. image/webp -> webp
func (m *MediaRecord) FileType() string {
	return m.MimeType[strings.LastIndex(m.MimeType, "/")+1:]
}
