package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaRecordFileType(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
	}{
		{"image/webp", "webp"},
		{"image/jpeg", "jpeg"},
		{"png", "png"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			m := &MediaRecord{MimeType: tt.mimeType}
			assert.Equal(t, tt.want, m.FileType())
		})
	}
}

func TestMediaRecordExistingHash(t *testing.T) {
	m := &MediaRecord{}
	assert.Empty(t, m.ExistingHash("thumbhash"))

	m.CustomFields = map[string]interface{}{"thumbhash": "abc", "other": 12}
	assert.Equal(t, "abc", m.ExistingHash("thumbhash"))
	assert.Empty(t, m.ExistingHash("other"))
}

func TestWebhookPayloadID(t *testing.T) {
	var p WebhookPayload
	assert.NoError(t, json.Unmarshal([]byte(`{"entity":"media","primaryKey":"X"}`), &p))
	id, ok := p.ID()
	assert.True(t, ok)
	assert.Equal(t, "X", id)

	assert.NoError(t, json.Unmarshal([]byte(`{"entity":"media","primaryKey":{"a":"b"}}`), &p))
	_, ok = p.ID()
	assert.False(t, ok)
}

func TestAuthErrorMatchesUnauthorized(t *testing.T) {
	err := NewAuthError("shop not registered", ErrShopNotFound)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrShopNotFound)
	assert.Contains(t, err.Error(), "shop not registered")
}
