package domain

import "encoding/json"

// Webhook topics, matching the path the platform posts to
const (
	TopicShopDeleted     = "hook/deleted"
	TopicShopActivated   = "hook/activated"
	TopicShopDeactivated = "hook/deactivated"
	TopicMediaUploaded   = "event/media-uploaded"
)

// WebhookRequest is an inbound webhook as received over HTTP
type WebhookRequest struct {
	Topic     string
	Body      []byte
	Signature string
}

// WebhookEvent is the envelope the platform wraps around every app event.
// Envelope fields other than data and source are not decoded.
type WebhookEvent struct {
	Data   WebhookEventData `json:"data"`
	Source WebhookSource    `json:"source"`
}

// WebhookEventData carries the event name and the written entities
type WebhookEventData struct {
	Event   string           `json:"event"`
	Payload []WebhookPayload `json:"payload"`
}

// WebhookPayload describes one written entity
type WebhookPayload struct {
	Entity        string          `json:"entity"`
	Operation     string          `json:"operation"`
	PrimaryKey    json.RawMessage `json:"primaryKey"`
	UpdatedFields []string        `json:"updatedFields,omitempty"`
}

// WebhookSource identifies the shop that sent the event
type WebhookSource struct {
	URL        string `json:"url"`
	ShopID     string `json:"shopId"`
	AppVersion string `json:"appVersion"`
}

// ID returns the primary key when it is a plain string.
// Mapping entities use composite keys, which are reported as not ok.
func (p WebhookPayload) ID() (string, bool) {
	var id string
	if err := json.Unmarshal(p.PrimaryKey, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}
