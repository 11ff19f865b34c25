package application

import (
	"context"
	"testing"

	"thumbhash-placeholder-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	topics []string
	err    error
	calls  []string
}

func (h *recordingHandler) CanHandle(topic string) bool {
	for _, t := range h.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func (h *recordingHandler) Handle(ctx context.Context, req *domain.WebhookRequest) error {
	h.calls = append(h.calls, req.Topic)
	return h.err
}

func TestWebhookDispatcherRoutesByTopic(t *testing.T) {
	deleted := &recordingHandler{topics: []string{domain.TopicShopDeleted}}
	media := &recordingHandler{topics: []string{domain.TopicMediaUploaded}, err: errBoom}

	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(deleted)
	d.RegisterHandler(media)

	assert.NoError(t, d.Dispatch(context.Background(), &domain.WebhookRequest{Topic: domain.TopicShopDeleted}))
	assert.ErrorIs(t, d.Dispatch(context.Background(), &domain.WebhookRequest{Topic: domain.TopicMediaUploaded}), errBoom)

	assert.Equal(t, []string{domain.TopicShopDeleted}, deleted.calls)
	assert.Equal(t, []string{domain.TopicMediaUploaded}, media.calls)
}

func TestWebhookDispatcherUnsupportedTopic(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	err := d.Dispatch(context.Background(), &domain.WebhookRequest{Topic: "hook/unknown"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedTopic)
}
