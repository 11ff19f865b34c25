package webhook_handlers

import (
	"context"

	"thumbhash-placeholder-layer/internal/domain"

	"github.com/rs/zerolog"
)

// LifecycleHandler acknowledges activation changes. Activation state is owned
// by the platform, so nothing is stored here.
type LifecycleHandler struct {
	logger zerolog.Logger
}

// NewLifecycleHandler creates a new lifecycle webhook handler
func NewLifecycleHandler(logger zerolog.Logger) *LifecycleHandler {
	return &LifecycleHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *LifecycleHandler) CanHandle(topic string) bool {
	return topic == domain.TopicShopActivated ||
		topic == domain.TopicShopDeactivated
}

// Handle logs the event
func (h *LifecycleHandler) Handle(ctx context.Context, req *domain.WebhookRequest) error {
	h.logger.Debug().
		Str("topic", req.Topic).
		Int("bodySize", len(req.Body)).
		Msg("Received app lifecycle webhook")
	return nil
}
