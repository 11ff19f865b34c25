package application

import (
	"context"
	"fmt"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// WebhookHandler processes webhooks for the topics it accepts
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, req *domain.WebhookRequest) error
}

// WebhookDispatcher routes webhook requests to the first handler that accepts the topic
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		logger: logger,
	}
}

// RegisterHandler adds a handler. Handlers are consulted in registration order.
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch hands the request to its handler
func (d *WebhookDispatcher) Dispatch(ctx context.Context, req *domain.WebhookRequest) error {
	for _, h := range d.handlers {
		if !h.CanHandle(req.Topic) {
			continue
		}

		if err := h.Handle(ctx, req); err != nil {
			result := "error"
			if IsUnauthorized(err) {
				result = "unauthorized"
			}
			metrics.WebhooksTotal.WithLabelValues(req.Topic, result).Inc()
			return err
		}

		metrics.WebhooksTotal.WithLabelValues(req.Topic, "ok").Inc()
		return nil
	}

	d.logger.Debug().Str("topic", req.Topic).Msg("No handler for webhook topic")
	metrics.WebhooksTotal.WithLabelValues(req.Topic, "unsupported").Inc()
	return fmt.Errorf("%w: %s", domain.ErrUnsupportedTopic, req.Topic)
}
