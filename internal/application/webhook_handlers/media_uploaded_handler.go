package webhook_handlers

import (
	"context"
	"fmt"
	"time"

	"thumbhash-placeholder-layer/internal/application"
	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

// MediaUploadedHandler queues media upload events for the worker
type MediaUploadedHandler struct {
	logger   zerolog.Logger
	resolver *application.ContextResolver
	queue    ports.WorkQueue
}

// NewMediaUploadedHandler creates a new media uploaded webhook handler
func NewMediaUploadedHandler(
	logger zerolog.Logger,
	resolver *application.ContextResolver,
	queue ports.WorkQueue,
) *MediaUploadedHandler {
	return &MediaUploadedHandler{
		logger:   logger,
		resolver: resolver,
		queue:    queue,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *MediaUploadedHandler) CanHandle(topic string) bool {
	return topic == domain.TopicMediaUploaded
}

// Handle verifies the event and enqueues it unchanged. Hashing happens later
// in the worker.
func (h *MediaUploadedHandler) Handle(ctx context.Context, req *domain.WebhookRequest) error {
	shop, err := h.resolver.FromSource(ctx, req.Body, req.Signature)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("topic", req.Topic).
			Msg("Rejected media upload event")
		return err
	}

	item := &domain.QueueItem{
		RawBody:    req.Body,
		Shop:       shop.Ref(),
		EnqueuedAt: time.Now().UTC(),
	}
	if err := h.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("failed to enqueue media event: %w", err)
	}

	h.logger.Debug().
		Str("shopId", shop.ShopID).
		Int("bodySize", len(req.Body)).
		Msg("Queued media upload event")

	return nil
}
