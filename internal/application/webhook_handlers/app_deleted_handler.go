package webhook_handlers

import (
	"context"

	"thumbhash-placeholder-layer/internal/application"
	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

// AppDeletedHandler removes local shop state when the app is uninstalled
type AppDeletedHandler struct {
	logger   zerolog.Logger
	resolver *application.ContextResolver
	shops    ports.ShopRepository
}

// NewAppDeletedHandler creates a new app deleted webhook handler
func NewAppDeletedHandler(
	logger zerolog.Logger,
	resolver *application.ContextResolver,
	shops ports.ShopRepository,
) *AppDeletedHandler {
	return &AppDeletedHandler{
		logger:   logger,
		resolver: resolver,
		shops:    shops,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppDeletedHandler) CanHandle(topic string) bool {
	return topic == domain.TopicShopDeleted
}

// Handle deletes the shop. It never fails: the shop may already be gone, and
// the platform must not retry deletions.
func (h *AppDeletedHandler) Handle(ctx context.Context, req *domain.WebhookRequest) error {
	shop, err := h.resolver.FromSource(ctx, req.Body, req.Signature)
	if err != nil {
		h.logger.Info().
			Err(err).
			Str("topic", req.Topic).
			Msg("Could not resolve shop for deletion, ignoring")
		return nil
	}

	if err := h.shops.DeleteShop(ctx, shop.ShopID); err != nil {
		h.logger.Warn().
			Err(err).
			Str("shopId", shop.ShopID).
			Msg("Failed to delete shop")
		return nil
	}

	h.logger.Info().
		Str("shopId", shop.ShopID).
		Str("shopUrl", shop.ShopURL).
		Msg("App uninstalled - shop deleted")

	return nil
}
