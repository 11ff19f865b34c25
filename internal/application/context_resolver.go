package application

import (
	"context"
	"encoding/json"
	"errors"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ContextResolver attributes signed platform requests to a registered shop
type ContextResolver struct {
	shops  ports.ShopRepository
	signer ports.RequestSigner
	logger zerolog.Logger
}

// NewContextResolver creates a new context resolver
func NewContextResolver(shops ports.ShopRepository, signer ports.RequestSigner, logger zerolog.Logger) *ContextResolver {
	return &ContextResolver{
		shops:  shops,
		signer: signer,
		logger: logger,
	}
}

// FromSource resolves the shop named in the event's source block and checks
// the body signature against that shop's secret. Every failure is an *AuthError.
func (r *ContextResolver) FromSource(ctx context.Context, body []byte, signature string) (*domain.Shop, error) {
	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, domain.NewAuthError("unreadable event body", err)
	}

	shopID := event.Source.ShopID
	if shopID == "" {
		return nil, domain.NewAuthError("missing source shop id", nil)
	}

	shop, err := r.shops.GetShop(ctx, shopID)
	if err != nil {
		return nil, domain.NewAuthError("failed to load shop", err)
	}
	if shop == nil {
		return nil, domain.NewAuthError("shop "+shopID+" is not registered", domain.ErrShopNotFound)
	}

	if err := r.signer.Verify(shop.ShopSecret, body, signature); err != nil {
		return nil, domain.NewAuthError("invalid shop signature", err)
	}

	return shop, nil
}

// IsUnauthorized reports whether err came from shop resolution
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
