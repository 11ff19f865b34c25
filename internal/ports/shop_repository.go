package ports

import (
	"context"

	"thumbhash-placeholder-layer/internal/domain"
)

// ShopRepository defines the interface for shop persistence
type ShopRepository interface {
	// SaveShop creates or replaces a shop keyed by its shop ID
	SaveShop(ctx context.Context, shop *domain.Shop) error

	// GetShop retrieves a shop by ID, returning nil when it does not exist
	GetShop(ctx context.Context, shopID string) (*domain.Shop, error)

	// DeleteShop removes all local state for a shop
	DeleteShop(ctx context.Context, shopID string) error
}
