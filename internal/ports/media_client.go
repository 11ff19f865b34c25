package ports

import (
	"context"

	"thumbhash-placeholder-layer/internal/domain"
)

// MediaClient talks to the source system's Admin API on behalf of one shop
type MediaClient interface {
	SearchMediaByIDs(ctx context.Context, ids []string) ([]domain.MediaRecord, error)
	PatchMediaCustomField(ctx context.Context, mediaID string, field string, value string) error
}

// MediaClientFactory hands out clients scoped to a shop's credentials
type MediaClientFactory interface {
	ForShop(shop *domain.Shop) MediaClient
}

// HashGenerator produces a thumbhash for an image. ok is false when no hash
// could be produced.
type HashGenerator interface {
	GenerateHash(ctx context.Context, imageURL string, fileType string) (hash string, ok bool)
}
