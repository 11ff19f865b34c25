package ports

import (
	"context"

	"thumbhash-placeholder-layer/internal/domain"
)

// WorkQueue is an at-least-once queue of media work.
// Deliveries that are not acknowledged become visible again after the
// transport's visibility timeout.
type WorkQueue interface {
	Enqueue(ctx context.Context, item *domain.QueueItem) error
	Receive(ctx context.Context, max int) ([]*domain.Delivery, error)
	Ack(ctx context.Context, delivery *domain.Delivery) error
	Stats(ctx context.Context) (domain.QueueStats, error)
}
