package domain

import "time"

// QueueItem is one pending webhook payload together with the shop it belongs to.
// It is never modified after it has been enqueued.
type QueueItem struct {
	RawBody    []byte    `json:"body"`
	Shop       ShopRef   `json:"shop"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Delivery is a single transport-level delivery of a QueueItem.
// The same item may be delivered more than once.
type Delivery struct {
	MessageID string
	Attempt   int
	Item      *QueueItem
	Receipt   string // Opaque handle used to acknowledge the delivery
}

// QueueStats is a point-in-time view of a work queue
type QueueStats struct {
	Pending  int64
	InFlight int64
	Dead     int64
}
