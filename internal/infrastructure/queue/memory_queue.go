package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

type memoryMessage struct {
	id         string
	item       *domain.QueueItem
	deliveries int
	deadline   time.Time
	receipt    string
}

// MemoryQueue is an in-process work queue with the same visibility semantics
// as RedisQueue. State is lost on restart.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []*memoryMessage
	inflight map[string]*memoryMessage // keyed by receipt
	dead     []*memoryMessage
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
	nextID   int64
}

// NewMemoryQueue creates a new in-memory work queue
func NewMemoryQueue(opts Options, logger zerolog.Logger) *MemoryQueue {
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = DefaultOptions().VisibilityTimeout
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = DefaultOptions().MaxDeliveries
	}
	return &MemoryQueue{
		inflight: make(map[string]*memoryMessage),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Enqueue appends an item to the pending list
func (q *MemoryQueue) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	stored := *item
	stored.RawBody = append([]byte(nil), item.RawBody...)
	if stored.EnqueuedAt.IsZero() {
		stored.EnqueuedAt = q.now().UTC()
	}

	q.pending = append(q.pending, &memoryMessage{
		id:   q.generateID("msg"),
		item: &stored,
	})

	metrics.QueueEnqueuedTotal.Inc()
	return nil
}

// Receive hands out up to max messages, each hidden for the visibility timeout
func (q *MemoryQueue) Receive(ctx context.Context, max int) ([]*domain.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.reapExpired()

	var deliveries []*domain.Delivery
	for len(deliveries) < max && len(q.pending) > 0 {
		msg := q.pending[0]
		q.pending = q.pending[1:]

		msg.deliveries++
		msg.deadline = q.now().Add(q.opts.VisibilityTimeout)
		msg.receipt = q.generateID(msg.id)
		q.inflight[msg.receipt] = msg

		deliveries = append(deliveries, &domain.Delivery{
			MessageID: msg.id,
			Attempt:   msg.deliveries,
			Item:      msg.item,
			Receipt:   msg.receipt,
		})
	}

	return deliveries, nil
}

// Ack removes a delivered message for good. Acking a receipt whose visibility
// already expired is a no-op.
func (q *MemoryQueue) Ack(ctx context.Context, delivery *domain.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, delivery.Receipt)
	return nil
}

// reapExpired must be called with the lock held
func (q *MemoryQueue) reapExpired() {
	now := q.now()
	for receipt, msg := range q.inflight {
		if now.Before(msg.deadline) {
			continue
		}
		delete(q.inflight, receipt)

		if msg.deliveries >= q.opts.MaxDeliveries {
			q.logger.Warn().
				Str("messageId", msg.id).
				Str("shopId", msg.item.Shop.ShopID).
				Int("deliveries", msg.deliveries).
				Msg("Message exceeded max deliveries, moving to dead list")
			q.dead = append(q.dead, msg)
			metrics.QueueDeadLetteredTotal.Inc()
			continue
		}

		q.pending = append(q.pending, msg)
		metrics.QueueRedeliveriesTotal.Inc()
	}
}

// generateID must be called with the lock held
func (q *MemoryQueue) generateID(prefix string) string {
	q.nextID++
	return fmt.Sprintf("%s-%d", prefix, q.nextID)
}

// Stats reports the size of the pending, in-flight and dead sets
func (q *MemoryQueue) Stats(ctx context.Context) (domain.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return domain.QueueStats{
		Pending:  int64(len(q.pending)),
		InFlight: int64(len(q.inflight)),
		Dead:     int64(len(q.dead)),
	}, nil
}
