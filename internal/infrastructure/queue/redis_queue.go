package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options configures visibility and redelivery behaviour shared by the queue transports
type Options struct {
	VisibilityTimeout time.Duration
	MaxDeliveries     int
}

// DefaultOptions returns the defaults used when no configuration is supplied
func DefaultOptions() Options {
	return Options{
		VisibilityTimeout: 2 * time.Minute,
		MaxDeliveries:     5,
	}
}

// message is the wire format stored in Redis
type message struct {
	ID         string         `json:"id"`
	Body       []byte         `json:"body"`
	Shop       domain.ShopRef `json:"shop"`
	EnqueuedAt time.Time      `json:"enqueuedAt"`
}

// RedisQueue is an at-least-once work queue backed by Redis lists.
//
// Received messages move from the pending list to the processing list and are
// tracked in a sorted set scored by their visibility deadline. Messages whose
// deadline passes without an ack are pushed back to pending on the next
// Receive, or to the dead list once they reach MaxDeliveries. Every move
// between these keys runs inside one Lua script.
type RedisQueue struct {
	client *redis.Client
	name   string
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisQueue creates a new Redis-backed work queue
func NewRedisQueue(client *redis.Client, name string, opts Options, logger zerolog.Logger) *RedisQueue {
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = DefaultOptions().VisibilityTimeout
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = DefaultOptions().MaxDeliveries
	}
	return &RedisQueue{
		client: client,
		name:   name,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

func (q *RedisQueue) pendingKey() string    { return q.name + ":pending" }
func (q *RedisQueue) processingKey() string { return q.name + ":processing" }
func (q *RedisQueue) inflightKey() string   { return q.name + ":inflight" }
func (q *RedisQueue) deliveriesKey() string { return q.name + ":deliveries" }
func (q *RedisQueue) deadKey() string       { return q.name + ":dead" }

// Enqueue appends an item to the pending list
func (q *RedisQueue) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	enqueuedAt := item.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = q.now().UTC()
	}

	raw, err := json.Marshal(&message{
		ID:         uuid.NewString(),
		Body:       item.RawBody,
		Shop:       item.Shop,
		EnqueuedAt: enqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode queue message: %w", err)
	}

	if err := q.client.LPush(ctx, q.pendingKey(), raw).Err(); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	metrics.QueueEnqueuedTotal.Inc()
	return nil
}

// receiveScript pops one pending message and registers it in flight in a
// single step, so an interrupted Receive never leaves a message in the
// processing list without a deadline. Undecodable messages go straight to
// the dead list and are reported with zero attempts.
//
// KEYS: pending, processing, inflight, deliveries, dead. ARGV: deadline in ms.
var receiveScript = redis.NewScript(`
local raw = redis.call('RPOP', KEYS[1])
if not raw then
  return false
end
local ok, msg = pcall(cjson.decode, raw)
if not ok or type(msg) ~= 'table' or type(msg.id) ~= 'string' or msg.id == '' then
  redis.call('LPUSH', KEYS[5], raw)
  return {raw, 0}
end
redis.call('LPUSH', KEYS[2], raw)
redis.call('ZADD', KEYS[3], ARGV[1], raw)
local attempts = redis.call('HINCRBY', KEYS[4], msg.id, 1)
return {raw, attempts}
`)

// reapScript releases every message whose deadline passed, either back to
// pending or to the dead list once it reached the delivery limit.
//
// KEYS: pending, processing, inflight, deliveries, dead. ARGV: now in ms, max deliveries.
var reapScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
local limit = tonumber(ARGV[2])
local requeued, buried = 0, 0
for _, raw in ipairs(expired) do
  redis.call('ZREM', KEYS[3], raw)
  redis.call('LREM', KEYS[2], 1, raw)
  local id = nil
  local ok, msg = pcall(cjson.decode, raw)
  if ok and type(msg) == 'table' and type(msg.id) == 'string' then
    id = msg.id
  end
  local deliveries = 0
  if id then
    deliveries = tonumber(redis.call('HGET', KEYS[4], id) or '0') or 0
  end
  if deliveries >= limit then
    if id then
      redis.call('HDEL', KEYS[4], id)
    end
    redis.call('LPUSH', KEYS[5], raw)
    buried = buried + 1
  else
    redis.call('RPUSH', KEYS[1], raw)
    requeued = requeued + 1
  end
end
return {requeued, buried}
`)

func (q *RedisQueue) keys() []string {
	return []string{q.pendingKey(), q.processingKey(), q.inflightKey(), q.deliveriesKey(), q.deadKey()}
}

// Receive hands out up to max messages, each hidden for the visibility timeout
func (q *RedisQueue) Receive(ctx context.Context, max int) ([]*domain.Delivery, error) {
	if err := q.reapExpired(ctx); err != nil {
		return nil, err
	}

	var deliveries []*domain.Delivery
	for len(deliveries) < max {
		deadline := q.now().Add(q.opts.VisibilityTimeout)
		res, err := receiveScript.Run(ctx, q.client, q.keys(), deadline.UnixMilli()).Slice()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return deliveries, fmt.Errorf("failed to receive message: %w", err)
		}
		if len(res) != 2 {
			return deliveries, fmt.Errorf("failed to receive message: unexpected reply %v", res)
		}

		raw, _ := res[0].(string)
		attempts, _ := res[1].(int64)
		if attempts == 0 {
			q.logger.Error().
				Str("queue", q.name).
				Msg("Moved undecodable message to dead list")
			metrics.QueueDeadLetteredTotal.Inc()
			continue
		}

		var msg message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			q.logger.Error().
				Err(err).
				Str("queue", q.name).
				Msg("Dropping undecodable message to dead list")
			if err := q.bury(ctx, raw); err != nil {
				return deliveries, err
			}
			continue
		}

		deliveries = append(deliveries, &domain.Delivery{
			MessageID: msg.ID,
			Attempt:   int(attempts),
			Item: &domain.QueueItem{
				RawBody:    msg.Body,
				Shop:       msg.Shop,
				EnqueuedAt: msg.EnqueuedAt,
			},
			Receipt: raw,
		})
	}

	return deliveries, nil
}

// Ack removes a delivered message for good
func (q *RedisQueue) Ack(ctx context.Context, delivery *domain.Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, delivery.Receipt)
		pipe.ZRem(ctx, q.inflightKey(), delivery.Receipt)
		pipe.HDel(ctx, q.deliveriesKey(), delivery.MessageID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ack message %s: %w", delivery.MessageID, err)
	}
	return nil
}

// Stats reports the size of the pending, in-flight and dead sets
func (q *RedisQueue) Stats(ctx context.Context) (domain.QueueStats, error) {
	var pending, inflight, dead *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pending = pipe.LLen(ctx, q.pendingKey())
		inflight = pipe.ZCard(ctx, q.inflightKey())
		dead = pipe.LLen(ctx, q.deadKey())
		return nil
	})
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return domain.QueueStats{
		Pending:  pending.Val(),
		InFlight: inflight.Val(),
		Dead:     dead.Val(),
	}, nil
}

// reapExpired makes messages whose visibility deadline passed available again
func (q *RedisQueue) reapExpired(ctx context.Context) error {
	res, err := reapScript.Run(ctx, q.client, q.keys(), q.now().UnixMilli(), q.opts.MaxDeliveries).Int64Slice()
	if err != nil {
		return fmt.Errorf("failed to release expired messages: %w", err)
	}
	if len(res) != 2 {
		return fmt.Errorf("failed to release expired messages: unexpected reply %v", res)
	}

	requeued, buried := res[0], res[1]
	if buried > 0 {
		q.logger.Warn().
			Str("queue", q.name).
			Int64("count", buried).
			Msg("Messages exceeded max deliveries, moved to dead list")
		metrics.QueueDeadLetteredTotal.Add(float64(buried))
	}
	if requeued > 0 {
		q.logger.Debug().
			Str("queue", q.name).
			Int64("count", requeued).
			Msg("Requeued expired messages")
		metrics.QueueRedeliveriesTotal.Add(float64(requeued))
	}
	return nil
}

// bury moves a raw message from processing to the dead list
func (q *RedisQueue) bury(ctx context.Context, raw string) error {
	var msg message
	_ = json.Unmarshal([]byte(raw), &msg)

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, raw)
		pipe.ZRem(ctx, q.inflightKey(), raw)
		if msg.ID != "" {
			pipe.HDel(ctx, q.deliveriesKey(), msg.ID)
		}
		pipe.LPush(ctx, q.deadKey(), raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to move message to dead list: %w", err)
	}
	return nil
}
