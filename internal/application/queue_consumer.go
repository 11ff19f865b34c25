package application

import (
	"context"
	"fmt"
	"time"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/metrics"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

// QueueConsumerConfig controls how the consumer polls the work queue
type QueueConsumerConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// QueueConsumer drains the work queue into the media processor.
// Only successfully processed deliveries are acknowledged; the transport
// redelivers the rest once their visibility timeout expires.
type QueueConsumer struct {
	queue     ports.WorkQueue
	processor *MediaProcessor
	config    QueueConsumerConfig
	logger    zerolog.Logger
}

// NewQueueConsumer creates a new queue consumer
func NewQueueConsumer(queue ports.WorkQueue, processor *MediaProcessor, config QueueConsumerConfig, logger zerolog.Logger) *QueueConsumer {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	return &QueueConsumer{
		queue:     queue,
		processor: processor,
		config:    config,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next poll; an empty or failed poll waits for the poll interval.
func (c *QueueConsumer) Run(ctx context.Context) error {
	c.logger.Info().
		Int("batchSize", c.config.BatchSize).
		Dur("pollInterval", c.config.PollInterval).
		Msg("Queue consumer started")

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("Queue consumer stopped")
			return nil
		}

		n, err := c.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("Failed to poll work queue")
		}
		c.ReportDepth(ctx)
		if err == nil && n >= c.config.BatchSize {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(c.config.PollInterval):
		}
	}
}

// ReportDepth publishes the queue sizes as gauges
func (c *QueueConsumer) ReportDepth(ctx context.Context) {
	stats, err := c.queue.Stats(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("Failed to read queue stats")
		}
		return
	}
	metrics.QueueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
	metrics.QueueDepth.WithLabelValues("inflight").Set(float64(stats.InFlight))
	metrics.QueueDepth.WithLabelValues("dead").Set(float64(stats.Dead))
}

// Poll receives and processes one batch, returning the number of deliveries handled
func (c *QueueConsumer) Poll(ctx context.Context) (int, error) {
	deliveries, err := c.queue.Receive(ctx, c.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to receive batch: %w", err)
	}
	if len(deliveries) == 0 {
		return 0, nil
	}

	items := make([]*domain.QueueItem, len(deliveries))
	for i, d := range deliveries {
		items[i] = d.Item
	}

	errs := c.processor.ProcessBatch(ctx, items)
	for i, d := range deliveries {
		if errs[i] != nil {
			c.logger.Warn().
				Err(errs[i]).
				Str("messageId", d.MessageID).
				Str("shopId", d.Item.Shop.ShopID).
				Int("attempt", d.Attempt).
				Msg("Queue item failed, leaving it for redelivery")
			metrics.QueueItemsTotal.WithLabelValues("error").Inc()
			continue
		}

		if err := c.queue.Ack(ctx, d); err != nil {
			c.logger.Error().
				Err(err).
				Str("messageId", d.MessageID).
				Msg("Failed to ack queue item")
			metrics.QueueItemsTotal.WithLabelValues("ack_error").Inc()
			continue
		}
		metrics.QueueItemsTotal.WithLabelValues("ok").Inc()
	}

	return len(deliveries), nil
}
