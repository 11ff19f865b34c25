// Package bootstrap builds the components shared by the api and worker binaries
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"thumbhash-placeholder-layer/internal/application"
	"thumbhash-placeholder-layer/internal/config"
	"thumbhash-placeholder-layer/internal/infrastructure/queue"
	"thumbhash-placeholder-layer/internal/infrastructure/repository"
	"thumbhash-placeholder-layer/internal/infrastructure/shopware"
	"thumbhash-placeholder-layer/internal/infrastructure/thumbhash"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewLogger creates the process logger. Unknown levels fall back to info.
func NewLogger(level string, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// ConnectMongo connects to MongoDB and returns the shop repository
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, ports.ShopRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	if err := repository.EnsureShopIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	return client, repository.NewMongoShopRepository(db), nil
}

// NewWorkQueue builds the configured queue transport. The returned close
// function releases its connections.
func NewWorkQueue(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ports.WorkQueue, func() error, error) {
	opts := queue.Options{
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		MaxDeliveries:     cfg.Queue.MaxDeliveries,
	}

	switch cfg.Queue.Driver {
	case config.QueueDriverMemory:
		return queue.NewMemoryQueue(opts, logger), func() error { return nil }, nil

	case config.QueueDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return queue.NewRedisQueue(client, cfg.Queue.Name, opts, logger), client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
}

// NewMediaProcessor wires the hash service and Admin API clients into the media pipeline
func NewMediaProcessor(cfg *config.Config, shops ports.ShopRepository, logger zerolog.Logger) *application.MediaProcessor {
	hasher := thumbhash.NewClient(
		cfg.Hash.Endpoint,
		&http.Client{Timeout: cfg.Hash.Timeout},
		thumbhash.RetryConfig{MaxRetries: cfg.Hash.MaxRetries, Delay: cfg.Hash.RetryDelay},
		logger,
	)
	clientPool := shopware.NewClientPool(logger)

	return application.NewMediaProcessor(shops, clientPool, hasher, application.MediaProcessorConfig{
		HashFieldName: cfg.Hash.FieldName,
		Concurrency:   cfg.Queue.Concurrency,
	}, logger)
}

// NewQueueConsumer builds the consumer for the configured queue
func NewQueueConsumer(cfg *config.Config, workQueue ports.WorkQueue, processor *application.MediaProcessor, logger zerolog.Logger) *application.QueueConsumer {
	return application.NewQueueConsumer(workQueue, processor, application.QueueConsumerConfig{
		BatchSize:    cfg.Queue.BatchSize,
		PollInterval: cfg.Queue.PollInterval,
	}, logger)
}
