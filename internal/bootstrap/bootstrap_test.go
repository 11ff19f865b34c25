package bootstrap

import (
	"context"
	"testing"
	"time"

	"thumbhash-placeholder-layer/internal/config"
	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, NewLogger("debug", "api").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger("nonsense", "api").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger("", "api").GetLevel())
}

func queueConfig(driver string) *config.Config {
	return &config.Config{
		Queue: config.QueueConfig{
			Driver:            driver,
			Name:              "image-queue",
			VisibilityTimeout: time.Minute,
			MaxDeliveries:     3,
		},
	}
}

func TestNewWorkQueueMemory(t *testing.T) {
	q, closeFn, err := NewWorkQueue(context.Background(), queueConfig(config.QueueDriverMemory), zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	_, ok := q.(*queue.MemoryQueue)
	assert.True(t, ok)
}

func TestNewWorkQueueRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := queueConfig(config.QueueDriverRedis)
	cfg.Redis.Addr = mr.Addr()

	q, closeFn, err := NewWorkQueue(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, q.Enqueue(context.Background(), &domain.QueueItem{RawBody: []byte(`{}`)}))
	assert.True(t, mr.Exists("image-queue:pending"))
}

func TestNewWorkQueueRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := queueConfig(config.QueueDriverRedis)
	cfg.Redis.Addr = mr.Addr()
	mr.Close()

	_, _, err := NewWorkQueue(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewWorkQueueUnknownDriver(t *testing.T) {
	_, _, err := NewWorkQueue(context.Background(), queueConfig("kafka"), zerolog.Nop())
	assert.Error(t, err)
}
