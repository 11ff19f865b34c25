package thumbhash

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, Delay: time.Millisecond}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Delay)
}

func TestGenerateHashSendsQueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "http://img/a.webp", r.URL.Query().Get("url"))
		assert.Equal(t, "webp", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data_url":"HASH1"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), fastRetry(3), zerolog.Nop())
	hash, ok := c.GenerateHash(context.Background(), "http://img/a.webp", "webp")
	require.True(t, ok)
	assert.Equal(t, "HASH1", hash)
}

func TestGenerateHashRetriesUntilSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data_url":"HASH3"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), fastRetry(3), zerolog.Nop())
	hash, ok := c.GenerateHash(context.Background(), "http://img/a.png", "png")
	require.True(t, ok)
	assert.Equal(t, "HASH3", hash)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateHashGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), fastRetry(3), zerolog.Nop())
	hash, ok := c.GenerateHash(context.Background(), "http://img/a.png", "png")
	assert.False(t, ok)
	assert.Empty(t, hash)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestGenerateHashMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "abc"},
		{name: "missing field", body: `{"message":"ok"}`},
		{name: "empty hash", body: `{"data_url":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, server.Client(), fastRetry(3), zerolog.Nop())
			hash, ok := c.GenerateHash(context.Background(), "http://img/a.png", "png")
			assert.False(t, ok)
			assert.Empty(t, hash)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "malformed responses are not retried")
		})
	}
}

func TestGenerateHashStopsWhenContextDone(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(server.URL, server.Client(), RetryConfig{MaxRetries: 3, Delay: time.Hour}, zerolog.Nop())
	_, ok := c.GenerateHash(ctx, "http://img/a.png", "png")
	assert.False(t, ok)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestGenerateHashUnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	c := NewClient(endpoint, nil, fastRetry(1), zerolog.Nop())
	_, ok := c.GenerateHash(context.Background(), "http://img/a.png", "png")
	assert.False(t, ok)
}
