package thumbhash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"thumbhash-placeholder-layer/internal/infrastructure/metrics"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

// RetryConfig configures how failed hash requests are retried
type RetryConfig struct {
	MaxRetries int           // Attempts after the first one
	Delay      time.Duration // Fixed wait between attempts
}

// DefaultRetryConfig returns three retries five seconds apart
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Delay:      5 * time.Second,
	}
}

type client struct {
	endpoint    string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      zerolog.Logger
}

// NewClient creates a hash generation client for the given service endpoint
func NewClient(endpoint string, httpClient *http.Client, retryConfig RetryConfig, logger zerolog.Logger) ports.HashGenerator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if retryConfig.MaxRetries < 0 {
		retryConfig.MaxRetries = 0
	}
	return &client{
		endpoint:    endpoint,
		httpClient:  httpClient,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

type hashResponse struct {
	DataURL string `json:"data_url"`
}

// errRetryable marks a failed attempt that is worth repeating
type errRetryable struct {
	err error
}

func (e *errRetryable) Error() string { return e.err.Error() }

// GenerateHash asks the service for a thumbhash. Non-success responses are
// retried with a fixed delay; ok is false once every attempt has failed or the
// service answered with a body we cannot read.
func (c *client) GenerateHash(ctx context.Context, imageURL string, fileType string) (string, bool) {
	requestURL, err := c.buildURL(imageURL, fileType)
	if err != nil {
		c.logger.Error().Err(err).Str("url", imageURL).Msg("Failed to build hash request URL")
		metrics.HashRequestsTotal.WithLabelValues("invalid").Inc()
		return "", false
	}

	attempts := c.retryConfig.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		hash, err := c.fetch(ctx, requestURL)
		if err == nil {
			metrics.HashRequestsTotal.WithLabelValues("success").Inc()
			return hash, true
		}

		if _, retryable := err.(*errRetryable); !retryable {
			c.logger.Warn().
				Err(err).
				Str("url", imageURL).
				Str("fileType", fileType).
				Msg("Hash service returned an unusable response")
			metrics.HashRequestsTotal.WithLabelValues("malformed").Inc()
			return "", false
		}

		if attempt == attempts {
			c.logger.Warn().
				Err(err).
				Str("url", imageURL).
				Int("attempts", attempts).
				Msg("Hash generation failed after all retries")
			break
		}

		c.logger.Info().
			Err(err).
			Str("url", imageURL).
			Int("attempt", attempt).
			Dur("delay", c.retryConfig.Delay).
			Msg("Retrying hash generation")
		metrics.HashRetriesTotal.Inc()

		if !sleep(ctx, c.retryConfig.Delay) {
			c.logger.Warn().Str("url", imageURL).Msg("Hash generation abandoned, context done")
			break
		}
	}

	metrics.HashRequestsTotal.WithLabelValues("failed").Inc()
	return "", false
}

func (c *client) buildURL(imageURL string, fileType string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse hash endpoint: %w", err)
	}
	query := u.Query()
	query.Set("url", imageURL)
	query.Set("format", fileType)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (c *client) fetch(ctx context.Context, requestURL string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.HashRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create hash request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &errRetryable{err: fmt.Errorf("failed to call hash service: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &errRetryable{err: fmt.Errorf("hash service returned status %d", resp.StatusCode)}
	}

	var result hashResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode hash response: %w", err)
	}
	if result.DataURL == "" {
		return "", fmt.Errorf("hash response has no data_url")
	}

	return result.DataURL, nil
}

// sleep waits for d and reports false if ctx finished first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
