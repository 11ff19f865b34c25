package shopware

import (
	"net/http"
	"time"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ClientPool hands out per-shop clients that share one HTTP client and token cache
type ClientPool struct {
	httpClient *http.Client
	tokens     *TokenManager
	logger     zerolog.Logger
}

var _ ports.MediaClientFactory = (*ClientPool)(nil)

// NewClientPool creates a pool using a default HTTP client
func NewClientPool(logger zerolog.Logger) *ClientPool {
	return NewClientPoolWithOptions(&http.Client{Timeout: 30 * time.Second}, logger)
}

// NewClientPoolWithOptions creates a pool around the given HTTP client
func NewClientPoolWithOptions(httpClient *http.Client, logger zerolog.Logger) *ClientPool {
	return &ClientPool{
		httpClient: httpClient,
		tokens:     NewTokenManager(httpClient, logger),
		logger:     logger,
	}
}

// ForShop returns a client scoped to the shop's credentials
func (p *ClientPool) ForShop(shop *domain.Shop) ports.MediaClient {
	return NewClient(shop, p.httpClient, p.tokens, p.logger)
}
