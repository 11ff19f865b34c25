package shopware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"thumbhash-placeholder-layer/internal/domain"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

// tokenExpiryMargin is subtracted from the lifetime the platform reports
const tokenExpiryMargin = 30 * time.Second

// TokenManager obtains Admin API access tokens through the client credentials
// grant and caches them per shop until shortly before they expire
type TokenManager struct {
	httpClient *http.Client
	cache      *ttlcache.Cache[string, string]
	logger     zerolog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(httpClient *http.Client, logger zerolog.Logger) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenManager{
		httpClient: httpClient,
		cache:      ttlcache.New[string, string](ttlcache.WithDisableTouchOnHit[string, string]()),
		logger:     logger,
	}
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	AccessToken string `json:"access_token"`
}

func cacheKey(shop *domain.Shop) string {
	return shop.ShopID + ":" + shop.APIKey
}

// Token returns a valid access token for the shop, fetching a new one when needed
func (tm *TokenManager) Token(ctx context.Context, shop *domain.Shop) (string, error) {
	if !shop.HasCredentials() {
		return "", fmt.Errorf("shop %s has no API credentials", shop.ShopID)
	}

	key := cacheKey(shop)
	if item := tm.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	token, ttl, err := tm.fetchToken(ctx, shop)
	if err != nil {
		return "", err
	}
	tm.cache.Set(key, token, ttl)

	tm.logger.Debug().
		Str("shopId", shop.ShopID).
		Dur("ttl", ttl).
		Msg("Fetched Admin API access token")

	return token, nil
}

// Invalidate drops the cached token for a shop, e.g. after the API rejected it
func (tm *TokenManager) Invalidate(shop *domain.Shop) {
	tm.cache.Delete(cacheKey(shop))
}

func (tm *TokenManager) fetchToken(ctx context.Context, shop *domain.Shop) (string, time.Duration, error) {
	payload, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     shop.APIKey,
		ClientSecret: shop.SecretKey,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode token request: %w", err)
	}

	tokenURL := strings.TrimRight(shop.ShopURL, "/") + "/api/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", 0, fmt.Errorf("failed to request access token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("token response has no access token")
	}

	return tokenResp.AccessToken, tokenTTL(tokenResp.ExpiresIn), nil
}

func tokenTTL(expiresIn int) time.Duration {
	lifetime := time.Duration(expiresIn) * time.Second
	if lifetime <= 0 {
		return time.Minute
	}
	if lifetime <= 2*tokenExpiryMargin {
		return lifetime / 2
	}
	return lifetime - tokenExpiryMargin
}
