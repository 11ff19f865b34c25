package shopware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Client is an Admin API client bound to one shop's credentials.
// It never retries; redelivery of the queue item covers transient failures.
type Client struct {
	shop       *domain.Shop
	baseURL    string
	httpClient *http.Client
	tokens     *TokenManager
	logger     zerolog.Logger
}

var _ ports.MediaClient = (*Client)(nil)

// NewClient creates a client for the given shop
func NewClient(shop *domain.Shop, httpClient *http.Client, tokens *TokenManager, logger zerolog.Logger) *Client {
	return &Client{
		shop:       shop,
		baseURL:    strings.TrimRight(shop.ShopURL, "/") + "/api",
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger.With().Str("shopId", shop.ShopID).Logger(),
	}
}

type searchMediaRequest struct {
	IDs   []string `json:"ids"`
	Limit int      `json:"limit,omitempty"`
}

type searchMediaResponse struct {
	Total int                  `json:"total"`
	Data  []domain.MediaRecord `json:"data"`
}

// SearchMediaByIDs fetches the media records for all ids in a single request
func (c *Client) SearchMediaByIDs(ctx context.Context, ids []string) ([]domain.MediaRecord, error) {
	var result searchMediaResponse
	err := c.do(ctx, http.MethodPost, "/search/media", searchMediaRequest{IDs: ids, Limit: len(ids)}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to search media: %w", err)
	}

	c.logger.Debug().
		Int("requested", len(ids)).
		Int("found", len(result.Data)).
		Msg("Searched media by ids")

	return result.Data, nil
}

// PatchMediaCustomField writes a single custom field on a media record
func (c *Client) PatchMediaCustomField(ctx context.Context, mediaID string, field string, value string) error {
	body := map[string]interface{}{
		"customFields": map[string]string{
			field: value,
		},
	}
	if err := c.do(ctx, http.MethodPatch, "/media/"+url.PathEscape(mediaID), body, nil); err != nil {
		return fmt.Errorf("failed to patch media %s: %w", mediaID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	token, err := c.tokens.Token(ctx, c.shop)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(c.shop)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d, body: %s", method, path, resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
