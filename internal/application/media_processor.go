package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/metrics"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Skip reasons, in the order the eligibility rules are applied
const (
	SkipPrivate         = "private"
	SkipMissingURL      = "missing_url"
	SkipNoFile          = "no_file"
	SkipAlreadyHashed   = "already_hashed"
	SkipHashUnavailable = "hash_unavailable"
)

// MediaProcessorConfig configures the media pipeline
type MediaProcessorConfig struct {
	HashFieldName string
	Concurrency   int
}

// MediaProcessor turns queued media events into thumbhashes stored on the media records
type MediaProcessor struct {
	shops   ports.ShopRepository
	clients ports.MediaClientFactory
	hasher  ports.HashGenerator
	config  MediaProcessorConfig
	logger  zerolog.Logger
}

// NewMediaProcessor creates a new media processor
func NewMediaProcessor(
	shops ports.ShopRepository,
	clients ports.MediaClientFactory,
	hasher ports.HashGenerator,
	config MediaProcessorConfig,
	logger zerolog.Logger,
) *MediaProcessor {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &MediaProcessor{
		shops:   shops,
		clients: clients,
		hasher:  hasher,
		config:  config,
		logger:  logger,
	}
}

// HashMemo remembers hashes produced while processing one batch, keyed by
// image URL and format. It is created per batch and never shared across batches.
type HashMemo struct {
	mu     sync.Mutex
	hashes map[string]string
}

// NewHashMemo creates an empty memo
func NewHashMemo() *HashMemo {
	return &HashMemo{hashes: make(map[string]string)}
}

func memoKey(imageURL, fileType string) string {
	return imageURL + "\x00" + fileType
}

func (m *HashMemo) get(imageURL, fileType string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[memoKey(imageURL, fileType)]
	return hash, ok
}

func (m *HashMemo) put(imageURL, fileType, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[memoKey(imageURL, fileType)] = hash
}

// ExtractMediaIDs returns the primary keys of all media entries in a webhook
// body, in payload order. Unreadable bodies yield no IDs.
func ExtractMediaIDs(body []byte) []string {
	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil
	}

	var ids []string
	for _, p := range event.Data.Payload {
		if p.Entity != domain.EntityMedia {
			continue
		}
		if id, ok := p.ID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ProcessBatch processes every item independently and returns one error slot per item
func (p *MediaProcessor) ProcessBatch(ctx context.Context, items []*domain.QueueItem) []error {
	errs := make([]error, len(items))
	memo := NewHashMemo()

	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			errs[i] = p.ProcessItem(ctx, item, memo)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

// ProcessItem runs the pipeline for a single queued webhook. Patch failures do
// not stop the remaining records and are returned together.
func (p *MediaProcessor) ProcessItem(ctx context.Context, item *domain.QueueItem, memo *HashMemo) error {
	logger := p.logger.With().Str("shopId", item.Shop.ShopID).Logger()

	ids := ExtractMediaIDs(item.RawBody)
	if len(ids) == 0 {
		logger.Debug().Msg("No media in event, nothing to do")
		return nil
	}

	shop, err := p.shops.GetShop(ctx, item.Shop.ShopID)
	if err != nil {
		return fmt.Errorf("failed to load shop %s: %w", item.Shop.ShopID, err)
	}
	if shop == nil {
		logger.Info().Strs("mediaIds", ids).Msg("Shop no longer registered, dropping media event")
		return nil
	}
	if !shop.HasCredentials() {
		logger.Warn().Strs("mediaIds", ids).Msg("Shop has no API credentials, dropping media event")
		return nil
	}

	client := p.clients.ForShop(shop)
	records, err := client.SearchMediaByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to search media for shop %s: %w", shop.ShopID, err)
	}

	var result *multierror.Error
	for i := range records {
		record := &records[i]
		if reason := p.skipReason(record); reason != "" {
			logger.Info().
				Str("mediaId", record.ID).
				Str("reason", reason).
				Msg("Skipping media")
			metrics.MediaSkippedTotal.WithLabelValues(reason).Inc()
			continue
		}

		fileType := record.FileType()
		hash, ok := memo.get(record.URL, fileType)
		if !ok {
			hash, ok = p.hasher.GenerateHash(ctx, record.URL, fileType)
			if ok {
				memo.put(record.URL, fileType, hash)
			}
		}
		if !ok || hash == "" {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("interrupted while hashing media %s: %w", record.ID, err)
			}
			logger.Warn().
				Str("mediaId", record.ID).
				Str("url", record.URL).
				Msg("No hash produced, skipping media")
			metrics.MediaSkippedTotal.WithLabelValues(SkipHashUnavailable).Inc()
			continue
		}

		if err := client.PatchMediaCustomField(ctx, record.ID, p.config.HashFieldName, hash); err != nil {
			logger.Error().Err(err).Str("mediaId", record.ID).Msg("Failed to store hash")
			metrics.MediaPatchedTotal.WithLabelValues("error").Inc()
			result = multierror.Append(result, fmt.Errorf("failed to patch media %s: %w", record.ID, err))
			continue
		}

		logger.Info().Str("mediaId", record.ID).Msg("Stored thumbhash")
		metrics.MediaPatchedTotal.WithLabelValues("ok").Inc()
	}

	return result.ErrorOrNil()
}

// skipReason applies the eligibility rules in order and returns the first that fails
func (p *MediaProcessor) skipReason(record *domain.MediaRecord) string {
	switch {
	case record.Private:
		return SkipPrivate
	case record.URL == "":
		return SkipMissingURL
	case !record.HasFile:
		return SkipNoFile
	case record.ExistingHash(p.config.HashFieldName) != "":
		return SkipAlreadyHashed
	}
	return ""
}
