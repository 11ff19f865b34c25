package application

import (
	"context"
	"errors"
	"sync"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/ports"
)

type fakeShopRepo struct {
	mu     sync.Mutex
	shops  map[string]*domain.Shop
	getErr error
	saves  int
}

func newFakeShopRepo(shops ...*domain.Shop) *fakeShopRepo {
	r := &fakeShopRepo{shops: map[string]*domain.Shop{}}
	for _, s := range shops {
		r.shops[s.ShopID] = s
	}
	return r
}

func (r *fakeShopRepo) SaveShop(ctx context.Context, shop *domain.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *shop
	r.shops[shop.ShopID] = &copied
	r.saves++
	return nil
}

func (r *fakeShopRepo) GetShop(ctx context.Context, shopID string) (*domain.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	shop, ok := r.shops[shopID]
	if !ok {
		return nil, nil
	}
	copied := *shop
	return &copied, nil
}

func (r *fakeShopRepo) DeleteShop(ctx context.Context, shopID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shops[shopID]; !ok {
		return domain.ErrShopNotFound
	}
	delete(r.shops, shopID)
	return nil
}

type patchCall struct {
	MediaID string
	Field   string
	Value   string
}

type fakeMediaClient struct {
	mu          sync.Mutex
	records     []domain.MediaRecord
	searchErr   error
	patchErrs   map[string]error
	searchCalls [][]string
	patches     []patchCall
}

func (c *fakeMediaClient) SearchMediaByIDs(ctx context.Context, ids []string) ([]domain.MediaRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchCalls = append(c.searchCalls, ids)
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return append([]domain.MediaRecord(nil), c.records...), nil
}

func (c *fakeMediaClient) PatchMediaCustomField(ctx context.Context, mediaID string, field string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.patchErrs[mediaID]; err != nil {
		return err
	}
	c.patches = append(c.patches, patchCall{MediaID: mediaID, Field: field, Value: value})
	return nil
}

type fakeClientFactory struct {
	mu      sync.Mutex
	clients map[string]*fakeMediaClient
	calls   int
}

func newFakeClientFactory() *fakeClientFactory {
	return &fakeClientFactory{clients: map[string]*fakeMediaClient{}}
}

func (f *fakeClientFactory) client(shopID string) *fakeMediaClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[shopID]
	if !ok {
		c = &fakeMediaClient{}
		f.clients[shopID] = c
	}
	return c
}

func (f *fakeClientFactory) ForShop(shop *domain.Shop) ports.MediaClient {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.client(shop.ShopID)
}

type fakeHasher struct {
	mu     sync.Mutex
	hashes map[string]string
	calls  []string
	// cancel, when set, simulates a shutdown during the retry wait
	cancel context.CancelFunc
}

func (h *fakeHasher) GenerateHash(ctx context.Context, imageURL string, fileType string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, imageURL+"|"+fileType)
	if h.cancel != nil {
		h.cancel()
		return "", false
	}
	hash, ok := h.hashes[imageURL]
	return hash, ok
}

func (h *fakeHasher) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type fakeQueue struct {
	mu         sync.Mutex
	items      []*domain.QueueItem
	deliveries []*domain.Delivery
	acked      []string
	enqueueErr error
	receiveErr error
	dead       int64
}

func (q *fakeQueue) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.items = append(q.items, item)
	return nil
}

func (q *fakeQueue) Receive(ctx context.Context, max int) ([]*domain.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.receiveErr != nil {
		return nil, q.receiveErr
	}
	n := max
	if n > len(q.deliveries) {
		n = len(q.deliveries)
	}
	out := q.deliveries[:n]
	q.deliveries = q.deliveries[n:]
	return out, nil
}

func (q *fakeQueue) Ack(ctx context.Context, delivery *domain.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, delivery.MessageID)
	return nil
}

func (q *fakeQueue) Stats(ctx context.Context) (domain.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return domain.QueueStats{Pending: int64(len(q.deliveries)), Dead: q.dead}, nil
}

var errBoom = errors.New("boom")

func registeredShop(id string) *domain.Shop {
	return &domain.Shop{
		ShopID:     id,
		ShopURL:    "https://" + id + ".example",
		ShopSecret: "secret-" + id,
		APIKey:     "key",
		SecretKey:  "secret",
	}
}

func mediaEvent(shopID string, payload string) []byte {
	return []byte(`{"data":{"event":"media.written","payload":` + payload + `},"source":{"url":"https://` + shopID + `.example","shopId":"` + shopID + `","appVersion":"1.0.0"},"timestamp":1700000000}`)
}
