package engine

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/ports"
)

// MarketCache decora un ports.MarketProvider con una caché por categoría.
// El loop de orquestación corre cada pocos segundos pero la lista de
// mercados cambia despacio: refrescarla cada TTL evita castigar a Gamma.
type MarketCache struct {
	provider ports.MarketProvider
	ttl      time.Duration

	mu      sync.Mutex
	entries map[domain.Category]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	markets   []domain.Market
	fetchedAt time.Time
}

// NewMarketCache crea la caché con el TTL dado.
func NewMarketCache(provider ports.MarketProvider, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MarketCache{
		provider: provider,
		ttl:      ttl,
		entries:  make(map[domain.Category]cacheEntry),
		now:      time.Now,
	}
}

// FetchMarkets devuelve la entrada cacheada si sigue fresca; si no, delega
// al provider. Un fetch fallido con caché expirada devuelve el error: el
// caller ya tolera fallos por categoría.
func (c *MarketCache) FetchMarkets(ctx context.Context, category domain.Category) ([]domain.Market, error) {
	c.mu.Lock()
	entry, ok := c.entries[category]
	fresh := ok && c.now().Sub(entry.fetchedAt) < c.ttl
	c.mu.Unlock()

	if fresh {
		return entry.markets, nil
	}

	markets, err := c.provider.FetchMarkets(ctx, category)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[category] = cacheEntry{markets: markets, fetchedAt: c.now()}
	c.mu.Unlock()
	return markets, nil
}

// Invalidate descarta la entrada de una categoría.
func (c *MarketCache) Invalidate(category domain.Category) {
	c.mu.Lock()
	delete(c.entries, category)
	c.mu.Unlock()
}
