package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls   int
	markets []domain.Market
	err     error
}

func (p *countingProvider) FetchMarkets(_ context.Context, _ domain.Category) ([]domain.Market, error) {
	p.calls++
	return p.markets, p.err
}

func TestMarketCache_ServesFromCacheInsideTTL(t *testing.T) {
	provider := &countingProvider{markets: []domain.Market{{ID: "m1"}}}
	cache := engine.NewMarketCache(provider, time.Minute)

	for i := 0; i < 3; i++ {
		markets, err := cache.FetchMarkets(context.Background(), domain.CategoryCrypto)
		require.NoError(t, err)
		assert.Len(t, markets, 1)
	}
	assert.Equal(t, 1, provider.calls)
}

func TestMarketCache_CategoriesAreIndependent(t *testing.T) {
	provider := &countingProvider{}
	cache := engine.NewMarketCache(provider, time.Minute)

	_, err := cache.FetchMarkets(context.Background(), domain.CategoryCrypto)
	require.NoError(t, err)
	_, err = cache.FetchMarkets(context.Background(), domain.CategoryFed)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestMarketCache_InvalidateForcesRefetch(t *testing.T) {
	provider := &countingProvider{}
	cache := engine.NewMarketCache(provider, time.Minute)

	_, _ = cache.FetchMarkets(context.Background(), domain.CategoryCrypto)
	cache.Invalidate(domain.CategoryCrypto)
	_, _ = cache.FetchMarkets(context.Background(), domain.CategoryCrypto)

	assert.Equal(t, 2, provider.calls)
}

func TestMarketCache_ErrorIsNotCached(t *testing.T) {
	provider := &countingProvider{err: errors.New("gamma 500")}
	cache := engine.NewMarketCache(provider, time.Minute)

	_, err := cache.FetchMarkets(context.Background(), domain.CategoryCrypto)
	require.Error(t, err)

	provider.err = nil
	_, err = cache.FetchMarkets(context.Background(), domain.CategoryCrypto)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}
