package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/settlebot/internal/adapters/storage"
	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePosition(id string) domain.Position {
	return domain.Position{
		ID:               id,
		MarketID:         "516710",
		Slug:             "bitcoin-150k-december",
		Question:         "Will Bitcoin reach $150,000?",
		WinningTokenID:   "token_yes_001",
		Shares:           2020.20,
		EntryPrice:       0.99,
		AllocatedCapital: 2000,
		ExpectedProfit:   20.20,
		EdgePercent:      1.0,
		CloseTime:        time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		Status:           domain.PositionOpen,
		OpenedAt:         time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStorage_SaveAndGetPositions(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	pos := makePosition("516710-abc12345")
	require.NoError(t, db.SavePosition(context.Background(), pos))

	open, err := db.GetPositions(context.Background(), domain.PositionOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)

	got := open[0]
	assert.Equal(t, pos.ID, got.ID)
	assert.Equal(t, pos.Slug, got.Slug)
	assert.InDelta(t, pos.Shares, got.Shares, 1e-9)
	assert.InDelta(t, pos.EntryPrice, got.EntryPrice, 1e-9)
	assert.True(t, got.OpenedAt.Equal(pos.OpenedAt))
	assert.True(t, got.CloseTime.Equal(pos.CloseTime))
	assert.Nil(t, got.SettledAt)
}

func TestSQLiteStorage_MarkSettled(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	pos := makePosition("516710-abc12345")
	require.NoError(t, db.SavePosition(context.Background(), pos))

	settledAt := time.Now().UTC().Truncate(time.Second)
	err = db.MarkPositionSettled(context.Background(), pos.ID, 1.00, 20.20, settledAt)
	require.NoError(t, err)

	open, err := db.GetPositions(context.Background(), domain.PositionOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	settled, err := db.GetPositions(context.Background(), domain.PositionSettled)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.InDelta(t, 1.00, settled[0].SettlementPrice, 1e-9)
	assert.InDelta(t, 20.20, settled[0].RealizedPnL, 1e-9)
	require.NotNil(t, settled[0].SettledAt)
	assert.True(t, settled[0].SettledAt.Equal(settledAt))
}

func TestSQLiteStorage_MarkSettledUnknownPosition(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = db.MarkPositionSettled(context.Background(), "nope", 1.00, 0, time.Now())
	assert.Error(t, err)
}

func TestSQLiteStorage_MarkFailed(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	pos := makePosition("516710-abc12345")
	require.NoError(t, db.SavePosition(context.Background(), pos))
	require.NoError(t, db.MarkPositionFailed(context.Background(), pos.ID))

	failed, err := db.GetPositions(context.Background(), domain.PositionFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
}

func TestSQLiteStorage_TradesRoundTrip(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	opened := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	closed := time.Now().UTC().Truncate(time.Second)

	for i, tr := range []domain.TradeRecord{
		{ID: "t1", PositionID: "p1", MarketID: "m1", Side: "BUY", Quantity: 100,
			EntryPrice: 0.99, ExitPrice: 1.00, PnL: 1.0, PnLPercent: 1.0101,
			OpenedAt: opened, ClosedAt: &closed},
		{ID: "t2", PositionID: "p2", MarketID: "m2", Side: "BUY", Quantity: 50,
			EntryPrice: 0.99, ExitPrice: 0.00, PnL: -49.5, PnLPercent: -100,
			OpenedAt: opened, ClosedAt: &closed},
	} {
		require.NoError(t, db.SaveTrade(context.Background(), tr), "trade %d", i)
	}

	trades, err := db.GetRecentTrades(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	byID := map[string]domain.TradeRecord{}
	for _, tr := range trades {
		byID[tr.ID] = tr
	}
	assert.InDelta(t, 1.0, byID["t1"].PnL, 1e-9)
	assert.InDelta(t, -49.5, byID["t2"].PnL, 1e-9)
	require.NotNil(t, byID["t1"].ClosedAt)
	assert.True(t, byID["t1"].ClosedAt.Equal(closed))
}

func TestSQLiteStorage_RecentTradesExcludesOpen(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	openTrade := domain.TradeRecord{
		ID: "t1", PositionID: "p1", MarketID: "m1", Side: "BUY",
		Quantity: 100, EntryPrice: 0.99, OpenedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveTrade(context.Background(), openTrade))

	trades, err := db.GetRecentTrades(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSQLiteStorage_OpportunityLifecycle(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	opp := domain.Opportunity{
		MarketID:       "516710",
		Slug:           "bitcoin-150k-december",
		Question:       "Will Bitcoin reach $150,000?",
		Category:       domain.CategoryCrypto,
		WinningTokenID: "token_yes_001",
		Price:          0.99,
		EdgePercent:    1.0,
		CloseTime:      time.Now().UTC().Add(time.Minute),
		DetectedAt:     time.Now().UTC(),
		Status:         domain.OpportunityDetected,
	}
	require.NoError(t, db.SaveOpportunity(context.Background(), opp))

	require.NoError(t, db.UpdateOpportunityStatus(context.Background(), "516710", domain.OpportunityExecuted))
	require.NoError(t, db.UpdateOpportunityStatus(context.Background(), "516710", domain.OpportunitySettled))

	opps, err := db.GetRecentOpportunities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	got := opps[0]
	assert.Equal(t, domain.OpportunitySettled, got.Status)
	assert.Equal(t, opp.Slug, got.Slug)
	assert.Equal(t, domain.CategoryCrypto, got.Category)
	assert.InDelta(t, 0.99, got.Price, 1e-9)
	assert.True(t, got.DetectedAt.Equal(opp.DetectedAt))
}

func TestSQLiteStorage_UpdateOpportunityTargetsLatestRow(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	first := domain.Opportunity{MarketID: "516710", Price: 0.987, EdgePercent: 1.3,
		DetectedAt: time.Now().UTC(), Status: domain.OpportunityDetected}
	second := first
	second.Price = 0.99
	second.EdgePercent = 1.0

	require.NoError(t, db.SaveOpportunity(context.Background(), first))
	require.NoError(t, db.SaveOpportunity(context.Background(), second))
	require.NoError(t, db.UpdateOpportunityStatus(context.Background(), "516710", domain.OpportunityExecuted))

	opps, err := db.GetRecentOpportunities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, opps, 2)

	// Más reciente primero: solo la última fila transiciona.
	assert.Equal(t, domain.OpportunityExecuted, opps[0].Status)
	assert.InDelta(t, 0.99, opps[0].Price, 1e-9)
	assert.Equal(t, domain.OpportunityDetected, opps[1].Status)
}

func TestSQLiteStorage_UpdateOpportunityUnknownMarket(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = db.UpdateOpportunityStatus(context.Background(), "ghost", domain.OpportunityExecuted)
	assert.Error(t, err)
}
