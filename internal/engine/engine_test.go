package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/engine"
	"github.com/alejandrodnm/settlebot/internal/ledger"
	"github.com/alejandrodnm/settlebot/internal/scanner"
	"github.com/alejandrodnm/settlebot/internal/settlement"
	"github.com/alejandrodnm/settlebot/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMarkets struct {
	markets []domain.Market
}

func (s *stubMarkets) FetchMarkets(_ context.Context, cat domain.Category) ([]domain.Market, error) {
	if cat != domain.CategoryCrypto {
		return nil, nil
	}
	return s.markets, nil
}

func makeMarket(id string, closeIn time.Duration) domain.Market {
	return domain.Market{
		ID:       id,
		Slug:     id,
		Question: "Will Bitcoin reach $150k?",
		Category: domain.CategoryCrypto,
		EndDate:  time.Now().Add(closeIn),
		Active:   true,
		Tokens: [2]domain.Token{
			{TokenID: id + "-yes", Outcome: "Yes"},
			{TokenID: id + "-no", Outcome: "No"},
		},
	}
}

// auditStore captura el rastro de auditoría de oportunidades.
type auditStore struct {
	saved    []domain.Opportunity
	statuses map[string]domain.OpportunityStatus
}

func (s *auditStore) SaveOpportunity(_ context.Context, opp domain.Opportunity) error {
	s.saved = append(s.saved, opp)
	return nil
}

func (s *auditStore) UpdateOpportunityStatus(_ context.Context, marketID string, status domain.OpportunityStatus) error {
	if s.statuses == nil {
		s.statuses = make(map[string]domain.OpportunityStatus)
	}
	s.statuses[marketID] = status
	return nil
}

func (s *auditStore) SavePosition(context.Context, domain.Position) error { return nil }

func (s *auditStore) MarkPositionSettled(context.Context, string, float64, float64, time.Time) error {
	return nil
}

func (s *auditStore) MarkPositionFailed(context.Context, string) error { return nil }

func (s *auditStore) SaveTrade(context.Context, domain.TradeRecord) error { return nil }

func (s *auditStore) GetPositions(context.Context, domain.PositionStatus) ([]domain.Position, error) {
	return nil, nil
}

func (s *auditStore) GetRecentTrades(context.Context, int) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *auditStore) Close() error { return nil }

type harness struct {
	engine *engine.Engine
	ledger *ledger.Ledger
	book   *ledger.Book
	pnl    *ledger.PnLTracker
	timer  *timer.Timer
	store  *auditStore
}

func newHarness(mp *stubMarkets, qp *mockQuoteProvider, lead time.Duration) *harness {
	l := ledger.New(10_000, 0.20, 5)
	b := ledger.NewBook(5)
	p := ledger.NewPnLTracker(10_000)
	tmr := timer.New(lead)
	scn := scanner.New(scanner.DefaultConfig(), mp, qp)
	store := &auditStore{}
	exec := engine.NewExecutor(l, b, p, qp, nil, nil)
	settle := settlement.New(l, b, p, qp, store, nil)

	eng := engine.New(
		engine.Config{PollInterval: 50 * time.Millisecond, LeadTime: lead, MaxOpen: 5},
		scn, tmr, l, b, p, exec, settle, store, nil, nil,
	)
	return &harness{engine: eng, ledger: l, book: b, pnl: p, timer: tmr, store: store}
}

func TestEngine_RunOnce_ArmsTimerOnce(t *testing.T) {
	mp := &stubMarkets{markets: []domain.Market{makeMarket("btc-150k", 10*time.Second)}}
	qp := &mockQuoteProvider{prices: map[string]float64{
		"btc-150k-yes": 0.99,
		"btc-150k-no":  0.01,
	}}
	h := newHarness(mp, qp, time.Second)

	result, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Detected)
	assert.Equal(t, 1, result.Armed)
	assert.True(t, h.timer.Armed("btc-150k"))

	// El mismo mercado no se rearma en el siguiente ciclo.
	result, err = h.engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Armed)
	assert.Equal(t, 1, h.timer.Len())
}

func TestEngine_RunOnce_TooLateIsSkipped(t *testing.T) {
	// El mercado cierra antes de que quepa el lead time completo.
	mp := &stubMarkets{markets: []domain.Market{makeMarket("btc-150k", 200*time.Millisecond)}}
	qp := &mockQuoteProvider{prices: map[string]float64{
		"btc-150k-yes": 0.99,
		"btc-150k-no":  0.01,
	}}
	h := newHarness(mp, qp, 10*time.Second)

	result, err := h.engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Detected)
	assert.Equal(t, 0, result.Armed)
	assert.Equal(t, 0, h.timer.Len())
}

func TestEngine_FullCycle_ArmExecuteSettle(t *testing.T) {
	mp := &stubMarkets{markets: []domain.Market{makeMarket("btc-150k", 600*time.Millisecond)}}
	qp := &mockQuoteProvider{prices: map[string]float64{
		"btc-150k-yes": 0.99,
		"btc-150k-no":  0.01,
	}}
	h := newHarness(mp, qp, 450*time.Millisecond)
	ctx := context.Background()

	// Ciclo 1: detecta y arma (dispara en ~150ms).
	result, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Armed)
	require.Len(t, h.store.saved, 1)
	assert.Equal(t, domain.OpportunityDetected, h.store.saved[0].Status)

	// Ciclo 2: el timer venció, se ejecuta la compra.
	time.Sleep(250 * time.Millisecond)
	result, err = h.engine.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Executed)
	assert.Equal(t, 0, h.timer.Len(), "fired timer must be removed")
	assert.Equal(t, 1, h.book.OpenCount())
	assert.InDelta(t, 8000, h.ledger.Balance(), 1e-9)
	assert.Equal(t, domain.OpportunityExecuted, h.store.statuses["btc-150k"])

	// Ciclo 3: el mercado cerró, la posición se liquida como ganadora.
	time.Sleep(450 * time.Millisecond)
	result, err = h.engine.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Settled)
	assert.Equal(t, 0, h.book.OpenCount())
	assert.Equal(t, domain.OpportunitySettled, h.store.statuses["btc-150k"])

	summary := h.pnl.Summary()
	assert.Equal(t, 1, summary.Wins)
	expectedPnL := (2000 / 0.99) * (1.00 - 0.99)
	assert.InDelta(t, expectedPnL, summary.TotalPnL, 1e-6)
	assert.InDelta(t, 10_000+expectedPnL, h.ledger.Balance(), 1e-6)
}

func TestEngine_FiredTimerSpentEvenOnFailure(t *testing.T) {
	mp := &stubMarkets{markets: []domain.Market{makeMarket("btc-150k", 600*time.Millisecond)}}
	qp := &mockQuoteProvider{prices: map[string]float64{
		"btc-150k-yes": 0.99,
		"btc-150k-no":  0.01,
	}}
	h := newHarness(mp, qp, 450*time.Millisecond)
	ctx := context.Background()

	_, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, h.timer.Len())

	// Todo el capital queda comprometido antes de que dispare el timer.
	for i := 0; i < 5; i++ {
		_, err := h.ledger.Allocate(fmt.Sprintf("p%d", i), "other-market", h.ledger.PositionSize())
		require.NoError(t, err)
	}

	time.Sleep(250 * time.Millisecond)
	result, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Executed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, h.timer.Len(), "spent timer is not retried")
	assert.Equal(t, 0, h.book.OpenCount())
	assert.Equal(t, domain.OpportunityFailed, h.store.statuses["btc-150k"])
}

func TestEngine_Snapshot(t *testing.T) {
	mp := &stubMarkets{}
	qp := &mockQuoteProvider{}
	h := newHarness(mp, qp, time.Second)

	snap := h.engine.Snapshot()
	assert.InDelta(t, 10_000, snap.Balance, 1e-9)
	assert.InDelta(t, 0, snap.Deployed, 1e-9)
	assert.Equal(t, 0, snap.OpenCount)
	assert.Equal(t, 5, snap.MaxOpen)
}

func TestEngine_Run_StopsOnContextCancel(t *testing.T) {
	mp := &stubMarkets{}
	qp := &mockQuoteProvider{}
	h := newHarness(mp, qp, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after cancel")
	}
}
