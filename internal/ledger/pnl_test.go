package ledger_test

import (
	"testing"

	"github.com/alejandrodnm/settlebot/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPnLTracker_SettlementDeterminism(t *testing.T) {
	// entry 0.99, 100 shares: settle at $1.00 → +$1.00, at $0.00 → -$99.00.
	tr := ledger.NewPnLTracker(10_000)
	tr.OpenTrade("p1", "m1", 100, 0.99)
	tr.OpenTrade("p2", "m2", 100, 0.99)

	pnl, err := tr.CloseTrade("p1", 1.00)
	require.NoError(t, err)
	assert.InDelta(t, 1.00, pnl, 0.0001)

	pnl, err = tr.CloseTrade("p2", 0.00)
	require.NoError(t, err)
	assert.InDelta(t, -99.00, pnl, 0.0001)

	assert.InDelta(t, 10_000-98.0, tr.Balance(), 0.0001)
}

func TestPnLTracker_CloseUnknownPosition(t *testing.T) {
	tr := ledger.NewPnLTracker(10_000)

	_, err := tr.CloseTrade("ghost", 1.00)
	require.ErrorIs(t, err, ledger.ErrUnknownPosition)
}

func TestPnLTracker_Summary(t *testing.T) {
	tr := ledger.NewPnLTracker(10_000)

	tr.OpenTrade("p1", "m1", 100, 0.99) // +1
	tr.OpenTrade("p2", "m2", 200, 0.99) // +2
	tr.OpenTrade("p3", "m3", 100, 0.99) // -99

	_, err := tr.CloseTrade("p1", 1.00)
	require.NoError(t, err)
	_, err = tr.CloseTrade("p2", 1.00)
	require.NoError(t, err)
	_, err = tr.CloseTrade("p3", 0.00)
	require.NoError(t, err)

	s := tr.Summary()
	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, -96.0, s.TotalPnL, 0.0001)
	assert.InDelta(t, 66.666, s.WinRate, 0.01)
	assert.InDelta(t, 1.5, s.AverageWin, 0.0001)
	assert.InDelta(t, -99.0, s.AverageLoss, 0.0001)
	assert.InDelta(t, 3.0/99.0, s.ProfitFactor, 0.0001)
}

func TestPnLTracker_ProfitFactorNoLosses(t *testing.T) {
	tr := ledger.NewPnLTracker(10_000)
	tr.OpenTrade("p1", "m1", 100, 0.99)
	_, err := tr.CloseTrade("p1", 1.00)
	require.NoError(t, err)

	// No losing trades: profit factor is defined as 0, not a division by zero.
	assert.Equal(t, 0.0, tr.Summary().ProfitFactor)
}

func TestPnLTracker_DrawdownMonotonicity(t *testing.T) {
	tr := ledger.NewPnLTracker(10_000)

	// Loss → drawdown appears.
	tr.OpenTrade("p1", "m1", 100, 0.99)
	_, err := tr.CloseTrade("p1", 0.00)
	require.NoError(t, err)

	s := tr.Summary()
	assert.InDelta(t, 0.99, s.CurrentDrawdown, 0.001)
	firstMax := s.MaxDrawdown
	assert.InDelta(t, 0.99, firstMax, 0.001)

	// Big win → new peak, current drawdown resets, max must not decrease.
	tr.OpenTrade("p2", "m2", 20_000, 0.99)
	_, err = tr.CloseTrade("p2", 1.00)
	require.NoError(t, err)

	s = tr.Summary()
	assert.Equal(t, 0.0, s.CurrentDrawdown)
	assert.Equal(t, firstMax, s.MaxDrawdown)

	// Small loss below the new peak: max grows only if the dip is deeper.
	tr.OpenTrade("p3", "m3", 100, 0.99)
	_, err = tr.CloseTrade("p3", 0.00)
	require.NoError(t, err)

	s2 := tr.Summary()
	assert.GreaterOrEqual(t, s2.MaxDrawdown, s.MaxDrawdown)
}

func TestPnLTracker_HistoryAndEquityCurve(t *testing.T) {
	tr := ledger.NewPnLTracker(10_000)

	tr.OpenTrade("p1", "m1", 100, 0.99)
	tr.OpenTrade("p2", "m2", 100, 0.98)
	_, err := tr.CloseTrade("p1", 1.00)
	require.NoError(t, err)
	_, err = tr.CloseTrade("p2", 1.00)
	require.NoError(t, err)

	history := tr.History(0)
	require.Len(t, history, 2)

	limited := tr.History(1)
	require.Len(t, limited, 1)

	curve := tr.EquityCurve()
	require.Len(t, curve, 2)
	assert.InDelta(t, 10_001.0, curve[0].Balance, 0.0001)
	assert.InDelta(t, 10_003.0, curve[1].Balance, 0.0001)
}

func TestPnLTracker_OpenTradesExcludedFromSummary(t *testing.T) {
	tr := ledger.NewPnLTracker(10_000)
	tr.OpenTrade("p1", "m1", 100, 0.99)

	s := tr.Summary()
	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 10_000.0, s.CurrentBalance)
}
