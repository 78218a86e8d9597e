package dashboard_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/settlebot/internal/dashboard"
	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	snap    engine.Snapshot
	open    []domain.Position
	settled []domain.Position
	summary domain.PnLSummary
	trades  []domain.TradeRecord
}

func (s *stubReader) Snapshot() engine.Snapshot { return s.snap }

func (s *stubReader) Positions() (open, settled []domain.Position) {
	return s.open, s.settled
}

func (s *stubReader) PnL() (domain.PnLSummary, []domain.TradeRecord) {
	return s.summary, s.trades
}

func newTestServer(reader *stubReader) *httptest.Server {
	srv := dashboard.New(":0", reader, map[string]any{"max_positions": 5})
	return httptest.NewServer(srv.Handler())
}

func TestServer_Status(t *testing.T) {
	reader := &stubReader{snap: engine.Snapshot{
		Balance:   8000,
		Deployed:  2000,
		Available: 8000,
		OpenCount: 1,
		MaxOpen:   5,
	}}
	srv := newTestServer(reader)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.EqualValues(t, 8000, got["balance"])
	assert.EqualValues(t, 2000, got["deployed"])
	assert.EqualValues(t, 1, got["open_positions"])
	assert.EqualValues(t, 5, got["max_positions"])
}

func TestServer_Positions(t *testing.T) {
	settledAt := time.Now().UTC()
	reader := &stubReader{
		open: []domain.Position{{
			ID: "p1", MarketID: "m1", Slug: "btc-150k", Shares: 2020.2,
			EntryPrice: 0.99, AllocatedCapital: 2000, Status: domain.PositionOpen,
		}},
		settled: []domain.Position{{
			ID: "p0", MarketID: "m0", Status: domain.PositionSettled,
			SettledAt: &settledAt, SettlementPrice: 1.0, RealizedPnL: 20.2,
		}},
	}
	srv := newTestServer(reader)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/positions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got struct {
		Open    []map[string]any `json:"open"`
		Settled []map[string]any `json:"settled"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Open, 1)
	require.Len(t, got.Settled, 1)
	assert.Equal(t, "p1", got.Open[0]["id"])
	assert.Equal(t, "OPEN", got.Open[0]["status"])
	assert.EqualValues(t, 20.2, got.Settled[0]["realized_pnl"])
}

func TestServer_PnL(t *testing.T) {
	reader := &stubReader{summary: domain.PnLSummary{
		TotalTrades: 3, Wins: 2, Losses: 1, TotalPnL: -48.5,
		InitialBalance: 10_000, CurrentBalance: 9951.5,
	}}
	srv := newTestServer(reader)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/pnl")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.EqualValues(t, 3, got["total_trades"])
	assert.EqualValues(t, -48.5, got["total_pnl"])
}

func TestServer_Config(t *testing.T) {
	srv := newTestServer(&stubReader{})
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.EqualValues(t, 5, got["max_positions"])
}

func TestServer_WritesRejected(t *testing.T) {
	srv := newTestServer(&stubReader{})
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 405, resp.StatusCode)
}

func TestServer_Trades(t *testing.T) {
	closed := time.Now().UTC()
	reader := &stubReader{trades: []domain.TradeRecord{{
		ID: "t1", PositionID: "p1", MarketID: "m1", Quantity: 100,
		EntryPrice: 0.99, ExitPrice: 1.0, PnL: 1.0, ClosedAt: &closed,
	}}}
	srv := newTestServer(reader)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/trades")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0]["id"])
	assert.EqualValues(t, 1.0, got[0]["pnl"])
}
