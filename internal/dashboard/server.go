// Package dashboard expone el estado del bot como una API JSON read-only.
// Solo consulta snapshots: ninguna request muta ledger, book ni timers.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/engine"
)

// StateReader es la vista read-only del engine que sirve el dashboard.
type StateReader interface {
	Snapshot() engine.Snapshot
	Positions() (open, settled []domain.Position)
	PnL() (domain.PnLSummary, []domain.TradeRecord)
}

// Server sirve la API de monitoreo.
type Server struct {
	addr   string
	reader StateReader
	config any // snapshot de configuración, se sirve tal cual
}

// New crea el Server. config se expone en /config sin transformar.
func New(addr string, reader StateReader, config any) *Server {
	return &Server{addr: addr, reader: reader, config: config}
}

// Handler construye el mux con todas las rutas.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /positions", s.handlePositions)
	mux.HandleFunc("GET /trades", s.handleTrades)
	mux.HandleFunc("GET /pnl", s.handlePnL)
	mux.HandleFunc("GET /config", s.handleConfig)
	return mux
}

// Run sirve hasta que el contexto se cancele.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("dashboard: listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusResponse struct {
	Balance     float64 `json:"balance"`
	Deployed    float64 `json:"deployed"`
	Available   float64 `json:"available"`
	OpenCount   int     `json:"open_positions"`
	MaxOpen     int     `json:"max_positions"`
	ArmedTimers int     `json:"armed_timers"`
	Attempted   int     `json:"executions_attempted"`
	Filled      int     `json:"executions_filled"`
	FillRate    float64 `json:"fill_rate"`
	Volume      float64 `json:"volume"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.reader.Snapshot()
	writeJSON(w, statusResponse{
		Balance:     snap.Balance,
		Deployed:    snap.Deployed,
		Available:   snap.Available,
		OpenCount:   snap.OpenCount,
		MaxOpen:     snap.MaxOpen,
		ArmedTimers: snap.ArmedTimers,
		Attempted:   snap.Executions.Attempted,
		Filled:      snap.Executions.Filled,
		FillRate:    snap.Executions.FillRate(),
		Volume:      snap.Executions.Volume,
	})
}

type positionResponse struct {
	ID              string     `json:"id"`
	MarketID        string     `json:"market_id"`
	Slug            string     `json:"slug"`
	Question        string     `json:"question"`
	Shares          float64    `json:"shares"`
	EntryPrice      float64    `json:"entry_price"`
	Allocated       float64    `json:"allocated"`
	ExpectedProfit  float64    `json:"expected_profit"`
	Status          string     `json:"status"`
	OpenedAt        time.Time  `json:"opened_at"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
	SettlementPrice float64    `json:"settlement_price,omitempty"`
	RealizedPnL     float64    `json:"realized_pnl,omitempty"`
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	open, settled := s.reader.Positions()
	resp := struct {
		Open    []positionResponse `json:"open"`
		Settled []positionResponse `json:"settled"`
	}{
		Open:    mapPositions(open),
		Settled: mapPositions(settled),
	}
	writeJSON(w, resp)
}

func (s *Server) handleTrades(w http.ResponseWriter, _ *http.Request) {
	_, trades := s.reader.PnL()
	type tradeResponse struct {
		ID         string     `json:"id"`
		PositionID string     `json:"position_id"`
		MarketID   string     `json:"market_id"`
		Quantity   float64    `json:"quantity"`
		EntryPrice float64    `json:"entry_price"`
		ExitPrice  float64    `json:"exit_price"`
		PnL        float64    `json:"pnl"`
		PnLPercent float64    `json:"pnl_percent"`
		OpenedAt   time.Time  `json:"opened_at"`
		ClosedAt   *time.Time `json:"closed_at,omitempty"`
	}

	resp := make([]tradeResponse, 0, len(trades))
	for _, tr := range trades {
		resp = append(resp, tradeResponse{
			ID:         tr.ID,
			PositionID: tr.PositionID,
			MarketID:   tr.MarketID,
			Quantity:   tr.Quantity,
			EntryPrice: tr.EntryPrice,
			ExitPrice:  tr.ExitPrice,
			PnL:        tr.PnL,
			PnLPercent: tr.PnLPercent,
			OpenedAt:   tr.OpenedAt,
			ClosedAt:   tr.ClosedAt,
		})
	}
	writeJSON(w, resp)
}

func (s *Server) handlePnL(w http.ResponseWriter, _ *http.Request) {
	summary, _ := s.reader.PnL()
	writeJSON(w, struct {
		TotalTrades     int     `json:"total_trades"`
		Wins            int     `json:"wins"`
		Losses          int     `json:"losses"`
		TotalPnL        float64 `json:"total_pnl"`
		WinRate         float64 `json:"win_rate"`
		AverageWin      float64 `json:"average_win"`
		AverageLoss     float64 `json:"average_loss"`
		ProfitFactor    float64 `json:"profit_factor"`
		MaxDrawdown     float64 `json:"max_drawdown"`
		CurrentDrawdown float64 `json:"current_drawdown"`
		PeakBalance     float64 `json:"peak_balance"`
		InitialBalance  float64 `json:"initial_balance"`
		CurrentBalance  float64 `json:"current_balance"`
	}{
		TotalTrades:     summary.TotalTrades,
		Wins:            summary.Wins,
		Losses:          summary.Losses,
		TotalPnL:        summary.TotalPnL,
		WinRate:         summary.WinRate,
		AverageWin:      summary.AverageWin,
		AverageLoss:     summary.AverageLoss,
		ProfitFactor:    summary.ProfitFactor,
		MaxDrawdown:     summary.MaxDrawdown,
		CurrentDrawdown: summary.CurrentDrawdown,
		PeakBalance:     summary.PeakBalance,
		InitialBalance:  summary.InitialBalance,
		CurrentBalance:  summary.CurrentBalance,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.config)
}

func mapPositions(positions []domain.Position) []positionResponse {
	resp := make([]positionResponse, 0, len(positions))
	for _, pos := range positions {
		resp = append(resp, positionResponse{
			ID:              pos.ID,
			MarketID:        pos.MarketID,
			Slug:            pos.Slug,
			Question:        pos.Question,
			Shares:          pos.Shares,
			EntryPrice:      pos.EntryPrice,
			Allocated:       pos.AllocatedCapital,
			ExpectedProfit:  pos.ExpectedProfit,
			Status:          string(pos.Status),
			OpenedAt:        pos.OpenedAt,
			SettledAt:       pos.SettledAt,
			SettlementPrice: pos.SettlementPrice,
			RealizedPnL:     pos.RealizedPnL,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("dashboard: encode response", "err", err)
	}
}
