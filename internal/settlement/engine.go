// Package settlement cierra posiciones contra el precio de resolución del
// mercado y reconcilia ledger, book y tracker de PnL en una sola operación.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/settlebot/internal/alert"
	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/ledger"
	"github.com/alejandrodnm/settlebot/internal/ports"
)

// DefaultSettlementPrice se asume cuando no hay outcome explícito: el token
// dentro de la banda ganó y paga $1.00 por share.
const DefaultSettlementPrice = 1.00

// Engine ejecuta el settlement de posiciones abiertas.
type Engine struct {
	ledger *ledger.Ledger
	book   *ledger.Book
	pnl    *ledger.PnLTracker
	quotes ports.QuoteProvider // puede ser nil: se usa DefaultSettlementPrice
	store  ports.Storage       // puede ser nil
	alerts *alert.Manager      // puede ser nil
}

// New crea un Engine. quotes, store y alerts son opcionales.
func New(l *ledger.Ledger, b *ledger.Book, p *ledger.PnLTracker, quotes ports.QuoteProvider, store ports.Storage, alerts *alert.Manager) *Engine {
	return &Engine{
		ledger: l,
		book:   b,
		pnl:    p,
		quotes: quotes,
		store:  store,
		alerts: alerts,
	}
}

// Settle cierra una posición abierta al precio de settlement dado: devuelve
// shares × precio al ledger, transiciona la posición a SETTLED y registra el
// trade realizado. Posiciones desconocidas o ya terminales devuelven
// ErrPositionNotFound sin mutar nada.
func (e *Engine) Settle(ctx context.Context, positionID string, settlementPrice float64) (domain.Position, error) {
	pos, ok := e.book.Get(positionID)
	if !ok || pos.IsTerminal() {
		return domain.Position{}, fmt.Errorf("settlement.Settle: position %s: %w", positionID, ledger.ErrPositionNotFound)
	}

	returnAmount := pos.Shares * settlementPrice
	if err := e.ledger.Return(positionID, returnAmount); err != nil {
		// Sin allocation viva no hay forma de reconciliar el capital: la
		// posición pasa a FAILED para que no se reintente cada tick.
		e.fail(ctx, positionID, err)
		return domain.Position{}, fmt.Errorf("settlement.Settle: return capital: %w", err)
	}

	settled, err := e.book.Settle(positionID, settlementPrice)
	if err != nil {
		return domain.Position{}, fmt.Errorf("settlement.Settle: %w", err)
	}

	realized, err := e.pnl.CloseTrade(positionID, settlementPrice)
	if err != nil {
		slog.Warn("settlement: no trade record for position", "position", positionID, "err", err)
		realized = settled.RealizedPnL
	}

	e.persist(ctx, settled)
	if e.alerts != nil {
		e.alerts.PositionClosed(ctx, settled.ID, settled.Slug, settlementPrice, realized)
	}

	slog.Info("settlement: position settled",
		"position", settled.ID,
		"market", settled.Slug,
		"price", fmt.Sprintf("$%.2f", settlementPrice),
		"pnl", fmt.Sprintf("$%.2f", realized),
	)
	return settled, nil
}

// SettleExpired cierra todas las posiciones abiertas cuyo mercado ya cerró.
// Devuelve cuántas se liquidaron. Un fallo en una posición no frena el resto.
func (e *Engine) SettleExpired(ctx context.Context, now time.Time) int {
	var settled int
	for _, pos := range e.book.Open() {
		if pos.CloseTime.IsZero() || pos.CloseTime.After(now) {
			continue
		}
		price := e.resolutionPrice(ctx, pos)
		if _, err := e.Settle(ctx, pos.ID, price); err != nil {
			slog.Warn("settlement: settle expired failed", "position", pos.ID, "err", err)
			continue
		}
		settled++
	}
	return settled
}

// fail transiciona la posición a FAILED y lo persiste. Best effort: el
// error original del settlement es el que se propaga al caller.
func (e *Engine) fail(ctx context.Context, positionID string, cause error) {
	if err := e.book.Fail(positionID); err != nil {
		slog.Warn("settlement: could not fail position", "position", positionID, "err", err)
		return
	}
	if e.store != nil {
		if err := e.store.MarkPositionFailed(ctx, positionID); err != nil {
			slog.Warn("settlement: storage error", "position", positionID, "err", err)
		}
	}
	if e.alerts != nil {
		e.alerts.SystemError(ctx, "settlement", cause)
	}
}

// resolutionPrice consulta el precio final del token ganador. Los mercados
// binarios resuelven a 0 o 1, así que la quote se redondea al extremo más
// cercano. Sin quote legible se asume DefaultSettlementPrice.
func (e *Engine) resolutionPrice(ctx context.Context, pos domain.Position) float64 {
	if e.quotes == nil {
		return DefaultSettlementPrice
	}
	price, err := e.quotes.Price(ctx, pos.WinningTokenID)
	if err != nil || price <= 0 {
		slog.Debug("settlement: final quote unavailable, assuming win",
			"position", pos.ID, "err", err)
		return DefaultSettlementPrice
	}
	if price >= 0.5 {
		return 1.00
	}
	return 0.00
}

func (e *Engine) persist(ctx context.Context, pos domain.Position) {
	if e.store == nil {
		return
	}
	settledAt := time.Now().UTC()
	if pos.SettledAt != nil {
		settledAt = *pos.SettledAt
	}
	if err := e.store.MarkPositionSettled(ctx, pos.ID, pos.SettlementPrice, pos.RealizedPnL, settledAt); err != nil {
		slog.Warn("settlement: storage error", "position", pos.ID, "err", err)
	}
	if trades := e.pnl.History(1); len(trades) > 0 && trades[0].PositionID == pos.ID {
		if err := e.store.SaveTrade(ctx, trades[0]); err != nil {
			slog.Warn("settlement: storage error", "position", pos.ID, "err", err)
		}
	}
	if err := e.store.UpdateOpportunityStatus(ctx, pos.MarketID, domain.OpportunitySettled); err != nil {
		slog.Debug("settlement: no audited opportunity for market",
			"market", pos.MarketID, "err", err)
	}
}
