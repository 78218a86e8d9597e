package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/settlebot/internal/alert"
	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/ledger"
	"github.com/alejandrodnm/settlebot/internal/ports"
)

// ExecStats resume la actividad de ejecución de la sesión.
type ExecStats struct {
	Attempted int
	Filled    int
	Volume    float64 // capital comprometido acumulado
}

// FillRate es la fracción de ejecuciones intentadas que abrieron posición.
func (s ExecStats) FillRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Filled) / float64(s.Attempted)
}

// Executor abre posiciones simuladas cuando un timer dispara. Toda la
// ejecución es paper: no se envía ninguna orden real.
type Executor struct {
	ledger *ledger.Ledger
	book   *ledger.Book
	pnl    *ledger.PnLTracker
	quotes ports.QuoteProvider // puede ser nil: se usa el precio detectado
	store  ports.Storage       // puede ser nil
	alerts *alert.Manager      // puede ser nil

	mu    sync.Mutex
	stats ExecStats
}

// NewExecutor crea un Executor. quotes, store y alerts son opcionales.
func NewExecutor(l *ledger.Ledger, b *ledger.Book, p *ledger.PnLTracker, quotes ports.QuoteProvider, store ports.Storage, alerts *alert.Manager) *Executor {
	return &Executor{
		ledger: l,
		book:   b,
		pnl:    p,
		quotes: quotes,
		store:  store,
		alerts: alerts,
	}
}

// Execute compra el token ganador de la oportunidad con el tamaño de
// posición del ledger. Capacidad o balance insuficientes devuelven el error
// de negocio del ledger sin tocar estado.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity) (domain.Position, error) {
	e.mu.Lock()
	e.stats.Attempted++
	e.mu.Unlock()

	entryPrice := e.entryPrice(ctx, opp)
	if entryPrice <= 0 {
		return domain.Position{}, fmt.Errorf("engine.Execute: market %s: no liquidity at execution", opp.MarketID)
	}

	// El fill simulado usa la quote fresca, no el precio de detección.
	opp.Price = entryPrice
	opp.EdgePercent = (1.00 - entryPrice) * 100

	id := ledger.NewPositionID(opp.MarketID)
	committed, err := e.ledger.Allocate(id, opp.MarketID, e.ledger.PositionSize())
	if err != nil {
		return domain.Position{}, fmt.Errorf("engine.Execute: market %s: %w", opp.MarketID, err)
	}

	shares := committed / entryPrice
	pos := e.book.Create(id, opp, shares, committed, shares*(1.0-entryPrice))
	e.pnl.OpenTrade(id, opp.MarketID, shares, entryPrice)

	if e.store != nil {
		if err := e.store.SavePosition(ctx, pos); err != nil {
			slog.Warn("engine: storage error", "position", id, "err", err)
		}
	}
	if e.alerts != nil {
		e.alerts.PositionOpened(ctx, id, opp.Slug, shares, entryPrice)
	}

	e.mu.Lock()
	e.stats.Filled++
	e.stats.Volume += committed
	e.mu.Unlock()
	return pos, nil
}

// Stats devuelve las estadísticas acumuladas de ejecución.
func (e *Executor) Stats() ExecStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// entryPrice refresca la quote del token ganador justo antes de ejecutar.
// Si la quote no está disponible se usa el precio de detección.
func (e *Executor) entryPrice(ctx context.Context, opp domain.Opportunity) float64 {
	if e.quotes == nil {
		return opp.Price
	}
	price, err := e.quotes.Price(ctx, opp.WinningTokenID)
	if err != nil || price <= 0 {
		slog.Debug("engine: fresh quote unavailable, using detection price",
			"market", opp.Slug, "err", err)
		return opp.Price
	}
	return price
}
