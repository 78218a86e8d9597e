// Package engine orquesta el loop de paper trading: escanea, arma timers,
// ejecuta compras simuladas cuando disparan y liquida posiciones vencidas.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/settlebot/internal/alert"
	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/ledger"
	"github.com/alejandrodnm/settlebot/internal/ports"
	"github.com/alejandrodnm/settlebot/internal/scanner"
	"github.com/alejandrodnm/settlebot/internal/settlement"
	"github.com/alejandrodnm/settlebot/internal/timer"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxOpen      = 5
)

// Config contiene la configuración del loop de orquestación.
type Config struct {
	PollInterval time.Duration
	LeadTime     time.Duration // cuánto antes del cierre se ejecuta la compra
	MaxOpen      int
	DryRun       bool // un solo ciclo y salir

	// OnCycle se invoca tras cada ciclo exitoso, desde la misma goroutine
	// del loop. Pensado para el status de consola.
	OnCycle func(CycleResult)
}

// Engine es el loop principal. Todas las mutaciones de ledger, book y timer
// salen de aquí: un único writer por diseño.
type Engine struct {
	cfg        Config
	scanner    *scanner.Scanner
	timer      *timer.Timer
	ledger     *ledger.Ledger
	book       *ledger.Book
	pnl        *ledger.PnLTracker
	executor   *Executor
	settlement *settlement.Engine
	store      ports.Storage // puede ser nil: sin auditoría de oportunidades
	notifier   ports.Notifier
	alerts     *alert.Manager
	now        func() time.Time
}

// New crea el Engine con todas las dependencias inyectadas.
func New(
	cfg Config,
	scn *scanner.Scanner,
	tmr *timer.Timer,
	l *ledger.Ledger,
	b *ledger.Book,
	p *ledger.PnLTracker,
	exec *Executor,
	settle *settlement.Engine,
	store ports.Storage,
	notifier ports.Notifier,
	alerts *alert.Manager,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = DefaultMaxOpen
	}
	return &Engine{
		cfg:        cfg,
		scanner:    scn,
		timer:      tmr,
		ledger:     l,
		book:       b,
		pnl:        p,
		executor:   exec,
		settlement: settle,
		store:      store,
		notifier:   notifier,
		alerts:     alerts,
		now:        time.Now,
	}
}

// CycleResult resume lo que produjo un ciclo de orquestación.
type CycleResult struct {
	Detected int
	Armed    int
	Executed int
	Failed   int
	Settled  int
}

// Run ejecuta el loop hasta que el contexto se cancele. Un error dentro de
// un ciclo se reporta y el loop reintenta en el siguiente tick; nunca tira
// el proceso.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine: starting",
		"poll_interval", e.cfg.PollInterval,
		"lead_time", e.cfg.LeadTime,
		"max_open", e.cfg.MaxOpen,
		"dry_run", e.cfg.DryRun,
	)
	if e.alerts != nil {
		e.alerts.SystemStart(ctx)
	}

	e.tick(ctx)
	if e.cfg.DryRun {
		return nil
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: stopped")
			if e.alerts != nil {
				e.alerts.SystemStop(context.WithoutCancel(ctx), "context cancelled")
			}
			return nil
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick ejecuta un ciclo conteniendo cualquier pánico o error: el loop debe
// sobrevivir a un ciclo roto.
func (e *Engine) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: cycle panicked", "panic", r)
			if e.alerts != nil {
				e.alerts.SystemError(ctx, "trading loop", fmt.Errorf("panic: %v", r))
			}
		}
	}()

	result, err := e.RunOnce(ctx)
	if err != nil {
		slog.Error("engine: cycle failed", "err", err)
		if e.alerts != nil {
			e.alerts.SystemError(ctx, "trading loop", err)
		}
		return
	}
	if e.cfg.OnCycle != nil {
		e.cfg.OnCycle(result)
	}
}

// RunOnce ejecuta exactamente un ciclo: dispara timers vencidos, liquida
// posiciones cuyo mercado cerró, escanea y arma timers nuevos.
func (e *Engine) RunOnce(ctx context.Context) (CycleResult, error) {
	var result CycleResult
	now := e.now()

	// 1. Timers vencidos primero: la ventana de ejecución es lo más
	// sensible al reloj de todo el ciclo.
	result.Executed, result.Failed = e.fireDueTimers(ctx)

	// 2. Posiciones cuyo mercado ya cerró.
	result.Settled = e.settlement.SettleExpired(ctx, now)

	// 3. Escanear y armar.
	opps, err := e.scanner.Scan(ctx)
	if err != nil {
		return result, fmt.Errorf("engine.RunOnce: %w", err)
	}
	result.Detected = len(opps)
	result.Armed = e.armTimers(ctx, scanner.BestOpportunities(opps, e.cfg.MaxOpen))

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, opps); err != nil {
			slog.Warn("engine: notifier error", "err", err)
		}
	}
	return result, nil
}

// fireDueTimers ejecuta la compra para cada timer vencido. El timer se
// quita siempre, falle o no la ejecución: una ventana pasada no se reintenta.
func (e *Engine) fireDueTimers(ctx context.Context) (executed, failed int) {
	for _, marketID := range e.timer.Due() {
		entry, ok := e.timer.Get(marketID)
		e.timer.Remove(marketID)
		if !ok {
			continue
		}

		pos, err := e.executor.Execute(ctx, entry.Opportunity)
		if err != nil {
			slog.Warn("engine: execution failed", "market", marketID, "err", err)
			e.markOpportunity(ctx, marketID, domain.OpportunityFailed)
			failed++
			continue
		}
		slog.Info("engine: position opened",
			"position", pos.ID,
			"market", pos.Slug,
			"entry", fmt.Sprintf("$%.4f", pos.EntryPrice),
		)
		e.markOpportunity(ctx, marketID, domain.OpportunityExecuted)
		executed++
	}
	return executed, failed
}

// armTimers arma un timer por oportunidad nueva. Mercados ya armados o con
// posición abierta se saltan; llegar tarde a la ventana solo se loguea.
func (e *Engine) armTimers(ctx context.Context, opps []domain.Opportunity) int {
	armed := 0
	for _, opp := range opps {
		if e.timer.Armed(opp.MarketID) || e.hasOpenPosition(opp.MarketID) {
			continue
		}
		if err := e.timer.Start(opp.MarketID, opp, opp.CloseTime); err != nil {
			slog.Warn("engine: could not arm timer", "market", opp.Slug, "err", err)
			continue
		}
		if e.alerts != nil {
			e.alerts.OpportunityDetected(ctx, opp.Slug, opp.Price, opp.EdgePercent, opp.SecondsToClose)
		}
		if e.store != nil {
			if err := e.store.SaveOpportunity(ctx, opp); err != nil {
				slog.Warn("engine: storage error", "market", opp.Slug, "err", err)
			}
		}
		armed++
	}
	return armed
}

// markOpportunity transiciona la oportunidad auditada del mercado. Best
// effort: un fallo de storage no afecta el ciclo.
func (e *Engine) markOpportunity(ctx context.Context, marketID string, status domain.OpportunityStatus) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateOpportunityStatus(ctx, marketID, status); err != nil {
		slog.Warn("engine: storage error", "market", marketID, "err", err)
	}
}

func (e *Engine) hasOpenPosition(marketID string) bool {
	for _, pos := range e.book.Open() {
		if pos.MarketID == marketID {
			return true
		}
	}
	return false
}

// Snapshot devuelve el estado actual para la superficie de monitoreo.
// Solo lecturas: el dashboard nunca muta nada.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Balance:      e.ledger.Balance(),
		Deployed:     e.ledger.Deployed(),
		Available:    e.ledger.Available(),
		OpenCount:    e.book.OpenCount(),
		MaxOpen:      e.cfg.MaxOpen,
		ArmedTimers:  e.timer.Len(),
		PollInterval: e.cfg.PollInterval,
		LeadTime:     e.cfg.LeadTime,
		Executions:   e.executor.Stats(),
	}
}

// Snapshot es la vista read-only del estado del engine.
type Snapshot struct {
	Balance      float64
	Deployed     float64
	Available    float64
	OpenCount    int
	MaxOpen      int
	ArmedTimers  int
	PollInterval time.Duration
	LeadTime     time.Duration
	Executions   ExecStats
}

// Positions expone el book para la superficie de monitoreo.
func (e *Engine) Positions() (open, settled []domain.Position) {
	return e.book.Open(), e.book.Settled()
}

// PnL expone el resumen y el histórico de trades.
func (e *Engine) PnL() (domain.PnLSummary, []domain.TradeRecord) {
	return e.pnl.Summary(), e.pnl.History(50)
}
