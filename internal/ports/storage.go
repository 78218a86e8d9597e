package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
)

// Storage persiste el histórico append-only de oportunidades, posiciones y
// trades para auditoría. El estado de decisión vivo (balances, timers) es
// in-memory.
type Storage interface {
	// SaveOpportunity registra una oportunidad armada, con status DETECTED.
	SaveOpportunity(ctx context.Context, opp domain.Opportunity) error

	// UpdateOpportunityStatus transiciona la oportunidad más reciente del
	// mercado dado.
	UpdateOpportunityStatus(ctx context.Context, marketID string, status domain.OpportunityStatus) error

	// SavePosition persiste una posición recién abierta.
	SavePosition(ctx context.Context, pos domain.Position) error

	// MarkPositionSettled registra el settlement de una posición.
	MarkPositionSettled(ctx context.Context, positionID string, settlementPrice, pnl float64, settledAt time.Time) error

	// MarkPositionFailed registra una posición fallida.
	MarkPositionFailed(ctx context.Context, positionID string) error

	// SaveTrade persiste un trade cerrado.
	SaveTrade(ctx context.Context, trade domain.TradeRecord) error

	// GetPositions devuelve las posiciones con el status dado, más recientes primero.
	GetPositions(ctx context.Context, status domain.PositionStatus) ([]domain.Position, error)

	// GetRecentTrades devuelve los últimos trades cerrados.
	GetRecentTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
