package ports

import (
	"context"

	"github.com/alejandrodnm/settlebot/internal/domain"
)

// MarketProvider obtiene los mercados activos de una categoría desde Gamma.
type MarketProvider interface {
	// FetchMarkets devuelve los mercados activos (no cerrados) de la
	// categoría dada. Pagina automáticamente hasta obtener todos los
	// resultados.
	FetchMarkets(ctx context.Context, category domain.Category) ([]domain.Market, error)
}

// QuoteProvider obtiene precios actuales de tokens del CLOB.
type QuoteProvider interface {
	// Price devuelve el precio actual del token en escala 0.0–1.0.
	// Un precio 0 significa que el book no tiene liquidez.
	Price(ctx context.Context, tokenID string) (float64, error)
}
