// Package scanner detecta mercados cuyo token ganador cotiza dentro de la
// banda de settlement: precio alto, cierre cercano, y un edge pequeño pero
// casi seguro si el token efectivamente gana.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/alejandrodnm/settlebot/internal/ports"
)

// Config contiene la configuración del scanner.
type Config struct {
	// MinThreshold y MaxThreshold definen la banda de precios (inclusive)
	// dentro de la cual un token se considera candidato.
	MinThreshold float64
	MaxThreshold float64
	Filter       FilterConfig
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		MinThreshold: 0.985,
		MaxThreshold: 1.00,
		Filter:       DefaultFilterConfig(),
	}
}

// Scanner evalúa mercados contra la banda de precios y produce oportunidades.
type Scanner struct {
	cfg     Config
	markets ports.MarketProvider
	quotes  ports.QuoteProvider
	filter  *Filter
	now     func() time.Time
}

// New crea un Scanner con las dependencias inyectadas.
func New(cfg Config, markets ports.MarketProvider, quotes ports.QuoteProvider) *Scanner {
	return &Scanner{
		cfg:     cfg,
		markets: markets,
		quotes:  quotes,
		filter:  NewFilter(cfg.Filter),
		now:     time.Now,
	}
}

// Scan recorre las categorías habilitadas en orden de prioridad y devuelve
// todas las oportunidades detectadas. Un fallo en una categoría o en un
// mercado individual se loguea y no aborta el resto del escaneo.
func (s *Scanner) Scan(ctx context.Context) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for _, cat := range s.filter.EnabledCategories() {
		markets, err := s.markets.FetchMarkets(ctx, cat)
		if err != nil {
			slog.Warn("scanner: fetch markets failed", "category", cat.String(), "err", err)
			continue
		}
		for _, m := range markets {
			if !s.filter.Allow(m) {
				continue
			}
			opp, ok, err := s.Evaluate(ctx, m)
			if err != nil {
				slog.Debug("scanner: evaluate failed", "market", m.Slug, "err", err)
				continue
			}
			if ok {
				opps = append(opps, opp)
			}
		}
	}
	if ctx.Err() != nil {
		return opps, fmt.Errorf("scanner.Scan: %w", ctx.Err())
	}
	return opps, nil
}

// Evaluate comprueba si alguno de los dos tokens del mercado cotiza dentro
// de la banda. Devuelve ok=false si el mercado no califica; error solo si
// las quotes del mercado no se pudieron leer.
func (s *Scanner) Evaluate(ctx context.Context, m domain.Market) (domain.Opportunity, bool, error) {
	if m.Closed || !m.Active {
		return domain.Opportunity{}, false, nil
	}

	now := s.now()
	secondsToClose := m.EndDate.Sub(now).Seconds()
	if secondsToClose <= 0 {
		return domain.Opportunity{}, false, nil
	}

	yes, no := m.YesToken(), m.NoToken()
	winner, price, ok, err := s.winningSide(ctx, yes.TokenID, no.TokenID)
	if err != nil {
		return domain.Opportunity{}, false, fmt.Errorf("scanner.Evaluate: market %s: %w", m.ID, err)
	}
	if !ok {
		return domain.Opportunity{}, false, nil
	}

	opp := domain.Opportunity{
		MarketID:       m.ID,
		Slug:           m.Slug,
		Question:       m.Question,
		Category:       m.Category,
		TokenIDYes:     yes.TokenID,
		TokenIDNo:      no.TokenID,
		WinningTokenID: winner,
		Price:          price,
		EdgePercent:    (1.00 - price) * 100,
		SecondsToClose: secondsToClose,
		CloseTime:      m.EndDate,
		DetectedAt:     now,
		Status:         domain.OpportunityDetected,
	}

	slog.Info("scanner: opportunity detected",
		"market", m.Slug,
		"price", fmt.Sprintf("%.3f", price),
		"edge", fmt.Sprintf("%.2f%%", opp.EdgePercent),
		"closes_in", time.Duration(secondsToClose*float64(time.Second)).Round(time.Second),
	)
	return opp, true, nil
}

// winningSide devuelve el token cuyo precio cae dentro de la banda. Precios
// en cero se tratan como book sin liquidez y se descartan.
func (s *Scanner) winningSide(ctx context.Context, yesID, noID string) (tokenID string, price float64, ok bool, err error) {
	yesPrice, err := s.quotes.Price(ctx, yesID)
	if err != nil {
		return "", 0, false, fmt.Errorf("quote yes token: %w", err)
	}
	if s.inBand(yesPrice) {
		return yesID, yesPrice, true, nil
	}

	noPrice, err := s.quotes.Price(ctx, noID)
	if err != nil {
		return "", 0, false, fmt.Errorf("quote no token: %w", err)
	}
	if s.inBand(noPrice) {
		return noID, noPrice, true, nil
	}
	return "", 0, false, nil
}

func (s *Scanner) inBand(price float64) bool {
	return price > 0 && price >= s.cfg.MinThreshold && price <= s.cfg.MaxThreshold
}

// BestOpportunities devuelve las top-n oportunidades ordenadas por edge
// descendente. El sort es estable: a igual edge gana la detectada primero,
// que es la que decide prioridad de capital cuando quedan pocos slots.
func BestOpportunities(opps []domain.Opportunity, n int) []domain.Opportunity {
	ranked := make([]domain.Opportunity, len(opps))
	copy(ranked, opps)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EdgePercent > ranked[j].EdgePercent
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
