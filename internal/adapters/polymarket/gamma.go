package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/settlebot/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	gammaMaxPages    = 20 // corte de seguridad contra paginación infinita
)

// categoryTagSlugs mapea categorías internas al tag_slug de Gamma. Las
// categorías sin entrada se piden sin filtro de tag y se clasifican después
// por sus propios tags.
var categoryTagSlugs = map[domain.Category]string{
	domain.CategoryCrypto:     "crypto",
	domain.CategoryFed:        "federal-reserve",
	domain.CategoryRegulatory: "regulation",
	domain.CategoryEconomic:   "economy",
}

// FetchMarkets devuelve los mercados activos de la categoría dada,
// ordenados por fecha de cierre ascendente. Pagina con limit/offset hasta
// agotar los resultados.
func (c *Client) FetchMarkets(ctx context.Context, category domain.Category) ([]domain.Market, error) {
	var all []domain.Market

	for page := 0; page < gammaMaxPages; page++ {
		q := url.Values{}
		q.Set("active", "true")
		q.Set("closed", "false")
		q.Set("order", "endDate")
		q.Set("ascending", "true")
		q.Set("limit", fmt.Sprintf("%d", gammaPageSize))
		q.Set("offset", fmt.Sprintf("%d", page*gammaPageSize))
		if slug, ok := categoryTagSlugs[category]; ok {
			q.Set("tag_slug", slug)
		}

		var resp gammaMarketsResponse
		u := c.gammaBase + gammaMarketsPath + "?" + q.Encode()
		if err := c.get(ctx, c.gammaLimiter, u, &resp); err != nil {
			return nil, fmt.Errorf("gamma.FetchMarkets: page %d: %w", page, err)
		}

		for _, gm := range resp {
			m, ok := mapGammaMarket(gm, category)
			if !ok {
				continue
			}
			all = append(all, m)
		}

		if len(resp) < gammaPageSize {
			break
		}
	}

	slog.Debug("gamma: markets fetched",
		"category", category.String(),
		"total", len(all),
	)
	return all, nil
}
