package polymarket

import (
	"encoding/json"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.Market. Devuelve
// ok=false si el mercado no es binario o le faltan los token ids.
func mapGammaMarket(gm gammaMarket, requested domain.Category) (domain.Market, bool) {
	tokenIDs, err := parseStringArray(gm.ClobTokenIDs)
	if err != nil || len(tokenIDs) != 2 {
		return domain.Market{}, false
	}
	outcomes, err := parseStringArray(gm.Outcomes)
	if err != nil || len(outcomes) != 2 {
		return domain.Market{}, false
	}

	m := domain.Market{
		ID:       gm.ID,
		Slug:     gm.Slug,
		Question: gm.Question,
		Category: marketCategory(gm, requested),
		EndDate:  parseEndDate(gm),
		Active:   gm.Active,
		Closed:   gm.Closed,
	}
	for i := 0; i < 2; i++ {
		m.Tokens[i] = domain.Token{TokenID: tokenIDs[i], Outcome: outcomes[i]}
	}
	return m, true
}

// parseStringArray decodifica los arrays JSON anidados de Gamma
// ("[\"a\",\"b\"]" → []string{"a","b"}).
func parseStringArray(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// marketCategory usa la categoría pedida cuando el fetch ya filtró por tag;
// sin filtro, deriva la categoría de los tags del evento.
func marketCategory(gm gammaMarket, requested domain.Category) domain.Category {
	if _, tagged := categoryTagSlugs[requested]; tagged {
		return requested
	}
	var labels []string
	for _, ev := range gm.Events {
		for _, tag := range ev.Tags {
			labels = append(labels, tag.Label, tag.Slug)
		}
	}
	return domain.CategoryFromTags(labels)
}

// parseEndDate intenta los formatos de fecha que devuelve Gamma.
// Devuelve zero time si ninguno parsea.
func parseEndDate(gm gammaMarket) time.Time {
	for _, raw := range []string{gm.EndDateISO, gm.EndDate} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
