package scanner

import (
	"sort"
	"strings"

	"github.com/alejandrodnm/settlebot/internal/domain"
)

// CategoryRule define el comportamiento de escaneo para una categoría.
type CategoryRule struct {
	// Enabled si false, la categoría no se escanea.
	Enabled bool
	// Priority ordena las categorías en el ciclo de escaneo (menor primero).
	Priority int
	// Keywords si no está vacío, la pregunta o el slug deben contener al
	// menos una de estas palabras (case-insensitive).
	Keywords []string
	// Exclude descarta mercados cuya pregunta o slug contenga alguna de
	// estas palabras.
	Exclude []string
}

// FilterConfig contiene las reglas de filtrado por categoría.
type FilterConfig struct {
	Rules map[domain.Category]CategoryRule
}

// DefaultFilterConfig devuelve las reglas de filtrado por defecto:
// crypto primero, "other" deshabilitada.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Rules: map[domain.Category]CategoryRule{
			domain.CategoryCrypto: {
				Enabled:  true,
				Priority: 1,
				Keywords: []string{"bitcoin", "btc", "ethereum", "eth", "crypto"},
			},
			domain.CategoryFed: {
				Enabled:  true,
				Priority: 2,
				Keywords: []string{"fed", "rate", "fomc", "powell"},
			},
			domain.CategoryRegulatory: {
				Enabled:  true,
				Priority: 3,
				Keywords: []string{"sec", "etf", "approval", "regulation"},
			},
			domain.CategoryEconomic: {
				Enabled:  true,
				Priority: 4,
				Keywords: []string{"inflation", "cpi", "gdp", "recession"},
			},
			domain.CategoryOther: {
				Enabled:  false,
				Priority: 5,
			},
		},
	}
}

// Filter decide qué categorías se escanean y qué mercados pasan.
type Filter struct {
	cfg FilterConfig
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// EnabledCategories devuelve las categorías habilitadas ordenadas por
// prioridad ascendente. Empates se resuelven por nombre para que el orden
// sea determinista.
func (f *Filter) EnabledCategories() []domain.Category {
	cats := make([]domain.Category, 0, len(f.cfg.Rules))
	for cat, rule := range f.cfg.Rules {
		if rule.Enabled {
			cats = append(cats, cat)
		}
	}
	sort.Slice(cats, func(i, j int) bool {
		pi, pj := f.cfg.Rules[cats[i]].Priority, f.cfg.Rules[cats[j]].Priority
		if pi != pj {
			return pi < pj
		}
		return cats[i] < cats[j]
	})
	return cats
}

// Allow devuelve true si el mercado pasa las reglas de su categoría.
func (f *Filter) Allow(m domain.Market) bool {
	rule, ok := f.cfg.Rules[m.Category]
	if !ok || !rule.Enabled {
		return false
	}

	text := strings.ToLower(m.Question + " " + m.Slug)
	for _, word := range rule.Exclude {
		if strings.Contains(text, strings.ToLower(word)) {
			return false
		}
	}
	if len(rule.Keywords) == 0 {
		return true
	}
	for _, word := range rule.Keywords {
		if strings.Contains(text, strings.ToLower(word)) {
			return true
		}
	}
	return false
}
