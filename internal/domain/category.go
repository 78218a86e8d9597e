package domain

import "strings"

// Category clasifica un mercado según sus tags de Gamma. Solo se usa para
// toggles de escaneo y orden de prioridad entre categorías, nunca para la
// decisión de trade en sí.
type Category string

const (
	CategoryCrypto     Category = "crypto"
	CategoryFed        Category = "fed"
	CategoryRegulatory Category = "regulatory"
	CategoryEconomic   Category = "economic"
	CategoryOther      Category = "other"
)

// Categories lista todas las categorías conocidas en orden de declaración.
func Categories() []Category {
	return []Category{
		CategoryCrypto,
		CategoryFed,
		CategoryRegulatory,
		CategoryEconomic,
		CategoryOther,
	}
}

// CategoryFromTags deriva la categoría a partir de los tags del mercado.
// El primer tag que matchee gana; sin tags reconocibles → CategoryOther.
func CategoryFromTags(tags []string) Category {
	for _, tag := range tags {
		label := strings.ToLower(tag)
		switch {
		case strings.Contains(label, "crypto"):
			return CategoryCrypto
		case strings.Contains(label, "fed"):
			return CategoryFed
		case strings.Contains(label, "regulatory"), strings.Contains(label, "sec"):
			return CategoryRegulatory
		case strings.Contains(label, "economic"):
			return CategoryEconomic
		}
	}
	return CategoryOther
}

func (c Category) String() string {
	return string(c)
}
