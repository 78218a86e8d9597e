package polymarket

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado de Gamma. Los campos clobTokenIds y outcomes
// vienen como strings JSON anidados ("[\"123\",\"456\"]"), no como arrays.
type gammaMarket struct {
	ID           string       `json:"id"`
	ConditionID  string       `json:"conditionId"`
	Question     string       `json:"question"`
	Slug         string       `json:"slug"`
	EndDateISO   string       `json:"endDateIso"`
	EndDate      string       `json:"endDate"`
	ClobTokenIDs string       `json:"clobTokenIds"`
	Outcomes     string       `json:"outcomes"`
	Active       bool         `json:"active"`
	Closed       bool         `json:"closed"`
	Events       []gammaEvent `json:"events"`
}

// gammaEvent agrupa mercados relacionados; solo nos interesan sus tags.
type gammaEvent struct {
	Tags []gammaTag `json:"tags"`
}

// gammaTag es una etiqueta de categorización de Gamma.
type gammaTag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// --- CLOB API ---

// priceResponse es la respuesta de GET /price. El precio viene como string.
type priceResponse struct {
	Price string `json:"price"`
}
