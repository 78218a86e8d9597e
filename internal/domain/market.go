package domain

import "time"

// Market representa un mercado de predicción binario en Polymarket.
type Market struct {
	ID       string // market id de Gamma
	Slug     string
	Question string
	Category Category // derivada de los tags de Gamma
	EndDate  time.Time
	Tokens   [2]Token
	Active   bool
	Closed   bool
}

// Token es uno de los dos lados del mercado (YES/NO).
type Token struct {
	TokenID string
	Outcome string // "Yes" | "No"
}

// YesToken devuelve el token YES del mercado.
func (m Market) YesToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "Yes" {
			return t
		}
	}
	return m.Tokens[0]
}

// NoToken devuelve el token NO del mercado.
func (m Market) NoToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "No" {
			return t
		}
	}
	return m.Tokens[1]
}

// SecondsToClose devuelve los segundos hasta el cierre del mercado.
// Devuelve 0 si EndDate no está definido o ya pasó.
func (m Market) SecondsToClose() float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	s := time.Until(m.EndDate).Seconds()
	if s < 0 {
		return 0
	}
	return s
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del market ID como fallback.
func TruncateQuestion(question, marketID string, maxLen int) string {
	q := question
	if q == "" {
		if len(marketID) > 20 {
			q = marketID[:20] + "..."
		} else {
			q = marketID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
