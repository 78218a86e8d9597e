package ports

import (
	"context"

	"github.com/alejandrodnm/settlebot/internal/domain"
)

// Notifier presenta las oportunidades detectadas al usuario.
type Notifier interface {
	// Notify muestra las oportunidades ordenadas por edge.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, opportunities []domain.Opportunity) error
}
