package ports

import (
	"context"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// MarketSource obtiene listados paginados de la fuente externa de mercados.
type MarketSource interface {
	// FetchTrending devuelve siempre un slice usable (posiblemente vacío).
	// El error solo es non-nil si todas las estrategias de transporte y
	// todos los reintentos fallaron; envuelve domain.ErrSourceUnavailable.
	FetchTrending(ctx context.Context, q domain.TrendingQuery) ([]domain.MarketRecord, error)
}

// ResolutionSource consulta el estado de resolución de un mercado externo.
type ResolutionSource interface {
	FetchMarketResult(ctx context.Context, polymarketID string) (domain.ExternalResult, error)
}
