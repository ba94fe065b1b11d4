package ports

import (
	"context"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// PriceFeed devuelve la última cotización de un cripto-activo.
type PriceFeed interface {
	LatestPrice(ctx context.Context, asset domain.Asset) (domain.PricePoint, error)
}
