package ports

import (
	"context"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// RelayNotifier recibe el informe de cada pasada del relayer.
type RelayNotifier interface {
	NotifyRelay(ctx context.Context, reports []domain.RelayReport) error
}
