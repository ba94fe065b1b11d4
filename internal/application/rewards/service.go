package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
)

// Service calcula repartos a partir de las resoluciones y votos guardados.
// Nunca escribe en el store.
type Service struct {
	store ports.LocalStore
	pool  float64
}

// New crea un Service con un pool fijo por mercado resuelto.
func New(store ports.LocalStore, pool float64) *Service {
	return &Service{store: store, pool: pool}
}

// Compute devuelve el reparto de un mercado. Sin resolución devuelve ErrNotFound.
func (s *Service) Compute(ctx context.Context, predictionID int64) (domain.RewardCalculation, error) {
	res, err := s.store.GetResolution(ctx, predictionID)
	if err != nil {
		return domain.RewardCalculation{}, fmt.Errorf("rewards.Compute: %w", err)
	}
	votes, err := s.store.ListVotes(ctx, predictionID)
	if err != nil {
		return domain.RewardCalculation{}, fmt.Errorf("rewards.Compute: votes: %w", err)
	}
	return domain.ComputeRewards(res, votes, s.pool), nil
}

// ComputeAll calcula el reparto de cada mercado resuelto.
func (s *Service) ComputeAll(ctx context.Context) ([]domain.RewardCalculation, error) {
	resolutions, err := s.store.ListResolutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards.ComputeAll: %w", err)
	}
	votes, err := s.store.ListAllVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards.ComputeAll: votes: %w", err)
	}

	byMarket := make(map[int64][]domain.Vote)
	for _, v := range votes {
		byMarket[v.PredictionID] = append(byMarket[v.PredictionID], v)
	}

	out := make([]domain.RewardCalculation, 0, len(resolutions))
	for _, r := range resolutions {
		out = append(out, domain.ComputeRewards(r, byMarket[r.PredictionID], s.pool))
	}
	return out, nil
}

// TotalForWallet suma lo que wallet ha ganado en todos los mercados resueltos.
func (s *Service) TotalForWallet(ctx context.Context, wallet string) (float64, error) {
	if wallet == "" {
		return 0, fmt.Errorf("rewards.TotalForWallet: %w", domain.ErrWalletRequired)
	}
	calcs, err := s.ComputeAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("rewards.TotalForWallet: %w", err)
	}
	var total float64
	for _, c := range calcs {
		total += c.RewardFor(wallet)
	}
	return total, nil
}

// IsNotResolved es true si err indica que el mercado aún no tiene resolución.
func IsNotResolved(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
