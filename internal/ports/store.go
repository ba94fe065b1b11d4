package ports

import (
	"context"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// LocalStore persiste mercados de usuario y los overrides locales
// (votos, resoluciones, cierres de admin). Una instancia por proceso.
type LocalStore interface {
	// Mercados de usuario
	SaveUserMarket(ctx context.Context, m domain.MarketRecord) error
	ListUserMarkets(ctx context.Context) ([]domain.MarketRecord, error)
	ClearUserMarkets(ctx context.Context) error

	// Votos: upsert por (PredictionID, WalletAddress)
	UpsertVote(ctx context.Context, v domain.Vote) error
	GetVote(ctx context.Context, predictionID int64, wallet string) (domain.Vote, error)
	ListVotes(ctx context.Context, predictionID int64) ([]domain.Vote, error)
	ListAllVotes(ctx context.Context) ([]domain.Vote, error)
	ClearVotes(ctx context.Context) error

	// Resoluciones: una por PredictionID
	SaveResolution(ctx context.Context, r domain.Resolution) error
	GetResolution(ctx context.Context, predictionID int64) (domain.Resolution, error)
	ListResolutions(ctx context.Context) ([]domain.Resolution, error)
	DeleteResolution(ctx context.Context, predictionID int64) error

	// Cierres manuales de admin
	SaveOutcome(ctx context.Context, o domain.PredictionOutcome) error
	GetOutcome(ctx context.Context, predictionID int64) (domain.PredictionOutcome, error)
	ListOutcomes(ctx context.Context) ([]domain.PredictionOutcome, error)
	DeleteOutcome(ctx context.Context, predictionID int64) error

	Close() error
}
