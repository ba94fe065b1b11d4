package ports

import (
	"context"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// MarketLister lee todas las cuentas de mercado del programa.
type MarketLister interface {
	ListMarkets(ctx context.Context) ([]domain.LedgerMarket, error)
}

// TokenBalances consulta el saldo de la wallet en el mint configurado.
type TokenBalances interface {
	// TokenBalance suma todas las cuentas de token de owner para el mint.
	// Sin cuentas el saldo es 0 y no es un error.
	TokenBalance(ctx context.Context, owner string) (float64, error)
}

// Ledger es la interfaz RPC tipada contra el programa de mercados.
type Ledger interface {
	MarketLister
	TokenBalances

	AccountExists(ctx context.Context, address string) (bool, error)
	DeriveMarketAccounts(marketID uint64) (domain.MarketAccounts, error)
	DeriveStakeAccounts(market, wallet string) (domain.StakeAccounts, error)

	// InitializeMarket devuelve la firma confirmada.
	// Si la cuenta ya existe devuelve un error que envuelve domain.ErrAccountExists.
	InitializeMarket(ctx context.Context, req domain.InitMarketRequest) (string, error)
	PlaceStake(ctx context.Context, req domain.StakeRequest) (string, error)
	ResolveViaOracle(ctx context.Context, market string, outcomeIndex int) (string, error)
}
