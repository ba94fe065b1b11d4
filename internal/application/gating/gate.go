package gating

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
)

// Gate comprueba el saldo de token de una wallet. Ante cualquier fallo
// de RPC se cierra: saldo 0, sin acceso.
type Gate struct {
	balances ports.TokenBalances
}

// New crea un Gate.
func New(balances ports.TokenBalances) *Gate {
	return &Gate{balances: balances}
}

// Balance devuelve el saldo de wallet, o 0 si no se pudo consultar.
func (g *Gate) Balance(ctx context.Context, wallet string) float64 {
	bal, _ := g.balance(ctx, wallet)
	return bal
}

// balance distingue un saldo 0 leído de una lectura fallida.
func (g *Gate) balance(ctx context.Context, wallet string) (float64, bool) {
	if wallet == "" {
		return 0, false
	}
	bal, err := g.balances.TokenBalance(ctx, wallet)
	if err != nil {
		slog.Warn("token balance check failed, denying", "wallet", wallet, "err", err)
		return 0, false
	}
	return bal, true
}

// HasMinimumBalance es true solo si el saldo se pudo leer y llega a threshold.
// Una lectura fallida deniega aunque threshold sea 0.
func (g *Gate) HasMinimumBalance(ctx context.Context, wallet string, threshold float64) bool {
	bal, ok := g.balance(ctx, wallet)
	return ok && bal >= threshold
}

// Require devuelve ErrInsufficientBalance si wallet no llega a threshold
// o si su saldo no se pudo leer.
func (g *Gate) Require(ctx context.Context, wallet string, threshold float64) error {
	if wallet == "" {
		return domain.ErrWalletRequired
	}
	bal, ok := g.balance(ctx, wallet)
	if !ok {
		return fmt.Errorf("token balance unavailable: %w", domain.ErrInsufficientBalance)
	}
	if bal < threshold {
		return fmt.Errorf("need %.0f tokens, have %.4f: %w", threshold, bal, domain.ErrInsufficientBalance)
	}
	return nil
}
