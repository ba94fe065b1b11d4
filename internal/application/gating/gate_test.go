package gating_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandrodnm/prophet/internal/application/gating"
	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/stretchr/testify/assert"
)

type fakeBalances struct {
	balance float64
	err     error
}

func (f fakeBalances) TokenBalance(context.Context, string) (float64, error) {
	return f.balance, f.err
}

func TestGate_Threshold(t *testing.T) {
	ctx := context.Background()
	g := gating.New(fakeBalances{balance: 1000})

	assert.True(t, g.HasMinimumBalance(ctx, "w", 1000))
	assert.False(t, g.HasMinimumBalance(ctx, "w", 1000.01))
	assert.InDelta(t, 1000.0, g.Balance(ctx, "w"), 1e-9)
	assert.NoError(t, g.Require(ctx, "w", 500))
}

func TestGate_NoAccountsMeansZero(t *testing.T) {
	ctx := context.Background()
	g := gating.New(fakeBalances{})

	assert.Zero(t, g.Balance(ctx, "w"))
	assert.False(t, g.HasMinimumBalance(ctx, "w", 1))
	assert.True(t, g.HasMinimumBalance(ctx, "w", 0))
}

func TestGate_FailsClosed(t *testing.T) {
	ctx := context.Background()
	g := gating.New(fakeBalances{balance: 1e9, err: errors.New("429 too many requests")})

	assert.NotPanics(t, func() {
		assert.False(t, g.HasMinimumBalance(ctx, "w", 1))
		assert.Zero(t, g.Balance(ctx, "w"))
	})
	assert.ErrorIs(t, g.Require(ctx, "w", 1), domain.ErrInsufficientBalance)

	// Un umbral 0 tampoco abre la puerta si el saldo no se pudo leer.
	assert.False(t, g.HasMinimumBalance(ctx, "w", 0))
	assert.False(t, g.HasMinimumBalance(ctx, "w", -1))
	assert.ErrorIs(t, g.Require(ctx, "w", 0), domain.ErrInsufficientBalance)
}

func TestGate_NoWallet(t *testing.T) {
	ctx := context.Background()
	g := gating.New(fakeBalances{balance: 5000})

	assert.False(t, g.HasMinimumBalance(ctx, "", 0))
	assert.ErrorIs(t, g.Require(ctx, "", 1), domain.ErrWalletRequired)
}
