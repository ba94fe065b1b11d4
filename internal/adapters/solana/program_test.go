package solana_test

import (
	"testing"

	"github.com/alejandrodnm/prophet/internal/adapters/solana"
	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultProgram(t *testing.T) solana.Program {
	t.Helper()
	p, err := solana.NewProgram(solana.DefaultProgramID, solana.DefaultMint, solana.DefaultDecimals)
	require.NoError(t, err)
	return p
}

func TestNewProgram_InvalidKeys(t *testing.T) {
	_, err := solana.NewProgram("not-base58!", solana.DefaultMint, 6)
	assert.Error(t, err)

	_, err = solana.NewProgram(solana.DefaultProgramID, "", 6)
	assert.Error(t, err)
}

func TestDeriveMarketAccounts_Deterministic(t *testing.T) {
	p := defaultProgram(t)

	a, err := p.DeriveMarketAccounts(12345)
	require.NoError(t, err)
	b, err := p.DeriveMarketAccounts(12345)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := p.DeriveMarketAccounts(12346)
	require.NoError(t, err)
	assert.NotEqual(t, a.Market, other.Market)
	assert.NotEqual(t, a.Vault, other.Vault)
	assert.Equal(t, a.Config, other.Config, "config PDA is global")

	assert.Equal(t, uint64(12345), a.MarketID)
	assert.NotEqual(t, a.Market, a.Vault)
}

func TestDeriveStakeAccounts(t *testing.T) {
	p := defaultProgram(t)
	accs, err := p.DeriveMarketAccounts(1)
	require.NoError(t, err)

	wallet := sol.NewWallet().PublicKey().String()
	stake, err := p.DeriveStakeAccounts(accs.Market, wallet)
	require.NoError(t, err)

	assert.Equal(t, accs.Market, stake.Market)
	assert.Equal(t, accs.Vault, stake.Vault, "stake vault matches the market's vault")

	ata, _, err := sol.FindAssociatedTokenAddress(sol.MustPublicKeyFromBase58(wallet), p.Mint)
	require.NoError(t, err)
	assert.Equal(t, ata.String(), stake.UserToken)

	other := sol.NewWallet().PublicKey().String()
	stake2, err := p.DeriveStakeAccounts(accs.Market, other)
	require.NoError(t, err)
	assert.NotEqual(t, stake.VoteRecord, stake2.VoteRecord)
}

func TestDeriveStakeAccounts_InvalidInput(t *testing.T) {
	p := defaultProgram(t)
	_, err := p.DeriveStakeAccounts("bad", sol.NewWallet().PublicKey().String())
	assert.Error(t, err)

	accs, err := p.DeriveMarketAccounts(1)
	require.NoError(t, err)
	_, err = p.DeriveStakeAccounts(accs.Market, "bad")
	assert.Error(t, err)
}

func TestBaseUnits(t *testing.T) {
	p := defaultProgram(t)

	assert.Equal(t, uint64(1_500_000), p.ToBaseUnits(1.5))
	assert.Equal(t, uint64(1), p.ToBaseUnits(0.000001))
	assert.Equal(t, uint64(0), p.ToBaseUnits(-3))
	assert.InDelta(t, 2.25, p.FromBaseUnits(2_250_000), 1e-9)
}
