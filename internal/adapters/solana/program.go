package solana

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/alejandrodnm/prophet/internal/domain"
	sol "github.com/gagliardetto/solana-go"
)

const (
	DefaultProgramID = "DcNb3pYGVqo1AdMdJGycDpRPb6d1nPsg3z4x5T714YW"
	DefaultMint      = "6ZFUNyPDn1ycjhb3RbNAmtcVvwp6oL4Zn6GswnGupump"
	DefaultDecimals  = 6
)

var (
	seedMarket = []byte("market")
	seedVault  = []byte("vault")
	seedVote   = []byte("vote")
	seedConfig = []byte("config")

	marketDiscriminator = accountDiscriminator("Market")
)

// Program agrupa el id del programa y el mint de apuestas, y deriva
// todas las direcciones (PDA y cuentas de token) que usan las instrucciones.
type Program struct {
	ID       sol.PublicKey
	Mint     sol.PublicKey
	Decimals uint8
}

// NewProgram parsea las claves en base58.
func NewProgram(programID, mint string, decimals uint8) (Program, error) {
	id, err := sol.PublicKeyFromBase58(programID)
	if err != nil {
		return Program{}, fmt.Errorf("solana.NewProgram: program id %q: %w", programID, err)
	}
	m, err := sol.PublicKeyFromBase58(mint)
	if err != nil {
		return Program{}, fmt.Errorf("solana.NewProgram: mint %q: %w", mint, err)
	}
	return Program{ID: id, Mint: m, Decimals: decimals}, nil
}

// MarketAddress deriva la PDA ["market", market_id u64 LE].
func (p Program) MarketAddress(marketID uint64) (sol.PublicKey, error) {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], marketID)
	addr, _, err := sol.FindProgramAddress([][]byte{seedMarket, id[:]}, p.ID)
	return addr, err
}

// VaultAddress deriva la PDA ["vault", market].
func (p Program) VaultAddress(market sol.PublicKey) (sol.PublicKey, error) {
	addr, _, err := sol.FindProgramAddress([][]byte{seedVault, market.Bytes()}, p.ID)
	return addr, err
}

// VoteAddress deriva la PDA ["vote", market, user].
func (p Program) VoteAddress(market, user sol.PublicKey) (sol.PublicKey, error) {
	addr, _, err := sol.FindProgramAddress([][]byte{seedVote, market.Bytes(), user.Bytes()}, p.ID)
	return addr, err
}

// ConfigAddress deriva la PDA ["config"].
func (p Program) ConfigAddress() (sol.PublicKey, error) {
	addr, _, err := sol.FindProgramAddress([][]byte{seedConfig}, p.ID)
	return addr, err
}

// DeriveMarketAccounts calcula mercado, vault y config para un market_id.
func (p Program) DeriveMarketAccounts(marketID uint64) (domain.MarketAccounts, error) {
	market, err := p.MarketAddress(marketID)
	if err != nil {
		return domain.MarketAccounts{}, fmt.Errorf("solana.DeriveMarketAccounts: market: %w", err)
	}
	vault, err := p.VaultAddress(market)
	if err != nil {
		return domain.MarketAccounts{}, fmt.Errorf("solana.DeriveMarketAccounts: vault: %w", err)
	}
	config, err := p.ConfigAddress()
	if err != nil {
		return domain.MarketAccounts{}, fmt.Errorf("solana.DeriveMarketAccounts: config: %w", err)
	}
	return domain.MarketAccounts{
		MarketID: marketID,
		Market:   market.String(),
		Vault:    vault.String(),
		Config:   config.String(),
	}, nil
}

// DeriveStakeAccounts calcula el vote record, la cuenta de token del usuario
// (ATA del mint) y el vault del mercado.
func (p Program) DeriveStakeAccounts(market, wallet string) (domain.StakeAccounts, error) {
	m, err := sol.PublicKeyFromBase58(market)
	if err != nil {
		return domain.StakeAccounts{}, fmt.Errorf("solana.DeriveStakeAccounts: market %q: %w", market, err)
	}
	w, err := sol.PublicKeyFromBase58(wallet)
	if err != nil {
		return domain.StakeAccounts{}, fmt.Errorf("solana.DeriveStakeAccounts: wallet %q: %w", wallet, err)
	}
	vote, err := p.VoteAddress(m, w)
	if err != nil {
		return domain.StakeAccounts{}, fmt.Errorf("solana.DeriveStakeAccounts: vote: %w", err)
	}
	ata, _, err := sol.FindAssociatedTokenAddress(w, p.Mint)
	if err != nil {
		return domain.StakeAccounts{}, fmt.Errorf("solana.DeriveStakeAccounts: user token: %w", err)
	}
	vault, err := p.VaultAddress(m)
	if err != nil {
		return domain.StakeAccounts{}, fmt.Errorf("solana.DeriveStakeAccounts: vault: %w", err)
	}
	return domain.StakeAccounts{
		Market:     m.String(),
		VoteRecord: vote.String(),
		UserToken:  ata.String(),
		Vault:      vault.String(),
	}, nil
}

// ToBaseUnits convierte un importe en tokens a unidades base del mint.
func (p Program) ToBaseUnits(amount float64) uint64 {
	if amount <= 0 {
		return 0
	}
	return uint64(math.Round(amount * math.Pow10(int(p.Decimals))))
}

// FromBaseUnits convierte unidades base del mint a tokens.
func (p Program) FromBaseUnits(units uint64) float64 {
	return float64(units) / math.Pow10(int(p.Decimals))
}

// accountDiscriminator es sha256("account:<Name>")[:8].
func accountDiscriminator(name string) [8]byte {
	return discriminator("account:" + name)
}

// instructionDiscriminator es sha256("global:<name>")[:8].
func instructionDiscriminator(name string) [8]byte {
	return discriminator("global:" + name)
}

func discriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
