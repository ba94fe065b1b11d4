package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

const (
	DefaultRPCURL = "https://api.devnet.solana.com"

	// RPC público de devnet: ~100 req/10s por IP, usamos el 60%.
	rpcRatePerSec = 6

	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 2 * time.Second
)

var errNoSigner = errors.New("no signer keypair configured")

// ClientConfig parametriza el Client. Signer y Oracle son opcionales:
// sin ellos el client solo puede leer.
type ClientConfig struct {
	RPCURL         string
	Program        Program
	Signer         sol.PrivateKey
	Oracle         sol.PrivateKey
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Client implementa ports.Ledger contra el programa de mercados vía JSON-RPC.
type Client struct {
	rpc            *rpc.Client
	program        Program
	signer         sol.PrivateKey
	oracle         sol.PrivateKey
	limiter        *rate.Limiter
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// NewClient crea un Client a partir de cfg.
func NewClient(cfg ClientConfig) *Client {
	if cfg.RPCURL == "" {
		cfg.RPCURL = DefaultRPCURL
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Client{
		rpc:            rpc.New(cfg.RPCURL),
		program:        cfg.Program,
		signer:         cfg.Signer,
		oracle:         cfg.Oracle,
		limiter:        rate.NewLimiter(rpcRatePerSec, 5),
		confirmTimeout: cfg.ConfirmTimeout,
		pollInterval:   cfg.PollInterval,
	}
}

// LoadKeypair lee un keypair en formato solana-keygen (JSON con 64 bytes).
func LoadKeypair(path string) (sol.PrivateKey, error) {
	key, err := sol.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("solana.LoadKeypair: %q: %w", path, err)
	}
	return key, nil
}

// SignerAddress devuelve la dirección del signer, o "" si no hay.
func (c *Client) SignerAddress() string {
	if len(c.signer) == 0 {
		return ""
	}
	return c.signer.PublicKey().String()
}

// --- lectura ---

// ListMarkets lee todas las cuentas del programa y decodifica las de tipo Market.
// No filtra por estado: resueltos y pausados también se devuelven.
func (c *Client) ListMarkets(ctx context.Context) ([]domain.LedgerMarket, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("solana.ListMarkets: rate limiter: %w", err)
	}
	accounts, err := c.rpc.GetProgramAccounts(ctx, c.program.ID)
	if err != nil {
		return nil, fmt.Errorf("solana.ListMarkets: %w", err)
	}

	markets := make([]domain.LedgerMarket, 0, len(accounts))
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		m, err := decodeMarket(acc.Account.Data.GetBinary())
		if errors.Is(err, errNotMarket) {
			continue
		}
		if err != nil {
			slog.Debug("skipping undecodable market account",
				"address", acc.Pubkey.String(),
				"err", err,
			)
			continue
		}
		markets = append(markets, m.toDomain(acc.Pubkey.String()))
	}

	slog.Debug("program accounts listed",
		"accounts", len(accounts),
		"markets", len(markets),
	)
	return markets, nil
}

// AccountExists devuelve true si hay una cuenta en address.
func (c *Client) AccountExists(ctx context.Context, address string) (bool, error) {
	pk, err := sol.PublicKeyFromBase58(address)
	if err != nil {
		return false, fmt.Errorf("solana.AccountExists: %q: %w", address, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("solana.AccountExists: rate limiter: %w", err)
	}
	res, err := c.rpc.GetAccountInfo(ctx, pk)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("solana.AccountExists: %w", err)
	}
	return res != nil && res.Value != nil, nil
}

// TokenBalance suma el saldo de todas las cuentas de token de owner para el mint.
func (c *Client) TokenBalance(ctx context.Context, owner string) (float64, error) {
	pk, err := sol.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("solana.TokenBalance: owner %q: %w", owner, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("solana.TokenBalance: rate limiter: %w", err)
	}

	res, err := c.rpc.GetTokenAccountsByOwner(ctx, pk,
		&rpc.GetTokenAccountsConfig{Mint: c.program.Mint.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: sol.EncodingBase64},
	)
	if err != nil {
		return 0, fmt.Errorf("solana.TokenBalance: %w", err)
	}
	if res == nil {
		return 0, nil
	}

	var total uint64
	for _, acc := range res.Value {
		if acc == nil || acc.Account.Data == nil {
			continue
		}
		amount, err := tokenAmount(acc.Account.Data.GetBinary())
		if err != nil {
			return 0, fmt.Errorf("solana.TokenBalance: %s: %w", acc.Pubkey, err)
		}
		total += amount
	}
	return c.program.FromBaseUnits(total), nil
}

// DeriveMarketAccounts delega en Program.
func (c *Client) DeriveMarketAccounts(marketID uint64) (domain.MarketAccounts, error) {
	return c.program.DeriveMarketAccounts(marketID)
}

// DeriveStakeAccounts delega en Program.
func (c *Client) DeriveStakeAccounts(market, wallet string) (domain.StakeAccounts, error) {
	return c.program.DeriveStakeAccounts(market, wallet)
}

// --- escritura ---

// InitializeMarket crea el mercado, su vault y lo firma con el signer.
func (c *Client) InitializeMarket(ctx context.Context, req domain.InitMarketRequest) (string, error) {
	if len(c.signer) == 0 {
		return "", fmt.Errorf("solana.InitializeMarket: %w", errNoSigner)
	}
	if n := len(req.Outcomes); n == 0 || n > domain.MaxOutcomes {
		return "", fmt.Errorf("solana.InitializeMarket: outcome count %d out of range", n)
	}

	accs, err := c.program.DeriveMarketAccounts(req.MarketID)
	if err != nil {
		return "", fmt.Errorf("solana.InitializeMarket: %w", err)
	}

	args := initMarketArgs{
		MarketID:     req.MarketID,
		EndTime:      req.EndTime.Unix(),
		Question:     req.Question,
		OutcomeCount: uint8(len(req.Outcomes)),
		MinBet:       c.program.ToBaseUnits(req.MinBet),
		MaxBet:       c.program.ToBaseUnits(req.MaxBet),
		MetadataURL:  req.MetadataURL,
		PolymarketID: req.PolymarketID,
	}
	copy(args.OutcomeNames[:], req.Outcomes)
	if req.OracleKey != "" {
		k, err := sol.PublicKeyFromBase58(req.OracleKey)
		if err != nil {
			return "", fmt.Errorf("solana.InitializeMarket: oracle key: %w", err)
		}
		args.OracleKey = &k
	}

	data, err := encodeInitializeMarket(args)
	if err != nil {
		return "", fmt.Errorf("solana.InitializeMarket: encode: %w", err)
	}

	authority := c.signer.PublicKey()
	ix := sol.NewInstruction(c.program.ID, sol.AccountMetaSlice{
		sol.Meta(sol.MustPublicKeyFromBase58(accs.Market)).WRITE(),
		sol.Meta(sol.MustPublicKeyFromBase58(accs.Config)),
		sol.Meta(authority).WRITE().SIGNER(),
		sol.Meta(sol.MustPublicKeyFromBase58(accs.Vault)).WRITE(),
		sol.Meta(c.program.Mint),
		sol.Meta(sol.SystemProgramID),
		sol.Meta(sol.TokenProgramID),
		sol.Meta(sol.SysVarRentPubkey),
	}, data)

	sig, err := c.send(ctx, c.signer, ix)
	if err != nil {
		if isAccountInUse(err) {
			return "", fmt.Errorf("solana.InitializeMarket: %s: %w", accs.Market, domain.ErrAccountExists)
		}
		return "", fmt.Errorf("solana.InitializeMarket: %w", err)
	}

	slog.Info("market initialized on-chain",
		"market", accs.Market,
		"market_id", req.MarketID,
		"tx", sig,
	)
	return sig, nil
}

// PlaceStake envía place_vote firmado por la wallet del signer.
func (c *Client) PlaceStake(ctx context.Context, req domain.StakeRequest) (string, error) {
	if len(c.signer) == 0 {
		return "", fmt.Errorf("solana.PlaceStake: %w", errNoSigner)
	}
	user := c.signer.PublicKey()
	if req.Wallet != user.String() {
		return "", fmt.Errorf("solana.PlaceStake: wallet %s is not the configured signer %s", req.Wallet, user)
	}
	if req.OutcomeIndex < 0 || req.OutcomeIndex >= domain.MaxOutcomes {
		return "", fmt.Errorf("solana.PlaceStake: outcome index %d out of range", req.OutcomeIndex)
	}

	accs, err := c.program.DeriveStakeAccounts(req.Market, req.Wallet)
	if err != nil {
		return "", fmt.Errorf("solana.PlaceStake: %w", err)
	}
	data, err := encodePlaceVote(c.program.ToBaseUnits(req.Amount), uint8(req.OutcomeIndex))
	if err != nil {
		return "", fmt.Errorf("solana.PlaceStake: encode: %w", err)
	}

	ix := sol.NewInstruction(c.program.ID, sol.AccountMetaSlice{
		sol.Meta(sol.MustPublicKeyFromBase58(accs.Market)).WRITE(),
		sol.Meta(sol.MustPublicKeyFromBase58(accs.VoteRecord)).WRITE(),
		sol.Meta(user).WRITE().SIGNER(),
		sol.Meta(sol.MustPublicKeyFromBase58(accs.UserToken)).WRITE(),
		sol.Meta(sol.MustPublicKeyFromBase58(accs.Vault)).WRITE(),
		sol.Meta(sol.TokenProgramID),
		sol.Meta(sol.SystemProgramID),
	}, data)

	sig, err := c.send(ctx, c.signer, ix)
	if err != nil {
		return "", fmt.Errorf("solana.PlaceStake: %w", err)
	}
	return sig, nil
}

// ResolveViaOracle envía resolve_via_oracle firmado por la clave del oráculo.
func (c *Client) ResolveViaOracle(ctx context.Context, market string, outcomeIndex int) (string, error) {
	if len(c.oracle) == 0 {
		return "", fmt.Errorf("solana.ResolveViaOracle: no oracle keypair configured")
	}
	if outcomeIndex < 0 || outcomeIndex >= domain.MaxOutcomes {
		return "", fmt.Errorf("solana.ResolveViaOracle: outcome index %d out of range", outcomeIndex)
	}
	m, err := sol.PublicKeyFromBase58(market)
	if err != nil {
		return "", fmt.Errorf("solana.ResolveViaOracle: market %q: %w", market, err)
	}
	data, err := encodeResolveViaOracle(uint8(outcomeIndex))
	if err != nil {
		return "", fmt.Errorf("solana.ResolveViaOracle: encode: %w", err)
	}

	oracle := c.oracle.PublicKey()
	ix := sol.NewInstruction(c.program.ID, sol.AccountMetaSlice{
		sol.Meta(m).WRITE(),
		sol.Meta(oracle).SIGNER(),
		sol.Meta(oracle),
	}, data)

	sig, err := c.send(ctx, c.oracle, ix)
	if err != nil {
		return "", fmt.Errorf("solana.ResolveViaOracle: %w", err)
	}
	return sig, nil
}

// send firma con payer, envía y espera confirmación.
func (c *Client) send(ctx context.Context, payer sol.PrivateKey, ixs ...sol.Instruction) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := sol.NewTransaction(ixs, bh.Value.Blockhash, sol.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key sol.PublicKey) *sol.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	if err := c.confirm(ctx, sig); err != nil {
		return "", err
	}
	return sig.String(), nil
}

// confirm espera a que la firma llegue a confirmed/finalized o falle.
func (c *Client) confirm(ctx context.Context, sig sol.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			slog.Debug("signature status poll failed", "tx", sig.String(), "err", err)
		} else if len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// isAccountInUse detecta el rechazo del system program al crear una cuenta existente.
func isAccountInUse(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already in use")
}
