package staking

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
	"github.com/google/uuid"
)

// lazyInitNamespace agrupa los ids deterministas de mercados externos.
var lazyInitNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://polymarket.com/market"))

// LazyMarketID deriva el market_id on-chain de un mercado externo.
// Es determinista: dos intentos sobre el mismo mercado apuntan a la misma PDA.
func LazyMarketID(polymarketID string) uint64 {
	id := uuid.NewSHA1(lazyInitNamespace, []byte(polymarketID))
	return binary.BigEndian.Uint64(id[:8]) & (1<<62 - 1)
}

// Config son los parámetros de los mercados creados al vuelo.
type Config struct {
	MinBet    float64
	MaxBet    float64
	OracleKey string // oráculo autorizado a resolver los mercados creados
}

// Receipt describe un stake confirmado.
type Receipt struct {
	TxID        string
	Market      string // dirección del mercado on-chain
	InitTxID    string // firma de initialize_market si hubo lazy init
	Initialized bool
	Vote        domain.Vote
}

// Orchestrator ejecuta el stake: validación, lazy init, place_vote y caché local.
// Los pasos son secuenciales y no se reintentan.
type Orchestrator struct {
	ledger ports.Ledger
	store  ports.LocalStore
	cfg    Config
	now    func() time.Time
}

// New crea un Orchestrator.
func New(ledger ports.Ledger, store ports.LocalStore, cfg Config) *Orchestrator {
	return &Orchestrator{ledger: ledger, store: store, cfg: cfg, now: time.Now}
}

// PlaceStake apuesta amount tokens de wallet al outcome outcomeIndex de market.
// Todos los errores son *domain.StakeError.
func (o *Orchestrator) PlaceStake(ctx context.Context, market domain.MarketRecord, outcomeIndex int, amount float64, wallet string) (Receipt, error) {
	if err := validate(market, outcomeIndex, amount, wallet); err != nil {
		return Receipt{}, &domain.StakeError{Kind: domain.StakeInvalidInput, Err: err}
	}

	var receipt Receipt
	target := market.MarketPublicKey
	if market.NeedsLazyInit() {
		addr, tx, err := o.ensureMarket(ctx, market)
		if err != nil {
			slog.Warn("lazy market init failed",
				"market_id", market.ID,
				"polymarket_id", market.PolymarketID,
				"err", err,
			)
			return Receipt{}, &domain.StakeError{Kind: domain.StakeInitializationFailed, Err: err}
		}
		target = addr
		receipt.InitTxID = tx
		receipt.Initialized = tx != ""
	}

	sig, err := o.ledger.PlaceStake(ctx, domain.StakeRequest{
		Market:       target,
		Wallet:       wallet,
		OutcomeIndex: outcomeIndex,
		Amount:       amount,
	})
	if err != nil {
		return Receipt{}, &domain.StakeError{Kind: domain.StakeTransactionFailed, Err: err}
	}

	vote := domain.Vote{
		PredictionID:    market.ID,
		WalletAddress:   wallet,
		OutcomeIndex:    outcomeIndex,
		Amount:          amount,
		Timestamp:       o.now().UTC(),
		MarketPublicKey: target,
		TxHash:          sig,
	}
	// El ledger es la fuente de verdad; un fallo de caché no invalida el stake.
	if err := o.store.UpsertVote(ctx, vote); err != nil {
		slog.Warn("vote cache write failed", "market_id", market.ID, "tx", sig, "err", err)
	}

	slog.Info("stake confirmed",
		"market_id", market.ID,
		"market", target,
		"outcome", outcomeIndex,
		"amount", amount,
		"tx", sig,
	)

	receipt.TxID = sig
	receipt.Market = target
	receipt.Vote = vote
	return receipt, nil
}

// HasVoted consulta la caché local; no es autoritativa.
func (o *Orchestrator) HasVoted(ctx context.Context, predictionID int64, wallet string) (domain.Vote, bool, error) {
	v, err := o.store.GetVote(ctx, predictionID, wallet)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Vote{}, false, nil
	}
	if err != nil {
		return domain.Vote{}, false, fmt.Errorf("staking.HasVoted: %w", err)
	}
	return v, true, nil
}

// ValidateInput comprueba wallet y amount sin tocar la red. Permite
// rechazar una entrada inválida antes de consultar saldo o mercados.
func ValidateInput(amount float64, wallet string) error {
	if err := validateInput(amount, wallet); err != nil {
		return &domain.StakeError{Kind: domain.StakeInvalidInput, Err: err}
	}
	return nil
}

func validateInput(amount float64, wallet string) error {
	if wallet == "" {
		return domain.ErrWalletRequired
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("amount must be a positive number, got %v", amount)
	}
	return nil
}

func validate(market domain.MarketRecord, outcomeIndex int, amount float64, wallet string) error {
	if err := validateInput(amount, wallet); err != nil {
		return err
	}
	if outcomeIndex < 0 || outcomeIndex >= len(market.Outcomes) || outcomeIndex >= domain.MaxOutcomes {
		return fmt.Errorf("outcome %d: %w", outcomeIndex, domain.ErrInvalidOutcome)
	}
	if market.Resolved {
		return domain.ErrMarketResolved
	}
	if !market.NeedsLazyInit() && market.MarketPublicKey == "" {
		return fmt.Errorf("market %d has no on-chain account", market.ID)
	}
	return nil
}

// ensureMarket crea la cuenta del mercado externo, o reutiliza la existente.
// Devuelve la dirección y la firma de creación ("" si ya existía).
func (o *Orchestrator) ensureMarket(ctx context.Context, market domain.MarketRecord) (string, string, error) {
	marketID := LazyMarketID(market.PolymarketID)
	accs, err := o.ledger.DeriveMarketAccounts(marketID)
	if err != nil {
		return "", "", fmt.Errorf("derive accounts: %w", err)
	}

	exists, err := o.ledger.AccountExists(ctx, accs.Market)
	if err != nil {
		return "", "", fmt.Errorf("check market account: %w", err)
	}
	if exists {
		slog.Debug("reusing lazily initialized market", "market", accs.Market, "polymarket_id", market.PolymarketID)
		return accs.Market, "", nil
	}

	tx, err := o.ledger.InitializeMarket(ctx, domain.InitMarketRequest{
		MarketID:     marketID,
		Question:     market.Question,
		EndTime:      market.EndTime,
		Outcomes:     market.Outcomes,
		MinBet:       o.cfg.MinBet,
		MaxBet:       o.cfg.MaxBet,
		PolymarketID: market.PolymarketID,
		OracleKey:    o.cfg.OracleKey,
	})
	if errors.Is(err, domain.ErrAccountExists) {
		return accs.Market, "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("initialize market: %w", err)
	}
	return accs.Market, tx, nil
}
