package admin

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
	"github.com/google/uuid"
)

// Gate es el control de saldo que protege las acciones con coste.
type Gate interface {
	Require(ctx context.Context, wallet string, threshold float64) error
}

// Config son los umbrales de token y los límites de los mercados publicados.
type Config struct {
	CreateThreshold float64 // saldo mínimo para crear mercados
	ResolutionStake float64 // saldo mínimo para resolver con stake
	MinBet          float64
	MaxBet          float64
	OracleKey       string
}

// Draft es un mercado de usuario antes de guardarlo.
type Draft struct {
	Question string
	Category domain.Category
	EndTime  time.Time
	Outcomes []string
	Publish  bool // crear también la cuenta on-chain
}

// Service agrupa las acciones de usuario que mutan el estado local.
// A diferencia de las lecturas, sus errores llegan siempre al llamador.
type Service struct {
	store   ports.LocalStore
	results ports.ResolutionSource
	gate    Gate
	ledger  ports.Ledger // nil: sin publicación on-chain
	cfg     Config
	now     func() time.Time
}

// New crea un Service. ledger puede ser nil.
func New(store ports.LocalStore, results ports.ResolutionSource, gate Gate, ledger ports.Ledger, cfg Config) *Service {
	return &Service{
		store:   store,
		results: results,
		gate:    gate,
		ledger:  ledger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock sustituye el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ClosePrediction cierra manualmente market con el outcome dado. Outcome y
// resolución se guardan juntos: si la resolución falla se borra el outcome.
func (s *Service) ClosePrediction(ctx context.Context, market domain.MarketRecord, outcome int, admin string) error {
	if outcome < 0 || outcome >= len(market.Outcomes) || outcome >= domain.MaxOutcomes {
		return fmt.Errorf("admin.ClosePrediction: outcome %d: %w", outcome, domain.ErrInvalidOutcome)
	}
	id := market.ID
	now := s.now().UTC()
	if err := s.store.SaveOutcome(ctx, domain.PredictionOutcome{
		PredictionID: id,
		OutcomeIndex: outcome,
		ClosedAt:     now,
		ClosedBy:     admin,
	}); err != nil {
		return fmt.Errorf("admin.ClosePrediction: save outcome: %w", err)
	}
	if err := s.store.SaveResolution(ctx, domain.Resolution{
		PredictionID: id,
		OutcomeIndex: outcome,
		Timestamp:    now,
		Source:       domain.ResolvedByAdmin,
	}); err != nil {
		if delErr := s.store.DeleteOutcome(ctx, id); delErr != nil {
			slog.Error("outcome rollback failed", "market_id", id, "err", delErr)
		}
		return fmt.Errorf("admin.ClosePrediction: save resolution: %w", err)
	}
	slog.Info("prediction closed", "market_id", id, "outcome", outcome, "by", admin)
	return nil
}

// ReopenPrediction deshace un cierre. Reabrir un mercado abierto no es un error.
func (s *Service) ReopenPrediction(ctx context.Context, id int64) error {
	if err := s.store.DeleteOutcome(ctx, id); err != nil {
		return fmt.Errorf("admin.ReopenPrediction: delete outcome: %w", err)
	}
	if err := s.store.DeleteResolution(ctx, id); err != nil {
		return fmt.Errorf("admin.ReopenPrediction: delete resolution: %w", err)
	}
	slog.Info("prediction reopened", "market_id", id)
	return nil
}

// StakeResolve resuelve un mercado a mano. Exige ResolutionStake tokens en wallet.
func (s *Service) StakeResolve(ctx context.Context, market domain.MarketRecord, outcome int, wallet string) (domain.Resolution, error) {
	if market.Resolved {
		return domain.Resolution{}, fmt.Errorf("admin.StakeResolve: %d: %w", market.ID, domain.ErrMarketResolved)
	}
	if outcome < 0 || outcome >= len(market.Outcomes) {
		return domain.Resolution{}, fmt.Errorf("admin.StakeResolve: outcome %d: %w", outcome, domain.ErrInvalidOutcome)
	}
	if err := s.gate.Require(ctx, wallet, s.cfg.ResolutionStake); err != nil {
		return domain.Resolution{}, fmt.Errorf("admin.StakeResolve: %w", err)
	}

	res := domain.Resolution{
		PredictionID: market.ID,
		OutcomeIndex: outcome,
		Timestamp:    s.now().UTC(),
		StakedAmount: s.cfg.ResolutionStake,
		Source:       domain.ResolvedByStake,
	}
	if err := s.store.SaveResolution(ctx, res); err != nil {
		return domain.Resolution{}, fmt.Errorf("admin.StakeResolve: save: %w", err)
	}
	slog.Info("market resolved by stake", "market_id", market.ID, "outcome", outcome, "wallet", wallet)
	return res, nil
}

// CheckOracle consulta el resultado externo del mercado y, si ya hay ganador,
// lo guarda como resolución. Sin ganador devuelve ErrNotResolvable.
func (s *Service) CheckOracle(ctx context.Context, market domain.MarketRecord) (domain.Resolution, error) {
	if market.PolymarketID == "" {
		return domain.Resolution{}, fmt.Errorf("admin.CheckOracle: market %d has no external id: %w", market.ID, domain.ErrNotResolvable)
	}
	result, err := s.results.FetchMarketResult(ctx, market.PolymarketID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("admin.CheckOracle: %w", err)
	}
	if !result.Resolved() {
		return domain.Resolution{}, fmt.Errorf("admin.CheckOracle: %s: %w", market.PolymarketID, domain.ErrNotResolvable)
	}

	res := domain.Resolution{
		PredictionID: market.ID,
		OutcomeIndex: *result.WinningOutcome,
		Timestamp:    s.now().UTC(),
		Source:       domain.ResolvedByOracle,
	}
	if err := s.store.SaveResolution(ctx, res); err != nil {
		return domain.Resolution{}, fmt.Errorf("admin.CheckOracle: save: %w", err)
	}
	slog.Info("oracle result stored", "market_id", market.ID, "polymarket_id", market.PolymarketID, "outcome", res.OutcomeIndex)
	return res, nil
}

// CreateMarket guarda un mercado de usuario. Con Publish y un ledger
// configurado crea también la cuenta on-chain antes de guardarlo.
func (s *Service) CreateMarket(ctx context.Context, wallet string, d Draft) (domain.MarketRecord, error) {
	if err := s.validateDraft(d); err != nil {
		return domain.MarketRecord{}, fmt.Errorf("admin.CreateMarket: %w", err)
	}
	if err := s.gate.Require(ctx, wallet, s.cfg.CreateThreshold); err != nil {
		return domain.MarketRecord{}, fmt.Errorf("admin.CreateMarket: %w", err)
	}

	m := domain.MarketRecord{
		ID:        newMarketID(),
		Origin:    domain.OriginLocal,
		Question:  strings.TrimSpace(d.Question),
		Category:  d.Category,
		EndTime:   d.EndTime.UTC(),
		Outcomes:  append([]string(nil), d.Outcomes...),
		Creator:   wallet,
		CreatedAt: s.now().UTC(),
	}
	if m.Category == "" {
		m.Category = domain.ClassifyCategory(m.Question)
	}
	m.Normalize()

	if d.Publish {
		if s.ledger == nil {
			return domain.MarketRecord{}, errors.New("admin.CreateMarket: publish requested but no ledger configured")
		}
		addr, err := s.publish(ctx, m)
		if err != nil {
			return domain.MarketRecord{}, fmt.Errorf("admin.CreateMarket: publish: %w", err)
		}
		m.IsOnChain = true
		m.MarketPublicKey = addr
	}

	if err := s.store.SaveUserMarket(ctx, m); err != nil {
		return domain.MarketRecord{}, fmt.Errorf("admin.CreateMarket: save: %w", err)
	}
	slog.Info("user market created", "market_id", m.ID, "creator", wallet, "on_chain", m.IsOnChain)
	return m, nil
}

func (s *Service) validateDraft(d Draft) error {
	if strings.TrimSpace(d.Question) == "" {
		return errors.New("question is required")
	}
	if !d.EndTime.After(s.now()) {
		return fmt.Errorf("end time %s is not in the future", d.EndTime.Format(time.RFC3339))
	}
	if n := len(d.Outcomes); n != 0 && (n < 2 || n > domain.MaxOutcomes) {
		return fmt.Errorf("need between 2 and %d outcomes, got %d: %w", domain.MaxOutcomes, n, domain.ErrInvalidOutcome)
	}
	for _, o := range d.Outcomes {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("empty outcome name: %w", domain.ErrInvalidOutcome)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, m domain.MarketRecord) (string, error) {
	marketID := uint64(m.ID)
	accs, err := s.ledger.DeriveMarketAccounts(marketID)
	if err != nil {
		return "", err
	}
	tx, err := s.ledger.InitializeMarket(ctx, domain.InitMarketRequest{
		MarketID:  marketID,
		Question:  m.Question,
		EndTime:   m.EndTime,
		Outcomes:  m.Outcomes,
		MinBet:    s.cfg.MinBet,
		MaxBet:    s.cfg.MaxBet,
		OracleKey: s.cfg.OracleKey,
	})
	if err != nil {
		return "", err
	}
	slog.Debug("market account created", "market", accs.Market, "tx", tx)
	return accs.Market, nil
}

// newMarketID genera un id positivo de 62 bits. No colisiona en la práctica
// con los ids numéricos de la fuente externa, que son mucho menores.
func newMarketID() int64 {
	id := uuid.New()
	return int64(binary.BigEndian.Uint64(id[:8]) & (1<<62 - 1))
}
