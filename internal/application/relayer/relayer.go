package relayer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
	"github.com/google/uuid"
)

// OpenMarkets lista los mercados on-chain que aún admiten resolución.
type OpenMarkets interface {
	FetchOpen(ctx context.Context) ([]domain.LedgerMarket, error)
}

// Resolver envía la resolución por oráculo de un mercado.
type Resolver interface {
	ResolveViaOracle(ctx context.Context, market string, outcomeIndex int) (string, error)
}

// Config contiene la configuración del relayer.
type Config struct {
	Interval time.Duration
	Workers  int // 0 = NumCPU
	Once     bool
}

// Relayer resuelve on-chain los mercados cuyo origen externo ya tiene ganador.
type Relayer struct {
	cfg      Config
	markets  OpenMarkets
	results  ports.ResolutionSource
	resolver Resolver
	notifier ports.RelayNotifier
}

// New crea un Relayer. notifier puede ser nil.
func New(cfg Config, markets OpenMarkets, results ports.ResolutionSource, resolver Resolver, notifier ports.RelayNotifier) *Relayer {
	return &Relayer{
		cfg:      cfg,
		markets:  markets,
		results:  results,
		resolver: resolver,
		notifier: notifier,
	}
}

// Run ejecuta pasadas hasta que el contexto se cancele.
// Con cfg.Once ejecuta una sola pasada y devuelve su error.
func (r *Relayer) Run(ctx context.Context) error {
	slog.Info("relayer starting",
		"interval", r.cfg.Interval,
		"once", r.cfg.Once,
		"workers", r.cfg.Workers,
	)

	if err := r.runPass(ctx); err != nil {
		slog.Error("relay pass failed", "err", err)
		if r.cfg.Once {
			return err
		}
	}

	if r.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("relayer stopped")
			return nil
		case <-ticker.C:
			if err := r.runPass(ctx); err != nil {
				slog.Error("relay pass failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta una pasada y devuelve un informe por mercado abierto.
func (r *Relayer) RunOnce(ctx context.Context) ([]domain.RelayReport, error) {
	markets, err := r.markets.FetchOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("relayer.RunOnce: list markets: %w", err)
	}
	return relayConcurrent(ctx, r, markets, r.cfg.Workers), nil
}

func (r *Relayer) runPass(ctx context.Context) error {
	start := time.Now()
	runID := uuid.NewString()

	reports, err := r.RunOnce(ctx)
	if err != nil {
		return err
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyRelay(ctx, reports); err != nil {
			slog.Warn("relay notifier error", "run_id", runID, "err", err)
		}
	}

	resolved, failed, live := count(reports)
	slog.Info("relay pass complete",
		"run_id", runID,
		"markets", len(reports),
		"resolved", resolved,
		"failed", failed,
		"live", live,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// relay procesa un mercado: consulta el resultado externo y, si lo hay, resuelve.
func (r *Relayer) relay(ctx context.Context, m domain.LedgerMarket) domain.RelayReport {
	rep := domain.RelayReport{
		Market:       m.Address,
		MarketID:     m.MarketID,
		PolymarketID: m.PolymarketID,
		Question:     m.Question,
		Status:       domain.RelayLive,
	}

	result, err := r.results.FetchMarketResult(ctx, m.PolymarketID)
	if err != nil {
		rep.Status = domain.RelayFailed
		rep.Err = fmt.Errorf("fetch result: %w", err)
		return rep
	}
	if !result.Resolved() {
		return rep
	}

	winner := *result.WinningOutcome
	if winner < 0 || winner >= m.OutcomeCount {
		rep.Status = domain.RelayFailed
		rep.Err = fmt.Errorf("winner %d outside %d outcomes: %w", winner, m.OutcomeCount, domain.ErrInvalidOutcome)
		return rep
	}

	tx, err := r.resolver.ResolveViaOracle(ctx, m.Address, winner)
	if err != nil {
		rep.Status = domain.RelayFailed
		rep.Err = fmt.Errorf("resolve: %w", err)
		return rep
	}

	slog.Info("market resolved via oracle",
		"market", m.Address,
		"polymarket_id", m.PolymarketID,
		"outcome", winner,
		"tx", tx,
	)
	rep.Status = domain.RelayResolved
	rep.TxID = tx
	return rep
}

func count(reports []domain.RelayReport) (resolved, failed, live int) {
	for _, rep := range reports {
		switch rep.Status {
		case domain.RelayResolved:
			resolved++
		case domain.RelayFailed:
			failed++
		default:
			live++
		}
	}
	return
}
