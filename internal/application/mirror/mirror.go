package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
)

// Mirror expone las cuentas de mercado del ledger como MarketRecord.
type Mirror struct {
	lister   ports.MarketLister
	decimals uint8
}

// New crea un Mirror. decimals es la precisión del mint de apuestas.
func New(lister ports.MarketLister, decimals uint8) *Mirror {
	return &Mirror{lister: lister, decimals: decimals}
}

// FetchAll devuelve todos los mercados del programa, incluidos resueltos y pausados.
// Si el RPC falla devuelve un slice vacío junto al error.
func (m *Mirror) FetchAll(ctx context.Context) ([]domain.MarketRecord, error) {
	markets, err := m.lister.ListMarkets(ctx)
	if err != nil {
		slog.Warn("on-chain market listing failed", "err", err)
		return []domain.MarketRecord{}, fmt.Errorf("mirror.FetchAll: %w", err)
	}

	out := make([]domain.MarketRecord, 0, len(markets))
	for _, lm := range markets {
		out = append(out, m.toRecord(lm))
	}
	return out, nil
}

// FetchOpen devuelve solo los mercados que aceptan resolución (ni resueltos,
// ni pausados, ni cancelados).
func (m *Mirror) FetchOpen(ctx context.Context) ([]domain.LedgerMarket, error) {
	markets, err := m.lister.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("mirror.FetchOpen: %w", err)
	}
	open := make([]domain.LedgerMarket, 0, len(markets))
	for _, lm := range markets {
		if lm.Open() {
			open = append(open, lm)
		}
	}
	return open, nil
}

func (m *Mirror) toRecord(lm domain.LedgerMarket) domain.MarketRecord {
	n := lm.OutcomeCount
	if n < 0 || n > domain.MaxOutcomes {
		n = domain.MaxOutcomes
	}

	var outcomes []string
	var totals []float64
	if n > 0 {
		outcomes = make([]string, n)
		totals = make([]float64, n)
		for i := 0; i < n; i++ {
			outcomes[i] = outcomeName(lm.OutcomeNames[i], i, n)
			totals[i] = m.scale(lm.Totals[i])
		}
	}

	rec := domain.MarketRecord{
		ID:              int64(lm.MarketID & math.MaxInt64),
		Origin:          domain.OriginOnChain,
		Question:        lm.Question,
		Category:        domain.ClassifyCategory(lm.Question),
		EndTime:         lm.EndTime,
		Outcomes:        outcomes,
		Totals:          totals,
		TotalLiquidity:  m.scale(lm.TotalLiquidity),
		Resolved:        lm.Resolved,
		PolymarketID:    lm.PolymarketID,
		IsOnChain:       true,
		MarketPublicKey: lm.Address,
		Creator:         lm.Authority,
	}
	if lm.WinningOutcome != nil {
		w := *lm.WinningOutcome
		rec.WinningOutcome = &w
	}
	rec.Normalize()
	return rec
}

func (m *Mirror) scale(units uint64) float64 {
	return float64(units) / math.Pow10(int(m.decimals))
}

// outcomeName rellena los nombres vacíos: YES/NO en binarios, "Outcome N" en el resto.
func outcomeName(name string, i, n int) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if n == 2 {
		return [2]string{"YES", "NO"}[i]
	}
	return fmt.Sprintf("Outcome %d", i+1)
}
