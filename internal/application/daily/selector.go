package daily

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
)

// Config controla el escaneo de mercados diarios.
type Config struct {
	PageSize  int
	MaxPages  int     // cota del número de páginas escaneadas
	MinVolume float64 // volumen total mínimo
	Window    time.Duration
}

// DefaultConfig devuelve 5 páginas de 100, volumen ≥ 100 y ventana de 24h.
func DefaultConfig() Config {
	return Config{
		PageSize:  100,
		MaxPages:  5,
		MinVolume: 100,
		Window:    24 * time.Hour,
	}
}

// Selector elige los mercados que terminan dentro de la ventana.
// Cada llamada hace fetches nuevos: no cachea entre invocaciones.
type Selector struct {
	source ports.MarketSource
	cfg    Config
	now    func() time.Time
}

// New crea un Selector. Los campos a cero de cfg usan DefaultConfig.
func New(source ports.MarketSource, cfg Config) *Selector {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.MinVolume <= 0 {
		cfg.MinVolume = def.MinVolume
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	return &Selector{source: source, cfg: cfg, now: time.Now}
}

// WithClock fija el reloj (tests).
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

// FetchDaily devuelve hasta n mercados ordenados por volumen descendente.
// Si el escaneo no llega a n, completa con trending sin filtro de fecha.
// El error, si lo hay, acompaña a un resultado parcial usable.
func (s *Selector) FetchDaily(ctx context.Context, n int) ([]domain.MarketRecord, error) {
	if n <= 0 {
		return []domain.MarketRecord{}, nil
	}

	now := s.now()
	window := s.cfg.Window.Hours()
	seen := make(map[int64]bool)
	collected := make([]domain.MarketRecord, 0, n)
	var errs []error

	pages := 0
	for page := 0; page < s.cfg.MaxPages && len(collected) < n; page++ {
		records, err := s.source.FetchTrending(ctx, domain.TrendingQuery{
			Limit:     s.cfg.PageSize,
			Offset:    page * s.cfg.PageSize,
			SortField: domain.SortByEndDate,
			Ascending: true,
		})
		pages++
		if err != nil {
			errs = append(errs, err)
			break
		}
		for _, m := range records {
			if seen[m.ID] {
				continue
			}
			h := m.HoursUntilEnd(now)
			if h <= 0 || h > window || m.TotalLiquidity < s.cfg.MinVolume {
				continue
			}
			seen[m.ID] = true
			collected = append(collected, m)
		}
		if len(records) < s.cfg.PageSize {
			break
		}
	}

	qualifying := len(collected)
	if len(collected) < n {
		records, err := s.source.FetchTrending(ctx, domain.TrendingQuery{
			Limit:     s.cfg.PageSize,
			SortField: domain.SortByVolume,
		})
		if err != nil {
			errs = append(errs, err)
		}
		for _, m := range records {
			if len(collected) >= n {
				break
			}
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			collected = append(collected, m)
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].TotalLiquidity > collected[j].TotalLiquidity
	})
	if len(collected) > n {
		collected = collected[:n]
	}

	slog.Debug("daily markets selected",
		"requested", n,
		"pages", pages,
		"qualifying", qualifying,
		"backfilled", len(collected)-min(qualifying, len(collected)),
	)

	if len(errs) > 0 {
		return collected, fmt.Errorf("daily.FetchDaily: %w", errors.Join(errs...))
	}
	return collected, nil
}
