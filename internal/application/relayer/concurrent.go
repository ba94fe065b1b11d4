package relayer

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// relayConcurrent procesa los mercados con un worker pool.
// Los mercados sin id externo no se encolan. Los informes salen en el
// orden de entrada, independientemente de qué worker termine antes.
func relayConcurrent(ctx context.Context, r *Relayer, markets []domain.LedgerMarket, workers int) []domain.RelayReport {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type work struct {
		pos    int
		market domain.LedgerMarket
	}
	type result struct {
		pos    int
		report domain.RelayReport
	}

	workCh := make(chan work, len(markets))
	resultCh := make(chan result, len(markets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				resultCh <- result{pos: w.pos, report: r.relay(ctx, w.market)}
			}
		}()
	}

	queued := 0
	for _, m := range markets {
		if m.PolymarketID == "" {
			slog.Debug("market has no external id, skipping", "market", m.Address)
			continue
		}
		workCh <- work{pos: queued, market: m}
		queued++
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	reports := make([]domain.RelayReport, queued)
	for res := range resultCh {
		reports[res.pos] = res.report
	}

	slog.Debug("concurrent relay complete",
		"markets", len(markets),
		"queued", queued,
		"workers", workers,
	)
	return reports
}
