package pricewatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
)

// OddsRefresher vuelve a leer mercados externos por id.
type OddsRefresher interface {
	RefreshMarkets(ctx context.Context, ids []string) ([]domain.MarketRecord, error)
}

// Watcher sondea precios y cuotas mientras el contexto que lo posee siga vivo.
// Un sondeo fallido se registra y se reintenta en el siguiente tick.
type Watcher struct {
	feed ports.PriceFeed
	odds OddsRefresher // opcional
}

// New crea un Watcher. odds puede ser nil.
func New(feed ports.PriceFeed, odds OddsRefresher) *Watcher {
	return &Watcher{feed: feed, odds: odds}
}

// Watch consulta el precio de asset ahora y cada interval, y entrega cada
// cotización a fn. Bloquea hasta que ctx se cancela; tras volver no hay
// más llamadas a fn.
func (w *Watcher) Watch(ctx context.Context, asset domain.Asset, interval time.Duration, fn func(domain.PricePoint)) {
	poll(ctx, interval, func(ctx context.Context) {
		p, err := w.feed.LatestPrice(ctx, asset)
		if err != nil {
			slog.Debug("price poll failed", "asset", asset, "err", err)
			return
		}
		fn(p)
	})
}

// WatchMarkets arranca un sondeo por cada mercado con activo cripto reconocido
// y espera a que todos terminen. fn puede llamarse desde varias goroutines.
func (w *Watcher) WatchMarkets(ctx context.Context, markets []domain.MarketRecord, interval time.Duration, fn func(domain.MarketRecord, domain.PricePoint)) {
	var wg sync.WaitGroup
	for _, m := range markets {
		asset := domain.DetectAsset(m.Question)
		if asset == domain.AssetNone {
			continue
		}
		wg.Add(1)
		go func(m domain.MarketRecord) {
			defer wg.Done()
			w.Watch(ctx, asset, interval, func(p domain.PricePoint) { fn(m, p) })
		}(m)
	}
	wg.Wait()
}

// WatchOdds refresca las cuotas de los mercados externos ids cada interval.
func (w *Watcher) WatchOdds(ctx context.Context, ids []string, interval time.Duration, fn func([]domain.MarketRecord)) {
	if w.odds == nil || len(ids) == 0 {
		return
	}
	poll(ctx, interval, func(ctx context.Context) {
		records, err := w.odds.RefreshMarkets(ctx, ids)
		if err != nil {
			slog.Debug("odds refresh failed", "markets", len(ids), "err", err)
		}
		if len(records) > 0 {
			fn(records)
		}
	})
}

// poll ejecuta tick inmediatamente y luego en cada intervalo hasta que ctx termina.
func poll(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	if ctx.Err() != nil {
		return
	}
	tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			tick(ctx)
		}
	}
}
