package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/alejandrodnm/prophet/internal/ports"
	"golang.org/x/sync/errgroup"
)

// OnChainSource lista los mercados del ledger ya mapeados a MarketRecord.
type OnChainSource interface {
	FetchAll(ctx context.Context) ([]domain.MarketRecord, error)
}

// Refresher relee mercados externos por id, fuera de la página de tendencias.
type Refresher interface {
	RefreshMarkets(ctx context.Context, ids []string) ([]domain.MarketRecord, error)
}

// Status distingue "no hay mercados" de "no se pudieron cargar".
type Status string

const (
	StatusOK         Status = "ok"
	StatusNoData     Status = "no_data"
	StatusFetchError Status = "fetch_error"
)

// ViewQuery describe la vista pedida.
type ViewQuery struct {
	Category string
	Search   string
	Sort     SortKey
	Limit    int    // tamaño de la página externa
	Tag      string // tag_slug opcional de la fuente externa
}

// View es el resultado de una carga: registros filtrados y ordenados,
// sus buckets de display y los errores de fuente degradados.
type View struct {
	Records []domain.MarketRecord
	Buckets Buckets
	Errors  []error

	Local    int
	OnChain  int
	External int
}

// HadError es true si alguna fuente falló y se degradó a vacío.
func (v View) HadError() bool {
	return len(v.Errors) > 0
}

// Status devuelve FetchError solo si la vista está vacía y hubo fallos.
func (v View) Status() Status {
	switch {
	case len(v.Records) > 0:
		return StatusOK
	case v.HadError():
		return StatusFetchError
	default:
		return StatusNoData
	}
}

// Aggregator carga las tres fuentes en paralelo y las reconcilia.
type Aggregator struct {
	store       ports.LocalStore
	onChain     OnChainSource
	external    ports.MarketSource
	refresher   Refresher // opcional, usado por Find
	bucketLimit int
}

// New crea un Aggregator. onChain o external pueden ser nil (fuente desactivada).
func New(store ports.LocalStore, onChain OnChainSource, external ports.MarketSource, bucketLimit int) *Aggregator {
	return &Aggregator{
		store:       store,
		onChain:     onChain,
		external:    external,
		bucketLimit: bucketLimit,
	}
}

// WithRefresher activa la búsqueda por id cuando Find no encuentra el
// mercado en la página externa.
func (a *Aggregator) WithRefresher(r Refresher) *Aggregator {
	a.refresher = r
	return a
}

// Load hace fetch de todas las fuentes, espera a que terminen y devuelve la vista.
// Los fallos de fuente nunca abortan: se registran en View.Errors.
func (a *Aggregator) Load(ctx context.Context, q ViewQuery) (View, error) {
	start := time.Now()

	src, err := a.fetch(ctx, q)
	if err != nil {
		return View{}, fmt.Errorf("aggregator.Load: %w", err)
	}

	merged := Merge(src.local, src.onChain, src.external, src.resolutions)
	view := View{
		Records:  Sort(Filter(merged, q.Category, q.Search), q.Sort),
		Errors:   src.errs,
		Local:    len(src.local),
		OnChain:  len(src.onChain),
		External: len(src.external),
	}
	view.Buckets = Split(view.Records, a.bucketLimit)

	slog.Debug("view loaded",
		"local", view.Local,
		"onchain", view.OnChain,
		"external", view.External,
		"merged", len(merged),
		"shown", len(view.Records),
		"status", view.Status(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return view, nil
}

// Find busca un mercado por id en el merge completo (vivos y resueltos).
// Si no aparece y hay Refresher, lo pide directamente por id a la fuente externa.
func (a *Aggregator) Find(ctx context.Context, id int64, limit int) (domain.MarketRecord, error) {
	src, err := a.fetch(ctx, ViewQuery{Limit: limit})
	if err != nil {
		return domain.MarketRecord{}, fmt.Errorf("aggregator.Find: %w", err)
	}
	for _, m := range Merge(src.local, src.onChain, src.external, src.resolutions) {
		if m.ID == id {
			return m, nil
		}
	}

	if a.refresher != nil {
		m, ok, err := a.refresh(ctx, id, src.resolutions)
		if err != nil {
			src.errs = append(src.errs, err)
		}
		if ok {
			return m, nil
		}
	}

	if len(src.errs) > 0 {
		return domain.MarketRecord{}, fmt.Errorf("aggregator.Find: market %d: %w (sources degraded: %v)",
			id, domain.ErrNotFound, errors.Join(src.errs...))
	}
	return domain.MarketRecord{}, fmt.Errorf("aggregator.Find: market %d: %w", id, domain.ErrNotFound)
}

// refresh pide id a la fuente externa y le aplica el overlay de resoluciones.
func (a *Aggregator) refresh(ctx context.Context, id int64, resolutions []domain.Resolution) (domain.MarketRecord, bool, error) {
	records, err := a.refresher.RefreshMarkets(ctx, []string{strconv.FormatInt(id, 10)})
	if err != nil {
		slog.Warn("market refresh failed", "market_id", id, "err", err)
		return domain.MarketRecord{}, false, fmt.Errorf("refresh: %w", err)
	}
	byID := make(map[int64]domain.Resolution, len(resolutions))
	for _, r := range resolutions {
		byID[r.PredictionID] = r
	}
	for _, m := range records {
		if m.ID == id {
			slog.Debug("market found by id outside trending page", "market_id", id)
			return applyResolution(m, byID), true, nil
		}
	}
	return domain.MarketRecord{}, false, nil
}

type sources struct {
	local, onChain, external []domain.MarketRecord
	resolutions              []domain.Resolution
	errs                     []error
}

// fetch lanza las lecturas en paralelo y las une. Cada fallo deja su
// contribución vacía y se añade a errs. Solo devuelve error si ctx se canceló.
func (a *Aggregator) fetch(ctx context.Context, q ViewQuery) (sources, error) {
	var (
		src                  sources
		localErr, onChainErr error
		externalErr, resErr  error
	)

	var g errgroup.Group
	g.Go(func() error {
		src.local, localErr = a.store.ListUserMarkets(ctx)
		return nil
	})
	g.Go(func() error {
		src.resolutions, resErr = a.store.ListResolutions(ctx)
		return nil
	})
	if a.onChain != nil {
		g.Go(func() error {
			src.onChain, onChainErr = a.onChain.FetchAll(ctx)
			return nil
		})
	}
	if a.external != nil {
		g.Go(func() error {
			src.external, externalErr = a.external.FetchTrending(ctx, domain.TrendingQuery{
				Limit:     q.Limit,
				SortField: domain.SortByVolume,
				Tag:       q.Tag,
			})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return sources{}, err
	}

	for _, s := range []struct {
		name string
		err  error
	}{
		{"local", localErr},
		{"resolutions", resErr},
		{"onchain", onChainErr},
		{"external", externalErr},
	} {
		if s.err == nil {
			continue
		}
		slog.Warn("market source degraded to empty", "source", s.name, "err", s.err)
		src.errs = append(src.errs, fmt.Errorf("%s: %w", s.name, s.err))
	}
	if localErr != nil {
		src.local = nil
	}
	if resErr != nil {
		src.resolutions = nil
	}
	if onChainErr != nil {
		src.onChain = nil
	}
	return src, nil
}
