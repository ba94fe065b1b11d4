package aggregator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandrodnm/prophet/internal/adapters/storage"
	"github.com/alejandrodnm/prophet/internal/application/aggregator"
	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOnChain struct {
	records []domain.MarketRecord
	err     error
}

func (f fakeOnChain) FetchAll(context.Context) ([]domain.MarketRecord, error) {
	if f.err != nil {
		return []domain.MarketRecord{}, f.err
	}
	return f.records, nil
}

type fakeSource struct {
	records []domain.MarketRecord
	err     error
	queries []domain.TrendingQuery
}

func (f *fakeSource) FetchTrending(_ context.Context, q domain.TrendingQuery) ([]domain.MarketRecord, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return []domain.MarketRecord{}, f.err
	}
	return f.records, nil
}

type fakeRefresher struct {
	records []domain.MarketRecord
	err     error
	asked   [][]string
}

func (f *fakeRefresher) RefreshMarkets(_ context.Context, ids []string) ([]domain.MarketRecord, error) {
	f.asked = append(f.asked, ids)
	return f.records, f.err
}

func TestLoad_MergesAllSources(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveUserMarket(ctx, rec(100, domain.OriginLocal, "Will my team win the league?", day1)))
	require.NoError(t, store.SaveResolution(ctx, domain.Resolution{PredictionID: 5, OutcomeIndex: 0}))

	src := &fakeSource{records: []domain.MarketRecord{
		rec(5, domain.OriginExternal, "BTC up today? (dup)", day1),
		rec(9, domain.OriginExternal, "Will the Fed cut rates?", day1),
	}}
	chain := fakeOnChain{records: []domain.MarketRecord{rec(5, domain.OriginOnChain, "BTC up today?", day1)}}

	agg := aggregator.New(store, chain, src, 10)
	view, err := agg.Load(ctx, aggregator.ViewQuery{Category: "all", Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, aggregator.StatusOK, view.Status())
	assert.False(t, view.HadError())
	assert.ElementsMatch(t, []int64{100, 9}, ids(view.Records), "resolved id 5 excluded from live view")
	assert.Equal(t, 1, view.Local)
	assert.Equal(t, 1, view.OnChain)
	assert.Equal(t, 2, view.External)

	require.Len(t, src.queries, 1)
	assert.Equal(t, 50, src.queries[0].Limit)

	resolved, err := agg.Load(ctx, aggregator.ViewQuery{Category: "resolved"})
	require.NoError(t, err)
	require.Equal(t, []int64{5}, ids(resolved.Records))
	assert.Equal(t, "BTC up today?", resolved.Records[0].Question)
}

func TestLoad_DegradesFailedSources(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	src := &fakeSource{records: []domain.MarketRecord{rec(9, domain.OriginExternal, "Q", day1)}}
	chain := fakeOnChain{err: errors.New("rpc down")}

	view, err := aggregator.New(store, chain, src, 10).Load(ctx, aggregator.ViewQuery{})
	require.NoError(t, err)

	assert.Equal(t, []int64{9}, ids(view.Records))
	assert.True(t, view.HadError())
	assert.Equal(t, aggregator.StatusOK, view.Status())
}

func TestLoad_StatusDistinguishesNoDataFromFetchError(t *testing.T) {
	ctx := context.Background()

	empty, err := aggregator.New(storage.NewMemoryStore(), fakeOnChain{}, &fakeSource{}, 10).
		Load(ctx, aggregator.ViewQuery{})
	require.NoError(t, err)
	assert.Equal(t, aggregator.StatusNoData, empty.Status())

	failing := &fakeSource{err: domain.ErrSourceUnavailable}
	broken, err := aggregator.New(storage.NewMemoryStore(), fakeOnChain{err: errors.New("x")}, failing, 10).
		Load(ctx, aggregator.ViewQuery{})
	require.NoError(t, err)
	assert.Equal(t, aggregator.StatusFetchError, broken.Status())
	assert.Len(t, broken.Errors, 2)
	assert.ErrorIs(t, errors.Join(broken.Errors...), domain.ErrSourceUnavailable)
}

func TestLoad_NilSourcesAreSkipped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveUserMarket(ctx, rec(1, domain.OriginLocal, "Q", day1)))

	view, err := aggregator.New(store, nil, nil, 10).Load(ctx, aggregator.ViewQuery{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(view.Records))
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := aggregator.New(storage.NewMemoryStore(), nil, &fakeSource{}, 10).Load(ctx, aggregator.ViewQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveResolution(ctx, domain.Resolution{PredictionID: 9, OutcomeIndex: 1}))
	src := &fakeSource{records: []domain.MarketRecord{rec(9, domain.OriginExternal, "Q", day1)}}
	agg := aggregator.New(store, nil, src, 10)

	m, err := agg.Find(ctx, 9, 50)
	require.NoError(t, err)
	assert.True(t, m.Resolved)

	_, err = agg.Find(ctx, 404, 50)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFind_OutsideTrendingPage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveResolution(ctx, domain.Resolution{PredictionID: 777, OutcomeIndex: 1}))
	src := &fakeSource{records: []domain.MarketRecord{rec(9, domain.OriginExternal, "Q", day1)}}

	t.Run("found by id with overlay", func(t *testing.T) {
		ref := &fakeRefresher{records: []domain.MarketRecord{rec(777, domain.OriginExternal, "Long tail market?", day1)}}
		agg := aggregator.New(store, nil, src, 10).WithRefresher(ref)

		m, err := agg.Find(ctx, 777, 50)
		require.NoError(t, err)
		assert.Equal(t, int64(777), m.ID)
		assert.True(t, m.Resolved)
		require.NotNil(t, m.WinningOutcome)
		assert.Equal(t, 1, *m.WinningOutcome)
		assert.Equal(t, [][]string{{"777"}}, ref.asked)
	})

	t.Run("page hit skips refresh", func(t *testing.T) {
		ref := &fakeRefresher{}
		agg := aggregator.New(store, nil, src, 10).WithRefresher(ref)

		_, err := agg.Find(ctx, 9, 50)
		require.NoError(t, err)
		assert.Empty(t, ref.asked)
	})

	t.Run("refresh miss is not found", func(t *testing.T) {
		agg := aggregator.New(store, nil, src, 10).WithRefresher(&fakeRefresher{})
		_, err := agg.Find(ctx, 404, 50)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("refresh failure is reported as degraded", func(t *testing.T) {
		ref := &fakeRefresher{err: errors.New("gamma down")}
		agg := aggregator.New(store, nil, src, 10).WithRefresher(ref)

		_, err := agg.Find(ctx, 404, 50)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorContains(t, err, "gamma down")
	})
}
