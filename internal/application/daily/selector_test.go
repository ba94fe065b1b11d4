package daily_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/prophet/internal/application/daily"
	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// pagedSource sirve byEnd paginado para las queries por endDate
// y trending entero para el resto.
type pagedSource struct {
	byEnd    []domain.MarketRecord
	trending []domain.MarketRecord
	err      error
	queries  []domain.TrendingQuery
}

func (s *pagedSource) FetchTrending(_ context.Context, q domain.TrendingQuery) ([]domain.MarketRecord, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return []domain.MarketRecord{}, s.err
	}
	if q.SortField != domain.SortByEndDate {
		return s.trending, nil
	}
	if q.Offset >= len(s.byEnd) {
		return []domain.MarketRecord{}, nil
	}
	end := min(q.Offset+q.Limit, len(s.byEnd))
	return s.byEnd[q.Offset:end], nil
}

func market(id int64, hours, volume float64) domain.MarketRecord {
	return domain.MarketRecord{
		ID:             id,
		Question:       "q",
		EndTime:        now.Add(time.Duration(hours * float64(time.Hour))),
		TotalLiquidity: volume,
		Outcomes:       []string{"YES", "NO"},
		Totals:         []float64{0, 0},
	}
}

func ids(records []domain.MarketRecord) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFetchDaily_TwoQualifyingPlusBackfill(t *testing.T) {
	var byEnd []domain.MarketRecord
	byEnd = append(byEnd, market(1, 3, 500), market(2, 20, 900))
	for i := int64(100); i < 150; i++ {
		// 50 no cualifican: expirados, fuera de ventana o poco volumen
		switch i % 3 {
		case 0:
			byEnd = append(byEnd, market(i, -1, 1000))
		case 1:
			byEnd = append(byEnd, market(i, 30, 1000))
		default:
			byEnd = append(byEnd, market(i, 5, 50))
		}
	}
	src := &pagedSource{
		byEnd:    byEnd,
		trending: []domain.MarketRecord{market(2, 20, 900), market(7, 100, 5000), market(8, 100, 4000)},
	}

	got, err := daily.New(src, daily.Config{PageSize: 10, MaxPages: 10}).
		WithClock(func() time.Time { return now }).
		FetchDaily(context.Background(), 3)
	require.NoError(t, err)

	// 2 cualifican + 1 de backfill (el 2 ya estaba), ordenados por volumen
	assert.Equal(t, []int64{7, 2, 1}, ids(got))
}

func TestFetchDaily_StopsPagingWhenEnough(t *testing.T) {
	var byEnd []domain.MarketRecord
	for i := int64(1); i <= 30; i++ {
		byEnd = append(byEnd, market(i, float64(i%20)+1, float64(i*10)+100))
	}
	src := &pagedSource{byEnd: byEnd}

	got, err := daily.New(src, daily.Config{PageSize: 10}).
		WithClock(func() time.Time { return now }).
		FetchDaily(context.Background(), 5)
	require.NoError(t, err)

	assert.Len(t, got, 5)
	require.Len(t, src.queries, 1, "first page already had enough")
	assert.Equal(t, domain.SortByEndDate, src.queries[0].SortField)
	assert.True(t, src.queries[0].Ascending)
	assert.Equal(t, []int64{10, 9, 8, 7, 6}, ids(got))
}

func TestFetchDaily_PageCap(t *testing.T) {
	var byEnd []domain.MarketRecord
	for i := int64(1); i <= 100; i++ {
		byEnd = append(byEnd, market(i, 48, 1000))
	}
	src := &pagedSource{byEnd: byEnd}

	got, err := daily.New(src, daily.Config{PageSize: 10, MaxPages: 3}).
		WithClock(func() time.Time { return now }).
		FetchDaily(context.Background(), 5)
	require.NoError(t, err)

	assert.Empty(t, got)
	// 3 páginas + 1 backfill
	require.Len(t, src.queries, 4)
	assert.Equal(t, 20, src.queries[2].Offset)
	assert.Equal(t, domain.SortByVolume, src.queries[3].SortField)
}

func TestFetchDaily_DedupAcrossPages(t *testing.T) {
	src := &pagedSource{byEnd: []domain.MarketRecord{
		market(1, 2, 200), market(1, 2, 200), market(2, 3, 300),
	}}

	got, err := daily.New(src, daily.Config{PageSize: 2}).
		WithClock(func() time.Time { return now }).
		FetchDaily(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(got))
}

func TestFetchDaily_WindowBoundary(t *testing.T) {
	src := &pagedSource{byEnd: []domain.MarketRecord{
		market(1, 24, 200), market(2, 24.01, 200), market(3, 0, 200),
	}}

	got, err := daily.New(src, daily.Config{}).
		WithClock(func() time.Time { return now }).
		FetchDaily(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestFetchDaily_SourceError(t *testing.T) {
	src := &pagedSource{err: domain.ErrSourceUnavailable}

	got, err := daily.New(src, daily.Config{}).FetchDaily(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFetchDaily_ZeroRequested(t *testing.T) {
	src := &pagedSource{}
	got, err := daily.New(src, daily.Config{}).FetchDaily(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, src.queries)
}
