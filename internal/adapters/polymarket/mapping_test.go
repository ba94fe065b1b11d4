package polymarket_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchFixture(t *testing.T, body string) []domain.MarketRecord {
	t.Helper()
	srv := httptest.NewServer(serveJSON(body))
	defer srv.Close()

	records, err := newTestClient(srv).FetchTrending(context.Background(), domain.TrendingQuery{})
	require.NoError(t, err)
	return records
}

func TestMapping_StringifiedFields(t *testing.T) {
	records := fetchFixture(t, `[{
		"id": "900", "title": "Bitcoin above 100k?", "slug": "bitcoin-above-100k",
		"markets": [{
			"id": "12345",
			"question": "Will Bitcoin close above $100,000?",
			"outcomes": "[\"Yes\", \"No\"]",
			"outcomePrices": "[\"0.62\", \"0.38\"]",
			"volume": "250000",
			"endDate": "2026-03-01T12:00:00Z"
		}]
	}]`)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, int64(12345), r.ID)
	assert.Equal(t, "12345", r.PolymarketID)
	assert.Equal(t, domain.OriginExternal, r.Origin)
	assert.Equal(t, domain.CategoryCrypto, r.Category)
	assert.Equal(t, []string{"Yes", "No"}, r.Outcomes)
	assert.Equal(t, []float64{155000, 95000}, r.Totals)
	assert.InDelta(t, 250000.0, r.TotalLiquidity, 1e-9)
	assert.True(t, r.IsHot)
	assert.False(t, r.IsOnChain)
	assert.True(t, r.NeedsLazyInit())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), r.EndTime)
}

func TestMapping_MalformedFieldsUseDefaults(t *testing.T) {
	records := fetchFixture(t, `[{
		"id": "1", "title": "Will it snow?", "slug": "snow", "volume": 1000,
		"markets": [{"id": "77", "outcomes": "not-json", "outcomePrices": "[broken"}]
	}]`)

	require.Len(t, records, 1)
	assert.Equal(t, []string{"YES", "NO"}, records[0].Outcomes)
	assert.Equal(t, []float64{500, 500}, records[0].Totals, "volumen del evento × 0.5")
	assert.False(t, records[0].IsHot)
	assert.Equal(t, domain.CategoryNews, records[0].Category)
}

func TestMapping_SkipsDeadAndUnidentifiable(t *testing.T) {
	records := fetchFixture(t, `[
		{"id": "1", "markets": [{"id": "10", "outcomePrices": ["0.995", "0.005"]}]},
		{"id": "2", "markets": [{"id": "11", "outcomePrices": ["0.005", "0.995"]}]},
		{"id": "abc", "markets": [{"id": "not-a-number", "outcomePrices": ["0.5", "0.5"]}]},
		{"id": "3", "markets": []},
		{"id": "4", "markets": [{"id": "", "outcomePrices": ["0.3", "0.7"]}]}
	]`)

	require.Len(t, records, 1)
	assert.Equal(t, int64(4), records[0].ID, "sin id de mercado se usa el id del evento")
	assert.Equal(t, "4", records[0].PolymarketID)
}

func TestMapping_SportsLabels(t *testing.T) {
	records := fetchFixture(t, `[
		{"id": "1", "title": "Lakers vs. Celtics", "slug": "nba-lakers-celtics",
		 "markets": [{"id": "21", "outcomes": ["Yes", "No"], "outcomePrices": ["0.55", "0.45"]}]},
		{"id": "2", "title": "Will Arsenal beat Chelsea?", "slug": "epl",
		 "markets": [{"id": "22", "outcomes": ["Yes", "No"], "outcomePrices": ["0.55", "0.45"]}]},
		{"id": "3", "title": "Over/Under 2.5 goals", "slug": "epl-goals",
		 "markets": [{"id": "23", "outcomes": ["Over", "Under"], "outcomePrices": ["0.55", "0.45"]}]}
	]`)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"Lakers", "Celtics"}, records[0].Outcomes)
	assert.Equal(t, domain.CategorySports, records[0].Category)
	assert.Equal(t, []string{"Arsenal", "Chelsea"}, records[1].Outcomes)
	assert.Equal(t, []string{"Over", "Under"}, records[2].Outcomes)
}

func TestMapping_MultiOutcomeKeepsAlignment(t *testing.T) {
	records := fetchFixture(t, `[{"id": "1", "title": "Who wins the award?", "markets": [{
		"id": "31", "outcomes": ["A", "B", "C"], "outcomePrices": ["0.2", "0.3", "0.5"], "volume": 100
	}]}]`)

	require.Len(t, records, 1)
	assert.Len(t, records[0].Totals, len(records[0].Outcomes))
	assert.Equal(t, []float64{20, 30, 50}, records[0].Totals)
}
