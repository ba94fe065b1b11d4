package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/prophet/internal/domain"
)

const (
	gammaEventsPath  = "/events"
	gammaMarketsPath = "/markets"
	refreshBatchSize = 20
)

// FetchTrending devuelve una página de mercados activos de Gamma.
// Siempre devuelve un slice non-nil; si todos los reintentos fallan el error
// envuelve domain.ErrSourceUnavailable y el slice está vacío.
func (c *Client) FetchTrending(ctx context.Context, q domain.TrendingQuery) ([]domain.MarketRecord, error) {
	target := c.gammaBase + gammaEventsPath + "?" + trendingParams(q).Encode()

	var events []gammaEvent
	err := c.withRetry(ctx, "events", func() error {
		events = nil
		return c.get(ctx, target, &events)
	})
	if err != nil {
		return []domain.MarketRecord{}, fmt.Errorf("polymarket.FetchTrending: %w: %v", domain.ErrSourceUnavailable, err)
	}

	records := mapEvents(events)
	slog.Debug("gamma events fetched",
		"events", len(events),
		"records", len(records),
		"offset", q.Offset,
		"tag", q.Tag,
	)
	return records, nil
}

// RefreshMarkets vuelve a pedir los mercados dados por id de Gamma en lotes
// de 20. Los lotes que fallan se omiten.
func (c *Client) RefreshMarkets(ctx context.Context, ids []string) ([]domain.MarketRecord, error) {
	out := make([]domain.MarketRecord, 0, len(ids))

	for i := 0; i < len(ids); i += refreshBatchSize {
		end := min(i+refreshBatchSize, len(ids))
		batch := ids[i:end]

		params := url.Values{}
		for _, id := range batch {
			params.Add("id", id)
		}
		target := c.gammaBase + gammaMarketsPath + "?" + params.Encode()

		var markets []gammaMarket
		if err := c.get(ctx, target, &markets); err != nil {
			slog.Debug("gamma refresh batch failed, skipping",
				"batch", fmt.Sprintf("%d-%d", i, end),
				"err", err,
			)
			continue
		}
		for _, gm := range markets {
			if rec, ok := mapMarket(gammaEvent{}, gm, false); ok {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func trendingParams(q domain.TrendingQuery) url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	order := q.SortField
	if order == "" {
		order = domain.SortByVolume
	}

	v := url.Values{}
	v.Set("active", "true")
	v.Set("closed", "false")
	v.Set("order", order)
	v.Set("ascending", strconv.FormatBool(q.Ascending))
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	if q.Tag != "" {
		v.Set("tag_slug", q.Tag)
	}
	return v
}
