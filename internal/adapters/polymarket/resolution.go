package polymarket

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/prophet/internal/domain"
)

// Precio a partir del cual un outcome de un mercado cerrado se da por ganador
// cuando Gamma no informa winningOutcomeIndex.
const settledPrice = 0.95

// FetchMarketResult consulta el estado de resolución de un mercado de Gamma.
func (c *Client) FetchMarketResult(ctx context.Context, polymarketID string) (domain.ExternalResult, error) {
	target := c.gammaBase + gammaMarketsPath + "?" + url.Values{"id": {polymarketID}}.Encode()

	var markets []gammaMarket
	err := c.withRetry(ctx, "market-result", func() error {
		markets = nil
		return c.get(ctx, target, &markets)
	})
	if err != nil {
		return domain.ExternalResult{}, fmt.Errorf("polymarket.FetchMarketResult: %w: %v", domain.ErrSourceUnavailable, err)
	}
	if len(markets) == 0 {
		return domain.ExternalResult{}, fmt.Errorf("polymarket.FetchMarketResult: %s: %w", polymarketID, domain.ErrNotFound)
	}

	return mapResult(polymarketID, markets[0]), nil
}

func mapResult(polymarketID string, gm gammaMarket) domain.ExternalResult {
	res := domain.ExternalResult{
		PolymarketID: polymarketID,
		Closed:       gm.Closed,
		Active:       gm.Active,
	}
	if gm.WinningOutcomeIndex != nil && *gm.WinningOutcomeIndex >= 0 {
		w := *gm.WinningOutcomeIndex
		res.WinningOutcome = &w
		return res
	}
	if !gm.Closed {
		return res
	}
	if prices, ok := gm.OutcomePrices.floats(); ok {
		for i, p := range prices {
			if p > settledPrice {
				w := i
				res.WinningOutcome = &w
				break
			}
		}
	}
	return res
}
