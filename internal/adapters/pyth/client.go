package pyth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	"golang.org/x/time/rate"
)

const (
	DefaultHermesBase = "https://hermes.pyth.network"

	// Hermes: 30 req/10s por IP.
	hermesRatePerSec = 3
	maxBodyBytes     = 1 << 20
)

// FeedIDs son los price feeds USD de Pyth para cada activo reconocido.
var FeedIDs = map[domain.Asset]string{
	domain.AssetBTC: "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
	domain.AssetETH: "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	domain.AssetSOL: "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
}

// Client consulta la última cotización en Hermes. Implementa ports.PriceFeed.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewClient crea un client contra base (vacío = producción).
func NewClient(base string) *Client {
	if base == "" {
		base = DefaultHermesBase
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(hermesRatePerSec, 3),
	}
}

type latestResponse struct {
	Parsed []parsedUpdate `json:"parsed"`
}

type parsedUpdate struct {
	ID    string    `json:"id"`
	Price priceWire `json:"price"`
}

// priceWire: price y conf vienen como strings enteras escaladas por 10^expo.
type priceWire struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int    `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

// LatestPrice devuelve la última cotización publicada para asset.
func (c *Client) LatestPrice(ctx context.Context, asset domain.Asset) (domain.PricePoint, error) {
	feed, ok := FeedIDs[asset]
	if !ok {
		return domain.PricePoint{}, fmt.Errorf("pyth.LatestPrice: no feed for asset %q", asset)
	}

	q := url.Values{}
	q.Add("ids[]", feed)
	q.Set("parsed", "true")
	target := c.base + "/v2/updates/price/latest?" + q.Encode()

	var resp latestResponse
	if err := c.get(ctx, target, &resp); err != nil {
		return domain.PricePoint{}, fmt.Errorf("pyth.LatestPrice: %s: %w", asset, err)
	}

	for _, u := range resp.Parsed {
		if !strings.EqualFold(strings.TrimPrefix(u.ID, "0x"), feed) {
			continue
		}
		point, err := toPoint(asset, u.Price)
		if err != nil {
			return domain.PricePoint{}, fmt.Errorf("pyth.LatestPrice: %s: %w", asset, err)
		}
		slog.Debug("price fetched", "asset", asset, "price", point.Price)
		return point, nil
	}
	return domain.PricePoint{}, fmt.Errorf("pyth.LatestPrice: %s: %w", asset, domain.ErrNotFound)
}

func toPoint(asset domain.Asset, p priceWire) (domain.PricePoint, error) {
	raw, err := strconv.ParseInt(p.Price, 10, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parse price %q: %w", p.Price, err)
	}
	conf, err := strconv.ParseUint(p.Conf, 10, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parse conf %q: %w", p.Conf, err)
	}
	scale := math.Pow10(p.Expo)
	return domain.PricePoint{
		Asset:       asset,
		Price:       float64(raw) * scale,
		Confidence:  float64(conf) * scale,
		PublishedAt: time.Unix(p.PublishTime, 0).UTC(),
	}, nil
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
