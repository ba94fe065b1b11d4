package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Gamma: 300/10s → 180/10s → 18/s
	gammaRatePerSec = 18

	maxFetchRetries  = 3
	defaultRetryBase = time.Second
	maxBodyBytes     = 8 << 20
)

// Transport es una estrategia de acceso: reescribe la URL destino
// (directo, o a través de un proxy).
type Transport struct {
	Name    string
	Rewrite func(target string) string
}

// Direct pide la URL tal cual.
func Direct() Transport {
	return Transport{Name: "direct", Rewrite: func(target string) string { return target }}
}

// PrefixProxy antepone prefix a la URL destino escapada
// (p.ej. "https://corsproxy.io/?" o "https://api.allorigins.win/raw?url=").
func PrefixProxy(name, prefix string) Transport {
	return Transport{Name: name, Rewrite: func(target string) string {
		return prefix + url.QueryEscape(target)
	}}
}

// DefaultTransports es el orden de prioridad por defecto.
func DefaultTransports() []Transport {
	return []Transport{
		Direct(),
		PrefixProxy("corsproxy", "https://corsproxy.io/?"),
		PrefixProxy("allorigins", "https://api.allorigins.win/raw?url="),
	}
}

// Config parametriza el Client. Los campos vacíos usan los valores de producción.
type Config struct {
	GammaBase  string
	Transports []Transport
	RetryBase  time.Duration // espera del primer reintento; se dobla en cada uno
	Timeout    time.Duration
}

// Client es el HTTP client de Gamma con rate limiting, cadena de transportes y retries.
type Client struct {
	http         *http.Client
	gammaBase    string
	transports   []Transport
	retryBase    time.Duration
	gammaLimiter *rate.Limiter
}

// NewClient crea un Client a partir de cfg.
func NewClient(cfg Config) *Client {
	if cfg.GammaBase == "" {
		cfg.GammaBase = defaultGammaBase
	}
	if len(cfg.Transports) == 0 {
		cfg.Transports = DefaultTransports()
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		gammaBase:    cfg.GammaBase,
		transports:   cfg.Transports,
		retryBase:    cfg.RetryBase,
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
	}
}

// attempt es el resultado uniforme de probar una estrategia de transporte.
type attempt struct {
	ok   bool
	body []byte
	err  error
}

// get recorre los transportes en orden hasta que uno devuelve 2xx con JSON
// válido. No reintenta: los reintentos son del fetch completo (withRetry).
func (c *Client) get(ctx context.Context, target string, out any) error {
	var lastErr error
	for _, t := range c.transports {
		res := c.try(ctx, t, target)
		if res.ok {
			if err := json.Unmarshal(res.body, out); err != nil {
				res.err = fmt.Errorf("decode response: %w", err)
			} else {
				return nil
			}
		}
		slog.Debug("transport failed, trying next",
			"transport", t.Name,
			"err", res.err,
		)
		lastErr = fmt.Errorf("%s: %w", t.Name, res.err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no transports configured")
	}
	return lastErr
}

// try ejecuta una petición GET a través de un transporte.
func (c *Client) try(ctx context.Context, t Transport, target string) attempt {
	if err := c.gammaLimiter.Wait(ctx); err != nil {
		return attempt{err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Rewrite(target), nil)
	if err != nil {
		return attempt{err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return attempt{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return attempt{err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return attempt{err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return attempt{ok: true, body: body}
}

// withRetry ejecuta fn hasta 1+maxFetchRetries veces con backoff exponencial
// (retryBase, 2×, 4×). Devuelve el último error.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i <= maxFetchRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		slog.Warn("gamma fetch attempt failed",
			"op", op,
			"attempt", i+1,
			"of", maxFetchRetries+1,
			"err", err,
		)
		if i == maxFetchRetries || ctx.Err() != nil {
			break
		}
		c.sleep(ctx, i)
	}
	return err
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryBase
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
