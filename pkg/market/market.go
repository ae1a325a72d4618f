// Package market fetches prices, tickers, and candlesticks from public
// market-data providers. Reads only; failures here never affect chain state.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/friendsofgo/errors"

	"github.com/cryptoclash/backend/pkg/metrics"
)

const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	DefaultBinanceURL   = "https://api.binance.com/api/v3"

	// Price fetches retry on transport failures with linear backoff:
	// attempt index × retryUnit, bounded by defaultRetries.
	defaultRetries = 2
	retryUnit      = time.Second

	defaultTimeout = 30 * time.Second
)

// ErrCoinNotFound is returned when a provider has no data for a coin id.
var ErrCoinNotFound = errors.New("coin not found")

// RateLimitedError is a provider 429: back off and retry later.
type RateLimitedError struct {
	Provider string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s API rate limited", e.Provider)
}

// Config is the market client's configuration.
type Config struct {
	CoinGeckoURL string
	BinanceURL   string
	Retries      int
	Timeout      time.Duration
}

// Client fetches market data from CoinGecko and Binance.
// Thread-safe, can be shared across goroutines.
type Client struct {
	coingeckoURL string
	binanceURL   string
	retries      int
	http         *http.Client
	cache        *Cache // nil when caching is disabled
	metrics      *metrics.Metrics
	log          *slog.Logger
}

// NewClient builds a market client. cache may be nil.
func NewClient(cfg Config, cache *Cache, m *metrics.Metrics, log *slog.Logger) *Client {
	if cfg.CoinGeckoURL == "" {
		cfg.CoinGeckoURL = DefaultCoinGeckoURL
	}
	if cfg.BinanceURL == "" {
		cfg.BinanceURL = DefaultBinanceURL
	}
	if cfg.Retries == 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		coingeckoURL: cfg.CoinGeckoURL,
		binanceURL:   cfg.BinanceURL,
		retries:      cfg.Retries,
		http:         &http.Client{Timeout: cfg.Timeout},
		cache:        cache,
		metrics:      m,
		log:          log.With(slog.String("component", "market")),
	}
}

// getJSON performs one GET and decodes the body. 429 becomes a
// *RateLimitedError; other non-200 statuses are plain errors.
func (c *Client) getJSON(ctx context.Context, provider, rawURL string, query url.Values, out any) error {
	u := rawURL
	if len(query) > 0 {
		u = rawURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.CountMarketCall(provider, "error")
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.metrics.CountMarketCall(provider, "error")
		return errors.Wrap(err, "read response")
	}
	if res.StatusCode == http.StatusTooManyRequests {
		c.metrics.CountMarketCall(provider, "rate_limited")
		return &RateLimitedError{Provider: provider}
	}
	if res.StatusCode != http.StatusOK {
		c.metrics.CountMarketCall(provider, "error")
		return errors.Errorf("%s API status %s", provider, res.Status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.CountMarketCall(provider, "error")
		return errors.Wrapf(err, "%s API response", provider)
	}
	c.metrics.CountMarketCall(provider, "ok")
	return nil
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
