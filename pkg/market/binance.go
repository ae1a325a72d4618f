package market

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/friendsofgo/errors"
)

// PriceData is a current price for one trading pair.
type PriceData struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Ticker24h is 24-hour price change statistics for one trading pair.
type Ticker24h struct {
	Symbol             string  `json:"symbol"`
	Price              float64 `json:"price"`
	PriceChange        float64 `json:"price_change"`
	PriceChangePercent float64 `json:"price_change_percent"`
	High24h            float64 `json:"high_24h"`
	Low24h             float64 `json:"low_24h"`
	Volume             float64 `json:"volume"`
}

// Kline is one candlestick.
type Kline struct {
	Timestamp int64   `json:"timestamp"` // open time, ms since epoch
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// VolumeCoin is one USDT pair ranked by 24h quote volume.
type VolumeCoin struct {
	Symbol         string  `json:"symbol"`      // e.g. "BTCUSDT"
	BaseSymbol     string  `json:"base_symbol"` // e.g. "BTC"
	Price          float64 `json:"price"`
	VolumeUSDT     float64 `json:"volume_usdt"`
	PriceChange24h float64 `json:"price_change_24h"`
}

// tickerWire is Binance's 24hr ticker wire shape; numerics arrive as strings.
type tickerWire struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
}

// Price returns the current price for one trading pair, retrying transport
// failures with linear backoff (attempt index × 1s). HTTP-level rejections
// are not retried.
func (c *Client) Price(ctx context.Context, symbol string) (*PriceData, error) {
	query := url.Values{"symbol": {symbol}}
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying price fetch",
				slog.String("symbol", symbol),
				slog.Int("attempt", attempt+1))
			if err := sleepCtx(ctx, time.Duration(attempt)*retryUnit); err != nil {
				return nil, err
			}
		}

		var wire struct {
			Symbol string `json:"symbol"`
			Price  string `json:"price"`
		}
		err := c.getJSON(ctx, "binance", c.binanceURL+"/ticker/price", query, &wire)
		if err == nil {
			price, perr := strconv.ParseFloat(wire.Price, 64)
			if perr != nil {
				return nil, errors.Wrap(perr, "binance price")
			}
			return &PriceData{Symbol: wire.Symbol, Price: price}, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, errors.Wrapf(lastErr, "binance price for %s after %d attempts", symbol, c.retries+1)
}

// retryable reports whether an error is a transport failure worth retrying.
// All client.Do failures (timeouts, connection errors) surface as *url.Error.
func retryable(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Prices returns current prices for several trading pairs in one upstream
// call, filtering the full ticker list.
func (c *Client) Prices(ctx context.Context, symbols []string) ([]PriceData, error) {
	var wire []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.getJSON(ctx, "binance", c.binanceURL+"/ticker/price", nil, &wire); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	result := make([]PriceData, 0, len(symbols))
	for _, w := range wire {
		if !wanted[w.Symbol] {
			continue
		}
		price, err := strconv.ParseFloat(w.Price, 64)
		if err != nil {
			continue
		}
		result = append(result, PriceData{Symbol: w.Symbol, Price: price})
	}
	return result, nil
}

// Ticker24h returns 24-hour statistics for one trading pair.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (*Ticker24h, error) {
	query := url.Values{"symbol": {symbol}}
	var wire tickerWire
	if err := c.getJSON(ctx, "binance", c.binanceURL+"/ticker/24hr", query, &wire); err != nil {
		return nil, err
	}
	return &Ticker24h{
		Symbol:             wire.Symbol,
		Price:              parseFloat(wire.LastPrice),
		PriceChange:        parseFloat(wire.PriceChange),
		PriceChangePercent: parseFloat(wire.PriceChangePercent),
		High24h:            parseFloat(wire.HighPrice),
		Low24h:             parseFloat(wire.LowPrice),
		Volume:             parseFloat(wire.Volume),
	}, nil
}

// Klines returns candlestick data for charts. Binance encodes each kline
// as a positional array mixing numbers and numeric strings.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	if key, ok := c.cacheKey("klines", symbol, interval, strconv.Itoa(limit)); ok {
		var cached []Kline
		if c.cache.GetJSON(ctx, key, &cached) {
			return cached, nil
		}
	}

	query := url.Values{
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	var wire [][]any
	if err := c.getJSON(ctx, "binance", c.binanceURL+"/klines", query, &wire); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(wire))
	for _, k := range wire {
		if len(k) < 6 {
			continue
		}
		klines = append(klines, Kline{
			Timestamp: int64(anyFloat(k[0])),
			Open:      anyFloat(k[1]),
			High:      anyFloat(k[2]),
			Low:       anyFloat(k[3]),
			Close:     anyFloat(k[4]),
			Volume:    anyFloat(k[5]),
		})
	}

	if key, ok := c.cacheKey("klines", symbol, interval, strconv.Itoa(limit)); ok {
		c.cache.SetJSON(ctx, key, klines, klinesTTL)
	}
	return klines, nil
}

// TopByVolume returns the top USDT trading pairs by 24h quote volume,
// excluding stablecoin pairs.
func (c *Client) TopByVolume(ctx context.Context, limit int) ([]VolumeCoin, error) {
	var wire []tickerWire
	if err := c.getJSON(ctx, "binance", c.binanceURL+"/ticker/24hr", nil, &wire); err != nil {
		return nil, err
	}

	excluded := map[string]bool{
		"USDTUSDT": true, "TUSDUSDT": true, "BUSDUSDT": true,
		"DAIUSDT": true, "FDUSDUSDT": true,
	}

	pairs := make([]VolumeCoin, 0, limit)
	for _, t := range wire {
		if !strings.HasSuffix(t.Symbol, "USDT") || excluded[t.Symbol] {
			continue
		}
		pairs = append(pairs, VolumeCoin{
			Symbol:         t.Symbol,
			BaseSymbol:     strings.TrimSuffix(t.Symbol, "USDT"),
			Price:          parseFloat(t.LastPrice),
			VolumeUSDT:     parseFloat(t.QuoteVolume),
			PriceChange24h: parseFloat(t.PriceChangePercent),
		})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].VolumeUSDT > pairs[j].VolumeUSDT })
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	c.log.Info("fetched top coins by volume", slog.Int("count", len(pairs)))
	return pairs, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// anyFloat converts a positional-array element that may be a JSON number
// or a numeric string.
func anyFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		return parseFloat(t)
	default:
		return 0
	}
}
