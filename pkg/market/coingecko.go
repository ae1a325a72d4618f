package market

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

// Coin is one entry from CoinGecko's markets listing.
type Coin struct {
	ID                       string   `json:"id"`     // e.g. "bitcoin"
	Symbol                   string   `json:"symbol"` // upper-cased, e.g. "BTC"
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             float64  `json:"current_price"`
	MarketCapRank            int      `json:"market_cap_rank"`
	PriceChangePercentage1h  *float64 `json:"price_change_percentage_1h,omitempty"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h,omitempty"`
}

// geckoMarket is the upstream wire shape.
type geckoMarket struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             float64  `json:"current_price"`
	MarketCapRank            int      `json:"market_cap_rank"`
	PriceChange1hInCurrency  *float64 `json:"price_change_percentage_1h_in_currency"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// TopCoins returns the top coins by market cap with images and 1h/24h
// price changes.
func (c *Client) TopCoins(ctx context.Context, limit int) ([]Coin, error) {
	query := url.Values{
		"vs_currency":             {"usd"},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(limit)},
		"page":                    {"1"},
		"sparkline":               {"false"},
		"price_change_percentage": {"1h,24h"},
	}
	var markets []geckoMarket
	if err := c.getJSON(ctx, "coingecko", c.coingeckoURL+"/coins/markets", query, &markets); err != nil {
		return nil, err
	}

	coins := make([]Coin, 0, len(markets))
	for _, m := range markets {
		coins = append(coins, coinFromMarket(m))
	}
	c.log.Info("fetched top coins", slog.Int("count", len(coins)))
	return coins, nil
}

// CoinInfo returns image and naming for a single CoinGecko coin id.
func (c *Client) CoinInfo(ctx context.Context, coinID string) (*Coin, error) {
	query := url.Values{
		"vs_currency": {"usd"},
		"ids":         {coinID},
		"order":       {"market_cap_desc"},
		"per_page":    {"1"},
		"page":        {"1"},
	}
	var markets []geckoMarket
	if err := c.getJSON(ctx, "coingecko", c.coingeckoURL+"/coins/markets", query, &markets); err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, ErrCoinNotFound
	}
	coin := coinFromMarket(markets[0])
	return &coin, nil
}

func coinFromMarket(m geckoMarket) Coin {
	return Coin{
		ID:                       m.ID,
		Symbol:                   strings.ToUpper(m.Symbol),
		Name:                     m.Name,
		Image:                    m.Image,
		CurrentPrice:             m.CurrentPrice,
		MarketCapRank:            m.MarketCapRank,
		PriceChangePercentage1h:  m.PriceChange1hInCurrency,
		PriceChangePercentage24h: m.PriceChangePercentage24h,
	}
}
