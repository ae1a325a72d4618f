package market

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/friendsofgo/errors"
)

// coingeckoToBinance maps CoinGecko coin ids to Binance USDT trading pairs.
// Coins without an entry are not tradeable in the game and are skipped.
var coingeckoToBinance = map[string]string{
	"bitcoin":           "BTCUSDT",
	"ethereum":          "ETHUSDT",
	"binancecoin":       "BNBUSDT",
	"solana":            "SOLUSDT",
	"ripple":            "XRPUSDT",
	"usd-coin":          "USDCUSDT",
	"cardano":           "ADAUSDT",
	"dogecoin":          "DOGEUSDT",
	"tron":              "TRXUSDT",
	"avalanche-2":       "AVAXUSDT",
	"chainlink":         "LINKUSDT",
	"polkadot":          "DOTUSDT",
	"polygon":           "MATICUSDT",
	"shiba-inu":         "SHIBUSDT",
	"litecoin":          "LTCUSDT",
	"bitcoin-cash":      "BCHUSDT",
	"uniswap":           "UNIUSDT",
	"stellar":           "XLMUSDT",
	"cosmos":            "ATOMUSDT",
	"monero":            "XMRUSDT",
	"ethereum-classic":  "ETCUSDT",
	"internet-computer": "ICPUSDT",
	"filecoin":          "FILUSDT",
	"aptos":             "APTUSDT",
	"hedera-hashgraph":  "HBARUSDT",
	"cronos":            "CROUSDT",
	"near":              "NEARUSDT",
	"vechain":           "VETUSDT",
	"algorand":          "ALGOUSDT",
	"arbitrum":          "ARBUSDT",
	"optimism":          "OPUSDT",
	"maker":             "MKRUSDT",
	"aave":              "AAVEUSDT",
	"the-graph":         "GRTUSDT",
	"the-sandbox":       "SANDUSDT",
	"decentraland":      "MANAUSDT",
	"axie-infinity":     "AXSUSDT",
	"fantom":            "FTMUSDT",
	"eos":               "EOSUSDT",
	"tezos":             "XTZUSDT",
	"theta-token":       "THETAUSDT",
	"thorchain":         "RUNEUSDT",
	"kucoin-shares":     "KCSUSDT",
	"elrond-erd-2":      "EGLDUSDT",
	"neo":               "NEOUSDT",
	"dash":              "DASHUSDT",
	"zcash":             "ZECUSDT",
	"pancakeswap-token": "CAKEUSDT",
	"sushi":             "SUSHIUSDT",
	"toncoin":           "TONUSDT",
}

// Mapping returns the CoinGecko-id to Binance-symbol map.
func Mapping() map[string]string {
	out := make(map[string]string, len(coingeckoToBinance))
	for k, v := range coingeckoToBinance {
		out[k] = v
	}
	return out
}

// TradeableCoin is a top-list coin that has a Binance trading pair.
type TradeableCoin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"` // base symbol, e.g. "BTC"
	Name                     string   `json:"name"`
	BinanceSymbol            string   `json:"binance_symbol"`
	Image                    string   `json:"image"`
	CurrentPrice             float64  `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	MarketCapRank            int      `json:"market_cap_rank"`
}

// TopTradeable returns the top coins by market cap that also trade on
// Binance. CoinGecko prices are used directly; live prices come from the
// price endpoints during battle polling.
//
// A rate-limited top-list fetch gets one fallback attempt with a smaller
// page after a short wait (the free tier's window resets quickly).
func (c *Client) TopTradeable(ctx context.Context, limit int) ([]TradeableCoin, error) {
	if key, ok := c.cacheKey("tradeable", strconv.Itoa(limit)); ok {
		var cached []TradeableCoin
		if c.cache.GetJSON(ctx, key, &cached) {
			return cached, nil
		}
	}

	// Fetch more than asked for to survive the mapping filter.
	coins, err := c.TopCoins(ctx, 40)
	if err != nil {
		var limited *RateLimitedError
		if !errors.As(err, &limited) {
			return nil, err
		}
		c.log.Warn("rate limited, retrying top coins with smaller page")
		if serr := sleepCtx(ctx, 3*time.Second); serr != nil {
			return nil, serr
		}
		coins, err = c.TopCoins(ctx, 30)
		if err != nil {
			return nil, err
		}
	}

	result := make([]TradeableCoin, 0, limit)
	for _, coin := range coins {
		binanceSymbol, ok := coingeckoToBinance[coin.ID]
		if !ok {
			continue
		}
		result = append(result, TradeableCoin{
			ID:                       coin.ID,
			Symbol:                   strings.TrimSuffix(binanceSymbol, "USDT"),
			Name:                     coin.Name,
			BinanceSymbol:            binanceSymbol,
			Image:                    coin.Image,
			CurrentPrice:             coin.CurrentPrice,
			PriceChangePercentage24h: coin.PriceChangePercentage24h,
			MarketCapRank:            coin.MarketCapRank,
		})
		if len(result) >= limit {
			break
		}
	}

	if key, ok := c.cacheKey("tradeable", strconv.Itoa(limit)); ok {
		c.cache.SetJSON(ctx, key, result, topCoinsTTL)
	}
	c.log.Info("built tradeable coin list", slog.Int("count", len(result)))
	return result, nil
}
