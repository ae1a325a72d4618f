package market

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopCoins(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "usd", q.Get("vs_currency"))
		assert.Equal(t, "market_cap_desc", q.Get("order"))
		assert.Equal(t, "2", q.Get("per_page"))
		assert.Equal(t, "1h,24h", q.Get("price_change_percentage"))
		fmt.Fprint(w, `[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png",
			 "current_price":97000,"market_cap_rank":1,
			 "price_change_percentage_1h_in_currency":0.2,"price_change_percentage_24h":1.5},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://img/eth.png",
			 "current_price":3500,"market_cap_rank":2}
		]`)
	}))

	coins, err := c.TopCoins(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, "BTC", coins[0].Symbol)
	assert.Equal(t, 97000.0, coins[0].CurrentPrice)
	require.NotNil(t, coins[0].PriceChangePercentage1h)
	assert.Equal(t, 0.2, *coins[0].PriceChangePercentage1h)
	assert.Nil(t, coins[1].PriceChangePercentage1h)
}

func TestCoinInfo(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dogecoin", r.URL.Query().Get("ids"))
		fmt.Fprint(w, `[{"id":"dogecoin","symbol":"doge","name":"Dogecoin","current_price":0.4,"market_cap_rank":8}]`)
	}))

	coin, err := c.CoinInfo(context.Background(), "dogecoin")
	require.NoError(t, err)
	assert.Equal(t, "dogecoin", coin.ID)
	assert.Equal(t, "DOGE", coin.Symbol)
}

func TestCoinInfoUnknownCoin(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))

	_, err := c.CoinInfo(context.Background(), "no-such-coin")
	require.ErrorIs(t, err, ErrCoinNotFound)
}
