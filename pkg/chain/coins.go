package chain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cryptoclash/backend/pkg/spec"
)

// coinPage is one page of the suix_getCoins response.
type coinPage struct {
	Data []struct {
		CoinObjectID string `json:"coinObjectId"`
		Balance      string `json:"balance"` // raw units, as a decimal string
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// GetOwnedCoins fetches all of the address's staking-token coin objects,
// following the cursor until the ledger reports no more pages. Zero coins
// is a valid result, not an error.
func (c *Client) GetOwnedCoins(ctx context.Context, address string) (*spec.BalanceSnapshot, error) {
	snapshot := &spec.BalanceSnapshot{Address: address}

	var cursor *string
	for {
		var page coinPage
		params := []any{address, c.cfg.CoinType, cursor, coinPageSize}
		if err := c.rpc.Call(ctx, "suix_getCoins", params, &page); err != nil {
			return nil, &QueryError{Op: "getCoins", Err: err}
		}

		for _, coin := range page.Data {
			if coin.CoinObjectID == "" || coin.Balance == "" {
				continue
			}
			balance, err := strconv.ParseUint(coin.Balance, 10, 64)
			if err != nil {
				return nil, &QueryError{Op: "getCoins", Err: fmt.Errorf("coin %s: bad balance %q", coin.CoinObjectID, coin.Balance)}
			}
			snapshot.TotalBalance += balance
			snapshot.Coins = append(snapshot.Coins, spec.CoinObject{
				ObjectID: coin.CoinObjectID,
				Balance:  balance,
			})
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	c.log.Debug("queried owned coins",
		slog.String("address", address),
		slog.Int("coins", len(snapshot.Coins)),
		slog.Uint64("total_balance", snapshot.TotalBalance))
	return snapshot, nil
}

// GetUserBalance implements the upward balance query.
func (c *Client) GetUserBalance(ctx context.Context, address string) (*spec.BalanceSnapshot, error) {
	return c.GetOwnedCoins(ctx, address)
}
