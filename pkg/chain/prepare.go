package chain

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/cryptoclash/backend/pkg/spec"
)

// PrepareCoin returns the id of a coin owned by address holding exactly
// requiredAmount, splitting or merging the owner's coins as needed.
//
// Selection order: an exact-match coin is returned unchanged (zero mutating
// calls); otherwise the first coin larger than the amount is split;
// otherwise all coins are merged pairwise into the first one and the merged
// coin is split. Ties break on query order.
//
// There is no rollback: if a split or merge fails partway, the returned
// *CoinPreparationError lists the merges that already happened, because the
// owner's coin set now differs from what it was before the call.
func (c *Client) PrepareCoin(ctx context.Context, signer spec.Signer, address string, requiredAmount uint64) (string, error) {
	c.log.Info("preparing coin",
		slog.String("address", address),
		slog.Uint64("required", requiredAmount))

	snapshot, err := c.GetOwnedCoins(ctx, address)
	if err != nil {
		return "", err
	}

	if snapshot.TotalBalance < requiredAmount {
		return "", &InsufficientBalanceError{
			Address:   address,
			Required:  requiredAmount,
			Available: snapshot.TotalBalance,
		}
	}

	// Exact match: zero-cost path.
	for _, coin := range snapshot.Coins {
		if coin.Balance == requiredAmount {
			c.log.Info("found exact match coin", slog.String("coin", coin.ObjectID))
			return coin.ObjectID, nil
		}
	}

	// A single larger coin: split off exactly the required amount. The
	// remainder stays with the original object; we do not track it.
	for _, coin := range snapshot.Coins {
		if coin.Balance > requiredAmount {
			newCoin, err := c.splitCoin(ctx, signer, coin.ObjectID, requiredAmount)
			if err != nil {
				return "", &CoinPreparationError{Address: address, Err: err}
			}
			return newCoin, nil
		}
	}

	// Only smaller coins remain; total is sufficient per the check above,
	// so there must be at least two. Defensive check regardless.
	if len(snapshot.Coins) < 2 {
		return "", &InsufficientBalanceError{
			Address:   address,
			Required:  requiredAmount,
			Available: snapshot.TotalBalance,
		}
	}

	destination := snapshot.Coins[0].ObjectID
	merged := make([]string, 0, len(snapshot.Coins)-1)
	c.log.Info("merging coins",
		slog.Int("sources", len(snapshot.Coins)-1),
		slog.String("destination", destination))

	// One merge transaction per source coin, deliberately sequential: the
	// ledger models coins as exclusively-owned resources and rejects
	// overlapping mutations of the same object.
	for _, coin := range snapshot.Coins[1:] {
		if err := c.mergeCoin(ctx, signer, destination, coin.ObjectID); err != nil {
			return "", &CoinPreparationError{
				Address:     address,
				Destination: destination,
				Merged:      merged,
				Err:         err,
			}
		}
		merged = append(merged, coin.ObjectID)
	}

	if snapshot.TotalBalance == requiredAmount {
		return destination, nil
	}

	newCoin, err := c.splitCoin(ctx, signer, destination, requiredAmount)
	if err != nil {
		return "", &CoinPreparationError{
			Address:     address,
			Destination: destination,
			Merged:      merged,
			Err:         err,
		}
	}
	return newCoin, nil
}

// splitCoin submits one split transaction producing a new coin of exactly
// amount, and returns the new coin's id.
func (c *Client) splitCoin(ctx context.Context, signer spec.Signer, coinID string, amount uint64) (string, error) {
	c.log.Info("splitting coin",
		slog.String("coin", coinID),
		slog.Uint64("amount", amount))

	var raw json.RawMessage
	params := []any{
		signer.Address(),
		coinID,
		[]string{strconv.FormatUint(amount, 10)},
		nil, // gas object: let the ledger pick one
		strconv.FormatUint(c.cfg.GasBudget, 10),
	}
	if err := c.rpc.Call(ctx, "unsafe_splitCoin", params, &raw); err != nil {
		return "", c.countTx("split", err)
	}
	txBytes, err := decodeTxBytes(raw)
	if err != nil {
		return "", c.countTx("split", err)
	}
	res, err := c.submit(ctx, signer, txBytes)
	if err != nil {
		return "", c.countTx("split", err)
	}
	if err := checkExecution("split", res); err != nil {
		return "", c.countTx("split", err)
	}
	c.metrics.CountTransaction("split", "success")

	newCoin := c.createdObjectOfType(ctx, res, c.matchesCoinType)
	if newCoin == "" {
		return "", &MalformedObjectError{Reason: "no created coin in split result"}
	}
	c.log.Info("split created new coin", slog.String("coin", newCoin))
	return newCoin, nil
}

// mergeCoin folds one source coin into the destination coin.
func (c *Client) mergeCoin(ctx context.Context, signer spec.Signer, destination, source string) error {
	var raw json.RawMessage
	params := []any{
		signer.Address(),
		destination,
		source,
		nil, // gas object: let the ledger pick one
		strconv.FormatUint(c.cfg.GasBudget, 10),
	}
	if err := c.rpc.Call(ctx, "unsafe_mergeCoins", params, &raw); err != nil {
		return c.countTx("merge", err)
	}
	txBytes, err := decodeTxBytes(raw)
	if err != nil {
		return c.countTx("merge", err)
	}
	res, err := c.submit(ctx, signer, txBytes)
	if err != nil {
		return c.countTx("merge", err)
	}
	if err := checkExecution("merge", res); err != nil {
		return c.countTx("merge", err)
	}
	c.metrics.CountTransaction("merge", "success")

	c.log.Info("merged coin",
		slog.String("source", source),
		slog.String("destination", destination))
	return nil
}

// countTx records a failed transaction and passes the error through.
func (c *Client) countTx(kind string, err error) error {
	c.metrics.CountTransaction(kind, "failure")
	return err
}
