package chain

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/cryptoclash/backend/pkg/spec"
)

// objectResponse is the sui_getObject result. Exactly one of Data and
// Error is populated.
type objectResponse struct {
	Data  *objectData       `json:"data"`
	Error *objectStatusInfo `json:"error"`
}

type objectData struct {
	ObjectID string         `json:"objectId"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Content  *objectContent `json:"content"`
}

type objectContent struct {
	DataType string          `json:"dataType"`
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

type objectStatusInfo struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

// battleFields is the battle object's move struct.
type battleFields struct {
	Player1      string          `json:"player1"`
	Player2      *string         `json:"player2"`
	StakeAmount  string          `json:"stake_amount"`
	IsReady      bool            `json:"is_ready"`
	Admin        string          `json:"admin"`
	Player2Stake json.RawMessage `json:"player2_stake"` // Option<Coin>, present once joined
}

// CreateBattle prepares a stake coin for player1 (unless one was supplied),
// executes the create move call signed by the admin, and extracts the new
// battle's id from the execution report.
func (c *Client) CreateBattle(ctx context.Context, params spec.CreateBattleParams) (*spec.CreateBattleResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	signer, err := c.adminSigner()
	if err != nil {
		return nil, err
	}

	c.log.Info("creating battle",
		slog.String("player1", params.Player1),
		slog.Uint64("stake", params.StakeAmount))

	coinID := params.CoinObjectID
	if coinID == "" {
		coinID, err = c.PrepareCoin(ctx, signer, params.Player1, params.StakeAmount)
		if err != nil {
			c.metrics.CountBattleOp("create", "error")
			return nil, err
		}
	}

	args := []any{coinID}
	if params.Opponent != "" {
		args = append(args, params.Opponent)
	}
	res, err := c.execMoveCall(ctx, signer, spec.MoveCall{
		Module:   battleModule,
		Function: "create_battle",
		Args:     args,
	})
	if err != nil {
		c.metrics.CountBattleOp("create", "error")
		return nil, err
	}
	if err := checkExecution("create battle", res); err != nil {
		c.metrics.CountBattleOp("create", "error")
		return nil, err
	}

	battleID := c.createdObjectOfType(ctx, res, matchesBattleType)
	if battleID == "" {
		c.metrics.CountBattleOp("create", "error")
		return nil, &MalformedObjectError{Reason: "no battle object in transaction result"}
	}

	c.metrics.CountBattleOp("create", "success")
	c.log.Info("battle created",
		slog.String("battle_id", battleID),
		slog.String("digest", res.Digest))
	return &spec.CreateBattleResult{
		Success:     true,
		BattleID:    battleID,
		Player1:     params.Player1,
		StakeAmount: params.StakeAmount,
		Digest:      res.Digest,
		RawEffects:  res.rawEffectsBase64(),
		Message:     "Battle created successfully",
	}, nil
}

// SubmitSignedBattle executes a create transaction that the frontend built
// and signed, and extracts the new battle's id. The raw effects are passed
// back base64-encoded for wallet reporting.
func (c *Client) SubmitSignedBattle(ctx context.Context, txBytesB64, signatureB64 string) (*spec.CreateBattleResult, error) {
	c.log.Info("executing signed create transaction")

	res, err := c.executeTx(ctx, txBytesB64, []string{signatureB64})
	if err != nil {
		c.metrics.CountBattleOp("create", "error")
		return nil, err
	}
	if err := checkExecution("create battle", res); err != nil {
		c.metrics.CountBattleOp("create", "error")
		return nil, err
	}

	battleID := c.createdObjectOfType(ctx, res, matchesBattleType)
	if battleID == "" {
		c.metrics.CountBattleOp("create", "error")
		return nil, &MalformedObjectError{Reason: "no battle object in transaction result"}
	}

	sender := "unknown"
	if res.Transaction != nil && res.Transaction.Data.Sender != "" {
		sender = res.Transaction.Data.Sender
	}

	c.metrics.CountBattleOp("create", "success")
	c.log.Info("battle created",
		slog.String("battle_id", battleID),
		slog.String("digest", res.Digest))
	return &spec.CreateBattleResult{
		Success:    true,
		BattleID:   battleID,
		Player1:    sender,
		Digest:     res.Digest,
		RawEffects: res.rawEffectsBase64(),
		Message:    "Battle created successfully",
	}, nil
}

// JoinBattle stakes player2 into an existing battle. Preconditions (battle
// not ready, stake matches) are the caller's to check; if the check went
// stale, the ledger's own rejection is surfaced, as a *ConflictError when
// it lost an object race.
func (c *Client) JoinBattle(ctx context.Context, battleID, player2 string, stake uint64, coinObjectID string) (*spec.JoinBattleResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	signer, err := c.adminSigner()
	if err != nil {
		return nil, err
	}

	c.log.Info("joining battle",
		slog.String("battle_id", battleID),
		slog.String("player2", player2),
		slog.Uint64("stake", stake))

	coinID := coinObjectID
	if coinID == "" {
		coinID, err = c.PrepareCoin(ctx, signer, player2, stake)
		if err != nil {
			c.metrics.CountBattleOp("join", "error")
			return nil, err
		}
		c.log.Info("auto-selected stake coin", slog.String("coin", coinID))
	}

	res, err := c.execMoveCall(ctx, signer, spec.MoveCall{
		Module:   battleModule,
		Function: "join_battle",
		Args:     []any{battleID, coinID},
	})
	if err != nil {
		c.metrics.CountBattleOp("join", "error")
		return nil, err
	}
	if err := checkExecution("join battle", res); err != nil {
		c.metrics.CountBattleOp("join", "error")
		return nil, err
	}

	c.metrics.CountBattleOp("join", "success")
	c.log.Info("joined battle",
		slog.String("battle_id", battleID),
		slog.String("digest", res.Digest))
	return &spec.JoinBattleResult{
		Success:     true,
		BattleID:    battleID,
		Player2:     player2,
		StakeAmount: stake,
		Digest:      res.Digest,
		Message:     "Joined battle successfully",
	}, nil
}

// FinalizeBattle declares the winner and pays out the stakes, using the
// admin capability. The total prize is read from the balance-changes list;
// no matching entry means an unknown prize, not a failure.
func (c *Client) FinalizeBattle(ctx context.Context, battleID, winner string) (*spec.FinalizeBattleResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	signer, err := c.adminSigner()
	if err != nil {
		return nil, err
	}

	c.log.Info("finalizing battle",
		slog.String("battle_id", battleID),
		slog.String("winner", winner))

	res, err := c.execMoveCall(ctx, signer, spec.MoveCall{
		Module:   battleModule,
		Function: "finalize_battle",
		Args:     []any{c.cfg.AdminCapID, battleID, winner},
	})
	if err != nil {
		c.metrics.CountBattleOp("finalize", "error")
		return nil, err
	}
	if err := checkExecution("finalize battle", res); err != nil {
		c.metrics.CountBattleOp("finalize", "error")
		return nil, err
	}

	var totalPrize *int64
	for _, change := range res.BalanceChanges {
		if change.Owner.AddressOwner != winner {
			continue
		}
		if amount, err := strconv.ParseInt(change.Amount, 10, 64); err == nil {
			totalPrize = &amount
		}
		break
	}

	c.metrics.CountBattleOp("finalize", "success")
	c.log.Info("finalized battle",
		slog.String("battle_id", battleID),
		slog.String("digest", res.Digest))
	return &spec.FinalizeBattleResult{
		Success:  true,
		BattleID: battleID,
		Winner:   winner,
		// Winner receives all staked tokens automatically.
		TotalPrize: totalPrize,
		Digest:     res.Digest,
		Message:    "Battle finalized successfully",
	}, nil
}

// GetBattleDetails reads one battle object from the chain.
func (c *Client) GetBattleDetails(ctx context.Context, battleID string) (*spec.Battle, error) {
	var res objectResponse
	params := []any{battleID, map[string]bool{
		"showType":                true,
		"showOwner":               true,
		"showContent":             true,
		"showDisplay":             false,
		"showPreviousTransaction": false,
		"showStorageRebate":       false,
		"showBcs":                 false,
	}}
	if err := c.rpc.Call(ctx, "sui_getObject", params, &res); err != nil {
		return nil, &QueryError{Op: "getObject", Err: err}
	}

	if res.Error != nil {
		switch res.Error.Code {
		case "ObjectNotFound", "notExists", "deleted", "Deleted":
			return nil, &NotFoundError{ObjectID: battleID}
		}
		return nil, &QueryError{Op: "getObject", Err: &RpcError{Message: res.Error.Code}}
	}
	if res.Data == nil {
		return nil, &NotFoundError{ObjectID: battleID}
	}
	if res.Data.Status == "Deleted" {
		return nil, &NotFoundError{ObjectID: battleID}
	}
	if res.Data.Content == nil || len(res.Data.Content.Fields) == 0 {
		return nil, &MalformedObjectError{ObjectID: battleID, Reason: "object has no content"}
	}

	var fields battleFields
	if err := json.Unmarshal(res.Data.Content.Fields, &fields); err != nil {
		return nil, &MalformedObjectError{ObjectID: battleID, Reason: "unparseable battle fields"}
	}
	if fields.Player1 == "" {
		return nil, &MalformedObjectError{ObjectID: battleID, Reason: "missing player1"}
	}
	stake, err := strconv.ParseUint(fields.StakeAmount, 10, 64)
	if err != nil {
		return nil, &MalformedObjectError{ObjectID: battleID, Reason: "missing or invalid stake_amount"}
	}

	return &spec.Battle{
		ID:          battleID,
		Player1:     fields.Player1,
		Player2:     fields.Player2,
		StakeAmount: stake,
		IsReady:     fields.IsReady,
		IsActive:    true, // battle is active if it exists
		Admin:       fields.Admin,
	}, nil
}

// MintTokens mints battle tokens to a recipient. Admin-only: the mint call
// carries the admin capability and is signed by the admin key.
func (c *Client) MintTokens(ctx context.Context, recipient string, amount uint64) (*spec.MintResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	signer, err := c.adminSigner()
	if err != nil {
		return nil, err
	}

	c.log.Info("minting tokens",
		slog.String("recipient", recipient),
		slog.Uint64("amount", amount))

	res, err := c.execMoveCall(ctx, signer, spec.MoveCall{
		Module:   tokenModule,
		Function: "mint",
		Args:     []any{c.cfg.AdminCapID, strconv.FormatUint(amount, 10), recipient},
	})
	if err != nil {
		return nil, err
	}
	if err := checkExecution("mint", res); err != nil {
		return nil, err
	}

	c.log.Info("minted tokens", slog.String("digest", res.Digest))
	return &spec.MintResult{
		Success:   true,
		Recipient: recipient,
		Amount:    amount,
		Digest:    res.Digest,
		Message:   "Tokens minted successfully",
	}, nil
}
