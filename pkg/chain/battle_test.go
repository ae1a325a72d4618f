package chain

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoclash/backend/pkg/spec"
)

const testBattleType = "0xpkg::battle::Battle"

func TestCreateBattleWithSuppliedCoin(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, "battle", asString(t, params[2]))
		assert.Equal(t, "create_battle", asString(t, params[3]))
		assert.JSONEq(t, `["0xCOIN"]`, string(params[5]))
		return markerTx("create"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return successExec(testBattleType, "0xB1"), nil
	})
	c := testClient(t, stub)

	res, err := c.CreateBattle(context.Background(), spec.CreateBattleParams{
		Player1:      "0xP1",
		StakeAmount:  100,
		CoinObjectID: "0xCOIN",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0xB1", res.BattleID)
	assert.Equal(t, "0xP1", res.Player1)
	assert.Equal(t, uint64(100), res.StakeAmount)
	assert.Equal(t, "0xDIGEST", res.Digest)
	// A supplied coin skips preparation entirely.
	assert.Zero(t, stub.count("suix_getCoins"))
}

func TestCreateBattleWithOpponent(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.JSONEq(t, `["0xCOIN","0xOPP"]`, string(params[5]))
		return markerTx("create"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return successExec(testBattleType, "0xB1"), nil
	})
	c := testClient(t, stub)

	_, err := c.CreateBattle(context.Background(), spec.CreateBattleParams{
		Player1:      "0xP1",
		StakeAmount:  100,
		CoinObjectID: "0xCOIN",
		Opponent:     "0xOPP",
	})
	require.NoError(t, err)
}

func TestCreateBattlePreparesCoin(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("suix_getCoins", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return coinsPage("", [2]string{"0xA", "100"}), nil
	})
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.JSONEq(t, `["0xA"]`, string(params[5]))
		return markerTx("create"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return successExec(testBattleType, "0xB1"), nil
	})
	c := testClient(t, stub)

	res, err := c.CreateBattle(context.Background(), spec.CreateBattleParams{
		Player1:     "0xP1",
		StakeAmount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xB1", res.BattleID)
	assert.Equal(t, 1, stub.count("suix_getCoins"))
}

func TestCreateBattleInsufficientBalance(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("suix_getCoins", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return coinsPage("", [2]string{"0xA", "10"}), nil
	})
	c := testClient(t, stub)

	_, err := c.CreateBattle(context.Background(), spec.CreateBattleParams{
		Player1:     "0xP1",
		StakeAmount: 100,
	})
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Zero(t, stub.count("unsafe_moveCall"))
}

func TestCreateBattleNoBattleObject(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return markerTx("create"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return successExec("", ""), nil
	})
	c := testClient(t, stub)

	_, err := c.CreateBattle(context.Background(), spec.CreateBattleParams{
		Player1:      "0xP1",
		StakeAmount:  100,
		CoinObjectID: "0xCOIN",
	})
	var malformed *MalformedObjectError
	require.ErrorAs(t, err, &malformed)
}

func TestSubmitSignedBattle(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, "dHgtYnl0ZXM=", asString(t, params[0]))
		assert.Equal(t, []string{"c2ln"}, asStrings(t, params[1]))
		res := successExec(testBattleType, "0xB1")
		res["transaction"] = map[string]any{"data": map[string]any{"sender": "0xWALLET"}}
		res["rawEffects"] = []int{1, 2, 3}
		return res, nil
	})
	c := testClient(t, stub)

	res, err := c.SubmitSignedBattle(context.Background(), "dHgtYnl0ZXM=", "c2ln")
	require.NoError(t, err)
	assert.Equal(t, "0xB1", res.BattleID)
	assert.Equal(t, "0xWALLET", res.Player1)
	assert.Equal(t, "AQID", res.RawEffects)
	// The wallet already built and signed the transaction.
	assert.Zero(t, stub.count("unsafe_moveCall"))
}

func TestSubmitSignedBattleUnknownSender(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return successExec(testBattleType, "0xB1"), nil
	})
	c := testClient(t, stub)

	res, err := c.SubmitSignedBattle(context.Background(), "dHg=", "c2ln")
	require.NoError(t, err)
	assert.Equal(t, "unknown", res.Player1)
}

func TestSubmitSignedBattleEnvelopeConflict(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return nil, &rpcErrorBody{Code: -32002, Message: "Object 0xGAS is locked at version 7"}
	})
	c := testClient(t, stub)

	_, err := c.SubmitSignedBattle(context.Background(), "dHg=", "c2ln")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestJoinBattleAutoPreparesStake(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("suix_getCoins", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return coinsPage("", [2]string{"0xA", "60"}, [2]string{"0xB", "60"}), nil
	})
	stub.handle("unsafe_mergeCoins", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return markerTx("merge"), nil
	})
	stub.handle("unsafe_splitCoin", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, "0xA", asString(t, params[1]))
		return markerTx("split"), nil
	})
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, "join_battle", asString(t, params[3]))
		assert.JSONEq(t, `["0xBATTLE","0xNEW"]`, string(params[5]))
		return markerTx("join"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		if strings.HasPrefix(txMarker(t, params), "split") {
			return successExec(testCoinObjectType, "0xNEW"), nil
		}
		return successExec("", ""), nil
	})
	c := testClient(t, stub)

	res, err := c.JoinBattle(context.Background(), "0xBATTLE", "0xP2", 100, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0xBATTLE", res.BattleID)
	assert.Equal(t, "0xP2", res.Player2)
	assert.Equal(t, uint64(100), res.StakeAmount)
	assert.Equal(t, 1, stub.count("unsafe_mergeCoins"))
	assert.Equal(t, 1, stub.count("unsafe_splitCoin"))
}

func TestJoinBattleConflictSurfaces(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return markerTx("join"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return failedExec("Object 0xBATTLE not available for consumption"), nil
	})
	c := testClient(t, stub)

	_, err := c.JoinBattle(context.Background(), "0xBATTLE", "0xP2", 100, "0xCOIN")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestFinalizeBattlePrizeFromBalanceChanges(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, "finalize_battle", asString(t, params[3]))
		assert.JSONEq(t, `["0xcap","0xBATTLE","0xWINNER"]`, string(params[5]))
		return markerTx("finalize"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		res := successExec("", "")
		res["balanceChanges"] = []map[string]any{
			{"owner": map[string]any{"AddressOwner": "0xLOSER"}, "amount": "-100"},
			{"owner": map[string]any{"AddressOwner": "0xWINNER"}, "amount": "200"},
		}
		return res, nil
	})
	c := testClient(t, stub)

	res, err := c.FinalizeBattle(context.Background(), "0xBATTLE", "0xWINNER")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0xWINNER", res.Winner)
	require.NotNil(t, res.TotalPrize)
	assert.Equal(t, int64(200), *res.TotalPrize)
}

func TestFinalizeBattleNoPrizeEntry(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return markerTx("finalize"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return successExec("", ""), nil
	})
	c := testClient(t, stub)

	res, err := c.FinalizeBattle(context.Background(), "0xBATTLE", "0xWINNER")
	require.NoError(t, err)
	assert.Nil(t, res.TotalPrize)
}

func battleObject(fields map[string]any) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"objectId": "0xBATTLE",
			"type":     testBattleType,
			"content": map[string]any{
				"dataType": "moveObject",
				"type":     testBattleType,
				"fields":   fields,
			},
		},
	}
}

func TestGetBattleDetails(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("sui_getObject", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, "0xBATTLE", asString(t, params[0]))
		return battleObject(map[string]any{
			"player1":      "0xP1",
			"player2":      "0xP2",
			"stake_amount": "100",
			"is_ready":     true,
			"admin":        "0xADMIN",
		}), nil
	})
	c := testClient(t, stub)

	battle, err := c.GetBattleDetails(context.Background(), "0xBATTLE")
	require.NoError(t, err)
	assert.Equal(t, "0xBATTLE", battle.ID)
	assert.Equal(t, "0xP1", battle.Player1)
	require.NotNil(t, battle.Player2)
	assert.Equal(t, "0xP2", *battle.Player2)
	assert.Equal(t, uint64(100), battle.StakeAmount)
	assert.True(t, battle.IsReady)
	assert.True(t, battle.IsActive)
	assert.Equal(t, "0xADMIN", battle.Admin)
}

func TestGetBattleDetailsWaitingForOpponent(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("sui_getObject", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return battleObject(map[string]any{
			"player1":      "0xP1",
			"player2":      nil,
			"stake_amount": "100",
			"is_ready":     false,
			"admin":        "0xADMIN",
		}), nil
	})
	c := testClient(t, stub)

	battle, err := c.GetBattleDetails(context.Background(), "0xBATTLE")
	require.NoError(t, err)
	assert.Nil(t, battle.Player2)
	assert.False(t, battle.IsReady)
}

func TestGetBattleDetailsNotFound(t *testing.T) {
	responses := []map[string]any{
		{"error": map[string]any{"code": "ObjectNotFound", "object_id": "0xBATTLE"}},
		{"error": map[string]any{"code": "deleted", "object_id": "0xBATTLE"}},
		{"data": nil},
		{"data": map[string]any{"objectId": "0xBATTLE", "status": "Deleted"}},
	}
	for i, response := range responses {
		stub := newLedgerStub(t)
		stub.handle("sui_getObject", func(params []json.RawMessage) (any, *rpcErrorBody) {
			return response, nil
		})
		c := testClient(t, stub)

		_, err := c.GetBattleDetails(context.Background(), "0xBATTLE")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound, "case %d", i)
		assert.Equal(t, "0xBATTLE", notFound.ObjectID, "case %d", i)
	}
}

func TestGetBattleDetailsMalformed(t *testing.T) {
	cases := map[string]map[string]any{
		"no content": {"data": map[string]any{"objectId": "0xBATTLE", "type": testBattleType}},
		"missing player1": battleObject(map[string]any{
			"stake_amount": "100",
		}),
		"bad stake": battleObject(map[string]any{
			"player1":      "0xP1",
			"stake_amount": "lots",
		}),
	}
	for name, response := range cases {
		stub := newLedgerStub(t)
		stub.handle("sui_getObject", func(params []json.RawMessage) (any, *rpcErrorBody) {
			return response, nil
		})
		c := testClient(t, stub)

		_, err := c.GetBattleDetails(context.Background(), "0xBATTLE")
		var malformed *MalformedObjectError
		require.ErrorAs(t, err, &malformed, name)
	}
}

func TestMintTokens(t *testing.T) {
	stub := newLedgerStub(t)
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, "battle_token", asString(t, params[2]))
		assert.Equal(t, "mint", asString(t, params[3]))
		assert.JSONEq(t, `["0xcap","500","0xRECIPIENT"]`, string(params[5]))
		return markerTx("mint"), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return successExec("", ""), nil
	})
	c := testClient(t, stub)

	res, err := c.MintTokens(context.Background(), "0xRECIPIENT", 500)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0xRECIPIENT", res.Recipient)
	assert.Equal(t, uint64(500), res.Amount)
}

// TestBattleLifecycle drives one battle through create, join, finalize,
// and the read after the payout destroyed the object.
func TestBattleLifecycle(t *testing.T) {
	stub := newLedgerStub(t)
	ctx := context.Background()

	var finalized bool
	stub.handle("suix_getCoins", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return coinsPage("", [2]string{"0xA", "60"}, [2]string{"0xB", "60"}), nil
	})
	stub.handle("unsafe_mergeCoins", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return markerTx("merge"), nil
	})
	stub.handle("unsafe_splitCoin", func(params []json.RawMessage) (any, *rpcErrorBody) {
		assert.Equal(t, []string{"100"}, asStrings(t, params[2]))
		return markerTx("split"), nil
	})
	stub.handle("unsafe_moveCall", func(params []json.RawMessage) (any, *rpcErrorBody) {
		return markerTx(asString(t, params[3])), nil
	})
	stub.handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, *rpcErrorBody) {
		switch txMarker(t, params) {
		case "split":
			return successExec(testCoinObjectType, "0xSTAKE"), nil
		case "create_battle":
			return successExec(testBattleType, "0xB1"), nil
		case "finalize_battle":
			finalized = true
			res := successExec("", "")
			res["balanceChanges"] = []map[string]any{
				{"owner": map[string]any{"AddressOwner": "0xW"}, "amount": "200"},
			}
			return res, nil
		default:
			return successExec("", ""), nil
		}
	})
	stub.handle("sui_getObject", func(params []json.RawMessage) (any, *rpcErrorBody) {
		if finalized {
			return map[string]any{"error": map[string]any{"code": "deleted", "object_id": "0xB1"}}, nil
		}
		return battleObject(map[string]any{
			"player1":      "0xP1",
			"stake_amount": "100",
			"admin":        "0xADMIN",
		}), nil
	})
	c := testClient(t, stub)

	created, err := c.CreateBattle(ctx, spec.CreateBattleParams{Player1: "0xP1", StakeAmount: 100, CoinObjectID: "0xC1"})
	require.NoError(t, err)
	assert.Equal(t, "0xB1", created.BattleID)

	joined, err := c.JoinBattle(ctx, "0xB1", "0xP2", 100, "")
	require.NoError(t, err)
	assert.True(t, joined.Success)
	assert.Equal(t, "0xB1", joined.BattleID)
	assert.Equal(t, 1, stub.count("unsafe_mergeCoins"))
	assert.Equal(t, 1, stub.count("unsafe_splitCoin"))

	final, err := c.FinalizeBattle(ctx, "0xB1", "0xW")
	require.NoError(t, err)
	require.NotNil(t, final.TotalPrize)
	assert.Equal(t, int64(200), *final.TotalPrize)

	_, err = c.GetBattleDetails(ctx, "0xB1")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestMutatingOpsRequireConfiguration(t *testing.T) {
	c := NewClient(Config{RPCURL: "http://127.0.0.1:1"}, testSigner(t), nil, testLogger())

	ctx := context.Background()
	_, err := c.MintTokens(ctx, "0xR", 1)
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.CreateBattle(ctx, spec.CreateBattleParams{Player1: "0xP1", StakeAmount: 1})
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.JoinBattle(ctx, "0xB", "0xP2", 1, "")
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.FinalizeBattle(ctx, "0xB", "0xW")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestMutatingOpsRequireSigner(t *testing.T) {
	c := NewClient(Config{
		RPCURL:          "http://127.0.0.1:1",
		PackageID:       "0xpkg",
		AdminCapID:      "0xcap",
		DeployerAddress: "0xdeployer",
	}, nil, nil, testLogger())

	_, err := c.MintTokens(context.Background(), "0xR", 1)
	var signing *SigningError
	require.ErrorAs(t, err, &signing)
}
