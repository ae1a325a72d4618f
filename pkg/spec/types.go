package spec

// CoinObject is one fungible-token object owned by an address at a point
// in time. Objects are never mutated in place: split/merge/stake replace
// them with new references read back from the chain.
type CoinObject struct {
	ObjectID string `json:"object_id"` // (string) object id on chain (hex)
	Balance  uint64 `json:"balance"`   // (numeric) value in raw smallest units
}

// BalanceSnapshot is an owner's coin set, recomputed on every query and
// never cached. TotalBalance always equals the sum of the coin balances.
type BalanceSnapshot struct {
	Address      string       `json:"address"`
	TotalBalance uint64       `json:"total_balance"`
	Coins        []CoinObject `json:"coins"` // in chain query order
}

// Battle mirrors the on-chain battle object.
type Battle struct {
	ID          string  `json:"id"`
	Player1     string  `json:"player1"`
	Player2     *string `json:"player2"`      // nil until someone joins
	StakeAmount uint64  `json:"stake_amount"` // fixed at creation
	IsReady     bool    `json:"is_ready"`     // true once player2's stake is recorded
	IsActive    bool    `json:"is_active"`    // true while the object exists on chain
	Admin       string  `json:"admin"`
}

// CreatedObject is one object reported created by a transaction.
type CreatedObject struct {
	ObjectID   string `json:"object_id"`
	ObjectType string `json:"object_type"`
}

// BalanceChange is one per-owner balance delta reported by a transaction.
type BalanceChange struct {
	Owner  string `json:"owner"`
	Amount int64  `json:"amount"` // negative for debits
}

// ExecutionResult is the normalized outcome of one submitted transaction.
// It is produced once and never persisted; the ledger is the system of record.
type ExecutionResult struct {
	Digest         string          `json:"digest"`
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"` // ledger-reported error when Success is false
	Created        []CreatedObject `json:"created,omitempty"`
	BalanceChanges []BalanceChange `json:"balance_changes,omitempty"`
	RawEffects     string          `json:"raw_effects,omitempty"` // base64, for wallet reporting
}

// MoveCall names an on-chain function invocation.
type MoveCall struct {
	Package   string   `json:"package"`
	Module    string   `json:"module"`
	Function  string   `json:"function"`
	TypeArgs  []string `json:"type_args"`
	Args      []any    `json:"args"`
	GasBudget uint64   `json:"gas_budget"`
}

// MintResult reports a completed mint.
type MintResult struct {
	Success   bool   `json:"success"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Digest    string `json:"transaction_digest"`
	Message   string `json:"message"`
}

// CreateBattleResult reports a created battle.
type CreateBattleResult struct {
	Success     bool   `json:"success"`
	BattleID    string `json:"battle_id"`
	Player1     string `json:"player1"`
	StakeAmount uint64 `json:"stake_amount"`
	Digest      string `json:"transaction_digest"`
	RawEffects  string `json:"raw_effects,omitempty"` // base64, for wallet reporting
	Message     string `json:"message"`
}

// JoinBattleResult reports a joined battle.
type JoinBattleResult struct {
	Success     bool   `json:"success"`
	BattleID    string `json:"battle_id"`
	Player2     string `json:"player2"`
	StakeAmount uint64 `json:"stake_amount"`
	Digest      string `json:"transaction_digest"`
	Message     string `json:"message"`
}

// FinalizeBattleResult reports a finalized battle. TotalPrize is nil when
// the ledger reported no balance change for the winner; that is not an error.
type FinalizeBattleResult struct {
	Success    bool   `json:"success"`
	BattleID   string `json:"battle_id"`
	Winner     string `json:"winner"`
	TotalPrize *int64 `json:"total_prize"`
	Digest     string `json:"transaction_digest"`
	Message    string `json:"message"`
}
