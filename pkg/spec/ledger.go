package spec

import "context"

// Ledger provides access to the battle contract on the chain.
// All state lives on-chain; every call re-reads it.
type Ledger interface {
	// MintTokens mints battle tokens to a recipient, signed by the admin.
	MintTokens(ctx context.Context, recipient string, amount uint64) (*MintResult, error)

	// CreateBattle prepares a stake coin for player1 (unless one is supplied)
	// and executes the create move call.
	CreateBattle(ctx context.Context, params CreateBattleParams) (*CreateBattleResult, error)

	// SubmitSignedBattle executes a create transaction that was built and
	// signed by the frontend wallet, and extracts the new battle id.
	SubmitSignedBattle(ctx context.Context, txBytesB64 string, signatureB64 string) (*CreateBattleResult, error)

	// JoinBattle stakes player2 into an existing battle. The stake coin is
	// auto-prepared when coinObjectID is empty.
	JoinBattle(ctx context.Context, battleID, player2 string, stake uint64, coinObjectID string) (*JoinBattleResult, error)

	// FinalizeBattle pays out the battle to the winner using the admin capability.
	FinalizeBattle(ctx context.Context, battleID, winner string) (*FinalizeBattleResult, error)

	// GetBattleDetails reads a battle object from the chain.
	GetBattleDetails(ctx context.Context, battleID string) (*Battle, error)

	// GetUserBalance returns the owner's coin objects and their total balance.
	GetUserBalance(ctx context.Context, address string) (*BalanceSnapshot, error)
}

// Signer produces signatures over transaction bytes. It owns its key
// material exclusively and never exposes it.
type Signer interface {
	// Address returns the on-chain address derived from the public key.
	Address() string
	// SignBase64 signs base64-encoded transaction bytes and returns
	// the base64-encoded signature.
	SignBase64(txBytesB64 string) (string, error)
}

// CreateBattleParams carries the inputs for a backend-built create call.
type CreateBattleParams struct {
	Player1      string // staking player's address
	StakeAmount  uint64 // stake in raw token units
	CoinObjectID string // optional pre-prepared stake coin; auto-selected if empty
	Opponent     string // optional pre-selected opponent address
}
