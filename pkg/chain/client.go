// Package chain implements the ledger integration: a JSON-RPC transport,
// coin object queries, coin selection/preparation, transaction execution,
// and the battle lifecycle on top of them.
package chain

import (
	"log/slog"
	"strings"
	"time"

	"github.com/cryptoclash/backend/pkg/metrics"
	"github.com/cryptoclash/backend/pkg/spec"
)

const (
	// DefaultCoinType is the chain's native battle token.
	DefaultCoinType = "0x2::oct::OCT"
	// DefaultGasBudget bounds the cost of one transaction, in raw units.
	DefaultGasBudget uint64 = 10_000_000
	// DefaultTimeout bounds every RPC round trip.
	DefaultTimeout = 30 * time.Second

	coinPageSize = 50
	battleModule = "battle"
	tokenModule  = "battle_token"
)

// Config is the chain client's configuration.
type Config struct {
	RPCURL          string        // ledger JSON-RPC endpoint
	PackageID       string        // on-chain package holding the battle modules
	AdminCapID      string        // admin capability object id
	DeployerAddress string        // deployer/admin address
	CoinType        string        // staking coin type tag; DefaultCoinType if empty
	GasBudget       uint64        // DefaultGasBudget if zero
	Timeout         time.Duration // DefaultTimeout if zero
}

// Client talks to the battle contract over JSON-RPC. Constructed once at
// process start and shared; it holds no chain state between calls.
//
// Callers must not run concurrent mutating operations for the same address:
// two concurrent preparations can race to consume the same coin object. The
// ledger rejects the loser, which surfaces as a retryable *ConflictError.
type Client struct {
	cfg           Config
	rpc           *rpcClient
	admin         spec.Signer // nil in read-only mode
	metrics       *metrics.Metrics
	log           *slog.Logger
	shortCoinType string
}

var _ spec.Ledger = (*Client)(nil)

// NewClient builds a chain client. admin may be nil, in which case every
// mutating operation fails with a *SigningError.
func NewClient(cfg Config, admin spec.Signer, m *metrics.Metrics, log *slog.Logger) *Client {
	if cfg.CoinType == "" {
		cfg.CoinType = DefaultCoinType
	}
	if cfg.GasBudget == 0 {
		cfg.GasBudget = DefaultGasBudget
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:           cfg,
		rpc:           newRPCClient(cfg.RPCURL, cfg.Timeout, m),
		admin:         admin,
		metrics:       m,
		log:           log.With(slog.String("component", "chain")),
		shortCoinType: shortTypeTag(cfg.CoinType),
	}
}

// Configured reports whether the contract identifiers are all present.
func (c *Client) Configured() bool {
	return c.cfg.PackageID != "" && c.cfg.AdminCapID != "" && c.cfg.DeployerAddress != ""
}

// adminSigner returns the admin signer or a typed error when running
// read-only.
func (c *Client) adminSigner() (spec.Signer, error) {
	if c.admin == nil {
		return nil, &SigningError{Reason: "no keypair available for signing"}
	}
	return c.admin, nil
}

// shortTypeTag strips the leading package address from a type tag,
// "0x2::oct::OCT" -> "oct::OCT", so type matching tolerates both the
// canonical and the address-less spelling the ledger uses interchangeably.
func shortTypeTag(tag string) string {
	if i := strings.Index(tag, "::"); i >= 0 {
		return tag[i+2:]
	}
	return tag
}

// matchesCoinType reports whether an object type names a coin of the
// configured staking token.
func (c *Client) matchesCoinType(objectType string) bool {
	if !strings.Contains(objectType, "coin::Coin") {
		return false
	}
	return strings.Contains(objectType, c.cfg.CoinType) || strings.Contains(objectType, c.shortCoinType)
}

// matchesBattleType reports whether an object type names a battle object.
func matchesBattleType(objectType string) bool {
	return strings.Contains(objectType, "battle::Battle")
}
