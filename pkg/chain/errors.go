package chain

import (
	"fmt"
	"strings"

	"github.com/friendsofgo/errors"
)

// ErrNotConfigured is returned by mutating operations when the client is
// missing required configuration (package id, admin capability, signer).
var ErrNotConfigured = errors.New("chain client not fully configured")

// TransportError is a network/HTTP-level failure: non-2xx status, malformed
// body, or timeout. The request may or may not have reached the ledger;
// callers decide whether to retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RpcError is an error reported in the JSON-RPC response envelope: the
// ledger received the request and rejected it.
type RpcError struct {
	Code    int
	Message string
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ExecutionError is a transaction that the ledger executed and reported
// as failed. Distinct from RpcError: the transaction was accepted, ran,
// and its effects carry a non-success status.
type ExecutionError struct {
	Op     string
	Digest string
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Reason)
}

// QueryError wraps a transport or RPC failure on a read path.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NotFoundError reports an object that is absent or deleted on chain.
type NotFoundError struct {
	ObjectID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %s not found", e.ObjectID)
}

// MalformedObjectError reports an object (or transaction result) missing
// fields this system requires.
type MalformedObjectError struct {
	ObjectID string
	Reason   string
}

func (e *MalformedObjectError) Error() string {
	if e.ObjectID == "" {
		return fmt.Sprintf("malformed object: %s", e.Reason)
	}
	return fmt.Sprintf("malformed object %s: %s", e.ObjectID, e.Reason)
}

// InsufficientBalanceError means the owner cannot cover the requested
// amount. Never retried; the owner must top up first.
type InsufficientBalanceError struct {
	Address   string
	Required  uint64
	Available uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: required %d, available %d", e.Address, e.Required, e.Available)
}

// CoinPreparationError is a split/merge sequence that failed partway.
// There is no rollback on the ledger: Merged lists the source coins already
// folded into Destination so an operator can reconcile the owner's coin set.
type CoinPreparationError struct {
	Address     string
	Destination string   // merge destination coin, if the merge phase started
	Merged      []string // source coins merged before the failure
	Err         error
}

func (e *CoinPreparationError) Error() string {
	if len(e.Merged) > 0 {
		return fmt.Sprintf("coin preparation for %s failed after merging %d coins into %s: %v",
			e.Address, len(e.Merged), e.Destination, e.Err)
	}
	return fmt.Sprintf("coin preparation for %s failed: %v", e.Address, e.Err)
}

func (e *CoinPreparationError) Unwrap() error { return e.Err }

// ConflictError is a ledger rejection caused by a concurrent mutation of
// the same owned object. Safe to retry after re-querying the object set.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("object conflict during %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// SigningError means the signer is unavailable or the key material is
// malformed. Fatal; a configuration problem, not a transient one.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signing: %s", e.Reason)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Fragments the ledger uses when a transaction loses an object-version
// race. This is the only conflict signal the wire exposes.
var conflictFragments = []string{
	"not available for consumption",
	"ObjectVersionUnavailableForConsumption",
	"is locked",
	"version mismatch",
}

func isConflictMessage(msg string) bool {
	for _, f := range conflictFragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}
