package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/friendsofgo/errors"

	"github.com/cryptoclash/backend/pkg/spec"
)

// executeOptions asks the ledger for the full report: effects, object
// changes, balance changes, and the raw effect bytes wallets need.
var executeOptions = map[string]bool{
	"showInput":          true,
	"showEffects":        true,
	"showRawEffects":     true,
	"showEvents":         true,
	"showObjectChanges":  true,
	"showBalanceChanges": true,
}

// txResponse models the execution report. The ledger does not populate
// every field on every method, so everything past the digest is optional
// and readers fall back explicitly instead of probing.
type txResponse struct {
	Digest         string          `json:"digest"`
	Effects        *txEffects      `json:"effects"`
	ObjectChanges  []objectChange  `json:"objectChanges"`
	BalanceChanges []balanceChange `json:"balanceChanges"`
	RawEffects     json.RawMessage `json:"rawEffects"`
	Transaction    *txInput        `json:"transaction"`
}

type txEffects struct {
	Status  txStatus     `json:"status"`
	Created []createdRef `json:"created"`
}

type txStatus struct {
	Status string `json:"status"` // "success" or "failure"
	Error  string `json:"error"`
}

type createdRef struct {
	Reference objectRef `json:"reference"`
}

type objectRef struct {
	ObjectID string `json:"objectId"`
}

type objectChange struct {
	Type       string `json:"type"` // created / mutated / deleted / ...
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
}

type balanceChange struct {
	Owner    ownerField `json:"owner"`
	CoinType string     `json:"coinType"`
	Amount   string     `json:"amount"` // signed decimal string
}

type txInput struct {
	Data struct {
		Sender string `json:"sender"`
	} `json:"data"`
}

// ownerField is either an object like {"AddressOwner": "0x.."} or a bare
// string such as "Immutable", depending on the owner kind.
type ownerField struct {
	AddressOwner string
}

func (o *ownerField) UnmarshalJSON(data []byte) error {
	var tagged struct {
		AddressOwner string `json:"AddressOwner"`
	}
	if err := json.Unmarshal(data, &tagged); err == nil {
		o.AddressOwner = tagged.AddressOwner
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.AddressOwner = ""
		return nil
	}
	return fmt.Errorf("unrecognized owner shape: %s", data)
}

func (r *txResponse) status() txStatus {
	if r.Effects == nil {
		return txStatus{}
	}
	return r.Effects.Status
}

func (r *txResponse) succeeded() bool {
	return r.status().Status == "success"
}

func (r *txResponse) failure() string {
	if msg := r.status().Error; msg != "" {
		return msg
	}
	return "unknown error"
}

// rawEffectsBase64 normalizes the rawEffects field, which arrives either as
// a JSON array of byte values or as an already-encoded base64 string.
func (r *txResponse) rawEffectsBase64() string {
	if len(r.RawEffects) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.RawEffects, &s); err == nil {
		return s
	}
	var ints []int
	if err := json.Unmarshal(r.RawEffects, &ints); err == nil {
		raw := make([]byte, len(ints))
		for i, v := range ints {
			raw[i] = byte(v)
		}
		return base64.StdEncoding.EncodeToString(raw)
	}
	return ""
}

// decodeTxBytes handles both build-response shapes: a bare base64 string
// and an object carrying a txBytes field.
func decodeTxBytes(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var obj struct {
		TxBytes string `json:"txBytes"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.TxBytes != "" {
		return obj.TxBytes, nil
	}
	return "", &TransportError{Op: "build transaction", Err: fmt.Errorf("unexpected response shape: %s", raw)}
}

// buildMoveCall asks the ledger to construct unsigned transaction bytes for
// a move call. The ledger resolves gas and object references, not us.
func (c *Client) buildMoveCall(ctx context.Context, sender string, call spec.MoveCall) (string, error) {
	typeArgs := call.TypeArgs
	if typeArgs == nil {
		typeArgs = []string{}
	}
	args := call.Args
	if args == nil {
		args = []any{}
	}
	gasBudget := call.GasBudget
	if gasBudget == 0 {
		gasBudget = c.cfg.GasBudget
	}
	var raw json.RawMessage
	params := []any{
		sender,
		call.Package,
		call.Module,
		call.Function,
		typeArgs,
		args,
		nil, // gas object: let the ledger pick one
		strconv.FormatUint(gasBudget, 10),
	}
	if err := c.rpc.Call(ctx, "unsafe_moveCall", params, &raw); err != nil {
		return "", err
	}
	return decodeTxBytes(raw)
}

// executeTx submits already-signed transaction bytes, waiting for local
// execution so the returned effects are final. The ledger sometimes rejects
// a lost object race in the response envelope rather than in the effects,
// so envelope errors carrying a conflict message are reclassified as
// ConflictError here too.
func (c *Client) executeTx(ctx context.Context, txBytes string, signatures []string) (*txResponse, error) {
	var res txResponse
	params := []any{txBytes, signatures, executeOptions, "WaitForLocalExecution"}
	if err := c.rpc.Call(ctx, "sui_executeTransactionBlock", params, &res); err != nil {
		var rpcErr *RpcError
		if errors.As(err, &rpcErr) && isConflictMessage(rpcErr.Message) {
			return nil, &ConflictError{Op: "execute transaction", Err: err}
		}
		return nil, err
	}
	return &res, nil
}

// submit signs the transaction bytes and executes them.
func (c *Client) submit(ctx context.Context, signer spec.Signer, txBytes string) (*txResponse, error) {
	signature, err := signer.SignBase64(txBytes)
	if err != nil {
		return nil, err
	}
	return c.executeTx(ctx, txBytes, []string{signature})
}

// execMoveCall builds, signs, and submits one move call.
func (c *Client) execMoveCall(ctx context.Context, signer spec.Signer, call spec.MoveCall) (*txResponse, error) {
	if call.Package == "" {
		call.Package = c.cfg.PackageID
	}
	txBytes, err := c.buildMoveCall(ctx, signer.Address(), call)
	if err != nil {
		return nil, err
	}
	return c.submit(ctx, signer, txBytes)
}

// Execute runs a move call end to end and normalizes the outcome. A
// transaction the ledger executed but reported failed comes back as a
// result with Success=false, not as an error; only transport, signing,
// and request-rejection failures are errors.
func (c *Client) Execute(ctx context.Context, signer spec.Signer, call spec.MoveCall) (*spec.ExecutionResult, error) {
	res, err := c.execMoveCall(ctx, signer, call)
	if err != nil {
		c.metrics.CountTransaction(call.Function, "error")
		return nil, err
	}
	out := &spec.ExecutionResult{
		Digest:     res.Digest,
		Success:    res.succeeded(),
		RawEffects: res.rawEffectsBase64(),
	}
	if !out.Success {
		out.Error = res.failure()
	}
	for _, change := range res.ObjectChanges {
		if change.Type == "created" {
			out.Created = append(out.Created, spec.CreatedObject{
				ObjectID:   change.ObjectID,
				ObjectType: change.ObjectType,
			})
		}
	}
	for _, change := range res.BalanceChanges {
		amount, err := strconv.ParseInt(change.Amount, 10, 64)
		if err != nil {
			continue
		}
		out.BalanceChanges = append(out.BalanceChanges, spec.BalanceChange{
			Owner:  change.Owner.AddressOwner,
			Amount: amount,
		})
	}
	status := "success"
	if !out.Success {
		status = "failure"
	}
	c.metrics.CountTransaction(call.Function, status)
	return out, nil
}

// checkExecution turns a non-success execution report into a typed error:
// a *ConflictError when the ledger lost an object-version race (retryable
// after re-querying), an *ExecutionError otherwise.
func checkExecution(op string, res *txResponse) error {
	if res.succeeded() {
		return nil
	}
	msg := res.failure()
	if isConflictMessage(msg) {
		return &ConflictError{Op: op, Err: &ExecutionError{Op: op, Digest: res.Digest, Reason: msg}}
	}
	return &ExecutionError{Op: op, Digest: res.Digest, Reason: msg}
}

// createdObjectOfType extracts "what did this transaction create" with the
// two-tier policy: the explicit objectChanges list is authoritative when
// populated; otherwise each effects-created candidate is looked up on chain
// to confirm its type, first match wins. The fallback exists because the
// ledger does not populate objectChanges uniformly across methods.
func (c *Client) createdObjectOfType(ctx context.Context, res *txResponse, match func(string) bool) string {
	for _, change := range res.ObjectChanges {
		if change.Type == "created" && match(change.ObjectType) {
			return change.ObjectID
		}
	}

	if res.Effects == nil {
		return ""
	}
	for _, created := range res.Effects.Created {
		id := created.Reference.ObjectID
		if id == "" {
			continue
		}
		objType, err := c.objectType(ctx, id)
		if err != nil {
			continue
		}
		if match(objType) {
			return id
		}
	}
	return ""
}

// objectType fetches just the type of an object.
func (c *Client) objectType(ctx context.Context, objectID string) (string, error) {
	var res objectResponse
	params := []any{objectID, map[string]bool{"showType": true, "showContent": false}}
	if err := c.rpc.Call(ctx, "sui_getObject", params, &res); err != nil {
		return "", err
	}
	if res.Data == nil {
		return "", &NotFoundError{ObjectID: objectID}
	}
	return res.Data.Type, nil
}
