package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cryptoclash/backend/pkg/metrics"
)

// rpcClient issues JSON-RPC requests to the ledger endpoint.
// Thread-safe, can be shared across goroutines. Exactly one network round
// trip per call; retry policy belongs to callers.
type rpcClient struct {
	url     string
	http    *http.Client
	id      atomic.Uint64 // next unique request id
	metrics *metrics.Metrics
}

func newRPCClient(url string, timeout time.Duration, m *metrics.Metrics) *rpcClient {
	return &rpcClient{
		url:     url,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// Call issues one JSON-RPC request and unmarshals the result into result
// (which may be nil to discard it). An error field in the response envelope
// becomes *RpcError; everything transport-shaped becomes *TransportError.
func (c *rpcClient) Call(ctx context.Context, method string, params []any, result any) error {
	start := time.Now()
	err := c.call(ctx, method, params, result)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveRPC(method, outcome, time.Since(start))
	return err
}

func (c *rpcClient) call(ctx context.Context, method string, params []any, result any) error {
	id := c.id.Add(1) // each request should use a unique ID
	if params == nil {
		params = []any{}
	}
	body := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		Id:      id,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Op: "marshal request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(payload))
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method, Err: err}
	}
	// we MUST read all of res.Body and call res.Close,
	// otherwise the underlying connection cannot be re-used.
	defer res.Body.Close()
	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}
	if res.StatusCode != http.StatusOK {
		return &TransportError{Op: method, Err: fmt.Errorf("status code: %s", res.Status)}
	}
	var rpcres rpcResponse
	if err := json.Unmarshal(resBytes, &rpcres); err != nil {
		return &TransportError{Op: "unmarshal response", Err: err}
	}
	if rpcres.Id != body.Id {
		return &TransportError{Op: method, Err: fmt.Errorf("wrong ID returned: %v vs %v", rpcres.Id, body.Id)}
	}
	if rpcres.Error != nil {
		return &RpcError{Code: rpcres.Error.Code, Message: rpcres.Error.Message}
	}
	if rpcres.Result == nil {
		return &TransportError{Op: method, Err: fmt.Errorf("missing result")}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(*rpcres.Result, result); err != nil {
		return &TransportError{Op: "unmarshal result", Err: err}
	}
	return nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	Id      uint64 `json:"id"`
}

type rpcResponse struct {
	Id     uint64           `json:"id"`
	Result *json.RawMessage `json:"result"`
	Error  *rpcErrorBody    `json:"error"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
