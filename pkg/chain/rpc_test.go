package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawServer(t *testing.T, handler http.HandlerFunc) *rpcClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newRPCClient(server.URL, 5*time.Second, nil)
}

func TestRPCCallSuccess(t *testing.T) {
	rpc := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, "suix_getCoins", req.Method)
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"value":42}}`, req.Id)
	})

	var result struct {
		Value int `json:"value"`
	}
	err := rpc.Call(context.Background(), "suix_getCoins", []any{"0xabc"}, &result)
	require.NoError(t, err)
	assert.Equal(t, 42, result.Value)
}

func TestRPCCallEnvelopeError(t *testing.T) {
	rpc := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-32602,"message":"invalid params"}}`, req.Id)
	})

	err := rpc.Call(context.Background(), "unsafe_moveCall", nil, nil)
	var rpcErr *RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, "invalid params", rpcErr.Message)
}

func TestRPCCallHTTPError(t *testing.T) {
	rpc := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	err := rpc.Call(context.Background(), "suix_getCoins", nil, nil)
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
}

func TestRPCCallIDMismatch(t *testing.T) {
	rpc := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":9999,"result":{}}`)
	})

	err := rpc.Call(context.Background(), "suix_getCoins", nil, nil)
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "wrong ID")
}

func TestRPCCallMissingResult(t *testing.T) {
	rpc := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d}`, req.Id)
	})

	err := rpc.Call(context.Background(), "suix_getCoins", nil, nil)
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "missing result")
}

func TestRPCCallUnreachable(t *testing.T) {
	rpc := newRPCClient("http://127.0.0.1:1", time.Second, nil)
	err := rpc.Call(context.Background(), "suix_getCoins", nil, nil)
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
}

func TestRPCCallUniqueIDs(t *testing.T) {
	var seen []uint64
	rpc := rawServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req.Id)
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{}}`, req.Id)
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, rpc.Call(context.Background(), "suix_getCoins", nil, nil))
	}
	require.Len(t, seen, 3)
	assert.NotEqual(t, seen[0], seen[1])
	assert.NotEqual(t, seen[1], seen[2])
}
