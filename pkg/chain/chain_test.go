package chain

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// ledgerStub is a fake JSON-RPC ledger endpoint. Tests register a handler
// per method and inspect call counts afterwards.
type ledgerStub struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]func(params []json.RawMessage) (any, *rpcErrorBody)
	calls    map[string]int
}

func newLedgerStub(t *testing.T) *ledgerStub {
	s := &ledgerStub{
		t:        t,
		handlers: make(map[string]func(params []json.RawMessage) (any, *rpcErrorBody)),
		calls:    make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)
	return s
}

func (s *ledgerStub) handle(method string, fn func(params []json.RawMessage) (any, *rpcErrorBody)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

func (s *ledgerStub) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *ledgerStub) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		Id     uint64            `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls[req.Method]++
	fn := s.handlers[req.Method]
	s.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.Id}
	if fn == nil {
		resp["error"] = rpcErrorBody{Code: -32601, Message: "method not found: " + req.Method}
	} else if result, rpcErr := fn(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// asString decodes a JSON-encoded string parameter.
func asString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func asStrings(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var out []string
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSigner(t *testing.T) *Ed25519Signer {
	t.Helper()
	signer, err := NewEd25519Signer(strings.Repeat("11", 32))
	require.NoError(t, err)
	return signer
}

func testClient(t *testing.T, stub *ledgerStub) *Client {
	t.Helper()
	signer := testSigner(t)
	return NewClient(Config{
		RPCURL:          stub.server.URL,
		PackageID:       "0xpkg",
		AdminCapID:      "0xcap",
		DeployerAddress: signer.Address(),
	}, signer, nil, testLogger())
}

// markerTx encodes an opaque marker as base64 transaction bytes so the
// execute handler can tell sub-transactions apart.
func markerTx(marker string) map[string]any {
	return map[string]any{"txBytes": base64.StdEncoding.EncodeToString([]byte(marker))}
}

func txMarker(t *testing.T, params []json.RawMessage) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(asString(t, params[0]))
	require.NoError(t, err)
	return string(raw)
}

// coinsPage builds one suix_getCoins page from id/balance pairs.
func coinsPage(next string, coins ...[2]string) map[string]any {
	data := make([]map[string]any, 0, len(coins))
	for _, c := range coins {
		data = append(data, map[string]any{"coinObjectId": c[0], "balance": c[1]})
	}
	page := map[string]any{"data": data, "hasNextPage": next != ""}
	if next != "" {
		page["nextCursor"] = next
	}
	return page
}

func successExec(objectType, objectID string) map[string]any {
	res := map[string]any{
		"digest":  "0xDIGEST",
		"effects": map[string]any{"status": map[string]any{"status": "success"}},
	}
	if objectID != "" {
		res["objectChanges"] = []map[string]any{
			{"type": "created", "objectType": objectType, "objectId": objectID},
		}
	}
	return res
}

func failedExec(msg string) map[string]any {
	return map[string]any{
		"digest":  "0xFAILED",
		"effects": map[string]any{"status": map[string]any{"status": "failure", "error": msg}},
	}
}

const testCoinObjectType = "0x2::coin::Coin<0x2::oct::OCT>"
