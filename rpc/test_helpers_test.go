package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"deedvault/core"
	"deedvault/storage"
)

const testAuthToken = "rpc-test-token"

type testEnv struct {
	node   *core.Node
	server *Server
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	rpcSeller    = testAddr(0x01)
	rpcInspector = testAddr(0x02)
	rpcBuyer     = testAddr(0x03)
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func hexAddr(addr [20]byte) string {
	return common.Address(addr).Hex()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	node := core.NewNode(storage.NewMemDB(), rpcSeller, rpcInspector)
	server := NewServer(node)
	server.SetAuthToken(testAuthToken)
	return &testEnv{node: node, server: server}
}

func (env *testEnv) newRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+testAuthToken)
	return req
}

// mintAndList prepares a settled-up seller side: deed 1 minted, vault
// approved, listed at 20 ether.
func (env *testEnv) mintAndList(t *testing.T) {
	t.Helper()
	if _, err := env.node.MintDeed(rpcSeller, "ipfs://deed/1"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	vault, err := env.node.VaultAddress()
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	if err := env.node.ApproveDeed(rpcSeller, vault, 1); err != nil {
		t.Fatalf("approve vault: %v", err)
	}
	if _, err := env.node.CreateListing(rpcSeller, 1, ether(20)); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func marshalParam(t *testing.T, payload interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal param: %v", err)
	}
	return raw
}

func decodeRPCResponse(t *testing.T, recorder *httptest.ResponseRecorder) (json.RawMessage, *RPCError) {
	t.Helper()
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
	return resp.Result, resp.Error
}
