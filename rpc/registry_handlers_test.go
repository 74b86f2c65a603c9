package rpc

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestRegistryMintAndGet(t *testing.T) {
	env := newTestEnv(t)
	payload := map[string]interface{}{"owner": hexAddr(rpcSeller), "uri": "ipfs://deed/1"}
	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleRegistryMint(recorder, env.newRequest(), req)
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("mint failed: %+v", rpcErr)
	}
	var deed deedJSON
	if err := json.Unmarshal(result, &deed); err != nil {
		t.Fatalf("decode deed: %v", err)
	}
	if deed.ID != 1 || deed.Owner != hexAddr(rpcSeller) || deed.URI != "ipfs://deed/1" {
		t.Fatalf("unexpected deed %+v", deed)
	}
	if deed.Approved != "" {
		t.Fatalf("fresh deed should have no approval, got %s", deed.Approved)
	}

	getReq := &RPCRequest{ID: 2, Params: []json.RawMessage{marshalParam(t, map[string]interface{}{"id": 1})}}
	recorder = httptest.NewRecorder()
	env.server.handleRegistryOwnerOf(recorder, env.newRequest(), getReq)
	result, rpcErr = decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("ownerOf failed: %+v", rpcErr)
	}
	var owner string
	if err := json.Unmarshal(result, &owner); err != nil {
		t.Fatalf("decode owner: %v", err)
	}
	if owner != hexAddr(rpcSeller) {
		t.Fatalf("expected seller owner, got %s", owner)
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	env := newTestEnv(t)
	req := &RPCRequest{ID: 3, Params: []json.RawMessage{marshalParam(t, map[string]interface{}{"id": 9})}}
	recorder := httptest.NewRecorder()
	env.server.handleRegistryGet(recorder, env.newRequest(), req)
	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeRegistryNotFound {
		t.Fatalf("expected not found error, got %+v", rpcErr)
	}
}

func TestRegistryApproveRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.node.MintDeed(rpcSeller, "ipfs://deed/1"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	payload := map[string]interface{}{"caller": hexAddr(rpcBuyer), "operator": hexAddr(rpcInspector), "id": 1}
	req := &RPCRequest{ID: 4, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleRegistryApprove(recorder, env.newRequest(), req)
	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeRegistryForbidden {
		t.Fatalf("expected forbidden error, got %+v", rpcErr)
	}
}
