package rpc

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"deedvault/native/escrow"
)

func TestEscrowListInvalidAddress(t *testing.T) {
	env := newTestEnv(t)
	payload := map[string]interface{}{"caller": "not-an-address", "id": 1, "price": "100"}
	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowList(recorder, env.newRequest(), req)
	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil {
		t.Fatal("expected error")
	}
	if rpcErr.Code != codeEscrowInvalidParams {
		t.Fatalf("expected code %d got %d", codeEscrowInvalidParams, rpcErr.Code)
	}
	if rpcErr.Message != "invalid_params" {
		t.Fatalf("expected message invalid_params got %s", rpcErr.Message)
	}
}

func TestEscrowListZeroPrice(t *testing.T) {
	env := newTestEnv(t)
	payload := map[string]interface{}{"caller": hexAddr(rpcSeller), "id": 1, "price": "0"}
	req := &RPCRequest{ID: 2, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowList(recorder, env.newRequest(), req)
	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeEscrowInvalidParams {
		t.Fatalf("expected invalid params error, got %+v", rpcErr)
	}
}

func TestEscrowListUnauthorizedCaller(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndList(t)
	payload := map[string]interface{}{"caller": hexAddr(rpcBuyer), "id": 2, "price": "100"}
	req := &RPCRequest{ID: 3, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowList(recorder, env.newRequest(), req)
	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeEscrowForbidden {
		t.Fatalf("expected forbidden error, got %+v", rpcErr)
	}
}

func TestEscrowGetListing(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndList(t)
	req := &RPCRequest{ID: 4, Params: []json.RawMessage{marshalParam(t, map[string]interface{}{"id": 1})}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowGetListing(recorder, env.newRequest(), req)
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected error %+v", rpcErr)
	}
	var listing listingJSON
	if err := json.Unmarshal(result, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.ID != 1 || listing.Status != "LISTED" || !listing.IsListed {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if listing.PurchasePrice != ether(20).String() || listing.DownPayment != ether(2).String() {
		t.Fatalf("unexpected amounts %+v", listing)
	}
	if listing.Buyer != "" {
		t.Fatalf("buyer should be empty before intent, got %s", listing.Buyer)
	}
}

func TestEscrowGetListingNotFound(t *testing.T) {
	env := newTestEnv(t)
	req := &RPCRequest{ID: 5, Params: []json.RawMessage{marshalParam(t, map[string]interface{}{"id": 9})}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowGetListing(recorder, env.newRequest(), req)
	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeEscrowNotFound {
		t.Fatalf("expected not found error, got %+v", rpcErr)
	}
	if rpcErr.Message != "not_found" {
		t.Fatalf("expected message not_found got %s", rpcErr.Message)
	}
}

func TestEscrowRegisterIntentWrongPayment(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndList(t)
	if err := env.node.Credit(rpcBuyer, ether(5)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	payload := map[string]interface{}{
		"id":      1,
		"caller":  hexAddr(rpcBuyer),
		"payment": ether(1).String(),
	}
	req := &RPCRequest{ID: 6, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowRegisterIntent(recorder, env.newRequest(), req)
	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeEscrowConflict {
		t.Fatalf("expected conflict error, got %+v", rpcErr)
	}
}

func TestEscrowFullLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndList(t)
	if err := env.node.Credit(rpcBuyer, ether(25)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	steps := []struct {
		name    string
		handler handlerFunc
		payload map[string]interface{}
	}{
		{"registerIntent", env.server.handleEscrowRegisterIntent,
			map[string]interface{}{"id": 1, "caller": hexAddr(rpcBuyer), "payment": ether(2).String()}},
		{"approveInspection", env.server.handleEscrowApproveInspection,
			map[string]interface{}{"id": 1, "caller": hexAddr(rpcInspector)}},
		{"approveSale", env.server.handleEscrowApproveSale,
			map[string]interface{}{"id": 1, "caller": hexAddr(rpcSeller)}},
		{"completePurchase", env.server.handleEscrowCompletePurchase,
			map[string]interface{}{"id": 1, "caller": hexAddr(rpcBuyer), "payment": ether(18).String()}},
	}
	for i, step := range steps {
		req := &RPCRequest{ID: 10 + i, Params: []json.RawMessage{marshalParam(t, step.payload)}}
		recorder := httptest.NewRecorder()
		step.handler(recorder, env.newRequest(), req)
		if _, rpcErr := decodeRPCResponse(t, recorder); rpcErr != nil {
			t.Fatalf("%s: unexpected error %+v", step.name, rpcErr)
		}
	}

	listing, err := env.node.GetListing(1)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.Status != escrow.StatusSold {
		t.Fatalf("expected SOLD, got %s", listing.Status)
	}
}

func TestEscrowPendingInspectionQuery(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndList(t)
	if err := env.node.Credit(rpcBuyer, ether(2)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := env.node.RegisterIntentToBuy(1, rpcBuyer, ether(2)); err != nil {
		t.Fatalf("register intent: %v", err)
	}

	payload := map[string]interface{}{"address": hexAddr(rpcInspector)}
	req := &RPCRequest{ID: 20, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowPendingInspection(recorder, env.newRequest(), req)
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected error %+v", rpcErr)
	}
	var ids []uint64
	if err := json.Unmarshal(result, &ids); err != nil {
		t.Fatalf("decode ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected [1], got %v", ids)
	}
}

func TestEscrowUserTypeQuery(t *testing.T) {
	env := newTestEnv(t)
	payload := map[string]interface{}{"address": hexAddr(rpcInspector)}
	req := &RPCRequest{ID: 21, Params: []json.RawMessage{marshalParam(t, payload)}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowUserType(recorder, env.newRequest(), req)
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected error %+v", rpcErr)
	}
	var role string
	if err := json.Unmarshal(result, &role); err != nil {
		t.Fatalf("decode role: %v", err)
	}
	if role != "INSPECTOR" {
		t.Fatalf("expected INSPECTOR, got %s", role)
	}
}

func TestEscrowCalculateDownPayment(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndList(t)
	req := &RPCRequest{ID: 22, Params: []json.RawMessage{marshalParam(t, map[string]interface{}{"id": 1})}}
	recorder := httptest.NewRecorder()
	env.server.handleEscrowCalculateDownPayment(recorder, env.newRequest(), req)
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected error %+v", rpcErr)
	}
	var amount string
	if err := json.Unmarshal(result, &amount); err != nil {
		t.Fatalf("decode amount: %v", err)
	}
	if amount != ether(2).String() {
		t.Fatalf("expected %s, got %s", ether(2), amount)
	}
}
