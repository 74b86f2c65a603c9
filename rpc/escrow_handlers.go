package rpc

import (
	"errors"
	"math/big"
	"net/http"

	"deedvault/core/types"
	"deedvault/native/escrow"
	"deedvault/observability"
)

const (
	codeEscrowInvalidParams = -32021
	codeEscrowNotFound      = -32022
	codeEscrowForbidden     = -32023
	codeEscrowConflict      = -32024
	codeEscrowInternal      = -32025
)

type escrowListParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
	Price  string `json:"price"`
}

type escrowIDParams struct {
	ID uint64 `json:"id"`
}

type escrowActorParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

type escrowPaymentParams struct {
	ID      uint64 `json:"id"`
	Caller  string `json:"caller"`
	Payment string `json:"payment"`
}

type escrowAddressParams struct {
	Address string `json:"address"`
}

type listingJSON struct {
	ID            uint64 `json:"id"`
	Seller        string `json:"seller"`
	Buyer         string `json:"buyer,omitempty"`
	PurchasePrice string `json:"purchasePrice"`
	DownPayment   string `json:"downPayment"`
	Status        string `json:"status"`
	IsListed      bool   `json:"isListed"`
	CreatedAt     int64  `json:"createdAt"`
}

func formatListingJSON(l *escrow.Listing) listingJSON {
	out := listingJSON{
		ID:            l.ID,
		Seller:        formatAddress(l.Seller),
		PurchasePrice: l.PurchasePrice.String(),
		DownPayment:   l.DownPayment.String(),
		Status:        l.Status.String(),
		IsListed:      l.IsListed,
		CreatedAt:     l.CreatedAt,
	}
	if l.Buyer != ([20]byte{}) {
		out.Buyer = formatAddress(l.Buyer)
	}
	return out
}

func (s *Server) handleEscrowList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowListParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	listing, err := s.node.CreateListing(caller, params.ID, price)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	observability.Escrow().RecordTransition("list")
	writeResult(w, req.ID, formatListingJSON(listing))
}

func (s *Server) handleEscrowRegisterIntent(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	params, caller, payment, ok := s.decodePaymentParams(w, req)
	if !ok {
		return
	}
	if err := s.node.RegisterIntentToBuy(params.ID, caller, payment); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	observability.Escrow().RecordTransition("register_intent")
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleEscrowApproveInspection(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleActorOp(w, req, "approve_inspection", s.node.ApproveInspection)
}

func (s *Server) handleEscrowRejectInspection(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.handleActorOp(w, req, "reject_inspection", s.node.RejectInspection) {
		observability.Escrow().RecordRefund()
	}
}

func (s *Server) handleEscrowApproveSale(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleActorOp(w, req, "approve_sale", s.node.ApproveSale)
}

func (s *Server) handleEscrowDeclineSale(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.handleActorOp(w, req, "decline_sale", s.node.DeclineSale) {
		observability.Escrow().RecordRefund()
	}
}

func (s *Server) handleEscrowCompletePurchase(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	params, caller, payment, ok := s.decodePaymentParams(w, req)
	if !ok {
		return
	}
	if err := s.node.CompletePurchase(params.ID, caller, payment); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	observability.Escrow().RecordTransition("complete_purchase")
	observability.Escrow().RecordSettlement()
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleEscrowDeclinePurchase(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.handleActorOp(w, req, "decline_purchase", s.node.DeclinePurchase) {
		observability.Escrow().RecordRefund()
	}
}

func (s *Server) decodePaymentParams(w http.ResponseWriter, req *RPCRequest) (escrowPaymentParams, [20]byte, *big.Int, bool) {
	var params escrowPaymentParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return params, [20]byte{}, nil, false
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return params, [20]byte{}, nil, false
	}
	payment, err := parsePositiveBigInt(params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return params, [20]byte{}, nil, false
	}
	return params, caller, payment, true
}

func (s *Server) handleActorOp(w http.ResponseWriter, req *RPCRequest, operation string, op func(uint64, [20]byte) error) bool {
	var params escrowActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return false
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return false
	}
	if err := op(params.ID, caller); err != nil {
		writeEscrowError(w, req.ID, err)
		return false
	}
	observability.Escrow().RecordTransition(operation)
	writeResult(w, req.ID, "ok")
	return true
}

func (s *Server) handleEscrowGetListing(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	listing, err := s.node.GetListing(params.ID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatListingJSON(listing))
}

func (s *Server) handleEscrowListingCount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	count, err := s.node.ListingCount()
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleEscrowCalculateDownPayment(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := s.node.CalculateDownPayment(params.ID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amount.String())
}

func (s *Server) handleEscrowCustodyBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := s.node.CustodyBalance(params.ID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amount.String())
}

func (s *Server) handleEscrowPendingInspection(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handlePendingQuery(w, req, s.node.ListingsPendingInspection)
}

func (s *Server) handleEscrowPendingSale(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handlePendingQuery(w, req, s.node.ListingsPendingSale)
}

func (s *Server) handleEscrowPendingFinalPayment(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handlePendingQuery(w, req, s.node.ListingsPendingFinalPayment)
}

func (s *Server) handlePendingQuery(w http.ResponseWriter, req *RPCRequest, query func([20]byte) ([]uint64, error)) {
	var params escrowAddressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := query(addr)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeResult(w, req.ID, ids)
}

func (s *Server) handleEscrowUserType(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowAddressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	role, err := s.node.UserType(addr)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, role.String())
}

func (s *Server) handleEscrowListEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	events := s.node.Events()
	if events == nil {
		events = []types.Event{}
	}
	writeResult(w, req.ID, events)
}

func (s *Server) handleEscrowVaultAddress(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, err := s.node.VaultAddress()
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAddress(addr))
}

func writeEscrowError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeEscrowInternal
	message := "internal_error"
	switch {
	case errors.Is(err, escrow.ErrNotFound):
		status = http.StatusNotFound
		code = codeEscrowNotFound
		message = "not_found"
	case errors.Is(err, escrow.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeEscrowForbidden
		message = "forbidden"
	case errors.Is(err, escrow.ErrInvalidState), errors.Is(err, escrow.ErrInvalidPayment):
		status = http.StatusConflict
		code = codeEscrowConflict
		message = "conflict"
	case errors.Is(err, escrow.ErrInvalidPrice):
		status = http.StatusBadRequest
		code = codeEscrowInvalidParams
		message = "invalid_params"
	}
	writeError(w, status, id, code, message, err.Error())
}
