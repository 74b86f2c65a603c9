package rpc

import (
	"errors"
	"net/http"

	"deedvault/native/registry"
)

const (
	codeRegistryInvalidParams = -32031
	codeRegistryNotFound      = -32032
	codeRegistryForbidden     = -32033
	codeRegistryInternal      = -32035
)

type registryMintParams struct {
	Owner string `json:"owner"`
	URI   string `json:"uri"`
}

type registryApproveParams struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	ID       uint64 `json:"id"`
}

type registryIDParams struct {
	ID uint64 `json:"id"`
}

type deedJSON struct {
	ID       uint64 `json:"id"`
	Owner    string `json:"owner"`
	Approved string `json:"approved,omitempty"`
	URI      string `json:"uri"`
	MintedAt int64  `json:"mintedAt"`
}

func formatDeedJSON(d *registry.Deed) deedJSON {
	out := deedJSON{
		ID:       d.ID,
		Owner:    formatAddress(d.Owner),
		URI:      d.URI,
		MintedAt: d.MintedAt,
	}
	if d.Approved != ([20]byte{}) {
		out.Approved = formatAddress(d.Approved)
	}
	return out
}

func (s *Server) handleRegistryMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registryMintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	deed, err := s.node.MintDeed(owner, params.URI)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatDeedJSON(deed))
}

func (s *Server) handleRegistryApprove(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registryApproveParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	operator, err := parseAddress(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.ApproveDeed(caller, operator, params.ID); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleRegistryGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registryIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	deed, err := s.node.GetDeed(params.ID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatDeedJSON(deed))
}

func (s *Server) handleRegistryOwnerOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registryIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := s.node.DeedOwner(params.ID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAddress(owner))
}

func (s *Server) handleRegistryTokenURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registryIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	uri, err := s.node.DeedURI(params.ID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, uri)
}

func (s *Server) handleRegistryTotalSupply(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	supply, err := s.node.DeedTotalSupply()
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, supply)
}

func writeRegistryError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeRegistryInternal
	message := "internal_error"
	switch {
	case errors.Is(err, registry.ErrDeedNotFound):
		status = http.StatusNotFound
		code = codeRegistryNotFound
		message = "not_found"
	case errors.Is(err, registry.ErrNotOwner), errors.Is(err, registry.ErrNotAuthorized):
		status = http.StatusForbidden
		code = codeRegistryForbidden
		message = "forbidden"
	}
	writeError(w, status, id, code, message, err.Error())
}
