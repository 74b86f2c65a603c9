package registry

import (
	"encoding/hex"
	"strconv"

	"deedvault/core/types"
)

const (
	EventTypeDeedMinted      = "registry.deed_minted"
	EventTypeDeedApproved    = "registry.deed_approved"
	EventTypeDeedTransferred = "registry.deed_transferred"
)

type deedEvent struct {
	evt *types.Event
}

func (e deedEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e deedEvent) Event() *types.Event { return e.evt }

// NewDeedMintedEvent returns the canonical payload for a newly minted deed.
func NewDeedMintedEvent(d *Deed) *types.Event { return newDeedEvent(EventTypeDeedMinted, d, nil) }

// NewDeedApprovedEvent returns the payload emitted when an operator is
// approved for a deed.
func NewDeedApprovedEvent(d *Deed) *types.Event { return newDeedEvent(EventTypeDeedApproved, d, nil) }

// NewDeedTransferredEvent returns the payload emitted on ownership transfer.
func NewDeedTransferredEvent(d *Deed, from [20]byte) *types.Event {
	return newDeedEvent(EventTypeDeedTransferred, d, &from)
}

func newDeedEvent(eventType string, d *Deed, from *[20]byte) *types.Event {
	attrs := make(map[string]string)
	if d == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(d.ID, 10)
	attrs["owner"] = hex.EncodeToString(d.Owner[:])
	if d.URI != "" {
		attrs["uri"] = d.URI
	}
	if d.Approved != ([20]byte{}) {
		attrs["approved"] = hex.EncodeToString(d.Approved[:])
	}
	if from != nil {
		attrs["from"] = hex.EncodeToString(from[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
