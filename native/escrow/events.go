package escrow

import (
	"encoding/hex"
	"strconv"

	"deedvault/core/types"
)

const (
	EventTypeListed             = "escrow.listed"
	EventTypeInspectionCreated  = "escrow.inspection_created"
	EventTypeInspectionApproved = "escrow.inspection_approved"
	EventTypeInspectionRejected = "escrow.inspection_rejected"
	EventTypeSaleApproved       = "escrow.sale_approved"
	EventTypeSaleDeclined       = "escrow.sale_declined"
	EventTypePurchaseCompleted  = "escrow.purchase_completed"
	EventTypePurchaseDeclined   = "escrow.purchase_declined"
)

// NewListedEvent returns the canonical event payload for a freshly listed
// property.
func NewListedEvent(l *Listing) *types.Event { return newListingEvent(EventTypeListed, l) }

// NewInspectionCreatedEvent returns the event payload emitted when a buyer
// registers intent and the listing enters the inspection pipeline.
func NewInspectionCreatedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeInspectionCreated, l)
}

// NewInspectionApprovedEvent returns the event payload for an inspector
// approval.
func NewInspectionApprovedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeInspectionApproved, l)
}

// NewInspectionRejectedEvent returns the event payload for an inspector
// rejection, which refunds the buyer and relists the property.
func NewInspectionRejectedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeInspectionRejected, l)
}

// NewSaleApprovedEvent returns the event payload emitted when the seller
// approves the sale after inspection.
func NewSaleApprovedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeSaleApproved, l)
}

// NewSaleDeclinedEvent returns the event payload emitted when the seller
// declines the sale after inspection.
func NewSaleDeclinedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeSaleDeclined, l)
}

// NewPurchaseCompletedEvent returns the event payload for a settled purchase.
func NewPurchaseCompletedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypePurchaseCompleted, l)
}

// NewPurchaseDeclinedEvent returns the event payload emitted when the buyer
// backs out at the final payment stage.
func NewPurchaseDeclinedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypePurchaseDeclined, l)
}

func newListingEvent(eventType string, l *Listing) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["purchasePrice"] = sanitized.PurchasePrice.String()
	attrs["downPayment"] = sanitized.DownPayment.String()
	attrs["status"] = sanitized.Status.String()
	attrs["isListed"] = strconv.FormatBool(sanitized.IsListed)
	if sanitized.Buyer != ([20]byte{}) {
		attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
