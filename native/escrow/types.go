package escrow

import (
	"fmt"
	"math/big"
)

// ListingStatus represents the lifecycle states of a single property sale
// managed by the ledger.
type ListingStatus uint8

const (
	StatusListed ListingStatus = iota
	StatusPendingInspection
	StatusInspectionApproved
	StatusPendingFinalPayment
	StatusSold
)

// downPaymentRateBps is the fixed fraction of the purchase price a buyer must
// attach when registering intent, expressed in basis points.
const downPaymentRateBps = 1_000

// Listing captures the sale record for one tokenized property. The identifier
// doubles as the deed token id in the asset registry. Listings are never
// deleted; terminal states persist for audit.
type Listing struct {
	ID            uint64
	Seller        [20]byte
	Buyer         [20]byte
	PurchasePrice *big.Int
	DownPayment   *big.Int
	Status        ListingStatus
	IsListed      bool
	CreatedAt     int64
}

// Clone returns a deep copy of the listing so callers can safely mutate the
// copy without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.PurchasePrice != nil {
		clone.PurchasePrice = new(big.Int).Set(l.PurchasePrice)
	} else {
		clone.PurchasePrice = big.NewInt(0)
	}
	if l.DownPayment != nil {
		clone.DownPayment = new(big.Int).Set(l.DownPayment)
	} else {
		clone.DownPayment = big.NewInt(0)
	}
	return &clone
}

// Valid reports whether the status value is within the supported range.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusListed, StatusPendingInspection, StatusInspectionApproved, StatusPendingFinalPayment, StatusSold:
		return true
	default:
		return false
	}
}

func (s ListingStatus) String() string {
	switch s {
	case StatusListed:
		return "LISTED"
	case StatusPendingInspection:
		return "PENDING_INSPECTION"
	case StatusInspectionApproved:
		return "INSPECTION_APPROVED"
	case StatusPendingFinalPayment:
		return "PENDING_FINAL_PAYMENT"
	case StatusSold:
		return "SOLD"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// DownPaymentFor derives the fixed-rate down payment from a purchase price.
// The result is computed once at listing time and never changes afterwards.
func DownPaymentFor(price *big.Int) *big.Int {
	if price == nil {
		return big.NewInt(0)
	}
	amount := new(big.Int).Mul(price, big.NewInt(downPaymentRateBps))
	return amount.Div(amount, big.NewInt(10_000))
}

// SanitizeListing validates and normalises the supplied listing, returning a
// cloned instance with non-nil amount fields. The function does not mutate the
// original value.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("escrow: nil listing")
	}
	clone := l.Clone()
	if clone.PurchasePrice.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: purchase price must be positive")
	}
	if clone.DownPayment.Sign() < 0 {
		return nil, fmt.Errorf("escrow: down payment must be non-negative")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid listing status: %d", clone.Status)
	}
	if clone.Status >= StatusPendingInspection && clone.Status != StatusSold && clone.Buyer == ([20]byte{}) {
		return nil, fmt.Errorf("escrow: buyer required for status %s", clone.Status)
	}
	return clone, nil
}

// Role classifies an address relative to the ledger. Seller and inspector are
// fixed for the life of the ledger instance; buyer is bound per listing when
// intent is registered and cleared on any rejection.
type Role uint8

const (
	RoleNone Role = iota
	RoleSeller
	RoleBuyer
	RoleInspector
)

func (r Role) String() string {
	switch r {
	case RoleSeller:
		return "SELLER"
	case RoleBuyer:
		return "BUYER"
	case RoleInspector:
		return "INSPECTOR"
	default:
		return "NONE"
	}
}
