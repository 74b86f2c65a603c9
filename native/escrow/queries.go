package escrow

import "math/big"

// Queries are read-only and require no authorization.

// Listing returns a copy of the sale record for the given deed id.
func (l *Ledger) Listing(id uint64) (*Listing, error) {
	return l.loadListing(id)
}

// ListingCount reports how many listings the ledger has ever opened. Listings
// are never deleted, so the count only grows.
func (l *Ledger) ListingCount() (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	return l.state.ListingCount()
}

// CalculateDownPayment returns the immutable down payment recorded for the
// listing at list() time.
func (l *Ledger) CalculateDownPayment(id uint64) (*big.Int, error) {
	listing, err := l.loadListing(id)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(listing.DownPayment), nil
}

// CustodyBalance reports the currency currently held in escrow for a listing.
func (l *Ledger) CustodyBalance(id uint64) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if _, ok := l.state.ListingGet(id); !ok {
		return nil, ErrNotFound
	}
	return l.state.CustodyBalance(id)
}

// ListingsPendingInspection returns the ids awaiting the given inspector's
// decision.
func (l *Ledger) ListingsPendingInspection(addr [20]byte) ([]uint64, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.PendingList(RoleInspector, addr)
}

// ListingsPendingSale returns the ids awaiting the given seller's sale
// approval.
func (l *Ledger) ListingsPendingSale(addr [20]byte) ([]uint64, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.PendingList(RoleSeller, addr)
}

// ListingsPendingFinalPayment returns the ids awaiting the given buyer's final
// payment.
func (l *Ledger) ListingsPendingFinalPayment(addr [20]byte) ([]uint64, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.PendingList(RoleBuyer, addr)
}

// RoleFor resolves the caller's role relative to a single listing.
func (l *Ledger) RoleFor(addr [20]byte, listing *Listing) Role {
	if l == nil {
		return RoleNone
	}
	switch {
	case addr == l.seller:
		return RoleSeller
	case addr == l.inspector:
		return RoleInspector
	case listing != nil && listing.Buyer == addr && listing.Buyer != ([20]byte{}):
		return RoleBuyer
	default:
		return RoleNone
	}
}

// UserType resolves an address against the whole ledger: the fixed seller and
// inspector first, then buyer if the address is bound to any active listing.
func (l *Ledger) UserType(addr [20]byte) (Role, error) {
	if l == nil || l.state == nil {
		return RoleNone, errNilState
	}
	if addr == l.seller {
		return RoleSeller, nil
	}
	if addr == l.inspector {
		return RoleInspector, nil
	}
	ids, err := l.state.ListingIDs()
	if err != nil {
		return RoleNone, err
	}
	for _, id := range ids {
		listing, ok := l.state.ListingGet(id)
		if !ok {
			continue
		}
		if listing.Buyer == addr && listing.Buyer != ([20]byte{}) {
			return RoleBuyer, nil
		}
	}
	return RoleNone, nil
}
