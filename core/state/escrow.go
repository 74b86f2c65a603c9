package state

import (
	"fmt"
	"math/big"

	"deedvault/native/escrow"
)

type storedListing struct {
	ID            uint64
	Seller        [20]byte
	Buyer         [20]byte
	PurchasePrice *big.Int
	DownPayment   *big.Int
	Status        uint8
	IsListed      bool
	CreatedAt     uint64
}

func toStoredListing(l *escrow.Listing) *storedListing {
	created := uint64(0)
	if l.CreatedAt > 0 {
		created = uint64(l.CreatedAt)
	}
	return &storedListing{
		ID:            l.ID,
		Seller:        l.Seller,
		Buyer:         l.Buyer,
		PurchasePrice: l.PurchasePrice,
		DownPayment:   l.DownPayment,
		Status:        uint8(l.Status),
		IsListed:      l.IsListed,
		CreatedAt:     created,
	}
}

func (s *storedListing) toListing() *escrow.Listing {
	return &escrow.Listing{
		ID:            s.ID,
		Seller:        s.Seller,
		Buyer:         s.Buyer,
		PurchasePrice: s.PurchasePrice,
		DownPayment:   s.DownPayment,
		Status:        escrow.ListingStatus(s.Status),
		IsListed:      s.IsListed,
		CreatedAt:     int64(s.CreatedAt),
	}
}

// ListingPut persists the sanitized listing and tracks its id for iteration.
func (m *Manager) ListingPut(l *escrow.Listing) error {
	sanitized, err := escrow.SanitizeListing(l)
	if err != nil {
		return err
	}
	key := idKey(listingPrefix, sanitized.ID)
	exists, err := m.kvGet(key, nil)
	if err != nil {
		return err
	}
	if !exists {
		ids, err := m.ListingIDs()
		if err != nil {
			return err
		}
		ids = append(ids, sanitized.ID)
		if err := m.kvPut(listingIDsKey, ids); err != nil {
			return err
		}
	}
	return m.kvPut(key, toStoredListing(sanitized))
}

// ListingGet loads a listing by id.
func (m *Manager) ListingGet(id uint64) (*escrow.Listing, bool) {
	var stored storedListing
	ok, err := m.kvGet(idKey(listingPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toListing(), true
}

// ListingIDs returns every listing id ever opened, in creation order.
func (m *Manager) ListingIDs() ([]uint64, error) {
	var ids []uint64
	ok, err := m.kvGet(listingIDsKey, &ids)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []uint64{}, nil
	}
	return ids, nil
}

// ListingCount reports how many listings have been opened. Listings are never
// deleted, so this only grows.
func (m *Manager) ListingCount() (uint64, error) {
	ids, err := m.ListingIDs()
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// CustodyCredit adds escrowed currency against a listing.
func (m *Manager) CustodyCredit(id uint64, amt *big.Int) error {
	if amt == nil || amt.Sign() < 0 {
		return fmt.Errorf("custody: credit amount must be non-negative")
	}
	if _, ok := m.ListingGet(id); !ok {
		return fmt.Errorf("custody: listing %d not found", id)
	}
	if amt.Sign() == 0 {
		return nil
	}
	balance, err := m.CustodyBalance(id)
	if err != nil {
		return err
	}
	return m.kvPut(idKey(custodyPrefix, id), new(big.Int).Add(balance, amt))
}

// CustodyDebit removes escrowed currency held against a listing.
func (m *Manager) CustodyDebit(id uint64, amt *big.Int) error {
	if amt == nil || amt.Sign() < 0 {
		return fmt.Errorf("custody: debit amount must be non-negative")
	}
	balance, err := m.CustodyBalance(id)
	if err != nil {
		return err
	}
	if balance.Cmp(amt) < 0 {
		return fmt.Errorf("custody: insufficient balance for listing %d", id)
	}
	if amt.Sign() == 0 {
		return nil
	}
	return m.kvPut(idKey(custodyPrefix, id), new(big.Int).Sub(balance, amt))
}

// CustodyBalance reports the currency held in escrow for a listing.
func (m *Manager) CustodyBalance(id uint64) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := m.kvGet(idKey(custodyPrefix, id), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// PendingAdd inserts a listing id into the role-holder's pending index.
// Duplicate ids are ignored to keep the index deterministic.
func (m *Manager) PendingAdd(role escrow.Role, addr [20]byte, id uint64) error {
	ids, err := m.PendingList(role, addr)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return m.kvPut(pendingKey(uint8(role), addr), ids)
}

// PendingRemove deletes a listing id from the role-holder's pending index.
func (m *Manager) PendingRemove(role escrow.Role, addr [20]byte, id uint64) error {
	ids, err := m.PendingList(role, addr)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	return m.kvPut(pendingKey(uint8(role), addr), filtered)
}

// PendingList returns the listing ids awaiting the role-holder's decision.
func (m *Manager) PendingList(role escrow.Role, addr [20]byte) ([]uint64, error) {
	var ids []uint64
	ok, err := m.kvGet(pendingKey(uint8(role), addr), &ids)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []uint64{}, nil
	}
	return ids, nil
}
