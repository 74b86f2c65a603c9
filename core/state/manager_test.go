package state

import (
	"bytes"
	"math/big"
	"testing"

	"deedvault/native/escrow"
	"deedvault/native/registry"
	"deedvault/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func testListing(id uint64) *escrow.Listing {
	return &escrow.Listing{
		ID:            id,
		Seller:        testAddr(0x01),
		PurchasePrice: big.NewInt(10_000),
		DownPayment:   big.NewInt(1_000),
		Status:        escrow.StatusListed,
		IsListed:      true,
		CreatedAt:     1_700_000_000,
	}
}

func TestListingRoundTrip(t *testing.T) {
	m := newTestManager(t)

	if _, ok := m.ListingGet(1); ok {
		t.Fatal("empty manager should have no listing")
	}
	if err := m.ListingPut(testListing(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := m.ListingGet(1)
	if !ok {
		t.Fatal("listing not found after put")
	}
	if loaded.ID != 1 || loaded.Seller != testAddr(0x01) || loaded.Status != escrow.StatusListed {
		t.Fatalf("unexpected listing %+v", loaded)
	}
	if loaded.PurchasePrice.Cmp(big.NewInt(10_000)) != 0 || loaded.DownPayment.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("amounts corrupted: %s / %s", loaded.PurchasePrice, loaded.DownPayment)
	}
	if loaded.CreatedAt != 1_700_000_000 || !loaded.IsListed {
		t.Fatalf("unexpected listing metadata %+v", loaded)
	}
}

func TestListingPutRejectsInvalid(t *testing.T) {
	m := newTestManager(t)
	listing := testListing(1)
	listing.PurchasePrice = big.NewInt(0)
	if err := m.ListingPut(listing); err == nil {
		t.Fatal("expected error for non-positive price")
	}
}

func TestListingIDsTrackCreationOrder(t *testing.T) {
	m := newTestManager(t)
	for _, id := range []uint64{3, 1, 7} {
		if err := m.ListingPut(testListing(id)); err != nil {
			t.Fatalf("put %d: %v", id, err)
		}
	}
	// Overwriting must not duplicate the id.
	if err := m.ListingPut(testListing(3)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	ids, err := m.ListingIDs()
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	want := []uint64{3, 1, 7}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
	count, err := m.ListingCount()
	if err != nil || count != 3 {
		t.Fatalf("expected count 3, got %d (%v)", count, err)
	}
}

func TestCustodyLifecycle(t *testing.T) {
	m := newTestManager(t)

	if err := m.CustodyCredit(1, big.NewInt(100)); err == nil {
		t.Fatal("credit against unknown listing should fail")
	}
	if err := m.ListingPut(testListing(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.CustodyCredit(1, big.NewInt(-5)); err == nil {
		t.Fatal("negative credit should fail")
	}
	if err := m.CustodyCredit(1, big.NewInt(1_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := m.CustodyCredit(1, big.NewInt(9_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	balance, err := m.CustodyBalance(1)
	if err != nil || balance.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("expected balance 10000, got %s (%v)", balance, err)
	}
	if err := m.CustodyDebit(1, big.NewInt(20_000)); err == nil {
		t.Fatal("overdraft debit should fail")
	}
	if err := m.CustodyDebit(1, big.NewInt(10_000)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	balance, err = m.CustodyBalance(1)
	if err != nil || balance.Sign() != 0 {
		t.Fatalf("expected drained balance, got %s (%v)", balance, err)
	}
}

func TestPendingIndex(t *testing.T) {
	m := newTestManager(t)
	inspector := testAddr(0x02)

	ids, err := m.PendingList(escrow.RoleInspector, inspector)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty index, got %v (%v)", ids, err)
	}
	if err := m.PendingAdd(escrow.RoleInspector, inspector, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.PendingAdd(escrow.RoleInspector, inspector, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.PendingAdd(escrow.RoleInspector, inspector, 1); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	ids, err = m.PendingList(escrow.RoleInspector, inspector)
	if err != nil || len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected [1 2], got %v (%v)", ids, err)
	}

	// The same address under a different role is a distinct index.
	ids, err = m.PendingList(escrow.RoleSeller, inspector)
	if err != nil || len(ids) != 0 {
		t.Fatalf("role indexes must not collide, got %v (%v)", ids, err)
	}

	if err := m.PendingRemove(escrow.RoleInspector, inspector, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, err = m.PendingList(escrow.RoleInspector, inspector)
	if err != nil || len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("expected [2], got %v (%v)", ids, err)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	m := newTestManager(t)
	addr := testAddr(0x05)

	account, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account.Nonce != 0 || account.Balance.Sign() != 0 {
		t.Fatalf("expected zeroed account, got %+v", account)
	}

	account.Nonce = 3
	account.Balance = big.NewInt(42)
	if err := m.PutAccount(addr[:], account); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Nonce != 3 || loaded.Balance.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("unexpected account %+v", loaded)
	}
}

func TestDeedRoundTrip(t *testing.T) {
	m := newTestManager(t)

	if _, ok := m.DeedGet(1); ok {
		t.Fatal("empty manager should have no deed")
	}
	deed := &registry.Deed{
		ID:       1,
		Owner:    testAddr(0x01),
		Approved: testAddr(0x02),
		URI:      "ipfs://deed/1",
		MintedAt: 1_700_000_000,
	}
	if err := m.DeedPut(deed); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := m.DeedGet(1)
	if !ok {
		t.Fatal("deed not found after put")
	}
	if loaded.Owner != testAddr(0x01) || loaded.Approved != testAddr(0x02) {
		t.Fatalf("unexpected deed %+v", loaded)
	}
	if loaded.URI != "ipfs://deed/1" || loaded.MintedAt != 1_700_000_000 {
		t.Fatalf("unexpected deed metadata %+v", loaded)
	}

	count, err := m.DeedCount()
	if err != nil || count != 0 {
		t.Fatalf("count should be tracked separately, got %d (%v)", count, err)
	}
	if err := m.DeedSetCount(1); err != nil {
		t.Fatalf("set count: %v", err)
	}
	count, err = m.DeedCount()
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d (%v)", count, err)
	}
}

func TestSeedAppliedFlag(t *testing.T) {
	m := newTestManager(t)
	applied, err := m.SeedApplied()
	if err != nil || applied {
		t.Fatalf("fresh database should not be seeded (%v)", err)
	}
	if err := m.MarkSeedApplied(); err != nil {
		t.Fatalf("mark: %v", err)
	}
	applied, err = m.SeedApplied()
	if err != nil || !applied {
		t.Fatalf("seed flag not persisted (%v)", err)
	}
}

func TestEscrowVaultAddressDeterministic(t *testing.T) {
	first, err := newTestManager(t).EscrowVaultAddress()
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	second, err := newTestManager(t).EscrowVaultAddress()
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	if first != second {
		t.Fatal("vault address must be deterministic across databases")
	}
	if first == ([20]byte{}) {
		t.Fatal("vault address must not be zero")
	}
}
