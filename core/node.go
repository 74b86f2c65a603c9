package core

import (
	"math/big"
	"sync"

	"deedvault/core/events"
	"deedvault/core/state"
	"deedvault/core/types"
	"deedvault/native/escrow"
	"deedvault/native/registry"
	"deedvault/storage"
)

// Node is the central controller, wiring the state manager, the deed registry
// and the escrow ledger together behind a single mutex. Every mutating call
// runs against a fresh ledger so state access stays serialized.
type Node struct {
	db        storage.Database
	seller    [20]byte
	inspector [20]byte

	stateMu sync.Mutex
	events  []types.Event
}

// NewNode creates a node backed by the provided database. The seller and
// inspector addresses are fixed for the lifetime of the node.
func NewNode(db storage.Database, seller, inspector [20]byte) *Node {
	return &Node{db: db, seller: seller, inspector: inspector}
}

// SellerAddress returns the configured listing seller.
func (n *Node) SellerAddress() [20]byte { return n.seller }

// InspectorAddress returns the configured inspector.
func (n *Node) InspectorAddress() [20]byte { return n.inspector }

// VaultAddress returns the address holding escrowed funds and deeds.
func (n *Node) VaultAddress() ([20]byte, error) {
	return state.NewManager(n.db).EscrowVaultAddress()
}

type nodeEventEmitter struct {
	node *Node
}

type eventWithPayload interface {
	Event() *types.Event
}

func (e nodeEventEmitter) Emit(evt events.Event) {
	if e.node == nil || evt == nil {
		return
	}
	payload, ok := evt.(eventWithPayload)
	if !ok {
		return
	}
	event := payload.Event()
	if event == nil {
		return
	}
	e.node.events = append(e.node.events, *event)
}

// vaultRegistry adapts the deed registry to the escrow ledger's transfer
// interface: every transfer is executed with the vault as operator, so a
// seller must approve the vault before listing a deed.
type vaultRegistry struct {
	registry *registry.Registry
	vault    [20]byte
}

func (v vaultRegistry) OwnerOf(id uint64) ([20]byte, error) {
	return v.registry.OwnerOf(id)
}

func (v vaultRegistry) TransferFrom(from, to [20]byte, id uint64) error {
	return v.registry.TransferFrom(v.vault, from, to, id)
}

func (v vaultRegistry) TokenURI(id uint64) (string, error) {
	return v.registry.TokenURI(id)
}

func (n *Node) newDeedRegistry(manager *state.Manager) *registry.Registry {
	reg := registry.NewRegistry()
	reg.SetState(manager)
	reg.SetEmitter(nodeEventEmitter{node: n})
	return reg
}

func (n *Node) newEscrowLedger(manager *state.Manager) (*escrow.Ledger, error) {
	vault, err := manager.EscrowVaultAddress()
	if err != nil {
		return nil, err
	}
	ledger := escrow.NewLedger(n.seller, n.inspector)
	ledger.SetState(manager)
	ledger.SetRegistry(vaultRegistry{registry: n.newDeedRegistry(manager), vault: vault})
	ledger.SetEmitter(nodeEventEmitter{node: n})
	return ledger, nil
}

func (n *Node) withLedger(fn func(*escrow.Ledger) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := state.NewManager(n.db)
	ledger, err := n.newEscrowLedger(manager)
	if err != nil {
		return err
	}
	return fn(ledger)
}

// CreateListing places a deed on the market. Only the seller may list; the
// deed moves into vault custody.
func (n *Node) CreateListing(caller [20]byte, deedID uint64, price *big.Int) (*escrow.Listing, error) {
	var listing *escrow.Listing
	err := n.withLedger(func(l *escrow.Ledger) error {
		created, err := l.List(caller, deedID, price)
		if err != nil {
			return err
		}
		listing = created
		return nil
	})
	return listing, err
}

// RegisterIntentToBuy records the caller as buyer against an exact down payment.
func (n *Node) RegisterIntentToBuy(id uint64, caller [20]byte, payment *big.Int) error {
	return n.withLedger(func(l *escrow.Ledger) error {
		return l.RegisterIntentToBuy(id, caller, payment)
	})
}

// ApproveInspection passes the listing's inspection.
func (n *Node) ApproveInspection(id uint64, caller [20]byte) error {
	return n.withLedger(func(l *escrow.Ledger) error {
		return l.ApproveInspection(id, caller)
	})
}

// RejectInspection fails the inspection and refunds the buyer's down payment.
func (n *Node) RejectInspection(id uint64, caller [20]byte) error {
	return n.withLedger(func(l *escrow.Ledger) error {
		return l.RejectInspection(id, caller)
	})
}

// ApproveSale records the seller's approval after a passed inspection.
func (n *Node) ApproveSale(id uint64, caller [20]byte) error {
	return n.withLedger(func(l *escrow.Ledger) error {
		return l.ApproveSale(id, caller)
	})
}

// DeclineSale cancels the sale after inspection and refunds the buyer.
func (n *Node) DeclineSale(id uint64, caller [20]byte) error {
	return n.withLedger(func(l *escrow.Ledger) error {
		return l.DeclineSale(id, caller)
	})
}

// CompletePurchase settles the remaining balance, pays the seller and hands
// the deed to the buyer.
func (n *Node) CompletePurchase(id uint64, caller [20]byte, payment *big.Int) error {
	return n.withLedger(func(l *escrow.Ledger) error {
		return l.CompletePurchase(id, caller, payment)
	})
}

// DeclinePurchase backs the buyer out at the final step, refunding the down
// payment and relisting the deed.
func (n *Node) DeclinePurchase(id uint64, caller [20]byte) error {
	return n.withLedger(func(l *escrow.Ledger) error {
		return l.DeclinePurchase(id, caller)
	})
}

// GetListing returns the listing stored under the deed id.
func (n *Node) GetListing(id uint64) (*escrow.Listing, error) {
	var listing *escrow.Listing
	err := n.withLedger(func(l *escrow.Ledger) error {
		found, err := l.Listing(id)
		if err != nil {
			return err
		}
		listing = found
		return nil
	})
	return listing, err
}

// ListingCount reports how many deeds have ever been listed.
func (n *Node) ListingCount() (uint64, error) {
	var count uint64
	err := n.withLedger(func(l *escrow.Ledger) error {
		c, err := l.ListingCount()
		if err != nil {
			return err
		}
		count = c
		return nil
	})
	return count, err
}

// CalculateDownPayment returns the fixed down payment for a listing.
func (n *Node) CalculateDownPayment(id uint64) (*big.Int, error) {
	var amount *big.Int
	err := n.withLedger(func(l *escrow.Ledger) error {
		a, err := l.CalculateDownPayment(id)
		if err != nil {
			return err
		}
		amount = a
		return nil
	})
	return amount, err
}

// CustodyBalance returns the funds the vault holds for a listing.
func (n *Node) CustodyBalance(id uint64) (*big.Int, error) {
	var amount *big.Int
	err := n.withLedger(func(l *escrow.Ledger) error {
		a, err := l.CustodyBalance(id)
		if err != nil {
			return err
		}
		amount = a
		return nil
	})
	return amount, err
}

// ListingsPendingInspection returns listing ids awaiting the address's
// inspection verdict.
func (n *Node) ListingsPendingInspection(addr [20]byte) ([]uint64, error) {
	return n.pendingListings(addr, (*escrow.Ledger).ListingsPendingInspection)
}

// ListingsPendingSale returns listing ids awaiting the address's sale approval.
func (n *Node) ListingsPendingSale(addr [20]byte) ([]uint64, error) {
	return n.pendingListings(addr, (*escrow.Ledger).ListingsPendingSale)
}

// ListingsPendingFinalPayment returns listing ids awaiting the address's
// final payment.
func (n *Node) ListingsPendingFinalPayment(addr [20]byte) ([]uint64, error) {
	return n.pendingListings(addr, (*escrow.Ledger).ListingsPendingFinalPayment)
}

func (n *Node) pendingListings(addr [20]byte, query func(*escrow.Ledger, [20]byte) ([]uint64, error)) ([]uint64, error) {
	var ids []uint64
	err := n.withLedger(func(l *escrow.Ledger) error {
		found, err := query(l, addr)
		if err != nil {
			return err
		}
		ids = found
		return nil
	})
	return ids, err
}

// UserType resolves the role an address plays in the marketplace.
func (n *Node) UserType(addr [20]byte) (escrow.Role, error) {
	var role escrow.Role
	err := n.withLedger(func(l *escrow.Ledger) error {
		r, err := l.UserType(addr)
		if err != nil {
			return err
		}
		role = r
		return nil
	})
	return role, err
}

// GetAccount returns the balance record for an address.
func (n *Node) GetAccount(addr []byte) (*types.Account, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return state.NewManager(n.db).GetAccount(addr)
}

// Credit adds funds to an account. It backs genesis allocations and test
// faucets; amounts must be positive.
func (n *Node) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return escrow.ErrInvalidPayment
	}
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := state.NewManager(n.db)
	account, err := manager.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return manager.PutAccount(addr[:], account)
}

// SeedAllocation pairs an address with a starting balance.
type SeedAllocation struct {
	Address [20]byte
	Balance *big.Int
}

// SeedAllocations credits genesis balances exactly once. Subsequent calls are
// no-ops so restarts do not double-credit accounts.
func (n *Node) SeedAllocations(allocs []SeedAllocation) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := state.NewManager(n.db)
	applied, err := manager.SeedApplied()
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	for _, alloc := range allocs {
		if alloc.Balance == nil || alloc.Balance.Sign() <= 0 {
			continue
		}
		account, err := manager.GetAccount(alloc.Address[:])
		if err != nil {
			return err
		}
		account.Balance = new(big.Int).Add(account.Balance, alloc.Balance)
		if err := manager.PutAccount(alloc.Address[:], account); err != nil {
			return err
		}
	}
	return manager.MarkSeedApplied()
}

// MintDeed issues a new deed to the owner.
func (n *Node) MintDeed(owner [20]byte, uri string) (*registry.Deed, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.newDeedRegistry(state.NewManager(n.db)).Mint(owner, uri)
}

// ApproveDeed authorizes an operator to transfer the deed. Sellers approve
// the vault address before listing.
func (n *Node) ApproveDeed(caller, operator [20]byte, id uint64) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.newDeedRegistry(state.NewManager(n.db)).Approve(caller, operator, id)
}

// GetDeed returns the deed record stored under the id.
func (n *Node) GetDeed(id uint64) (*registry.Deed, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.newDeedRegistry(state.NewManager(n.db)).Deed(id)
}

// DeedOwner returns the current owner of a deed.
func (n *Node) DeedOwner(id uint64) ([20]byte, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.newDeedRegistry(state.NewManager(n.db)).OwnerOf(id)
}

// DeedURI returns the metadata pointer for a deed.
func (n *Node) DeedURI(id uint64) (string, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.newDeedRegistry(state.NewManager(n.db)).TokenURI(id)
}

// DeedTotalSupply reports how many deeds have been minted.
func (n *Node) DeedTotalSupply() (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.newDeedRegistry(state.NewManager(n.db)).TotalSupply()
}

// Events returns a copy of the events emitted since the node started.
func (n *Node) Events() []types.Event {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	out := make([]types.Event, len(n.events))
	copy(out, n.events)
	return out
}
