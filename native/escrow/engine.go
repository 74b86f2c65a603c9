package escrow

import (
	"fmt"
	"math/big"
	"time"

	"deedvault/core/events"
	"deedvault/core/types"
)

type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id uint64) (*Listing, bool)
	ListingIDs() ([]uint64, error)
	ListingCount() (uint64, error)
	CustodyCredit(id uint64, amt *big.Int) error
	CustodyDebit(id uint64, amt *big.Int) error
	CustodyBalance(id uint64) (*big.Int, error)
	PendingAdd(role Role, addr [20]byte, id uint64) error
	PendingRemove(role Role, addr [20]byte, id uint64) error
	PendingList(role Role, addr [20]byte) ([]uint64, error)
	EscrowVaultAddress() ([20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// AssetRegistry is the slice of the deed registry the ledger consumes. The
// registry's internal implementation is a collaborator; only transfer and
// ownership semantics matter here.
type AssetRegistry interface {
	OwnerOf(id uint64) ([20]byte, error)
	TransferFrom(from, to [20]byte, id uint64) error
	TokenURI(id uint64) (string, error)
}

type listingEvent struct {
	evt *types.Event
}

func (e listingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e listingEvent) Event() *types.Event { return e.evt }

// Ledger owns one listing record per deed and is the sole entry point for
// every state transition. Seller and inspector are fixed for the life of the
// instance; the buyer is bound per listing at intent registration.
//
// Each operation validates authorization, then status, then payment before
// touching state, so a failed call leaves no observable mutation. The calling
// substrate is responsible for serialising mutating calls (see core.Node).
type Ledger struct {
	state     engineState
	registry  AssetRegistry
	emitter   events.Emitter
	seller    [20]byte
	inspector [20]byte
	nowFn     func() int64
}

// NewLedger creates an escrow ledger bound to the given seller and inspector
// with a no-op emitter. Callers can override the emitter via SetEmitter.
func NewLedger(seller, inspector [20]byte) *Ledger {
	return &Ledger{
		seller:    seller,
		inspector: inspector,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state engineState) { l.state = state }

// SetRegistry configures the deed registry capability used for asset custody.
func (l *Ledger) SetRegistry(registry AssetRegistry) { l.registry = registry }

// SetEmitter configures the event emitter used by the ledger. Passing nil
// resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the time source used by the ledger. Primarily intended
// for tests to provide deterministic timestamps.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

// Seller returns the fixed seller address for this ledger instance.
func (l *Ledger) Seller() [20]byte { return l.seller }

// Inspector returns the fixed inspector address for this ledger instance.
func (l *Ledger) Inspector() [20]byte { return l.inspector }

func (l *Ledger) emit(event *types.Event) {
	if l == nil || l.emitter == nil || event == nil {
		return
	}
	l.emitter.Emit(listingEvent{evt: event})
}

func (l *Ledger) now() int64 {
	if l == nil || l.nowFn == nil {
		return time.Now().Unix()
	}
	return l.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (l *Ledger) loadListing(id uint64) (*Listing, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	listing, ok := l.state.ListingGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return listing, nil
}

func (l *Ledger) storeListing(listing *Listing) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.state.ListingPut(listing)
}

// transferFunds moves currency between two accounts. Balance checks precede
// any mutation so a failed transfer leaves both accounts untouched.
func (l *Ledger) transferFunds(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("escrow: negative transfer amount")
	}
	fromAcc, err := l.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := l.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return fmt.Errorf("escrow: insufficient balance")
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to[:], toAcc)
}

// List places a deed into escrow custody and opens its sale record. The deed
// must be transferable into the vault; in practice the seller approves the
// vault on the registry beforehand.
func (l *Ledger) List(caller [20]byte, id uint64, price *big.Int) (*Listing, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if l.registry == nil {
		return nil, errNilRegistry
	}
	if caller != l.seller {
		return nil, ErrUnauthorized
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if _, ok := l.state.ListingGet(id); ok {
		return nil, ErrInvalidState
	}
	vault, err := l.state.EscrowVaultAddress()
	if err != nil {
		return nil, err
	}
	if err := l.registry.TransferFrom(l.seller, vault, id); err != nil {
		return nil, err
	}
	listing := &Listing{
		ID:            id,
		Seller:        l.seller,
		PurchasePrice: cloneBigInt(price),
		DownPayment:   DownPaymentFor(price),
		Status:        StatusListed,
		IsListed:      true,
		CreatedAt:     l.now(),
	}
	if err := l.storeListing(listing); err != nil {
		return nil, err
	}
	l.emit(NewListedEvent(listing))
	return listing.Clone(), nil
}

// RegisterIntentToBuy binds the caller as buyer, takes the exact down payment
// into custody and queues the listing for inspection. Any address may call it.
func (l *Ledger) RegisterIntentToBuy(id uint64, caller [20]byte, payment *big.Int) error {
	listing, err := l.loadListing(id)
	if err != nil {
		return err
	}
	if listing.Status != StatusListed {
		return ErrInvalidState
	}
	if payment == nil || listing.DownPayment == nil || payment.Cmp(listing.DownPayment) != 0 {
		return ErrInvalidPayment
	}
	vault, err := l.state.EscrowVaultAddress()
	if err != nil {
		return err
	}
	if err := l.transferFunds(caller, vault, payment); err != nil {
		return err
	}
	if err := l.state.CustodyCredit(id, payment); err != nil {
		return err
	}
	listing.Buyer = caller
	listing.Status = StatusPendingInspection
	if err := l.storeListing(listing); err != nil {
		return err
	}
	if err := l.state.PendingAdd(RoleInspector, l.inspector, id); err != nil {
		return err
	}
	l.emit(NewInspectionCreatedEvent(listing))
	return nil
}

// ApproveInspection moves the listing from the inspector's queue to the
// seller's sale-approval queue.
func (l *Ledger) ApproveInspection(id uint64, caller [20]byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if caller != l.inspector {
		return ErrUnauthorized
	}
	listing, err := l.loadListing(id)
	if err != nil {
		return err
	}
	if listing.Status != StatusPendingInspection {
		return ErrInvalidState
	}
	listing.Status = StatusInspectionApproved
	if err := l.storeListing(listing); err != nil {
		return err
	}
	if err := l.state.PendingRemove(RoleInspector, l.inspector, id); err != nil {
		return err
	}
	if err := l.state.PendingAdd(RoleSeller, l.seller, id); err != nil {
		return err
	}
	l.emit(NewInspectionApprovedEvent(listing))
	return nil
}

// RejectInspection refunds the buyer's down payment and relists the property.
func (l *Ledger) RejectInspection(id uint64, caller [20]byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if caller != l.inspector {
		return ErrUnauthorized
	}
	listing, err := l.loadListing(id)
	if err != nil {
		return err
	}
	if listing.Status != StatusPendingInspection {
		return ErrInvalidState
	}
	if err := l.refundBuyer(listing); err != nil {
		return err
	}
	if err := l.state.PendingRemove(RoleInspector, l.inspector, id); err != nil {
		return err
	}
	l.emit(NewInspectionRejectedEvent(listing))
	return nil
}

// ApproveSale moves the listing from the seller's queue to the buyer's
// final-payment queue.
func (l *Ledger) ApproveSale(id uint64, caller [20]byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if caller != l.seller {
		return ErrUnauthorized
	}
	listing, err := l.loadListing(id)
	if err != nil {
		return err
	}
	if listing.Status != StatusInspectionApproved {
		return ErrInvalidState
	}
	listing.Status = StatusPendingFinalPayment
	if err := l.storeListing(listing); err != nil {
		return err
	}
	if err := l.state.PendingRemove(RoleSeller, l.seller, id); err != nil {
		return err
	}
	if err := l.state.PendingAdd(RoleBuyer, listing.Buyer, id); err != nil {
		return err
	}
	l.emit(NewSaleApprovedEvent(listing))
	return nil
}

// DeclineSale refunds the buyer and relists the property.
func (l *Ledger) DeclineSale(id uint64, caller [20]byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if caller != l.seller {
		return ErrUnauthorized
	}
	listing, err := l.loadListing(id)
	if err != nil {
		return err
	}
	if listing.Status != StatusInspectionApproved {
		return ErrInvalidState
	}
	if err := l.refundBuyer(listing); err != nil {
		return err
	}
	if err := l.state.PendingRemove(RoleSeller, l.seller, id); err != nil {
		return err
	}
	l.emit(NewSaleDeclinedEvent(listing))
	return nil
}

// CompletePurchase settles the sale: the buyer pays the exact remaining
// balance, the full custody balance is released to the seller and deed
// ownership transfers to the buyer.
func (l *Ledger) CompletePurchase(id uint64, caller [20]byte, payment *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if l.registry == nil {
		return errNilRegistry
	}
	listing, err := l.loadListing(id)
	if err != nil {
		return err
	}
	if caller != listing.Buyer {
		return ErrUnauthorized
	}
	if listing.Status != StatusPendingFinalPayment {
		return ErrInvalidState
	}
	remaining := new(big.Int).Sub(cloneBigInt(listing.PurchasePrice), cloneBigInt(listing.DownPayment))
	if payment == nil || payment.Cmp(remaining) != 0 {
		return ErrInvalidPayment
	}
	vault, err := l.state.EscrowVaultAddress()
	if err != nil {
		return err
	}
	if err := l.transferFunds(caller, vault, payment); err != nil {
		return err
	}
	if err := l.state.CustodyCredit(id, payment); err != nil {
		return err
	}
	balance, err := l.state.CustodyBalance(id)
	if err != nil {
		return err
	}
	if err := l.transferFunds(vault, listing.Seller, balance); err != nil {
		return err
	}
	if err := l.state.CustodyDebit(id, balance); err != nil {
		return err
	}
	if err := l.registry.TransferFrom(vault, listing.Buyer, id); err != nil {
		return err
	}
	listing.Status = StatusSold
	listing.IsListed = false
	if err := l.storeListing(listing); err != nil {
		return err
	}
	if err := l.state.PendingRemove(RoleBuyer, listing.Buyer, id); err != nil {
		return err
	}
	l.emit(NewPurchaseCompletedEvent(listing))
	return nil
}

// DeclinePurchase lets the buyer back out at the final-payment stage. The down
// payment is refunded in full and the deed stays in vault custody, relisted
// for the next buyer.
func (l *Ledger) DeclinePurchase(id uint64, caller [20]byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	listing, err := l.loadListing(id)
	if err != nil {
		return err
	}
	if caller != listing.Buyer {
		return ErrUnauthorized
	}
	if listing.Status != StatusPendingFinalPayment {
		return ErrInvalidState
	}
	buyer := listing.Buyer
	if err := l.refundBuyer(listing); err != nil {
		return err
	}
	if err := l.state.PendingRemove(RoleBuyer, buyer, id); err != nil {
		return err
	}
	l.emit(NewPurchaseDeclinedEvent(listing))
	return nil
}

// refundBuyer returns the listing's full custody balance to the buyer, clears
// the buyer binding and reverts the listing to LISTED. Shared by every
// rejection path.
func (l *Ledger) refundBuyer(listing *Listing) error {
	if listing == nil {
		return fmt.Errorf("escrow: nil listing")
	}
	vault, err := l.state.EscrowVaultAddress()
	if err != nil {
		return err
	}
	balance, err := l.state.CustodyBalance(listing.ID)
	if err != nil {
		return err
	}
	if balance.Sign() > 0 {
		if err := l.transferFunds(vault, listing.Buyer, balance); err != nil {
			return err
		}
		if err := l.state.CustodyDebit(listing.ID, balance); err != nil {
			return err
		}
	}
	listing.Buyer = [20]byte{}
	listing.Status = StatusListed
	return l.storeListing(listing)
}
