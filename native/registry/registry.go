package registry

import (
	"errors"
	"time"

	"deedvault/core/events"
	"deedvault/core/types"
)

var (
	// ErrDeedNotFound is returned for an unknown deed id.
	ErrDeedNotFound = errors.New("registry: deed not found")
	// ErrNotOwner is returned when the caller does not own the deed.
	ErrNotOwner = errors.New("registry: caller is not the deed owner")
	// ErrNotAuthorized is returned when a transfer is attempted by an operator
	// that is neither the owner nor the approved address.
	ErrNotAuthorized = errors.New("registry: operator not authorized for transfer")

	errNilState = errors.New("registry: state not configured")
)

type registryState interface {
	DeedPut(*Deed) error
	DeedGet(id uint64) (*Deed, bool)
	DeedCount() (uint64, error)
	DeedSetCount(count uint64) error
}

// Registry is the ownership ledger for property deeds. Ids are assigned
// sequentially from one at mint time; the escrow ledger keys its listings by
// the same ids.
type Registry struct {
	state   registryState
	emitter events.Emitter
	nowFn   func() int64
}

// NewRegistry creates a deed registry with a no-op emitter.
func NewRegistry() *Registry {
	return &Registry{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) emit(evt *types.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(deedEvent{evt: evt})
}

func (r *Registry) now() int64 {
	if r == nil || r.nowFn == nil {
		return time.Now().Unix()
	}
	return r.nowFn()
}

func (r *Registry) loadDeed(id uint64) (*Deed, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	deed, ok := r.state.DeedGet(id)
	if !ok {
		return nil, ErrDeedNotFound
	}
	return deed, nil
}

// Mint issues a new deed to the owner with the supplied metadata URI and
// returns the stored record.
func (r *Registry) Mint(owner [20]byte, uri string) (*Deed, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	count, err := r.state.DeedCount()
	if err != nil {
		return nil, err
	}
	deed := &Deed{
		ID:       count + 1,
		Owner:    owner,
		URI:      uri,
		MintedAt: r.now(),
	}
	sanitized, err := SanitizeDeed(deed)
	if err != nil {
		return nil, err
	}
	if err := r.state.DeedSetCount(sanitized.ID); err != nil {
		return nil, err
	}
	if err := r.state.DeedPut(sanitized); err != nil {
		return nil, err
	}
	r.emit(NewDeedMintedEvent(sanitized))
	return sanitized.Clone(), nil
}

// Approve authorizes a single operator to transfer the deed on the owner's
// behalf. Only the current owner may approve.
func (r *Registry) Approve(caller, operator [20]byte, id uint64) error {
	deed, err := r.loadDeed(id)
	if err != nil {
		return err
	}
	if deed.Owner != caller {
		return ErrNotOwner
	}
	deed.Approved = operator
	if err := r.state.DeedPut(deed); err != nil {
		return err
	}
	r.emit(NewDeedApprovedEvent(deed))
	return nil
}

// Deed returns a copy of the stored deed record.
func (r *Registry) Deed(id uint64) (*Deed, error) {
	deed, err := r.loadDeed(id)
	if err != nil {
		return nil, err
	}
	return deed.Clone(), nil
}

// OwnerOf returns the current owner of the deed.
func (r *Registry) OwnerOf(id uint64) ([20]byte, error) {
	deed, err := r.loadDeed(id)
	if err != nil {
		return [20]byte{}, err
	}
	return deed.Owner, nil
}

// TokenURI returns the opaque metadata pointer for the deed.
func (r *Registry) TokenURI(id uint64) (string, error) {
	deed, err := r.loadDeed(id)
	if err != nil {
		return "", err
	}
	return deed.URI, nil
}

// TotalSupply reports how many deeds have been minted.
func (r *Registry) TotalSupply() (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	return r.state.DeedCount()
}

// TransferFrom moves deed ownership. The operator must be the owner or the
// approved address; any approval is consumed by the transfer.
func (r *Registry) TransferFrom(operator, from, to [20]byte, id uint64) error {
	deed, err := r.loadDeed(id)
	if err != nil {
		return err
	}
	if deed.Owner != from {
		return ErrNotOwner
	}
	if operator != deed.Owner && operator != deed.Approved {
		return ErrNotAuthorized
	}
	deed.Owner = to
	deed.Approved = [20]byte{}
	if err := r.state.DeedPut(deed); err != nil {
		return err
	}
	r.emit(NewDeedTransferredEvent(deed, from))
	return nil
}
