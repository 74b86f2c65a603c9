package state

import (
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"deedvault/storage"
)

// Manager provides keccak-keyed, RLP-encoded access to ledger state on top of
// a raw key-value database. It implements the narrow state interfaces consumed
// by the escrow ledger and the deed registry.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	listingPrefix  = []byte("escrow/listing/")
	custodyPrefix  = []byte("escrow/custody/")
	pendingPrefix  = []byte("escrow/pending/")
	accountPrefix  = []byte("account/")
	deedPrefix     = []byte("registry/deed/")
	listingIDsKey  = []byte("escrow/listing-ids")
	seedAppliedKey = []byte("genesis/seed-applied")
	deedCountKey   = []byte("registry/deed-count")
	vaultSeedBytes = []byte("deedvault/escrow-vault")
)

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func idKey(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return buf
}

func addrKey(prefix []byte, addr []byte) []byte {
	buf := make([]byte, len(prefix)+len(addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], addr)
	return buf
}

func pendingKey(role uint8, addr [20]byte) []byte {
	buf := make([]byte, len(pendingPrefix)+1+1+len(addr))
	copy(buf, pendingPrefix)
	buf[len(pendingPrefix)] = role
	buf[len(pendingPrefix)+1] = '/'
	copy(buf[len(pendingPrefix)+2:], addr[:])
	return buf
}

// kvPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 so arbitrary-length logical keys map onto
// the fixed-width keyspace of the underlying database.
func (m *Manager) kvPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// kvGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return reports whether the key existed.
func (m *Manager) kvGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	ok, err := m.db.Has(hashed)
	if err != nil || !ok {
		return false, err
	}
	data, err := m.db.Get(hashed)
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// SeedApplied reports whether genesis allocations have been credited.
func (m *Manager) SeedApplied() (bool, error) {
	var applied bool
	ok, err := m.kvGet(seedAppliedKey, &applied)
	if err != nil {
		return false, err
	}
	return ok && applied, nil
}

// MarkSeedApplied records that genesis allocations were credited so restarts
// do not credit them again.
func (m *Manager) MarkSeedApplied() error {
	return m.kvPut(seedAppliedKey, true)
}

// EscrowVaultAddress returns the address holding escrowed funds and deeds. It
// is derived deterministically from a fixed seed so every node agrees on it.
func (m *Manager) EscrowVaultAddress() ([20]byte, error) {
	hash := ethcrypto.Keccak256(vaultSeedBytes)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr, nil
}
