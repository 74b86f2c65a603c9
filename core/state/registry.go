package state

import (
	"deedvault/native/registry"
)

type storedDeed struct {
	ID       uint64
	Owner    [20]byte
	Approved [20]byte
	URI      string
	MintedAt uint64
}

// DeedPut persists the sanitized deed record.
func (m *Manager) DeedPut(d *registry.Deed) error {
	sanitized, err := registry.SanitizeDeed(d)
	if err != nil {
		return err
	}
	minted := uint64(0)
	if sanitized.MintedAt > 0 {
		minted = uint64(sanitized.MintedAt)
	}
	stored := &storedDeed{
		ID:       sanitized.ID,
		Owner:    sanitized.Owner,
		Approved: sanitized.Approved,
		URI:      sanitized.URI,
		MintedAt: minted,
	}
	return m.kvPut(idKey(deedPrefix, sanitized.ID), stored)
}

// DeedGet loads a deed by id.
func (m *Manager) DeedGet(id uint64) (*registry.Deed, bool) {
	var stored storedDeed
	ok, err := m.kvGet(idKey(deedPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &registry.Deed{
		ID:       stored.ID,
		Owner:    stored.Owner,
		Approved: stored.Approved,
		URI:      stored.URI,
		MintedAt: int64(stored.MintedAt),
	}, true
}

// DeedCount reports how many deeds have been minted.
func (m *Manager) DeedCount() (uint64, error) {
	var count uint64
	ok, err := m.kvGet(deedCountKey, &count)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return count, nil
}

// DeedSetCount records the highest minted deed id.
func (m *Manager) DeedSetCount(count uint64) error {
	return m.kvPut(deedCountKey, count)
}
