package registry

import (
	"fmt"
	"strings"
)

// Deed is a single tokenized property title. Ownership and the opaque metadata
// pointer follow ERC-721 semantics: one owner, one optional approved operator,
// a URI interpreted only by the presentation layer.
type Deed struct {
	ID       uint64
	Owner    [20]byte
	Approved [20]byte
	URI      string
	MintedAt int64
}

// Clone returns a copy of the deed so callers can mutate it freely.
func (d *Deed) Clone() *Deed {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// SanitizeDeed validates the supplied deed and returns a cloned instance with
// a trimmed metadata URI. The function does not mutate the original value.
func SanitizeDeed(d *Deed) (*Deed, error) {
	if d == nil {
		return nil, fmt.Errorf("registry: nil deed")
	}
	clone := d.Clone()
	clone.URI = strings.TrimSpace(clone.URI)
	if clone.ID == 0 {
		return nil, fmt.Errorf("registry: deed id must be positive")
	}
	if clone.Owner == ([20]byte{}) {
		return nil, fmt.Errorf("registry: deed owner required")
	}
	return clone, nil
}
