package escrow

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role required for
	// the listing and operation. It is reported before any status inspection
	// so an unauthorized caller cannot probe a listing's state.
	ErrUnauthorized = errors.New("escrow: unauthorized caller")
	// ErrInvalidState is returned when the operation is not valid for the
	// listing's current status.
	ErrInvalidState = errors.New("escrow: operation not valid in current status")
	// ErrInvalidPayment is returned when the attached payment differs from the
	// exact required amount. The ledger performs no change-making, so both
	// under- and over-payment are rejected.
	ErrInvalidPayment = errors.New("escrow: payment must equal required amount")
	// ErrNotFound is returned for an unknown listing id.
	ErrNotFound = errors.New("escrow: listing not found")
	// ErrInvalidPrice is returned when a listing is created with a
	// non-positive purchase price.
	ErrInvalidPrice = errors.New("escrow: purchase price must be positive")

	errNilState    = errors.New("escrow ledger: state not configured")
	errNilRegistry = errors.New("escrow ledger: asset registry not configured")
)
