package types

import "math/big"

// Account tracks the spendable currency balance for an address known to the
// escrow ledger. Balances are denominated in wei.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
