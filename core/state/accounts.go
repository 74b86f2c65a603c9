package state

import (
	"math/big"

	"deedvault/core/types"
)

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the account for the given address, returning a zeroed
// account when none is stored yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.kvGet(addrKey(accountPrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	balance := stored.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: balance}, nil
}

// PutAccount persists the account for the given address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	stored := storedAccount{Balance: big.NewInt(0)}
	if account != nil {
		stored.Nonce = account.Nonce
		if account.Balance != nil {
			stored.Balance = account.Balance
		}
	}
	return m.kvPut(addrKey(accountPrefix, addr), &stored)
}
