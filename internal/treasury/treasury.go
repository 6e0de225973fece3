// Package treasury models the host environment's value primitives: the
// custody balance with atomic transfer-out, and the clock. The vault core
// consumes these only through its ports, so tests substitute controllable
// implementations.
package treasury

import (
	"errors"
	"fmt"
	"sync"

	"github.com/terminal-bench/timevault/internal/vault"
	"github.com/terminal-bench/timevault/pkg/amount"
)

var ErrInsufficientFunds = errors.New("treasury: insufficient funds")

// Memory is an in-process treasury. It tracks the vault's held balance and
// the cumulative value paid out to each principal.
type Memory struct {
	mu       sync.Mutex
	held     amount.Amount
	accounts map[vault.Principal]amount.Amount
}

// NewMemory creates a treasury with the given opening balance.
func NewMemory(opening amount.Amount) *Memory {
	return &Memory{
		held:     opening,
		accounts: make(map[vault.Principal]amount.Amount),
	}
}

// Balance returns the currently held balance.
func (m *Memory) Balance() amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

// Deposit credits inbound value to the held balance.
func (m *Memory) Deposit(from vault.Principal, amt amount.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.held.Add(amt)
	if err != nil {
		return fmt.Errorf("deposit from %s: %w", from, err)
	}
	m.held = next
	return nil
}

// Transfer atomically moves value from the held balance to a principal.
func (m *Memory) Transfer(to vault.Principal, amt amount.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amt > m.held {
		return ErrInsufficientFunds
	}
	credited, err := m.accounts[to].Add(amt)
	if err != nil {
		return fmt.Errorf("transfer to %s: %w", to, err)
	}
	m.held -= amt
	m.accounts[to] = credited
	return nil
}

// AccountBalance returns the total value transferred to a principal so far.
func (m *Memory) AccountBalance(p vault.Principal) amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[p]
}
