package treasury_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/timevault/internal/treasury"
	"github.com/terminal-bench/timevault/internal/vault"
	"github.com/terminal-bench/timevault/pkg/amount"
)

func TestMemoryTreasury(t *testing.T) {
	alice := vault.Principal("alice")

	t.Run("deposit credits the held balance", func(t *testing.T) {
		m := treasury.NewMemory(amount.Zero)
		require.NoError(t, m.Deposit(alice, amount.FromBaseUnits(100)))
		assert.Equal(t, amount.FromBaseUnits(100), m.Balance())
	})

	t.Run("transfer moves held value to the principal", func(t *testing.T) {
		m := treasury.NewMemory(amount.FromBaseUnits(100))
		require.NoError(t, m.Transfer(alice, amount.FromBaseUnits(60)))
		assert.Equal(t, amount.FromBaseUnits(40), m.Balance())
		assert.Equal(t, amount.FromBaseUnits(60), m.AccountBalance(alice))
	})

	t.Run("transfer beyond holdings fails without side effects", func(t *testing.T) {
		m := treasury.NewMemory(amount.FromBaseUnits(10))
		err := m.Transfer(alice, amount.FromBaseUnits(11))
		assert.ErrorIs(t, err, treasury.ErrInsufficientFunds)
		assert.Equal(t, amount.FromBaseUnits(10), m.Balance())
		assert.Equal(t, amount.Zero, m.AccountBalance(alice))
	})
}

func TestFakeClock(t *testing.T) {
	c := &treasury.FakeClock{Time: 100}
	assert.Equal(t, uint64(100), c.Now())
	c.Advance(50)
	assert.Equal(t, uint64(150), c.Now())
}
