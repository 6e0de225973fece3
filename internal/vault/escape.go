package vault

import (
	"fmt"

	"github.com/terminal-bench/timevault/pkg/amount"
	"github.com/terminal-bench/timevault/pkg/messaging"
)

// EscapeHatch drains the entire held balance to the fixed escape
// destination. Break-glass path: it bypasses per-payment state entirely and
// is callable only by the owner or the designated escape-hatch caller.
// Returns the drained amount.
func (v *Vault) EscapeHatch(caller Principal) (amount.Amount, error) {
	if err := v.enter(); err != nil {
		return amount.Zero, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.owner && (v.escapeCaller == NoPrincipal || caller != v.escapeCaller) {
		return amount.Zero, fmt.Errorf("%w: only the owner or escape-hatch caller may drain", ErrUnauthorized)
	}

	total := v.treasury.Balance()
	v.transferring.Store(true)
	defer v.transferring.Store(false)
	if err := v.treasury.Transfer(v.escapeDestination, total); err != nil {
		return amount.Zero, fmt.Errorf("escape transfer failed: %w", err)
	}

	v.emit(messaging.SubjectEscapeInvoked, messaging.EscapeInvokedEvent{
		Caller:      string(caller),
		Destination: string(v.escapeDestination),
		Amount:      total.String(),
	})
	return total, nil
}

// ChangeEscapeCaller reassigns the escape-hatch caller. Callable by the
// owner or the current caller, unconditionally.
func (v *Vault) ChangeEscapeCaller(caller Principal, newCaller Principal) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.owner && (v.escapeCaller == NoPrincipal || caller != v.escapeCaller) {
		return fmt.Errorf("%w: only the owner or escape-hatch caller may reassign", ErrUnauthorized)
	}

	previous := v.escapeCaller
	v.escapeCaller = newCaller
	v.emit(messaging.SubjectEscapeCallerChanged, messaging.EscapeCallerChangedEvent{
		Previous: string(previous),
		Next:     string(newCaller),
	})
	return nil
}

// EscapeCaller returns the current escape-hatch caller.
func (v *Vault) EscapeCaller() Principal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.escapeCaller
}

// EscapeDestination returns the fixed drain destination.
func (v *Vault) EscapeDestination() Principal {
	return v.escapeDestination
}
