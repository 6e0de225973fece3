package vault

import (
	"fmt"

	"github.com/terminal-bench/timevault/pkg/messaging"
)

// requireOwner is the single owner gate used by every owner-only operation.
// Callers must hold v.mu.
func (v *Vault) requireOwner(caller Principal) error {
	if caller != v.owner {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

// Owner returns the current owner principal.
func (v *Vault) Owner() Principal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.owner
}

// TransferOwnership hands the vault to a new owner. The null principal is
// rejected so ownership can never be burned by accident.
func (v *Vault) TransferOwnership(caller Principal, newOwner Principal) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == NoPrincipal {
		return fmt.Errorf("%w: new owner must be set", ErrInvalidParameter)
	}

	previous := v.owner
	v.owner = newOwner
	v.emit(messaging.SubjectOwnerChanged, messaging.OwnerChangedEvent{
		Previous: string(previous),
		Next:     string(newOwner),
	})
	return nil
}

// IsAuthorized reports whether a principal is an authorized spender.
// Unknown principals default to unauthorized.
func (v *Vault) IsAuthorized(spender Principal) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.spenders[spender]
}

// SetAuthorized flips a spender's registry entry. Owner only. Every change
// is emitted for external auditability.
func (v *Vault) SetAuthorized(caller Principal, spender Principal, authorized bool) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if spender == NoPrincipal {
		return fmt.Errorf("%w: spender must be set", ErrInvalidParameter)
	}

	if authorized {
		v.spenders[spender] = true
	} else {
		delete(v.spenders, spender)
	}
	v.emit(messaging.SubjectSpenderChanged, messaging.SpenderChangedEvent{
		Principal:  string(spender),
		Authorized: authorized,
	})
	return nil
}
