// Package vault implements the payment-authorization state machine: a
// custodial ledger of time-locked payments gated by an owner, a spender
// registry and a security guard, with an emergency escape hatch.
package vault

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/terminal-bench/timevault/pkg/amount"
	"github.com/terminal-bench/timevault/pkg/messaging"
)

// maxScheduleDelay is the overflow-safety ceiling on any requested or
// guard-added delay, in seconds.
const maxScheduleDelay uint64 = 1_000_000_000_000_000_000

// Config carries the initialization parameters. EscapeDestination is fixed
// for the vault's lifetime; the rest are owner-mutable where the operations
// below say so.
type Config struct {
	Owner               Principal
	EscapeCaller        Principal
	EscapeDestination   Principal
	AbsoluteMinTimeLock uint64
	TimeLock            uint64
	SecurityGuard       Principal
	MaxGuardDelay       uint64
}

// Vault holds all custody state. Every operation is serialized by mu;
// transferring flags an in-flight value transfer so that a synchronous
// callback from the treasury is rejected instead of deadlocking.
type Vault struct {
	mu           sync.Mutex
	transferring atomic.Bool

	owner    Principal
	spenders map[Principal]bool

	absoluteMinTimeLock uint64
	timeLock            uint64
	guard               Principal
	maxGuardDelay       uint64

	escapeCaller      Principal
	escapeDestination Principal

	payments []*Payment

	clock    Clock
	treasury Treasury
	events   messaging.Publisher
}

// New constructs a vault. The owner and escape destination must be set;
// the initial time lock may not be below the absolute minimum.
func New(cfg Config, clock Clock, treasury Treasury, events messaging.Publisher) (*Vault, error) {
	if cfg.Owner == NoPrincipal {
		return nil, fmt.Errorf("%w: owner must be set", ErrInvalidParameter)
	}
	if cfg.EscapeDestination == NoPrincipal {
		return nil, fmt.Errorf("%w: escape destination must be set", ErrInvalidParameter)
	}
	if cfg.TimeLock < cfg.AbsoluteMinTimeLock {
		return nil, fmt.Errorf("%w: time lock %d below absolute minimum %d",
			ErrInvalidParameter, cfg.TimeLock, cfg.AbsoluteMinTimeLock)
	}
	if clock == nil || treasury == nil {
		return nil, fmt.Errorf("%w: clock and treasury are required", ErrInvalidParameter)
	}

	return &Vault{
		owner:               cfg.Owner,
		spenders:            make(map[Principal]bool),
		absoluteMinTimeLock: cfg.AbsoluteMinTimeLock,
		timeLock:            cfg.TimeLock,
		guard:               cfg.SecurityGuard,
		maxGuardDelay:       cfg.MaxGuardDelay,
		escapeCaller:        cfg.EscapeCaller,
		escapeDestination:   cfg.EscapeDestination,
		clock:               clock,
		treasury:            treasury,
		events:              events,
	}, nil
}

// enter rejects any operation attempted while a value transfer is in
// flight. It runs before the mutex so a same-goroutine callback fails with
// ErrReentrant instead of deadlocking.
func (v *Vault) enter() error {
	if v.transferring.Load() {
		return ErrReentrant
	}
	return nil
}

func (v *Vault) emit(subject string, data interface{}) {
	if v.events == nil {
		return
	}
	evt, err := messaging.NewEvent(subject, data)
	if err != nil {
		return
	}
	// Best effort: audit sinks must not block custody operations.
	_ = v.events.Publish(evt)
}

// checkedAdd fails closed instead of wrapping.
func checkedAdd(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, fmt.Errorf("%w: time arithmetic overflow", ErrInvalidParameter)
	}
	return a + b, nil
}

// paymentAt bounds-checks an index. The bound is strictly less-than: an
// index equal to the ledger length is out of range.
func (v *Vault) paymentAt(idx int) (*Payment, error) {
	if idx < 0 || idx >= len(v.payments) {
		return nil, ErrNotFound
	}
	return v.payments[idx], nil
}

// AuthorizePayment appends a new pending record and returns its index.
// The caller must be an authorized spender. The earliest pay time is
// now + max(delayRequested, timeLock), so a spender can lengthen but never
// shorten the mandatory cooling-off period.
func (v *Vault) AuthorizePayment(caller Principal, name string, reference uuid.UUID, recipient Principal, amt amount.Amount, delayRequested uint64) (int, error) {
	if err := v.enter(); err != nil {
		return 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.spenders[caller] {
		return 0, fmt.Errorf("%w: %s is not an authorized spender", ErrUnauthorized, caller)
	}
	if recipient == NoPrincipal {
		return 0, fmt.Errorf("%w: recipient must be set", ErrInvalidParameter)
	}
	if delayRequested >= maxScheduleDelay {
		return 0, fmt.Errorf("%w: requested delay %d exceeds ceiling", ErrInvalidParameter, delayRequested)
	}

	delay := delayRequested
	if v.timeLock > delay {
		delay = v.timeLock
	}
	earliest, err := checkedAdd(v.clock.Now(), delay)
	if err != nil {
		return 0, err
	}

	p := &Payment{
		Name:            name,
		Reference:       reference,
		Spender:         caller,
		Recipient:       recipient,
		Amount:          amt,
		EarliestPayTime: earliest,
	}
	v.payments = append(v.payments, p)
	idx := len(v.payments) - 1

	v.emit(messaging.SubjectPaymentAuthorized, messaging.PaymentAuthorizedEvent{
		Index:           idx,
		Name:            p.Name,
		Reference:       p.Reference,
		Spender:         string(p.Spender),
		Recipient:       string(p.Recipient),
		Amount:          p.Amount.String(),
		EarliestPayTime: p.EarliestPayTime,
	})
	return idx, nil
}

// CollectPayment transfers a pending payment's amount to its recipient once
// the earliest pay time has passed. The record is marked paid before the
// transfer so a re-entrant treasury can never observe a collectable state;
// a failed transfer rolls the mark back and the call fails whole.
func (v *Vault) CollectPayment(caller Principal, idx int) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	p, err := v.paymentAt(idx)
	if err != nil {
		return err
	}
	if caller != p.Recipient {
		return fmt.Errorf("%w: only the recipient may collect", ErrUnauthorized)
	}
	if !v.spenders[p.Spender] {
		return ErrSpenderRevoked
	}
	if v.clock.Now() <= p.EarliestPayTime {
		return ErrTooEarly
	}
	if p.Canceled {
		return ErrAlreadyCanceled
	}
	if p.Paid {
		return ErrAlreadyPaid
	}
	if v.treasury.Balance() < p.Amount {
		return ErrInsufficientBalance
	}

	// Mark paid before the transfer, and release the guard flag (and roll
	// the mark back) on every exit path, panics included.
	p.Paid = true
	v.transferring.Store(true)
	committed := false
	defer func() {
		v.transferring.Store(false)
		if !committed {
			p.Paid = false
		}
	}()
	if err := v.treasury.Transfer(p.Recipient, p.Amount); err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}
	committed = true

	v.emit(messaging.SubjectPaymentCollected, messaging.PaymentCollectedEvent{
		Index:     idx,
		Recipient: string(p.Recipient),
		Amount:    p.Amount.String(),
	})
	return nil
}

// DelayPayment lets the security guard push a pending payment's earliest
// pay time later. The total added delay is capped so the owner always has a
// bounded window in which cancellation remains possible.
func (v *Vault) DelayPayment(caller Principal, idx int, extraDelay uint64) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.guard == NoPrincipal || caller != v.guard {
		return fmt.Errorf("%w: only the security guard may delay payments", ErrUnauthorized)
	}
	p, err := v.paymentAt(idx)
	if err != nil {
		return err
	}
	if extraDelay >= maxScheduleDelay {
		return fmt.Errorf("%w: extra delay %d exceeds ceiling", ErrInvalidParameter, extraDelay)
	}
	if p.Canceled {
		return ErrAlreadyCanceled
	}
	if p.Paid {
		return ErrAlreadyPaid
	}

	total, err := checkedAdd(p.GuardDelay, extraDelay)
	if err != nil {
		return err
	}
	if total >= v.maxGuardDelay {
		return ErrDelayBudgetExceeded
	}
	earliest, err := checkedAdd(p.EarliestPayTime, extraDelay)
	if err != nil {
		return err
	}

	p.GuardDelay = total
	p.EarliestPayTime = earliest

	v.emit(messaging.SubjectPaymentDelayed, messaging.PaymentDelayedEvent{
		Index:           idx,
		ExtraDelay:      extraDelay,
		EarliestPayTime: p.EarliestPayTime,
	})
	return nil
}

// CancelPayment irreversibly cancels a pending record. Owner only.
func (v *Vault) CancelPayment(caller Principal, idx int) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	p, err := v.paymentAt(idx)
	if err != nil {
		return err
	}
	if p.Canceled {
		return ErrAlreadyCanceled
	}
	if p.Paid {
		return ErrAlreadyPaid
	}

	p.Canceled = true
	v.emit(messaging.SubjectPaymentCanceled, messaging.PaymentCanceledEvent{Index: idx})
	return nil
}

// Deposit accepts inbound value from any principal. Deposits never create
// payment records.
func (v *Vault) Deposit(from Principal, amt amount.Amount) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.treasury.Deposit(from, amt); err != nil {
		return fmt.Errorf("deposit failed: %w", err)
	}
	v.emit(messaging.SubjectValueReceived, messaging.ValueReceivedEvent{
		From:    string(from),
		Amount:  amt.String(),
		Balance: v.treasury.Balance().String(),
	})
	return nil
}

// SetTimeLock adjusts the default minimum delay for future authorizations.
// Values at or below the absolute minimum are rejected; already-created
// records keep their computed earliest pay time.
func (v *Vault) SetTimeLock(caller Principal, newTimeLock uint64) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if newTimeLock <= v.absoluteMinTimeLock {
		return fmt.Errorf("%w: time lock %d not above absolute minimum %d",
			ErrInvalidParameter, newTimeLock, v.absoluteMinTimeLock)
	}
	v.timeLock = newTimeLock
	v.emit(messaging.SubjectConfigChanged, messaging.ConfigChangedEvent{
		Field: "time_lock", Value: strconv.FormatUint(newTimeLock, 10),
	})
	return nil
}

// SetMaxSecurityGuardDelay adjusts the guard's total delay budget for all
// records. Owner only, unconditional.
func (v *Vault) SetMaxSecurityGuardDelay(caller Principal, newMax uint64) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	v.maxGuardDelay = newMax
	v.emit(messaging.SubjectConfigChanged, messaging.ConfigChangedEvent{
		Field: "max_guard_delay", Value: strconv.FormatUint(newMax, 10),
	})
	return nil
}

// SetSecurityGuard replaces the guard principal. Setting NoPrincipal
// disables guard delays entirely.
func (v *Vault) SetSecurityGuard(caller Principal, guard Principal) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	v.guard = guard
	v.emit(messaging.SubjectConfigChanged, messaging.ConfigChangedEvent{
		Field: "security_guard", Value: string(guard),
	})
	return nil
}

// Payment returns a copy of the record at idx.
func (v *Vault) Payment(idx int) (Payment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p, err := v.paymentAt(idx)
	if err != nil {
		return Payment{}, err
	}
	return *p, nil
}

// Payments returns a copy of the whole ledger in creation order.
func (v *Vault) Payments() []Payment {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Payment, len(v.payments))
	for i, p := range v.payments {
		out[i] = *p
	}
	return out
}

// NumPayments returns the ledger length.
func (v *Vault) NumPayments() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.payments)
}

// Balance reports the currently held balance.
func (v *Vault) Balance() amount.Amount {
	return v.treasury.Balance()
}

// TimeLock returns the current default minimum delay.
func (v *Vault) TimeLock() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timeLock
}

// SecurityGuard returns the current guard principal.
func (v *Vault) SecurityGuard() Principal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.guard
}

// MaxSecurityGuardDelay returns the guard's delay budget.
func (v *Vault) MaxSecurityGuardDelay() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxGuardDelay
}
