package vault

import (
	"github.com/google/uuid"

	"github.com/terminal-bench/timevault/pkg/amount"
)

// Status is the lifecycle state of a payment record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusCanceled Status = "canceled"
	StatusPaid     Status = "paid"
)

// Payment is one record in the append-only ledger. Its index in the ledger
// is its permanent identifier; records are never removed or reordered.
// Name, Reference, Spender, Recipient and Amount are immutable after
// creation.
type Payment struct {
	Name      string        `json:"name"`
	Reference uuid.UUID     `json:"reference"`
	Spender   Principal     `json:"spender"`
	Recipient Principal     `json:"recipient"`
	Amount    amount.Amount `json:"amount"`

	// EarliestPayTime only ever increases (guard delays); collection is
	// rejected until the clock passes it.
	EarliestPayTime uint64 `json:"earliest_pay_time"`
	// GuardDelay is the total seconds the security guard has added,
	// bounded by the vault's max guard delay.
	GuardDelay uint64 `json:"guard_delay"`

	Canceled bool `json:"canceled"`
	Paid     bool `json:"paid"`
}

// Status derives the lifecycle state from the terminal flags. Canceled and
// Paid are mutually exclusive by construction.
func (p *Payment) Status() Status {
	switch {
	case p.Canceled:
		return StatusCanceled
	case p.Paid:
		return StatusPaid
	default:
		return StatusPending
	}
}
